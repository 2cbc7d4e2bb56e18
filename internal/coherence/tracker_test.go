package coherence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crt/internal/crterrors"
)

func testClaimText() ClaimText {
	return ClaimText{
		"clm0": "The earth orbits the sun.",
		"clm1": "The earth is flat.",
		"clm2": "Coffee may reduce risk of heart disease.",
		"clm3": "Coffee increases risk of heart disease.",
		"clm4": "The sky is blue on a clear day.",
	}
}

func testContradictions() []ContradictionInput {
	return []ContradictionInput{
		{ClaimIDA: "clm1", ClaimIDB: "clm0", Label: "direct contradiction", EvidenceQuotes: []string{"q1", "q2"}},
		{ClaimIDA: "clm2", ClaimIDB: "clm3", Label: "conflicting claim", EvidenceQuotes: []string{"q1"}},
	}
}

func TestNew_BuildsCanonicalEdgeOrdering(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	edges := tr.DisagreementEdges("")
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Less(t, e.ClaimIDA, e.ClaimIDB)
	}
}

func TestClassifyRelationship_ContradictsVsConflicts(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	edges := tr.DisagreementEdges("clm0")
	require.Len(t, edges, 1)
	assert.Equal(t, RelContradicts, edges[0].Relationship)

	edges = tr.DisagreementEdges("clm2")
	require.Len(t, edges, 1)
	assert.Equal(t, RelConflicts, edges[0].Relationship)
}

func TestEvidenceConfidence_CapsAtOne(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	edges := tr.DisagreementEdges("clm0")
	require.Len(t, edges, 1)
	assert.Equal(t, 1.0, edges[0].Confidence) // 2 quotes -> 1.0

	edges = tr.DisagreementEdges("clm2")
	require.Len(t, edges, 1)
	assert.Equal(t, 0.5, edges[0].Confidence) // 1 quote -> 0.5
}

func TestClaimCoherenceOf_CountsByRelationship(t *testing.T) {
	tr := New(testClaimText(), testContradictions())

	coh, ok := tr.ClaimCoherenceOf("clm0")
	require.True(t, ok)
	assert.Equal(t, 1, coh.TotalRelationships)
	assert.Equal(t, 1, coh.Contradictions)
	assert.Equal(t, 0, coh.Conflicts)

	coh, ok = tr.ClaimCoherenceOf("clm4")
	require.True(t, ok)
	assert.Equal(t, 0, coh.TotalRelationships)
}

func TestClaimCoherenceOf_UnknownClaimReturnsFalse(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	_, ok := tr.ClaimCoherenceOf("does-not-exist")
	assert.False(t, ok)
}

func TestRelatedClaims_ReturnsOtherSideOfEdge(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	related := tr.RelatedClaims("clm0", "")
	require.Len(t, related, 1)
	assert.Equal(t, "clm1", related[0].ClaimID)
	assert.Equal(t, RelContradicts, related[0].Relationship)
}

func TestRelatedClaims_FiltersByRelationship(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	related := tr.RelatedClaims("clm0", RelConflicts)
	assert.Empty(t, related)

	related = tr.RelatedClaims("clm0", RelContradicts)
	assert.Len(t, related, 1)
}

func TestDisagreementClusters_GroupsConnectedClaims(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	clusters := tr.DisagreementClusters()
	require.Len(t, clusters, 2)

	found := map[string]bool{}
	for _, c := range clusters {
		found[c[0]+"|"+c[1]] = true
	}
	assert.True(t, found["clm0|clm1"])
	assert.True(t, found["clm2|clm3"])
}

func TestDisagreementClusters_ExcludesIsolatedClaim(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	clusters := tr.DisagreementClusters()
	for _, c := range clusters {
		for _, id := range c {
			assert.NotEqual(t, "clm4", id)
		}
	}
}

func TestDisagreementClusters_OnlyContradictsAndConflictsJoinClusters(t *testing.T) {
	contradictions := []ContradictionInput{
		{ClaimIDA: "clm0", ClaimIDB: "clm1", Label: "qualifying nuance", EvidenceQuotes: []string{"q1"}},
	}
	tr := New(testClaimText(), contradictions)
	clusters := tr.DisagreementClusters()
	assert.Empty(t, clusters)
}

func TestCoherenceReport_CountsAndDensity(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	report := tr.CoherenceReport()

	assert.Equal(t, 5, report.TotalClaims)
	assert.Equal(t, 2, report.TotalDisagreementEdges)
	assert.Equal(t, 1, report.ContradictionEdges)
	assert.Equal(t, 1, report.ConflictEdges)
	assert.Equal(t, 1, report.NumIsolatedClaims)
	assert.InDelta(t, 2.0/10.0, report.DisagreementDensity, 0.0001)
}

func TestCoherenceReport_HighestConflictClaimsCappedAtFive(t *testing.T) {
	tr := New(testClaimText(), testContradictions())
	report := tr.CoherenceReport()
	assert.LessOrEqual(t, len(report.HighestConflictClaims), 5)
	assert.Equal(t, 1, report.HighestConflictClaims[0].Relationships)
}

func TestForbiddenOperations_AllTrapWithBoundaryViolation(t *testing.T) {
	// forbiddenOps is never embedded in Tracker; the marker type is
	// constructed here, and only here, to exercise the trap methods.
	var f forbiddenOps

	forbidden := []func() error{
		func() error { return f.ResolveDisagreement() },
		func() error { return f.PickCoherentSubset() },
		func() error { return f.SynthesizeResolution() },
	}

	for _, fn := range forbidden {
		err := fn()
		require.Error(t, err)
		assert.True(t, errors.Is(err, crterrors.ErrBoundaryViolation))

		var bv *crterrors.BoundaryViolation
		require.True(t, errors.As(err, &bv))
		assert.NotEmpty(t, bv.Operation)
		assert.NotEmpty(t, bv.Reason)
	}
}
