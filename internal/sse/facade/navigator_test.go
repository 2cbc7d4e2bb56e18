package facade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crt/internal/crterrors"
	"crt/internal/embedder"
)

func testIndex() Index {
	return Index{
		DocID: "doc0",
		Chunks: []Chunk{
			{ChunkID: "c0", Text: "The earth orbits the sun. It is not flat."},
		},
		Claims: []Claim{
			{
				ClaimID:   "clm0",
				ClaimText: "The earth orbits the sun.",
				SupportingQuotes: []Quote{
					{QuoteText: "The earth orbits the sun.", ChunkID: "c0", StartChar: 0, EndChar: 25},
				},
				Ambiguity: Ambiguity{HedgeScore: 0.0},
			},
			{
				ClaimID:   "clm1",
				ClaimText: "It is not flat.",
				SupportingQuotes: []Quote{
					{QuoteText: "It is not flat.", ChunkID: "c0", StartChar: 26, EndChar: 41},
				},
				Ambiguity: Ambiguity{HedgeScore: 0.6},
			},
		},
		Contradictions: []ContradictionPair{
			{ClaimIDA: "clm0", ClaimIDB: "clm1", Label: "contradiction"},
		},
		Clusters: []Cluster{
			{ClusterID: "cl0", ClaimIDs: []string{"clm0", "clm1"}},
		},
	}
}

func TestQuery_KeywordFindsMatchingClaim(t *testing.T) {
	n := New(testIndex(), nil)
	results, err := n.Query(context.Background(), "orbits", 5, SearchKeyword)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "clm0", results[0].ClaimID)
}

func TestQuery_SemanticWithoutEmbedderErrors(t *testing.T) {
	n := New(testIndex(), nil)
	_, err := n.Query(context.Background(), "orbits", 5, SearchSemantic)
	assert.Error(t, err)
}

func TestQuery_SemanticWithEmbedder(t *testing.T) {
	emb := embedder.NewMockEmbedder(8)
	n := New(testIndex(), emb)
	ctx := context.Background()
	v0, _ := emb.Embed(ctx, "The earth orbits the sun.")
	v1, _ := emb.Embed(ctx, "It is not flat.")
	n.SetClaimEmbeddings(map[string][]float32{"clm0": v0, "clm1": v1})

	results, err := n.Query(ctx, "The earth orbits the sun.", 1, SearchSemantic)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "clm0", results[0].ClaimID)
}

func TestProvenance_ValidatesAgainstConcatenatedChunks(t *testing.T) {
	n := New(testIndex(), nil)
	prov, err := n.Provenance("clm0")
	require.NoError(t, err)
	require.Len(t, prov.SupportingQuotes, 1)
	assert.True(t, prov.SupportingQuotes[0].Valid)
}

func TestProvenance_UnknownClaimErrors(t *testing.T) {
	n := New(testIndex(), nil)
	_, err := n.Provenance("does-not-exist")
	assert.Error(t, err)
}

func TestAmbiguity_ExposesHedgeScoreVerbatim(t *testing.T) {
	n := New(testIndex(), nil)
	a, err := n.Ambiguity("clm1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, a.HedgeScore)
}

func TestUncertainClaims_FiltersByMinHedgeOrderedDescending(t *testing.T) {
	n := New(testIndex(), nil)
	claims := n.UncertainClaims(0.5)
	require.Len(t, claims, 1)
	assert.Equal(t, "clm1", claims[0].ClaimID)
}

func TestContradictionByPair_MatchesEitherOrder(t *testing.T) {
	n := New(testIndex(), nil)
	_, ok := n.ContradictionByPair("clm1", "clm0")
	assert.True(t, ok)
}

func TestCluster_ReturnsMemberClaims(t *testing.T) {
	n := New(testIndex(), nil)
	members, err := n.Cluster("cl0")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestCluster_UnknownErrors(t *testing.T) {
	n := New(testIndex(), nil)
	_, err := n.Cluster("nope")
	assert.Error(t, err)
}

func TestFormatContradiction_ShowsBothSidesInFull(t *testing.T) {
	n := New(testIndex(), nil)
	pair, _ := n.ContradictionByPair("clm0", "clm1")
	out := n.FormatContradiction(pair)
	assert.Contains(t, out, "The earth orbits the sun.")
	assert.Contains(t, out, "It is not flat.")
	assert.Contains(t, out, "CONTRADICTION DETECTED")
}

func TestInfo_CountsAmbiguousClaims(t *testing.T) {
	n := New(testIndex(), nil)
	info := n.Info()
	assert.Equal(t, 2, info.NumClaims)
	assert.Equal(t, 1, info.NumClaimsWithAmbiguity)
	assert.False(t, info.HasEmbeddings)
}

func TestForbiddenOperations_AllTrapWithBoundaryViolation(t *testing.T) {
	// forbiddenOps is never embedded in Navigator; the marker type is
	// constructed here, and only here, to exercise the trap methods.
	var f forbiddenOps

	forbidden := []func() error{
		func() error { return f.SynthesizeAnswer() },
		func() error { return f.AnswerQuestion() },
		func() error { return f.PickBestClaim() },
		func() error { return f.ResolveContradiction() },
		func() error { return f.SoftenAmbiguity() },
		func() error { return f.RemoveHedgeLanguage() },
		func() error { return f.SuppressContradiction() },
		func() error { return f.FilterLowConfidence() },
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
