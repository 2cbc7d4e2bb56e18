package coherence

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"crt/internal/crterrors"
)

func identityHash(id string) string { return id }

// Tracker builds and observes a disagreement graph over claims. Grounded
// on original_source/sse/coherence.py's CoherenceTracker: an undirected
// graph of claim_id vertices with DisagreementEdges derived from the
// contradiction list, canonical (min, max) edge ordering, and DFS-based
// clustering restricted to {contradicts, conflicts} edges.
//
// The underlying graph.Graph (mirroring the teacher's own
// internal/modes/graph.go usage of github.com/dominikbraun/graph) holds
// vertex and edge existence; clustering is computed over a parallel
// adjacency map built at the same time, since this package never needs to
// verify whether a library-level connected-components algorithm matches
// the exact "restricted to two relationship kinds" semantics the spec
// requires.
type Tracker struct {
	g         graph.Graph[string, string]
	claimText ClaimText
	edges     map[[2]string]DisagreementEdge
	disagreeAdjacency map[string]map[string]bool
}

// New builds a Tracker from a claim-id -> claim-text lookup and the raw
// contradiction list.
func New(claimText ClaimText, contradictions []ContradictionInput) *Tracker {
	t := &Tracker{
		g:                 graph.New(identityHash, graph.Undirected()),
		claimText:         claimText,
		edges:             make(map[[2]string]DisagreementEdge),
		disagreeAdjacency: make(map[string]map[string]bool),
	}
	for id := range claimText {
		_ = t.g.AddVertex(id) // ignore "already exists" on repeat IDs
		t.disagreeAdjacency[id] = make(map[string]bool)
	}
	t.buildDisagreementGraph(contradictions)
	return t
}

func canonicalPair(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

func (t *Tracker) buildDisagreementGraph(contradictions []ContradictionInput) {
	for _, c := range contradictions {
		if c.ClaimIDA == "" || c.ClaimIDB == "" {
			continue
		}
		key := canonicalPair(c.ClaimIDA, c.ClaimIDB)
		relationship := classifyRelationship(c.Label)
		confidence := evidenceConfidence(c.EvidenceQuotes)
		reasoning := t.generateReasoning(key[0], key[1], c.Label)

		t.edges[key] = DisagreementEdge{
			ClaimIDA:       key[0],
			ClaimIDB:       key[1],
			Relationship:   relationship,
			Confidence:     confidence,
			EvidenceQuotes: c.EvidenceQuotes,
			Reasoning:      reasoning,
		}

		if _, ok := t.disagreeAdjacency[key[0]]; !ok {
			t.disagreeAdjacency[key[0]] = make(map[string]bool)
		}
		if _, ok := t.disagreeAdjacency[key[1]]; !ok {
			t.disagreeAdjacency[key[1]] = make(map[string]bool)
		}
		if relationship == RelContradicts || relationship == RelConflicts {
			t.disagreeAdjacency[key[0]][key[1]] = true
			t.disagreeAdjacency[key[1]][key[0]] = true
		}

		_ = t.g.AddEdge(key[0], key[1]) // ignore duplicate-edge errors
	}
}

func classifyRelationship(label string) Relationship {
	lower := label
	for i := 0; i < len(lower); i++ {
		if lower[i] >= 'A' && lower[i] <= 'Z' {
			lower = toLowerASCII(lower)
			break
		}
	}
	switch {
	case contains(lower, "contradict"):
		return RelContradicts
	case contains(lower, "conflict"):
		return RelConflicts
	case contains(lower, "qualif"):
		return RelQualifies
	case contains(lower, "uncertain"), contains(lower, "ambiguous"):
		return RelUncertain
	default:
		return RelConflicts
	}
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// evidenceConfidence mirrors the Python original: more supporting quotes
// yields higher confidence, capped at 1.0 at 2 quotes.
func evidenceConfidence(evidence []string) float64 {
	c := float64(len(evidence)) / 2.0
	if c > 1.0 {
		return 1.0
	}
	return c
}

func (t *Tracker) generateReasoning(claimIDA, claimIDB, label string) string {
	textA := truncate(t.claimText[claimIDA], 50)
	textB := truncate(t.claimText[claimIDB], 50)
	return fmt.Sprintf("%s... vs %s... (%s)", textA, textB, label)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ===== OBSERVATION (permitted) =====

// ClaimCoherenceOf returns coherence metadata for one claim.
func (t *Tracker) ClaimCoherenceOf(claimID string) (ClaimCoherence, bool) {
	text, ok := t.claimText[claimID]
	if !ok {
		return ClaimCoherence{}, false
	}

	var contradictions, conflicts, qualifications, ambiguous int
	for pair, edge := range t.edges {
		if pair[0] != claimID && pair[1] != claimID {
			continue
		}
		switch edge.Relationship {
		case RelContradicts:
			contradictions++
		case RelConflicts:
			conflicts++
		case RelQualifies:
			qualifications++
		case RelUncertain:
			ambiguous++
		}
	}

	return ClaimCoherence{
		ClaimID:            claimID,
		ClaimText:          text,
		TotalRelationships: contradictions + conflicts + qualifications + ambiguous,
		Contradictions:     contradictions,
		Conflicts:          conflicts,
		Qualifications:     qualifications,
		Ambiguous:          ambiguous,
	}, true
}

// DisagreementEdges returns every edge, or only those touching claimID if
// non-empty.
func (t *Tracker) DisagreementEdges(claimID string) []DisagreementEdge {
	var out []DisagreementEdge
	for pair, edge := range t.edges {
		if claimID == "" || pair[0] == claimID || pair[1] == claimID {
			out = append(out, edge)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClaimIDA != out[j].ClaimIDA {
			return out[i].ClaimIDA < out[j].ClaimIDA
		}
		return out[i].ClaimIDB < out[j].ClaimIDB
	})
	return out
}

// RelatedClaim pairs a related claim id with the relationship connecting
// it to the queried claim.
type RelatedClaim struct {
	ClaimID      string
	Relationship Relationship
}

// RelatedClaims returns claims related to claimID, optionally filtered to
// one relationship kind.
func (t *Tracker) RelatedClaims(claimID string, relationship Relationship) []RelatedClaim {
	var out []RelatedClaim
	for pair, edge := range t.edges {
		var other string
		switch claimID {
		case pair[0]:
			other = pair[1]
		case pair[1]:
			other = pair[0]
		default:
			continue
		}
		if relationship != "" && edge.Relationship != relationship {
			continue
		}
		out = append(out, RelatedClaim{ClaimID: other, Relationship: edge.Relationship})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimID < out[j].ClaimID })
	return out
}

// DisagreementClusters finds connected components restricted to
// {contradicts, conflicts} edges, via DFS -- mirroring
// original_source/sse/coherence.py's _dfs_cluster. Only clusters with more
// than one member are returned.
func (t *Tracker) DisagreementClusters() [][]string {
	visited := make(map[string]bool)
	var clusters [][]string

	ids := make([]string, 0, len(t.claimText))
	for id := range t.claimText {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}
		cluster := t.dfsCluster(id, visited)
		if len(cluster) > 1 {
			sort.Strings(cluster)
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

func (t *Tracker) dfsCluster(start string, visited map[string]bool) []string {
	stack := []string{start}
	var cluster []string
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true
		cluster = append(cluster, node)
		for neighbor := range t.disagreeAdjacency[node] {
			if !visited[neighbor] {
				stack = append(stack, neighbor)
			}
		}
	}
	return cluster
}

// CoherenceReport produces the aggregate disagreement report.
func (t *Tracker) CoherenceReport() Report {
	var contradictionCount, conflictCount, qualificationCount, ambiguousCount int
	for _, e := range t.edges {
		switch e.Relationship {
		case RelContradicts:
			contradictionCount++
		case RelConflicts:
			conflictCount++
		case RelQualifies:
			qualificationCount++
		case RelUncertain:
			ambiguousCount++
		}
	}

	var degrees []ClaimDegree
	isolated := 0
	for id := range t.claimText {
		coh, _ := t.ClaimCoherenceOf(id)
		degrees = append(degrees, ClaimDegree{ClaimID: id, Relationships: coh.TotalRelationships})
		if coh.TotalRelationships == 0 {
			isolated++
		}
	}
	sort.Slice(degrees, func(i, j int) bool {
		if degrees[i].Relationships != degrees[j].Relationships {
			return degrees[i].Relationships > degrees[j].Relationships
		}
		return degrees[i].ClaimID < degrees[j].ClaimID
	})
	if len(degrees) > 5 {
		degrees = degrees[:5]
	}

	n := len(t.claimText)
	density := 0.0
	if n > 1 {
		density = float64(len(t.edges)) / (float64(n) * float64(n-1) / 2.0)
	}

	return Report{
		TotalClaims:            n,
		TotalDisagreementEdges: len(t.edges),
		ContradictionEdges:     contradictionCount,
		ConflictEdges:          conflictCount,
		QualificationEdges:     qualificationCount,
		AmbiguousEdges:         ambiguousCount,
		DisagreementDensity:    density,
		HighestConflictClaims:  degrees,
		DisagreementClusters:   t.DisagreementClusters(),
		NumIsolatedClaims:      isolated,
	}
}

// ===== FORBIDDEN OPERATIONS =====
//
// forbiddenOps is never embedded in Tracker; per spec 4.9/9 these methods
// must be statically unreachable on the tracker's public surface, not
// merely reachable-but-erroring. Nothing outside the boundary test suite
// ever constructs one. There is no resolution, filtering, or synthesis
// code anywhere in this package to call.
type forbiddenOps struct{}

// ResolveDisagreement is forbidden: coherence tracking observes
// disagreement, it never resolves it.
func (forbiddenOps) ResolveDisagreement(_ ...any) error {
	return crterrors.NewBoundaryViolation("resolve_disagreement", "coherence tracking never resolves disagreement; both sides remain equally valid")
}

// PickCoherentSubset is forbidden: coherence tracking never filters out
// disagreement.
func (forbiddenOps) PickCoherentSubset(_ ...any) error {
	return crterrors.NewBoundaryViolation("pick_coherent_subset", "coherence tracking never filters out disagreement; all claims are preserved")
}

// SynthesizeResolution is forbidden: coherence tracking never synthesizes
// a consensus.
func (forbiddenOps) SynthesizeResolution(_ ...any) error {
	return crterrors.NewBoundaryViolation("synthesize_resolution", "coherence tracking never synthesizes resolutions; disagreement is observed, not resolved")
}
