// Package coherence implements the Coherence Tracker: a read-only
// disagreement graph over claims that observes and reports relationship
// patterns but never resolves, filters, or synthesizes a consensus.
package coherence

// Relationship classifies one disagreement edge.
type Relationship string

const (
	RelContradicts Relationship = "contradicts"
	RelConflicts   Relationship = "conflicts"
	RelQualifies   Relationship = "qualifies"
	RelUncertain   Relationship = "uncertain"
)

// ContradictionInput is one contradiction record from the SSE index, the
// raw material the tracker builds its disagreement graph from.
type ContradictionInput struct {
	ClaimIDA       string
	ClaimIDB       string
	Label          string
	EvidenceQuotes []string
}

// ClaimText supplies the display text for a claim_id, used only to build
// human-readable reasoning strings.
type ClaimText map[string]string

// DisagreementEdge is one observed disagreement relationship between two
// claims, in canonical (min, max) order.
type DisagreementEdge struct {
	ClaimIDA       string
	ClaimIDB       string
	Relationship   Relationship
	Confidence     float64
	EvidenceQuotes []string
	Reasoning      string
}

// ClaimCoherence summarizes how one claim relates to all others.
type ClaimCoherence struct {
	ClaimID               string
	ClaimText             string
	TotalRelationships    int
	Contradictions        int
	Conflicts             int
	Qualifications        int
	Ambiguous             int
}

// Report is the aggregate coherence report for the whole claim set.
type Report struct {
	TotalClaims            int
	TotalDisagreementEdges int
	ContradictionEdges     int
	ConflictEdges          int
	QualificationEdges     int
	AmbiguousEdges         int
	DisagreementDensity    float64
	HighestConflictClaims  []ClaimDegree
	DisagreementClusters   [][]string
	NumIsolatedClaims      int
}

// ClaimDegree pairs a claim with its relationship count, for the report's
// highest-conflict ranking.
type ClaimDegree struct {
	ClaimID       string
	Relationships int
}
