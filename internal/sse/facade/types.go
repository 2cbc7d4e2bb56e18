// Package facade implements the SSE Interaction Façade: a
// capability-restricted, read-only navigator over extracted claims and
// contradictions. It permits retrieval, search, filtering, grouping, and
// provenance lookup; it statically lacks any method that could synthesize,
// pick a winner, or soften ambiguity.
package facade

// Quote mirrors extract.Quote's shape for façade consumption, with the
// provenance-validation fields the original index format carries.
type Quote struct {
	QuoteText string
	ChunkID   string
	StartChar int
	EndChar   int
}

// Ambiguity carries uncertainty markers for a claim, exposed verbatim —
// never softened or filtered.
type Ambiguity struct {
	HedgeScore     float64
	ConflictMarkers []string
	OpenQuestions   []string
}

// Claim is one indexed claim available for navigation.
type Claim struct {
	ClaimID          string
	ClaimText        string
	SupportingQuotes []Quote
	Ambiguity        Ambiguity
}

// ContradictionPair is one indexed contradiction, both sides preserved in
// full.
type ContradictionPair struct {
	ClaimIDA string
	ClaimIDB string
	Label    string
}

// Cluster groups claim IDs that were judged semantically related.
type Cluster struct {
	ClusterID string
	ClaimIDs  []string
}

// Chunk is the minimal chunk record the façade needs for provenance
// reconstruction.
type Chunk struct {
	ChunkID string
	Text    string
}

// Index is the full read-only dataset a Navigator operates over.
type Index struct {
	DocID          string
	Timestamp      string
	Chunks         []Chunk
	Clusters       []Cluster
	Claims         []Claim
	Contradictions []ContradictionPair
}

// ProvenanceQuote is one validated provenance entry for a claim.
type ProvenanceQuote struct {
	QuoteText        string
	ReconstructedText string
	ChunkID          string
	StartChar        int
	EndChar          int
	CharCount        int
	Valid            bool
}

// Provenance is the full provenance reconstruction result for a claim.
type Provenance struct {
	ClaimID          string
	ClaimText        string
	SupportingQuotes []ProvenanceQuote
}

// Info summarizes the index's shape.
type Info struct {
	DocID                   string
	Timestamp               string
	NumChunks               int
	NumClaims               int
	NumClusters             int
	NumContradictions       int
	NumClaimsWithAmbiguity  int
	HasEmbeddings           bool
}
