// Package extract implements the SSE Claim Extractor: an abbreviation-aware
// chunker and an assertiveness-filtered claim extractor with exact
// source-offset provenance.
package extract

// Chunk is one assembled window of source text. Text is always the exact
// substring source[StartChar:EndChar] -- never a reconstruction -- so that
// provenance lookups are byte-exact (Invariant V).
type Chunk struct {
	ChunkID     string
	Text        string
	StartChar   int
	EndChar     int
	EmbeddingID string
}

// Quote is a single supporting span for a claim, with exact document
// offsets.
type Quote struct {
	QuoteText string
	ChunkID   string
	DocID     string
	StartChar int
	EndChar   int
}

// Claim is one extracted assertive sentence, always backed by a verbatim
// quote.
type Claim struct {
	ClaimID          string
	ClaimText        string
	DocID            string
	SupportingQuotes []Quote
}
