package facade

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"crt/internal/crterrors"
	"crt/internal/embedder"
)

// SearchMethod selects how Query matches claims.
type SearchMethod string

const (
	SearchSemantic SearchMethod = "semantic"
	SearchKeyword  SearchMethod = "keyword"
)

// Navigator is the read-only SSE façade. Grounded on
// original_source/sse/interaction_layer.py's SSENavigator: every permitted
// method here has a direct counterpart there. The forbidden operations
// (SynthesizeAnswer, PickBestClaim, ...) have no counterpart at all on this
// type — per spec 4.9/9 they must be statically unreachable on the
// façade's public surface, so they live only on forbiddenOps at the bottom
// of this file, a marker type the boundary test suite constructs directly.
type Navigator struct {
	index    Index
	emb      embedder.Embedder
	claimVec map[string][]float32 // claim_id -> embedding, populated lazily for semantic search
}

// New builds a Navigator over a fixed, already-extracted index. emb may be
// nil; semantic search then always fails over to an error rather than a
// panic.
func New(index Index, emb embedder.Embedder) *Navigator {
	return &Navigator{index: index, emb: emb}
}

// ===== PERMITTED OPERATIONS =====

// Query searches claims by keyword or semantic similarity.
func (n *Navigator) Query(ctx context.Context, queryText string, k int, method SearchMethod) ([]Claim, error) {
	switch method {
	case SearchKeyword, "":
		return n.keywordSearch(queryText, k), nil
	case SearchSemantic:
		return n.semanticSearch(ctx, queryText, k)
	default:
		return nil, fmt.Errorf("unknown search method: %s", method)
	}
}

// ContradictionsForTopic finds contradictions where at least one side
// mentions topic.
func (n *Navigator) ContradictionsForTopic(topic string) []ContradictionPair {
	relevant := n.keywordSearch(topic, len(n.index.Claims))
	relevantIDs := make(map[string]bool, len(relevant))
	for _, c := range relevant {
		relevantIDs[c.ClaimID] = true
	}

	var out []ContradictionPair
	for _, contra := range n.index.Contradictions {
		if relevantIDs[contra.ClaimIDA] || relevantIDs[contra.ClaimIDB] {
			out = append(out, contra)
		}
	}
	return out
}

// ClaimByID retrieves a single claim.
func (n *Navigator) ClaimByID(claimID string) (Claim, bool) {
	for _, c := range n.index.Claims {
		if c.ClaimID == claimID {
			return c, true
		}
	}
	return Claim{}, false
}

// Provenance reconstructs and validates a claim's supporting quotes
// against the concatenated chunk text.
func (n *Navigator) Provenance(claimID string) (Provenance, error) {
	claim, ok := n.ClaimByID(claimID)
	if !ok {
		return Provenance{}, fmt.Errorf("claim not found: %s", claimID)
	}

	fullText := n.concatenatedChunkText()
	result := Provenance{ClaimID: claimID, ClaimText: claim.ClaimText}
	for _, q := range claim.SupportingQuotes {
		var reconstructed string
		valid := false
		if q.StartChar >= 0 && q.EndChar <= len(fullText) && q.StartChar <= q.EndChar {
			reconstructed = fullText[q.StartChar:q.EndChar]
			valid = reconstructed == q.QuoteText
		}
		result.SupportingQuotes = append(result.SupportingQuotes, ProvenanceQuote{
			QuoteText:         q.QuoteText,
			ReconstructedText: reconstructed,
			ChunkID:           q.ChunkID,
			StartChar:         q.StartChar,
			EndChar:           q.EndChar,
			CharCount:         q.EndChar - q.StartChar,
			Valid:             valid,
		})
	}
	return result, nil
}

// Ambiguity exposes a claim's uncertainty markers verbatim.
func (n *Navigator) Ambiguity(claimID string) (Ambiguity, error) {
	claim, ok := n.ClaimByID(claimID)
	if !ok {
		return Ambiguity{}, fmt.Errorf("claim not found: %s", claimID)
	}
	return claim.Ambiguity, nil
}

// Cluster retrieves all claims in a semantic cluster.
func (n *Navigator) Cluster(clusterID string) ([]Claim, error) {
	for _, cl := range n.index.Clusters {
		if cl.ClusterID == clusterID {
			var members []Claim
			for _, id := range cl.ClaimIDs {
				if c, ok := n.ClaimByID(id); ok {
					members = append(members, c)
				}
			}
			return members, nil
		}
	}
	return nil, fmt.Errorf("cluster not found: %s", clusterID)
}

// UncertainClaims returns claims whose hedge score is at least minHedge,
// most-hedged first.
func (n *Navigator) UncertainClaims(minHedge float64) []Claim {
	var out []Claim
	for _, c := range n.index.Claims {
		if c.Ambiguity.HedgeScore >= minHedge {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ambiguity.HedgeScore > out[j].Ambiguity.HedgeScore })
	return out
}

// Contradictions returns every contradiction in the index.
func (n *Navigator) Contradictions() []ContradictionPair { return n.index.Contradictions }

// ContradictionByPair finds a contradiction by its (unordered) claim pair.
func (n *Navigator) ContradictionByPair(claimIDA, claimIDB string) (ContradictionPair, bool) {
	for _, c := range n.index.Contradictions {
		if (c.ClaimIDA == claimIDA && c.ClaimIDB == claimIDB) ||
			(c.ClaimIDA == claimIDB && c.ClaimIDB == claimIDA) {
			return c, true
		}
	}
	return ContradictionPair{}, false
}

// AllClaims returns every claim in the index.
func (n *Navigator) AllClaims() []Claim { return n.index.Claims }

// AllClusters returns every cluster in the index.
func (n *Navigator) AllClusters() []Cluster { return n.index.Clusters }

// Info summarizes the index.
func (n *Navigator) Info() Info {
	withAmbiguity := 0
	for _, c := range n.index.Claims {
		if c.Ambiguity.HedgeScore > 0 {
			withAmbiguity++
		}
	}
	return Info{
		DocID:                  n.index.DocID,
		Timestamp:              n.index.Timestamp,
		NumChunks:              len(n.index.Chunks),
		NumClaims:              len(n.index.Claims),
		NumClusters:            len(n.index.Clusters),
		NumContradictions:      len(n.index.Contradictions),
		NumClaimsWithAmbiguity: withAmbiguity,
		HasEmbeddings:          n.emb != nil,
	}
}

// ===== DISPLAY FORMATTING (structural only, no paraphrasing) =====

// FormatClaim renders a claim verbatim: claim text, each quote, and its
// offsets.
func (n *Navigator) FormatClaim(claim Claim, includeProvenance bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n", claim.ClaimText)
	for _, q := range claim.SupportingQuotes {
		fmt.Fprintf(&b, "  Quote: %q\n", q.QuoteText)
		fmt.Fprintf(&b, "  Offsets: [%d:%d]\n", q.StartChar, q.EndChar)
	}
	if claim.Ambiguity.HedgeScore > 0 {
		fmt.Fprintf(&b, "  Ambiguity: hedge score %.2f (source uses uncertain language)\n", claim.Ambiguity.HedgeScore)
	}
	if includeProvenance {
		prov, err := n.Provenance(claim.ClaimID)
		if err == nil {
			fmt.Fprintf(&b, "  Supporting quotes: %d\n", len(prov.SupportingQuotes))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatContradiction renders both sides of a contradiction in full, with
// no interpretation.
func (n *Navigator) FormatContradiction(c ContradictionPair) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("CONTRADICTION DETECTED\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")

	if a, ok := n.ClaimByID(c.ClaimIDA); ok {
		b.WriteString("\n[CLAIM A]\n")
		b.WriteString(n.FormatClaim(a, false) + "\n")
	}
	if bb, ok := n.ClaimByID(c.ClaimIDB); ok {
		b.WriteString("\n[CLAIM B]\n")
		b.WriteString(n.FormatClaim(bb, false) + "\n")
	}
	fmt.Fprintf(&b, "\nLabel: %s\n", c.Label)
	b.WriteString("\nBoth claims are shown in full.\n")
	b.WriteString("No interpretation is provided.\n")
	b.WriteString(strings.Repeat("=", 60))
	return b.String()
}

// FormatSearchResults renders a claim list for display.
func (n *Navigator) FormatSearchResults(claims []Claim, limit int) string {
	if limit > 0 && len(claims) > limit {
		claims = claims[:limit]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d claims:\n\n", len(claims))
	for i, c := range claims {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.ClaimText)
		for _, q := range c.SupportingQuotes {
			fmt.Fprintf(&b, "   Quote: %q\n", q.QuoteText)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ===== internal search =====

func (n *Navigator) keywordSearch(query string, k int) []Claim {
	type scored struct {
		score int
		claim Claim
	}
	queryLower := strings.ToLower(query)

	var results []scored
	for _, c := range n.index.Claims {
		combined := strings.ToLower(c.ClaimText)
		for _, q := range c.SupportingQuotes {
			combined += " " + strings.ToLower(q.QuoteText)
		}
		score := strings.Count(combined, queryLower)
		if score > 0 {
			results = append(results, scored{score, c})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	out := make([]Claim, len(results))
	for i, r := range results {
		out[i] = r.claim
	}
	return out
}

func (n *Navigator) semanticSearch(ctx context.Context, query string, k int) ([]Claim, error) {
	if n.emb == nil {
		return nil, fmt.Errorf("semantic search requires an embedder, none configured")
	}
	queryVec, err := n.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crterrors.ErrEmbeddingUnavailable, err)
	}

	type scored struct {
		sim   float64
		claim Claim
	}
	var results []scored
	for _, c := range n.index.Claims {
		vec, ok := n.claimVec[c.ClaimID]
		if !ok {
			continue
		}
		results = append(results, scored{embedder.Cosine(queryVec, vec), c})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].sim > results[j].sim })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	out := make([]Claim, len(results))
	for i, r := range results {
		out[i] = r.claim
	}
	return out, nil
}

func (n *Navigator) concatenatedChunkText() string {
	var b strings.Builder
	for _, c := range n.index.Chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

// SetClaimEmbeddings registers precomputed claim embeddings for semantic
// search. Embeddings are supplied by the caller (e.g. computed once at
// index build time) rather than recomputed on every query.
func (n *Navigator) SetClaimEmbeddings(vecs map[string][]float32) {
	n.claimVec = vecs
}

// ===== FORBIDDEN OPERATIONS =====
//
// forbiddenOps is not embedded in Navigator and nothing in this package
// ever constructs one outside of the boundary test suite, which calls
// each of these methods directly to assert each traps with a
// crterrors.BoundaryViolation. Keeping them off Navigator itself is what
// makes them statically unreachable on the façade's public surface, per
// spec 4.9/9, rather than merely reachable-but-erroring. None of these
// methods contains, and none ever will contain, the forbidden behavior it
// names — there is no synthesis, winner-picking, or ambiguity-softening
// code anywhere in this package to call.
type forbiddenOps struct{}

// SynthesizeAnswer is forbidden: SSE does not synthesize or generate
// answers, only exposes what was already extracted.
func (forbiddenOps) SynthesizeAnswer(_ ...any) error {
	return crterrors.NewBoundaryViolation("synthesize_answer", "SSE does not synthesize or generate answers")
}

// AnswerQuestion is forbidden: SSE is not a QA system.
func (forbiddenOps) AnswerQuestion(_ ...any) error {
	return crterrors.NewBoundaryViolation("answer_question", "SSE is not a QA system; use Query instead")
}

// PickBestClaim is forbidden: SSE never picks winners.
func (forbiddenOps) PickBestClaim(_ ...any) error {
	return crterrors.NewBoundaryViolation("pick_best_claim", "SSE does not pick winners; all claims are preserved equally")
}

// ResolveContradiction is forbidden: both sides are always preserved.
func (forbiddenOps) ResolveContradiction(_ ...any) error {
	return crterrors.NewBoundaryViolation("resolve_contradiction", "SSE does not resolve contradictions")
}

// SoftenAmbiguity is forbidden: uncertainty is never hidden.
func (forbiddenOps) SoftenAmbiguity(_ ...any) error {
	return crterrors.NewBoundaryViolation("soften_ambiguity", "SSE never softens ambiguity")
}

// RemoveHedgeLanguage is forbidden: hedge language is preserved verbatim.
func (forbiddenOps) RemoveHedgeLanguage(_ ...any) error {
	return crterrors.NewBoundaryViolation("remove_hedge_language", "SSE preserves hedge language")
}

// SuppressContradiction is forbidden: contradictions are always shown.
func (forbiddenOps) SuppressContradiction(_ ...any) error {
	return crterrors.NewBoundaryViolation("suppress_contradiction", "SSE never suppresses contradictions")
}

// FilterLowConfidence is forbidden: no silent filtering by confidence.
func (forbiddenOps) FilterLowConfidence(_ ...any) error {
	return crterrors.NewBoundaryViolation("filter_low_confidence", "SSE does not silently filter claims by confidence")
}
