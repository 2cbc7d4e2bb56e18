package extract

import (
	"fmt"
	"regexp"
	"strings"

	"crt/internal/contradiction"
	"crt/internal/embedder"
)

// fillerPhrases mark a sentence as non-assertive even if it otherwise reads
// like a claim. Ported from original_source/sse/extractor.py's
// FILLER_PHRASES.
var fillerPhrases = []string{
	"note:", "fyi", "example", "e.g", "i.e", "etc.", "by the way",
	"in other words", "that is", "as mentioned", "as stated",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// IsAssertive reports whether a sentence reads as a factual assertion: not
// a question, at least 3 tokens, and not a filler phrase.
func IsAssertive(sentence string) bool {
	s := strings.TrimSpace(sentence)
	if strings.HasSuffix(s, "?") {
		return false
	}
	if len(strings.Fields(s)) < 3 {
		return false
	}
	lower := strings.ToLower(s)
	for _, f := range fillerPhrases {
		if strings.Contains(lower, f) {
			return false
		}
	}
	return true
}

// NormalizeClaimText trims and collapses internal whitespace runs for the
// claim's display text; the supporting quote keeps the raw sentence.
func NormalizeClaimText(text string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
}

// ExtractClaimsFromChunks extracts assertive-sentence claims from each
// chunk, assigning sentence-level (not chunk-level) offsets, then
// deduplicates against chunkEmbeddings (one embedding per chunk, indexed by
// chunk position) at cosine >= 0.99 AND text similarity > 0.8, preserving
// pairs whose negation status differs (Invariant III).
func ExtractClaimsFromChunks(chunks []Chunk, chunkEmbeddings [][]float32, docID string) []Claim {
	var texts []string
	var supports []Quote
	var embByClaim [][]float32

	for cidx, c := range chunks {
		sentPos := 0
		for _, s := range splitWithinChunk(c.Text) {
			idx := strings.Index(c.Text[sentPos:], s)
			if idx == -1 {
				continue
			}
			startInChunk := sentPos + idx
			endInChunk := startInChunk + len(s)
			sentPos = endInChunk

			normalized := NormalizeClaimText(s)
			if normalized == "" || !IsAssertive(normalized) {
				continue
			}

			texts = append(texts, normalized)
			supports = append(supports, Quote{
				QuoteText: s,
				ChunkID:   c.ChunkID,
				DocID:     docID,
				StartChar: c.StartChar + startInChunk,
				EndChar:   c.StartChar + endInChunk,
			})
			if cidx < len(chunkEmbeddings) {
				embByClaim = append(embByClaim, chunkEmbeddings[cidx])
			} else {
				embByClaim = append(embByClaim, nil)
			}
		}
	}

	if len(texts) == 0 {
		return nil
	}

	keep := dedupeClaims(texts, embByClaim, 0.99, 0.8)

	claims := make([]Claim, 0, len(keep))
	for k, i := range keep {
		claims = append(claims, Claim{
			ClaimID:          fmt.Sprintf("clm%d", k),
			ClaimText:        texts[i],
			DocID:            supports[i].DocID,
			SupportingQuotes: []Quote{supports[i]},
		})
	}
	return claims
}

// splitWithinChunk splits a chunk's text into raw sentences using the same
// punctuation-run boundary the Python original uses for this step
// (re.split(r'(?<=[.!?])\s+', text)): split immediately after sentence
// punctuation followed by whitespace. This is deliberately simpler than the
// abbreviation-aware chunk-level splitter, matching the original's
// two-stage design (coarse chunking, then a plain re-split for claims).
func splitWithinChunk(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			j := i + 1
			for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
				j++
			}
			if j < len(runes) && isSpace(runes[j]) {
				out = append(out, string(runes[start:j]))
				for j < len(runes) && isSpace(runes[j]) {
					j++
				}
				start = j
				i = j - 1
			}
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// dedupeClaims preserves the first occurrence of each claim and drops
// later claims only when both cosine similarity is at least embThresh AND text
// similarity exceeds textThresh AND negation status matches -- negation
// mismatches are never deduplicated regardless of similarity.
func dedupeClaims(texts []string, embeddings [][]float32, embThresh, textThresh float64) []int {
	var keep []int
	for i := range texts {
		dup := false
		for _, j := range keep {
			if embeddings[i] == nil || embeddings[j] == nil {
				continue
			}
			if embedder.Cosine(embeddings[i], embeddings[j]) < embThresh {
				continue
			}
			if contradiction.HasNegationWord(texts[i]) != contradiction.HasNegationWord(texts[j]) {
				continue
			}
			if StringSimilarity(texts[i], texts[j]) > textThresh {
				dup = true
				break
			}
		}
		if !dup {
			keep = append(keep, i)
		}
	}
	return keep
}
