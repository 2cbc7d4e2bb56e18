package extract

import (
	"context"
	"fmt"
	"log"
)

// LLMQuote is one (text, start, end) triple as returned by the LLM, prior
// to validation against the source substring.
type LLMQuote struct {
	Text  string
	Start int
	End   int
}

// LLMClaim is one claim as returned by the LLM, with its raw unvalidated
// quotes.
type LLMClaim struct {
	ClaimText string
	Quotes    []LLMQuote
}

// ClaimLLM is the injected capability for LLM-assisted claim extraction.
type ClaimLLM interface {
	ExtractClaims(ctx context.Context, chunkText string) ([]LLMClaim, error)
}

// ExtractClaimsWithLLM prompts the LLM to return claim+quotes+offsets for a
// single chunk, validates every quote against the chunk's own text at
// >= 0.90 string similarity with in-bounds offsets, and drops any claim
// that ends up with zero valid quotes. If the LLM call fails, returns no
// claims and ok=false so the caller falls back to the rule-based
// extractor for the whole chunk, per spec 4.8.
func ExtractClaimsWithLLM(ctx context.Context, llm ClaimLLM, c Chunk, docID string) ([]Claim, bool) {
	if llm == nil {
		return nil, false
	}
	raw, err := llm.ExtractClaims(ctx, c.Text)
	if err != nil {
		log.Printf("sse/extract: llm claim extraction failed for chunk %s: %v", c.ChunkID, err)
		return nil, false
	}

	var claims []Claim
	for i, rc := range raw {
		var quotes []Quote
		for _, q := range rc.Quotes {
			if q.Start < 0 || q.End < 0 || q.Start >= len(c.Text) || q.End > len(c.Text) || q.Start >= q.End {
				continue
			}
			actual := c.Text[q.Start:q.End]
			if StringSimilarity(actual, q.Text) < 0.90 {
				continue
			}
			quotes = append(quotes, Quote{
				QuoteText: actual,
				ChunkID:   c.ChunkID,
				DocID:     docID,
				StartChar: c.StartChar + q.Start,
				EndChar:   c.StartChar + q.End,
			})
		}
		if len(quotes) == 0 {
			continue
		}
		claims = append(claims, Claim{
			ClaimID:          fmt.Sprintf("clm%d", i),
			ClaimText:        rc.ClaimText,
			DocID:            docID,
			SupportingQuotes: quotes,
		})
	}

	if len(claims) == 0 {
		return nil, false
	}
	return claims, true
}
