package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAssertive_RejectsQuestions(t *testing.T) {
	assert.False(t, IsAssertive("Is this true?"))
}

func TestIsAssertive_RejectsShortSentences(t *testing.T) {
	assert.False(t, IsAssertive("Yes indeed"))
}

func TestIsAssertive_RejectsFillerPhrases(t *testing.T) {
	assert.False(t, IsAssertive("Note: this is just an example sentence."))
}

func TestIsAssertive_AcceptsPlainAssertion(t *testing.T) {
	assert.True(t, IsAssertive("The earth orbits the sun."))
}

func TestNormalizeClaimText_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeClaimText("  a   b\n\tc  "))
}

func TestExtractClaimsFromChunks_ExactOffsets(t *testing.T) {
	source := "The earth orbits the sun. Mercury is the closest planet."
	chunks := ChunkText(source, 800, 200)
	require.Len(t, chunks, 1)

	embs := [][]float32{{1, 0, 0}}
	claims := ExtractClaimsFromChunks(chunks, embs, "doc0")
	require.Len(t, claims, 2)
	for _, c := range claims {
		q := c.SupportingQuotes[0]
		assert.Equal(t, source[q.StartChar:q.EndChar], q.QuoteText)
	}
}

func TestExtractClaimsFromChunks_DropsNonAssertiveSentences(t *testing.T) {
	source := "Is this correct? The earth orbits the sun."
	chunks := ChunkText(source, 800, 200)
	embs := [][]float32{{1, 0, 0}}
	claims := ExtractClaimsFromChunks(chunks, embs, "doc0")
	require.Len(t, claims, 1)
	assert.Equal(t, "The earth orbits the sun.", claims[0].ClaimText)
}

func TestDedupeClaims_PreservesNegationOpposites(t *testing.T) {
	texts := []string{"The earth is round.", "The earth is not round."}
	embs := [][]float32{{1, 0}, {1, 0}} // identical embeddings, cosine = 1.0
	keep := dedupeClaims(texts, embs, 0.99, 0.0)
	assert.Len(t, keep, 2)
}

func TestDedupeClaims_CollapsesNearIdenticalClaims(t *testing.T) {
	texts := []string{"The earth orbits the sun.", "The earth orbits the sun."}
	embs := [][]float32{{1, 0}, {1, 0}}
	keep := dedupeClaims(texts, embs, 0.99, 0.8)
	assert.Len(t, keep, 1)
}

func TestDedupeClaims_LowEmbeddingSimilarityKeepsBoth(t *testing.T) {
	texts := []string{"The earth orbits the sun.", "Bananas are yellow fruit."}
	embs := [][]float32{{1, 0}, {0, 1}} // orthogonal, cosine = 0
	keep := dedupeClaims(texts, embs, 0.99, 0.8)
	assert.Len(t, keep, 2)
}

type stubClaimLLM struct {
	claims []LLMClaim
	err    error
}

func (s *stubClaimLLM) ExtractClaims(ctx context.Context, chunkText string) ([]LLMClaim, error) {
	return s.claims, s.err
}

func TestExtractClaimsWithLLM_ValidatesQuoteSimilarity(t *testing.T) {
	chunkText := "The earth orbits the sun."
	llm := &stubClaimLLM{claims: []LLMClaim{
		{ClaimText: "Earth orbits the sun", Quotes: []LLMQuote{{Text: "The earth orbits the sun.", Start: 0, End: len(chunkText)}}},
	}}
	c := Chunk{ChunkID: "c0", Text: chunkText, StartChar: 0, EndChar: len(chunkText)}
	claims, ok := ExtractClaimsWithLLM(context.Background(), llm, c, "doc0")
	require.True(t, ok)
	require.Len(t, claims, 1)
	assert.Equal(t, chunkText, claims[0].SupportingQuotes[0].QuoteText)
}

func TestExtractClaimsWithLLM_DropsClaimsWithNoValidQuotes(t *testing.T) {
	chunkText := "The earth orbits the sun."
	llm := &stubClaimLLM{claims: []LLMClaim{
		{ClaimText: "Fabricated claim", Quotes: []LLMQuote{{Text: "completely made up text", Start: 0, End: 5}}},
	}}
	c := Chunk{ChunkID: "c0", Text: chunkText, StartChar: 0, EndChar: len(chunkText)}
	_, ok := ExtractClaimsWithLLM(context.Background(), llm, c, "doc0")
	assert.False(t, ok)
}

func TestExtractClaimsWithLLM_FailureFallsBack(t *testing.T) {
	llm := &stubClaimLLM{err: assertError{}}
	c := Chunk{ChunkID: "c0", Text: "The earth orbits the sun.", StartChar: 0, EndChar: 26}
	_, ok := ExtractClaimsWithLLM(context.Background(), llm, c, "doc0")
	assert.False(t, ok)
}

type assertError struct{}

func (assertError) Error() string { return "llm unavailable" }
