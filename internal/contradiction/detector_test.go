package contradiction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 1
	return v
}

func TestIsInterrogative(t *testing.T) {
	assert.True(t, IsInterrogative("What is my name?"))
	assert.True(t, IsInterrogative("Where do I work"))
	assert.False(t, IsInterrogative("I work at Microsoft."))
}

func TestHasNegationWord(t *testing.T) {
	assert.True(t, HasNegationWord("The statement is not true."))
	assert.True(t, HasNegationWord("I am unable to attend."))
	assert.False(t, HasNegationWord("The statement is true."))
}

func TestDetectAll_SkipsInterrogatives(t *testing.T) {
	d := NewDetector(nil, 0.1)
	pairs := []Pair{
		{IDA: "a", IDB: "b", TextA: "What is my name?", TextB: "My name is Nick.",
			EmbeddingA: unitVec(4, 0), EmbeddingB: unitVec(4, 0)},
	}
	results := d.DetectAll(context.Background(), pairs)
	assert.Empty(t, results)
}

func TestDetectAll_NegationOppositesContradict(t *testing.T) {
	d := NewDetector(nil, 0.1)
	v := unitVec(4, 0)
	pairs := []Pair{
		{IDA: "a", IDB: "b", TextA: "The statement is true.", TextB: "The statement is not true.",
			EmbeddingA: v, EmbeddingB: v},
	}
	results := d.DetectAll(context.Background(), pairs)
	require.Len(t, results, 1)
	assert.Equal(t, LabelContradiction, results[0].Label)
	assert.Equal(t, "heuristic", results[0].Method)
}

func TestDetectAll_SemanticPrefilterDropsDissimilarPairs(t *testing.T) {
	d := NewDetector(nil, 0.9)
	pairs := []Pair{
		{IDA: "a", IDB: "b", TextA: "round", TextB: "flat",
			EmbeddingA: unitVec(4, 0), EmbeddingB: unitVec(4, 1)},
	}
	results := d.DetectAll(context.Background(), pairs)
	assert.Empty(t, results)
}

func TestDetectAll_DedupByUnorderedPair(t *testing.T) {
	d := NewDetector(nil, 0.1)
	v := unitVec(4, 0)
	pairs := []Pair{
		{IDA: "a", IDB: "b", TextA: "x", TextB: "y", EmbeddingA: v, EmbeddingB: v},
		{IDA: "b", IDB: "a", TextA: "y", TextB: "x", EmbeddingA: v, EmbeddingB: v},
	}
	results := d.DetectAll(context.Background(), pairs)
	assert.Len(t, results, 1)
}

type stubNLI struct {
	label Label
	err   error
	calls int
}

func (s *stubNLI) Classify(ctx context.Context, premise, hypothesis string) (Label, error) {
	s.calls++
	return s.label, s.err
}

func TestDetector_LLMResultIsCached(t *testing.T) {
	nli := &stubNLI{label: LabelContradiction}
	d := NewDetector(nli, 0.1)
	v := unitVec(4, 0)
	p := Pair{IDA: "a", IDB: "b", TextA: "x", TextB: "y", EmbeddingA: v, EmbeddingB: v}

	r1 := d.DetectAll(context.Background(), []Pair{p})
	require.Len(t, r1, 1)
	assert.False(t, r1[0].CacheHit)

	r2 := d.DetectAll(context.Background(), []Pair{p})
	require.Len(t, r2, 1)
	assert.True(t, r2[0].CacheHit)
	assert.Equal(t, 1, nli.calls)
}

func TestDetector_ClearCache(t *testing.T) {
	nli := &stubNLI{label: LabelContradiction}
	d := NewDetector(nli, 0.1)
	v := unitVec(4, 0)
	p := Pair{IDA: "a", IDB: "b", TextA: "x", TextB: "y", EmbeddingA: v, EmbeddingB: v}

	d.DetectAll(context.Background(), []Pair{p})
	d.ClearCache()
	d.DetectAll(context.Background(), []Pair{p})
	assert.Equal(t, 2, nli.calls)
}
