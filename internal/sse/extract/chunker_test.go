package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences_BasicThreeSentences(t *testing.T) {
	text := "The sky is blue. Water is wet! Is fire hot?"
	sents := SplitSentences(text)
	require.Len(t, sents, 3)
	assert.Equal(t, "The sky is blue.", sents[0])
	assert.Equal(t, "Water is wet!", sents[1])
	assert.Equal(t, "Is fire hot?", sents[2])
}

func TestSplitSentences_AbbreviationDoesNotEndSentence(t *testing.T) {
	text := "Dr. Smith arrived early. He left late."
	sents := SplitSentences(text)
	require.Len(t, sents, 2)
	assert.Equal(t, "Dr. Smith arrived early.", sents[0])
	assert.Equal(t, "He left late.", sents[1])
}

func TestSplitSentences_NoTrailingWhitespaceDoesNotSplit(t *testing.T) {
	// A period inside "3.14" is not followed by whitespace, so it's not a boundary.
	text := "Pi is roughly 3.14 in most use cases."
	sents := SplitSentences(text)
	require.Len(t, sents, 1)
}

func TestChunkText_ExactSubstringAlways(t *testing.T) {
	source := "First sentence here.\n\nSecond   sentence with odd spacing!\tThird one."
	chunks := ChunkText(source, 800, 200)
	for _, c := range chunks {
		assert.Equal(t, source[c.StartChar:c.EndChar], c.Text)
	}
}

func TestChunkText_RespectsMaxChars(t *testing.T) {
	source := "Alpha sentence one. Beta sentence two. Gamma sentence three. Delta sentence four."
	chunks := ChunkText(source, 40, 0)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 60) // at least one sentence always fits even if > max
	}
}

func TestChunkText_EmptySourceYieldsNoChunks(t *testing.T) {
	assert.Empty(t, ChunkText("", 800, 200))
}

func TestStringSimilarity_IdenticalIsOne(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("hello world", "hello world"))
}

func TestStringSimilarity_CompletelyDifferentIsLow(t *testing.T) {
	assert.Less(t, StringSimilarity("abcdef", "zyxwvu"), 0.2)
}

func TestStringSimilarity_PartialOverlap(t *testing.T) {
	sim := StringSimilarity("the quick brown fox", "the quick brown dog")
	assert.Greater(t, sim, 0.7)
	assert.Less(t, sim, 1.0)
}

func TestStringSimilarity_EmptyBoth(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("", ""))
}
