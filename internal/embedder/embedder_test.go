package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crt/internal/crterrors"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hello world")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 64)
}

func TestMockEmbedder_DifferentTextDiffers(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()

	v1, _ := e.Embed(ctx, "cats are great")
	v2, _ := e.Embed(ctx, "dogs are great")
	assert.NotEqual(t, v1, v2)
}

func TestFailingEmbedder_ReturnsEmbeddingUnavailable(t *testing.T) {
	e := NewFailingEmbedder()
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, crterrors.ErrEmbeddingUnavailable))
}

func TestCosine_IdenticalVectorIsOne(t *testing.T) {
	v := []float32{1, 0, 0}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosine_OrthogonalIsZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, Cosine(a, b), 1e-9)
}

func TestCosine_MismatchedLengthIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1}))
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e := NewMockEmbedder(16)
	texts := []string{"a", "b", "c"}
	out, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, text := range texts {
		single, _ := e.Embed(context.Background(), text)
		assert.Equal(t, single, out[i])
	}
}
