// Package embedder provides the embedding capability injected into the
// memory store, contradiction detector, and SSE claim deduplicator.
package embedder

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"crt/internal/crterrors"
)

// Embedder turns text into a fixed-dimension vector. Implementations may
// call out to a real model; callers must treat failures as
// crterrors.ErrEmbeddingUnavailable and degrade to a non-semantic path.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// MockEmbedder is a deterministic, hash-seeded embedder used where no real
// model is configured. The exact model is an injected capability and out
// of scope for this engine; this stands in for it in tests and local runs.
type MockEmbedder struct {
	dimension   int
	failOnEmbed bool
}

// NewMockEmbedder creates a deterministic embedder of the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &MockEmbedder{dimension: dimension}
}

// NewFailingEmbedder returns an embedder that always fails, for exercising
// EmbeddingUnavailable fallback paths.
func NewFailingEmbedder() *MockEmbedder {
	return &MockEmbedder{dimension: 256, failOnEmbed: true}
}

func (m *MockEmbedder) Dimension() int { return m.dimension }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.failOnEmbed {
		return nil, fmt.Errorf("mock embedder: %w", crterrors.ErrEmbeddingUnavailable)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var seed int64
	for _, r := range text {
		seed = seed*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, m.dimension)
	var sumSquares float64
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
		sumSquares += float64(vec[i]) * float64(vec[i])
	}
	if sumSquares > 0 {
		mag := float32(math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] /= mag
		}
	}
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Cosine computes cosine similarity between two equal-length vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
