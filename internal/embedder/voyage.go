package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crt/internal/crterrors"
)

const voyageAPIURL = "https://api.voyageai.com/v1/embeddings"

// voyageDimensions mirrors Voyage AI's published per-model output size.
var voyageDimensions = map[string]int{
	"voyage-3-lite":    512,
	"voyage-3":         1024,
	"voyage-3-large":   2048,
	"voyage-code-3":    1536,
	"voyage-finance-2": 1024,
	"voyage-law-2":     1024,
}

// VoyageEmbedder calls the Voyage AI embeddings endpoint over plain HTTP.
// It is the production Embedder; MockEmbedder exists for tests and for
// running without an API key.
type VoyageEmbedder struct {
	client    *http.Client
	apiKey    string
	model     string
	dimension int
}

// NewVoyageEmbedder builds a Voyage AI embedder for the given model,
// defaulting to a 1024-dimension output for unrecognized model names.
func NewVoyageEmbedder(apiKey, model string) *VoyageEmbedder {
	dim := voyageDimensions[model]
	if dim == 0 {
		dim = 1024
	}
	return &VoyageEmbedder{
		client:    &http.Client{Timeout: 30 * time.Second},
		apiKey:    apiKey,
		model:     model,
		dimension: dim,
	}
}

func (e *VoyageEmbedder) Dimension() int { return e.dimension }

type voyageRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed requests a single embedding.
func (e *VoyageEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("voyage: %w: empty response", crterrors.ErrEmbeddingUnavailable)
	}
	return out[0], nil
}

// EmbedBatch requests embeddings for a batch of texts in one call. Any
// transport, auth, or decode failure is reported as
// crterrors.ErrEmbeddingUnavailable so callers can apply the spec's
// degrade-gracefully policy instead of failing the whole query.
func (e *VoyageEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(voyageRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("voyage: %w: %v", crterrors.ErrEmbeddingUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, voyageAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("voyage: %w: %v", crterrors.ErrEmbeddingUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage: %w: %v", crterrors.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voyage: %w: %v", crterrors.ErrEmbeddingUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voyage: %w: status %d: %s", crterrors.ErrEmbeddingUnavailable, resp.StatusCode, string(respBody))
	}

	var parsed voyageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("voyage: %w: %v", crterrors.ErrEmbeddingUnavailable, err)
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}
