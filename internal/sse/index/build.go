// Package index wires the SSE Claim Extractor, the Contradiction Detector,
// and claim clustering into the single compress pipeline
// original_source/sse/cli.py's compress command drives: chunk -> embed ->
// extract claims -> ambiguity -> cluster -> detect contradictions ->
// assemble an index, then build the read-only Navigator and Coherence
// Tracker over it. Without this package the extractor, façade, and
// coherence tracker are three islands exercised only by their own unit
// tests; Build is the runnable path spec 4.8-4.10's data flow requires.
package index

import (
	"context"
	"fmt"

	"crt/internal/coherence"
	"crt/internal/contradiction"
	"crt/internal/embedder"
	"crt/internal/sse/extract"
	"crt/internal/sse/facade"
)

// Options configures index construction, grounded on
// original_source/sse/cli.py's compress command-line flags (max_chars,
// overlap, min_cluster_size) plus the semantic pre-filter threshold spec
// 4.5 shares with the Contradiction Detector.
type Options struct {
	MaxChars          int
	OverlapChars      int
	ClusterThreshold  float64
	MinClusterSize    int
	SemanticPrefilter float64
}

// DefaultOptions mirrors cli.py's argparse defaults (2000/200 for
// chunking) plus this module's own config.Default() thresholds for
// clustering and the semantic pre-filter.
func DefaultOptions() Options {
	return Options{
		MaxChars:          2000,
		OverlapChars:      200,
		ClusterThreshold:  0.5,
		MinClusterSize:    2,
		SemanticPrefilter: 0.2,
	}
}

// Built bundles the assembled index with the Navigator and Coherence
// Tracker constructed over it, so one call produces the whole SSE
// pipeline's output.
type Built struct {
	Index     facade.Index
	Navigator *facade.Navigator
	Coherence *coherence.Tracker
}

// Build runs the full compress pipeline over source text. emb is required;
// nli may be nil, in which case the Contradiction Detector falls back to
// its heuristic classifier for every candidate claim pair.
func Build(ctx context.Context, docID, timestamp, text string, emb embedder.Embedder, nli contradiction.NLI, opts Options) (*Built, error) {
	chunks := extract.ChunkText(text, opts.MaxChars, opts.OverlapChars)

	chunkTexts := make([]string, len(chunks))
	for i, c := range chunks {
		chunkTexts[i] = c.Text
	}
	chunkEmbeddings, err := emb.EmbedBatch(ctx, chunkTexts)
	if err != nil {
		return nil, fmt.Errorf("index: embedding chunks: %w", err)
	}

	claims := extract.ExtractClaimsFromChunks(chunks, chunkEmbeddings, docID)

	claimTexts := make([]string, len(claims))
	for i, c := range claims {
		claimTexts[i] = c.ClaimText
	}
	claimEmbeddings, err := emb.EmbedBatch(ctx, claimTexts)
	if err != nil {
		return nil, fmt.Errorf("index: embedding claims: %w", err)
	}

	claimIDs := make([]string, len(claims))
	claimVecs := make(map[string][]float32, len(claims))
	for i, c := range claims {
		claimIDs[i] = c.ClaimID
		claimVecs[c.ClaimID] = claimEmbeddings[i]
	}

	clusters := extract.ClusterClaims(claimIDs, claimVecs, opts.ClusterThreshold, opts.MinClusterSize)

	pairs := make([]contradiction.Pair, 0, len(claims)*(len(claims)-1)/2)
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			pairs = append(pairs, contradiction.Pair{
				IDA: claims[i].ClaimID, IDB: claims[j].ClaimID,
				TextA: claims[i].ClaimText, TextB: claims[j].ClaimText,
				EmbeddingA: claimVecs[claims[i].ClaimID], EmbeddingB: claimVecs[claims[j].ClaimID],
			})
		}
	}
	detector := contradiction.NewDetector(nli, opts.SemanticPrefilter)
	results := detector.DetectAll(ctx, pairs)

	fIndex := facade.Index{DocID: docID, Timestamp: timestamp}
	for _, c := range chunks {
		fIndex.Chunks = append(fIndex.Chunks, facade.Chunk{ChunkID: c.ChunkID, Text: c.Text})
	}
	for _, cl := range clusters {
		fIndex.Clusters = append(fIndex.Clusters, facade.Cluster{ClusterID: cl.ClusterID, ClaimIDs: cl.ClaimIDs})
	}

	claimText := make(coherence.ClaimText, len(claims))
	for _, c := range claims {
		amb := extract.AnalyzeAmbiguity(c.ClaimText, c.SupportingQuotes)
		quotes := make([]facade.Quote, 0, len(c.SupportingQuotes))
		for _, q := range c.SupportingQuotes {
			quotes = append(quotes, facade.Quote{QuoteText: q.QuoteText, ChunkID: q.ChunkID, StartChar: q.StartChar, EndChar: q.EndChar})
		}
		fIndex.Claims = append(fIndex.Claims, facade.Claim{
			ClaimID:          c.ClaimID,
			ClaimText:        c.ClaimText,
			SupportingQuotes: quotes,
			Ambiguity: facade.Ambiguity{
				HedgeScore:      amb.HedgeScore,
				ConflictMarkers: amb.ConflictMarkers,
				OpenQuestions:   amb.OpenQuestions,
			},
		})
		claimText[c.ClaimID] = c.ClaimText
	}

	var contradictionInputs []coherence.ContradictionInput
	for _, r := range results {
		if r.Label != contradiction.LabelContradiction {
			continue
		}
		fIndex.Contradictions = append(fIndex.Contradictions, facade.ContradictionPair{
			ClaimIDA: r.Pair.IDA, ClaimIDB: r.Pair.IDB, Label: string(r.Label),
		})
		contradictionInputs = append(contradictionInputs, coherence.ContradictionInput{
			ClaimIDA: r.Pair.IDA, ClaimIDB: r.Pair.IDB, Label: string(r.Label),
			EvidenceQuotes: []string{r.Pair.TextA, r.Pair.TextB},
		})
	}

	nav := facade.New(fIndex, emb)
	nav.SetClaimEmbeddings(claimVecs)

	return &Built{
		Index:     fIndex,
		Navigator: nav,
		Coherence: coherence.New(claimText, contradictionInputs),
	}, nil
}
