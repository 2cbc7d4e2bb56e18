package contradiction

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"crt/internal/crterrors"
	"crt/internal/embedder"
	"crt/pkg/cache"
)

// NLI is the injected Tier capability for LLM-backed natural language
// inference classification between a premise and a hypothesis.
type NLI interface {
	Classify(ctx context.Context, premise, hypothesis string) (Label, error)
}

// Detector runs the ordered algorithm from spec 4.5: semantic pre-filter,
// cached LLM NLI, heuristic fallback, then pairwise dedup.
type Detector struct {
	nli               NLI
	semanticThreshold float64
	// cache is process-global (per Detector instance), append-only, and
	// may be cleared via ClearCache for tests, per spec 5.
	cache *cache.LRU[string, Label]
}

// NewDetector builds a detector. nli may be nil, in which case every
// surviving pair goes straight to the heuristic fallback.
func NewDetector(nli NLI, semanticThreshold float64) *Detector {
	return &Detector{
		nli:               nli,
		semanticThreshold: semanticThreshold,
		cache:             cache.New[string, Label](&cache.Config{MaxEntries: 0, TTL: 0}),
	}
}

// ClearCache empties the process-global NLI label cache, per spec 5
// ("may be cleared on test request").
func (d *Detector) ClearCache() { d.cache.Clear() }

var interrogativePattern = regexp.MustCompile(`(?i)^\s*(?:who|what|when|where|why|how|is|are|do|does|did|can|could|would|will|should)\b`)

// IsInterrogative reports whether text reads as a question: ends with '?'
// or opens with a WH/auxiliary pattern. Interrogative utterances must
// never be compared as contradiction candidates (Invariant VII).
func IsInterrogative(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	return interrogativePattern.MatchString(trimmed)
}

// DetectAll classifies every candidate pair, skipping interrogative
// utterances and deduplicating by unordered pair.
func (d *Detector) DetectAll(ctx context.Context, pairs []Pair) []Result {
	seen := make(map[string]bool, len(pairs))
	var out []Result
	for _, p := range pairs {
		if IsInterrogative(p.TextA) || IsInterrogative(p.TextB) {
			continue
		}
		key := canonicalKey(p.IDA, p.IDB)
		if seen[key] {
			continue
		}
		seen[key] = true

		r := d.classifyPair(ctx, p)
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (d *Detector) classifyPair(ctx context.Context, p Pair) *Result {
	if embedder.Cosine(p.EmbeddingA, p.EmbeddingB) < d.semanticThreshold {
		return nil // filtered: not even candidate pairs
	}

	key := canonicalKey(p.IDA, p.IDB)
	if label, ok := d.cache.Get(key); ok {
		return &Result{Pair: p, Label: label, Method: "llm", CacheHit: true}
	}

	if d.nli != nil {
		label, err := d.nli.Classify(ctx, p.TextA, p.TextB)
		if err == nil && label != "" {
			d.cache.Set(key, label)
			return &Result{Pair: p, Label: label, Method: "llm"}
		}
		if err != nil {
			log.Printf("contradiction: %v, falling back to heuristic", fmt.Errorf("%w: %v", crterrors.ErrLLMUnavailable, err))
		}
	}

	label := classifyHeuristic(p.TextA, p.TextB)
	return &Result{Pair: p, Label: label, Method: "heuristic"}
}
