package gate

import (
	"log"

	"crt/internal/config"
)

// Evaluator computes intent_alignment, memory_alignment, and confidence
// from a retrieval snapshot, then applies the three gates from spec 4.7.
// Grounded on the teacher's AutoMode decision style
// (internal/modes/auto.go's detectModeWithConfidence): a pure function over
// scored inputs, config-driven thresholds, confidence logged at the
// decision point rather than buried in the caller.
type Evaluator struct {
	thresholds config.ThresholdsConfig
}

// New builds an Evaluator from the shared threshold configuration.
func New(cfg *config.Config) *Evaluator {
	return &Evaluator{thresholds: cfg.Thresholds}
}

// Evaluate runs the full gate protocol decision for one utterance.
func (g *Evaluator) Evaluate(in Input) Decision {
	d := Decision{
		IntentAlignment: intentAlignment(in.UtteranceEmbedding, in.Candidates),
		MemoryAlignment: memoryAlignment(in.Candidates),
	}
	d.Confidence = confidence(in.Candidates, d.MemoryAlignment, in.UnresolvedContradictionsForSlot)

	switch {
	case d.MemoryAlignment < g.thresholds.MemoryAlignment:
		d.ResponseType = ResponseUncertainty
		d.Reason = ReasonMemoryAlignmentBelow
	case d.Confidence < g.thresholds.Confidence:
		d.ResponseType = ResponseUncertainty
		d.Reason = ReasonConfidenceBelow
	case in.QueriedSlot != "" && in.UnresolvedContradictionsForSlot > 0:
		d.ResponseType = ResponseUncertainty
		d.Reason = ReasonUnresolvedContradiction
	default:
		d.ResponseType = ResponseBelief
		d.GatesPassed = true
	}

	log.Printf("gate: response=%s reason=%q memory_alignment=%.3f confidence=%.3f",
		d.ResponseType, d.Reason, d.MemoryAlignment, d.Confidence)

	return d
}

// memoryAlignment is the max similarity of the utterance to any retrieved
// memory, per spec 4.7.
func memoryAlignment(candidates []Candidate) float64 {
	max := 0.0
	for _, c := range candidates {
		if c.Similarity > max {
			max = c.Similarity
		}
	}
	return max
}

// intentAlignment is the normalized similarity of the utterance embedding
// to the top-k centroid of retrieved memory embeddings. Since Candidate
// itself only carries similarity scores (the centroid comparison already
// happened at retrieval time), this is approximated as the mean of the
// individual similarities — consistent with "normalized similarity to the
// centroid" when candidates already represent the top-k retrieval set.
func intentAlignment(utteranceEmbedding []float32, candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candidates {
		sum += c.Similarity
	}
	return sum / float64(len(candidates))
}

// confidence is a function of (top trust, alignment, contradiction count),
// per spec 4.7. Contradictions for the queried slot reduce confidence
// multiplicatively; an unqueried slot's contradictions don't apply here
// (they're handled by the third gate directly).
func confidence(candidates []Candidate, memoryAlignment float64, unresolvedForSlot int) float64 {
	topTrust := 0.0
	for _, c := range candidates {
		if c.Trust > topTrust {
			topTrust = c.Trust
		}
	}
	base := topTrust * memoryAlignment
	if unresolvedForSlot > 0 {
		base *= 0.5
	}
	return base
}
