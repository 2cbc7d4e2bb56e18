package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crt/internal/config"
)

func newTestEvaluator() *Evaluator {
	return New(config.Default())
}

func TestEvaluate_PassesAllGates(t *testing.T) {
	g := newTestEvaluator()
	d := g.Evaluate(Input{
		Candidates: []Candidate{
			{MemoryID: "m1", Similarity: 0.8, Trust: 0.9, Slot: "employer"},
		},
		QueriedSlot:                      "employer",
		UnresolvedContradictionsForSlot: 0,
	})
	assert.Equal(t, ResponseBelief, d.ResponseType)
	assert.True(t, d.GatesPassed)
	assert.Equal(t, ReasonNone, d.Reason)
}

func TestEvaluate_FailsOnLowMemoryAlignment(t *testing.T) {
	g := newTestEvaluator()
	d := g.Evaluate(Input{
		Candidates: []Candidate{
			{MemoryID: "m1", Similarity: 0.1, Trust: 0.9},
		},
	})
	assert.Equal(t, ResponseUncertainty, d.ResponseType)
	assert.False(t, d.GatesPassed)
	assert.Equal(t, ReasonMemoryAlignmentBelow, d.Reason)
}

func TestEvaluate_FailsOnLowConfidence(t *testing.T) {
	g := newTestEvaluator()
	// memory_alignment passes (0.8) but trust is very low, dragging confidence down.
	d := g.Evaluate(Input{
		Candidates: []Candidate{
			{MemoryID: "m1", Similarity: 0.8, Trust: 0.1},
		},
	})
	assert.Equal(t, ResponseUncertainty, d.ResponseType)
	assert.Equal(t, ReasonConfidenceBelow, d.Reason)
}

func TestEvaluate_FailsOnUnresolvedContradictionForQueriedSlot(t *testing.T) {
	g := newTestEvaluator()
	d := g.Evaluate(Input{
		Candidates: []Candidate{
			{MemoryID: "m1", Similarity: 0.9, Trust: 0.9, Slot: "employer"},
		},
		QueriedSlot:                      "employer",
		UnresolvedContradictionsForSlot: 1,
	})
	assert.Equal(t, ResponseUncertainty, d.ResponseType)
	assert.Equal(t, ReasonUnresolvedContradiction, d.Reason)
}

func TestEvaluate_UnresolvedContradictionOnDifferentSlotDoesNotBlock(t *testing.T) {
	g := newTestEvaluator()
	d := g.Evaluate(Input{
		Candidates: []Candidate{
			{MemoryID: "m1", Similarity: 0.9, Trust: 0.9, Slot: "employer"},
		},
		QueriedSlot: "location",
	})
	assert.Equal(t, ResponseBelief, d.ResponseType)
}

func TestEvaluate_NoCandidatesYieldsUncertainty(t *testing.T) {
	g := newTestEvaluator()
	d := g.Evaluate(Input{})
	assert.Equal(t, ResponseUncertainty, d.ResponseType)
	assert.Equal(t, 0.0, d.MemoryAlignment)
}

func TestMemoryAlignment_TakesMaxSimilarity(t *testing.T) {
	candidates := []Candidate{{Similarity: 0.2}, {Similarity: 0.7}, {Similarity: 0.5}}
	assert.Equal(t, 0.7, memoryAlignment(candidates))
}
