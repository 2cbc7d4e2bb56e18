package facts

import (
	"context"
	"fmt"
	"time"

	"crt/internal/crterrors"
)

// LLMExtractor is the injected Tier-B capability: given an utterance, it
// proposes open FactTuples. A real implementation calls out to a
// generative model; failures must be reported as
// crterrors.ErrLLMUnavailable so the two-tier extractor can degrade.
type LLMExtractor interface {
	ExtractTuples(ctx context.Context, utterance string) ([]FactTuple, error)
}

// attributeToSlot maps open-tuple attribute names onto the fixed hard-slot
// relation table (spec 9: "a fixed relation table").
var attributeToSlot = map[string]Slot{
	"name": SlotName, "employer": SlotEmployer, "company": SlotEmployer,
	"workplace": SlotEmployer, "title": SlotTitle, "job_title": SlotTitle,
	"occupation": SlotOccupation, "job": SlotOccupation,
	"location": SlotLocation, "city": SlotLocation, "residence": SlotLocation,
	"medical_diagnosis": SlotMedicalDiagnosis, "diagnosis": SlotMedicalDiagnosis,
	"account_status": SlotAccountStatus, "legal_status": SlotLegalStatus,
	"relationship_status": SlotRelationshipStatus, "marital_status": SlotRelationshipStatus,
	"undergrad_school": SlotUndergradSchool, "masters_school": SlotMastersSchool,
	"school": SlotSchool, "graduation_year": SlotGraduationYear,
	"age": SlotAge, "programming_years": SlotProgrammingYears,
	"first_language": SlotFirstLanguage, "native_language": SlotFirstLanguage,
}

// mappedSlot returns the hard slot an open-tuple attribute maps to, if any.
func mappedSlot(attribute string) (Slot, bool) {
	s, ok := attributeToSlot[attribute]
	return s, ok
}

// Extractor runs the two-tier pipeline: deterministic Tier A always runs;
// Tier B is optional and degrades gracefully on failure.
type Extractor struct {
	llm              LLMExtractor
	tierBEnabled     bool
	openTupleMinConf float64
}

// NewExtractor builds a two-tier extractor. llm may be nil, in which case
// Tier B is always skipped: unlike an LLM failure, no fallback tuples are
// produced and Degraded stays false.
func NewExtractor(llm LLMExtractor, tierBEnabled bool, openTupleMinConfidence float64) *Extractor {
	return &Extractor{llm: llm, tierBEnabled: tierBEnabled, openTupleMinConf: openTupleMinConfidence}
}

// Extract runs Tier A, then (if enabled and available) Tier B, discarding
// any open tuple whose attribute maps to a hard slot or whose confidence
// falls below the threshold. On LLM failure it falls back to converting
// hard-slot matches into equivalent tuples.
func (e *Extractor) Extract(ctx context.Context, utteranceID, utterance string) *TwoTierResult {
	start := time.Now()
	result := &TwoTierResult{HardSlots: ExtractHardSlots(utteranceID, utterance)}

	if !e.tierBEnabled || e.llm == nil {
		result.ElapsedTime = time.Since(start)
		return result
	}

	tuples, err := e.llm.ExtractTuples(ctx, utterance)
	if err != nil {
		result.Degraded = true
		result.OpenTuples = regexFallbackTuples(result.HardSlots)
		result.ElapsedTime = time.Since(start)
		return result
	}

	for _, tup := range tuples {
		if tup.Confidence < e.openTupleMinConf {
			continue
		}
		if _, ok := mappedSlot(tup.Attribute); ok {
			// Attributes that map to a hard slot are Tier A's domain and
			// are discarded here, per spec 4.4.
			continue
		}
		result.OpenTuples = append(result.OpenTuples, tup)
	}
	result.ElapsedTime = time.Since(start)
	return result
}

// regexFallbackTuples converts hard-slot matches into equivalent open
// tuples when Tier B is unavailable, per spec 4.4's graceful degradation.
func regexFallbackTuples(facts []Fact) []FactTuple {
	out := make([]FactTuple, 0, len(facts))
	for _, f := range facts {
		out = append(out, FactTuple{
			Entity:     "self",
			Attribute:  string(f.Slot),
			Value:      f.Value,
			Action:     ActionAdd,
			Confidence: 1.0,
			Source:     f.UtteranceID,
		})
	}
	return out
}

// ErrDegradedExtraction wraps ErrExtractionFailed for callers that need to
// distinguish a fully-empty result from an LLM-path failure.
func ErrDegradedExtraction(cause error) error {
	return fmt.Errorf("%w: %v", crterrors.ErrExtractionFailed, cause)
}
