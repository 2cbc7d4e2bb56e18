// Package facts implements the two-tier fact extractor: deterministic
// regex "hard slots" (Tier A) plus an optional LLM-backed "open tuple"
// extractor (Tier B), matching the original CRT prototype's closed
// vocabulary and fallback behavior.
package facts

import "time"

// Slot is a recognized hard-slot attribute name.
type Slot string

const (
	SlotName                 Slot = "name"
	SlotEmployer              Slot = "employer"
	SlotTitle                 Slot = "title"
	SlotOccupation             Slot = "occupation"
	SlotLocation               Slot = "location"
	SlotMedicalDiagnosis       Slot = "medical_diagnosis"
	SlotAccountStatus          Slot = "account_status"
	SlotLegalStatus            Slot = "legal_status"
	SlotRelationshipStatus     Slot = "relationship_status"
	SlotUndergradSchool        Slot = "undergrad_school"
	SlotMastersSchool          Slot = "masters_school"
	SlotSchool                 Slot = "school"
	SlotGraduationYear         Slot = "graduation_year"
	SlotAge                    Slot = "age"
	SlotProgrammingYears       Slot = "programming_years"
	SlotFirstLanguage          Slot = "first_language"
)

// regexOnlySlots never accept Tier-B open tuples, even as a fallback
// mapping target: they are considered too precision-critical to be
// inferred by a generative model.
var regexOnlySlots = map[Slot]bool{
	SlotName:           true,
	SlotAge:            true,
	SlotGraduationYear: true,
}

// IsRegexOnly reports whether a slot must only ever be populated by Tier A.
func IsRegexOnly(s Slot) bool { return regexOnlySlots[s] }

// Fact is a hard-slot extraction result.
type Fact struct {
	Slot           Slot
	Value          string
	Normalized     string
	UtteranceID    string
	ExtractionMethod string // "regex", "llm", or "hybrid"
}

// TupleAction is the open-tuple's effect on prior knowledge.
type TupleAction string

const (
	ActionAdd      TupleAction = "add"
	ActionUpdate   TupleAction = "update"
	ActionDeprecate TupleAction = "deprecate"
	ActionDeny     TupleAction = "deny"
)

// FactTuple is an open, Tier-B extraction: (entity, attribute, value,
// action, confidence, evidence span, source).
type FactTuple struct {
	Entity       string
	Attribute    string
	Value        string
	Action       TupleAction
	Confidence   float64
	EvidenceSpan [2]int
	Source       string
}

// TwoTierResult carries both extraction tiers plus timing, per spec 4.4.
type TwoTierResult struct {
	HardSlots   []Fact
	OpenTuples  []FactTuple
	ElapsedTime time.Duration
	Degraded    bool // true if Tier B fell back to regex-only due to LLM failure
}
