package facts

import (
	"regexp"
	"strings"
)

type slotPattern struct {
	slot    Slot
	pattern *regexp.Regexp
	// group is the capture group index holding the value.
	group int
}

// hardSlotPatterns enumerates the closed vocabulary's regex rules. They are
// tried in order and each slot is filled by its first matching pattern;
// slots are independent, so a masters/undergrad match does not stop the
// generic "school" pattern from also matching the same utterance.
var hardSlotPatterns = []slotPattern{
	{SlotName, regexp.MustCompile(`(?i)^(?:my name is|i'?m|i am|call me)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*){0,2})\b`), 1},
	{SlotEmployer, regexp.MustCompile(`(?i)\bi work (?:at|for)\s+([a-z0-9][\w&.'\-]*(?:\s+[a-z0-9][\w&.'\-]*){0,3})`), 1},
	{SlotEmployer, regexp.MustCompile(`(?i)\bmy employer is\s+([a-z0-9][\w&.'\-]*(?:\s+[a-z0-9][\w&.'\-]*){0,3})`), 1},
	{SlotMastersSchool, regexp.MustCompile(`(?i)\b(?:i (?:did|got) my master'?s (?:at|from)|my master'?s (?:degree )?(?:is|was) (?:at|from))\s+([a-z][\w\s&.'\-]*)`), 1},
	{SlotUndergradSchool, regexp.MustCompile(`(?i)\b(?:i (?:went|did my undergrad) (?:to|at)|my undergrad(?:uate)? (?:degree )?(?:is|was) (?:at|from))\s+([a-z][\w\s&.'\-]*)`), 1},
	{SlotSchool, regexp.MustCompile(`(?i)\bi (?:go|went|study|studied) (?:to|at)\s+([a-z][\w\s&.'\-]*)`), 1},
	{SlotTitle, regexp.MustCompile(`(?i)\bmy (?:job )?title is\s+([a-z][\w\s\-]*)`), 1},
	{SlotOccupation, regexp.MustCompile(`(?i)\bi(?:'m| am) an? ([a-z][\w\s\-]*?)(?:\s+at\s+[a-z0-9].*)?[.!?]?$`), 1},
	{SlotLocation, regexp.MustCompile(`(?i)\bi (?:live|reside|am based) in\s+([a-z][\w\s,.\-]*)`), 1},
	{SlotLocation, regexp.MustCompile(`(?i)\bi'?m from\s+([a-z][\w\s,.\-]*)`), 1},
	{SlotMedicalDiagnosis, regexp.MustCompile(`(?i)\bi (?:was|have been) diagnosed with\s+([a-z][\w\s\-]*)`), 1},
	{SlotAccountStatus, regexp.MustCompile(`(?i)\bmy account (?:is|status is)\s+([a-z][\w\s\-]*)`), 1},
	{SlotLegalStatus, regexp.MustCompile(`(?i)\bmy legal status is\s+([a-z][\w\s\-]*)`), 1},
	{SlotRelationshipStatus, regexp.MustCompile(`(?i)\bi(?:'m| am) (married|single|divorced|widowed|engaged|separated)\b`), 1},
	{SlotGraduationYear, regexp.MustCompile(`(?i)\bi graduated (?:in\s+)?(\d{4})`), 1},
	{SlotAge, regexp.MustCompile(`(?i)\bi(?:'m| am)\s+(\d{1,3})\s+years?\s+old\b`), 1},
	{SlotProgrammingYears, regexp.MustCompile(`(?i)\bi(?:'ve| have) been programming for\s+(\d{1,2})\s+years?\b`), 1},
	{SlotFirstLanguage, regexp.MustCompile(`(?i)\bmy (?:first|native) language is\s+([a-z][\w\-]*)`), 1},
}

// temporalGuard matches ephemeral/temporal language that should suppress
// all enduring hard-slot extraction for the utterance, per spec 4.4.
var temporalGuard = regexp.MustCompile(`(?i)\b(tonight|today|this (?:morning|afternoon|evening|weekend)|right now|for now|just for now|currently just|at the moment)\b`)

// HasTemporalGuard reports whether the utterance carries ephemeral
// language that should suppress enduring-fact extraction.
func HasTemporalGuard(utterance string) bool {
	return temporalGuard.MatchString(utterance)
}

// nameFillerLeads are words that, appearing right after "I'm"/"I am",
// signal an occupation/state description rather than a name (e.g.
// "I'm a software engineer", "I'm not sure").
var nameFillerLeads = map[string]bool{
	"a": true, "an": true, "the": true, "not": true, "so": true,
	"really": true, "also": true, "just": true, "still": true,
	"married": true, "single": true, "divorced": true, "widowed": true,
	"engaged": true, "separated": true,
}

func isNameFiller(value string) bool {
	first := strings.ToLower(strings.SplitN(value, " ", 2)[0])
	return nameFillerLeads[first]
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// ExtractHardSlots runs Tier A: deterministic regex matching over the
// closed slot vocabulary. If the utterance matches the temporal guard, no
// slots are returned, since every slot in this vocabulary represents an
// enduring fact.
func ExtractHardSlots(utteranceID, utterance string) []Fact {
	if HasTemporalGuard(utterance) {
		return nil
	}

	var facts []Fact
	seen := make(map[Slot]bool)
	for _, p := range hardSlotPatterns {
		if seen[p.slot] {
			continue
		}
		m := p.pattern.FindStringSubmatch(utterance)
		if m == nil || len(m) <= p.group {
			continue
		}
		value := strings.TrimRight(strings.TrimSpace(m[p.group]), ".,;:!?")
		if value == "" {
			continue
		}
		if p.slot == SlotName && isNameFiller(value) {
			continue
		}
		facts = append(facts, Fact{
			Slot:             p.slot,
			Value:            value,
			Normalized:       normalize(value),
			UtteranceID:      utteranceID,
			ExtractionMethod: "regex",
		})
		seen[p.slot] = true
	}
	return facts
}
