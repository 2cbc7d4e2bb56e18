package contradiction

import "strings"

// negationPrefixes mirrors the teacher's detectDirectNegation lexicon,
// generalized from thought-pairs to memory/claim pairs.
var negationPrefixes = []string{"not ", "no ", "never ", "cannot ", "can't ", "won't ", "don't ", "doesn't ", "isn't ", "aren't "}

// oppositionLexicon is the fixed opposition-word pair table from spec 4.5.
var oppositionLexicon = [][2]string{
	{"round", "flat"},
	{"beneficial", "harmful"},
	{"always", "never"},
	{"all", "none"},
	{"must", "cannot"},
	{"true", "false"},
	{"safe", "dangerous"},
	{"legal", "illegal"},
	{"married", "single"},
	{"increase", "decrease"},
}

// HasNegationWord reports whether the text contains a negation marker,
// used both by the heuristic classifier and by dedup's anti-collapse rule
// (Invariant III).
func HasNegationWord(text string) bool {
	lower := " " + strings.ToLower(text) + " "
	for _, neg := range negationPrefixes {
		if strings.Contains(lower, " "+neg) {
			return true
		}
	}
	multiWord := []string{"fails to", "failed to", "lacks", "lacking", "without",
		"absence of", "devoid of", "free from", "unable to", "incapable of", "insufficient"}
	for _, phrase := range multiWord {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// classifyHeuristic implements step 3 of the detector's algorithm:
// (a) negation mismatch, (b) opposition-word lexicon, (c) else unrelated.
// Deterministic for all inputs.
func classifyHeuristic(textA, textB string) Label {
	a := strings.ToLower(textA)
	b := strings.ToLower(textB)

	if HasNegationWord(a) != HasNegationWord(b) && shareSubject(a, b) {
		return LabelContradiction
	}

	for _, pair := range oppositionLexicon {
		if strings.Contains(a, pair[0]) && strings.Contains(b, pair[1]) {
			return LabelContradiction
		}
		if strings.Contains(a, pair[1]) && strings.Contains(b, pair[0]) {
			return LabelContradiction
		}
	}

	return LabelUnrelated
}

// shareSubject is a coarse token-overlap check so that negation mismatch
// alone (without shared vocabulary) doesn't over-trigger: "it is red" and
// "I don't like soup" shouldn't contradict just because one has a negation.
func shareSubject(a, b string) bool {
	tokensA := strings.Fields(a)
	set := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		if len(t) >= 4 {
			set[t] = true
		}
	}
	for _, t := range strings.Fields(b) {
		if len(t) >= 4 && set[t] {
			return true
		}
	}
	return false
}
