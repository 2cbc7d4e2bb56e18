package extract

import "strings"

// hedgeWords mark uncertain language a claim carries in its own text.
// Ported from original_source/sse/ambiguity.py's HEDGE_WORDS.
var hedgeWords = map[string]bool{
	"may": true, "might": true, "could": true, "seems": true,
	"suggests": true, "possible": true, "unclear": true, "likely": true,
	"maybe": true,
}

// conflictMarkerWords flag a claim as carrying its own qualification or
// contrast. Ported from ambiguity.py's contains_conflict_markers check.
var conflictMarkerWords = []string{"but", "however", "although", "contradict"}

// Ambiguity carries uncertainty markers extracted directly from a claim's
// text and supporting quotes, exposed verbatim by the façade -- never
// softened or filtered.
type Ambiguity struct {
	HedgeScore      float64
	ConflictMarkers []string
	OpenQuestions   []string
}

// AnalyzeAmbiguity computes a claim's hedge score, any conflict markers its
// own text carries, and any supporting quote that is itself a question.
// Ported from original_source/sse/ambiguity.py's hedge_score and
// analyze_ambiguity_for_claims.
func AnalyzeAmbiguity(claimText string, quotes []Quote) Ambiguity {
	words := strings.Fields(claimText)
	var hedgeCount int
	for _, w := range words {
		if hedgeWords[strings.Trim(strings.ToLower(w), ".,")] {
			hedgeCount++
		}
	}
	var score float64
	if len(words) > 0 {
		score = float64(hedgeCount) / float64(len(words))
	}

	lower := strings.ToLower(claimText)
	var markers []string
	for _, m := range conflictMarkerWords {
		if strings.Contains(lower, m) {
			markers = append(markers, m)
		}
	}

	var openQuestions []string
	for _, q := range quotes {
		if strings.HasSuffix(strings.TrimSpace(q.QuoteText), "?") {
			openQuestions = append(openQuestions, q.QuoteText)
		}
	}

	return Ambiguity{HedgeScore: score, ConflictMarkers: markers, OpenQuestions: openQuestions}
}
