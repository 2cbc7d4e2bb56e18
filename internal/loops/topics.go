// Package loops implements the continuous background reflection and
// personality loops: periodic, low-overhead scans of recent session
// messages that write topic scorecards and communication-style profiles,
// without ever participating in the gate or belief-formation path.
package loops

import (
	"regexp"
	"sort"
	"strings"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "with": true, "this": true,
	"from": true, "have": true, "your": true, "you": true, "for": true,
	"are": true, "was": true, "but": true, "not": true, "just": true,
	"like": true, "what": true, "when": true, "where": true, "how": true,
	"why": true, "about": true, "into": true, "then": true, "than": true,
	"them": true, "they": true, "their": true, "here": true, "there": true,
	"some": true, "could": true, "would": true, "should": true, "been": true,
	"did": true, "does": true, "dont": true, "doesnt": true, "cant": true,
	"wont": true, "im": true, "ive": true, "its": true, "we": true,
	"our": true, "us": true, "a": true, "an": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "as": true, "is": true, "it": true,
}

var nonWordRun = regexp.MustCompile(`[^\w\s-]`)

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	cleaned := nonWordRun.ReplaceAllString(lower, " ")
	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) >= 3 && !stopwords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func topicCounts(messages []string) map[string]int {
	counts := make(map[string]int)
	for _, msg := range messages {
		for _, tok := range tokenize(msg) {
			counts[tok]++
		}
	}
	return counts
}

type topicCount struct {
	topic string
	count int
}

func topTopics(counts map[string]int, k int) []topicCount {
	items := make([]topicCount, 0, len(counts))
	for topic, count := range counts {
		items = append(items, topicCount{topic: topic, count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].topic < items[j].topic
	})
	if len(items) > k {
		items = items[:k]
	}
	return items
}

type topicDelta struct {
	topic string
	delta int
}

// trendTopics splits the message window in half and reports which topics
// grew or shrank in frequency by at least 2 mentions between the two
// halves.
func trendTopics(messages []string) (rising, fading []topicDelta) {
	if len(messages) == 0 {
		return nil, nil
	}
	mid := len(messages) / 2
	if mid < 1 {
		mid = 1
	}
	olderCounts := topicCounts(messages[:mid])
	recentCounts := topicCounts(messages[mid:])

	seen := make(map[string]bool)
	for t := range olderCounts {
		seen[t] = true
	}
	for t := range recentCounts {
		seen[t] = true
	}

	for t := range seen {
		delta := recentCounts[t] - olderCounts[t]
		if delta >= 2 {
			rising = append(rising, topicDelta{topic: t, delta: delta})
		} else if delta <= -2 {
			fading = append(fading, topicDelta{topic: t, delta: delta})
		}
	}
	sort.Slice(rising, func(i, j int) bool {
		if rising[i].delta != rising[j].delta {
			return rising[i].delta > rising[j].delta
		}
		return rising[i].topic < rising[j].topic
	})
	sort.Slice(fading, func(i, j int) bool {
		if fading[i].delta != fading[j].delta {
			return fading[i].delta < fading[j].delta
		}
		return fading[i].topic < fading[j].topic
	})
	if len(rising) > 5 {
		rising = rising[:5]
	}
	if len(fading) > 5 {
		fading = fading[:5]
	}
	return rising, fading
}

var emojiRange = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}]`)

func emojiPresent(text string) bool {
	return text != "" && emojiRange.MatchString(text)
}

func isStructuredLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range []string{"-", "*", "1.", "2."} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
