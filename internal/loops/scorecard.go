package loops

import (
	"strings"
	"time"

	"crt/internal/memorystore"
)

// BuildReflectionScorecard summarizes a session's recent message topics
// and trends.
func BuildReflectionScorecard(threadID string, messages []string, manualPrompt string, now time.Time) memorystore.ReflectionScorecard {
	counts := topicCounts(messages)
	top := topTopics(counts, 5)
	rising, fading := trendTopics(messages)

	sc := memorystore.ReflectionScorecard{
		ThreadID:             threadID,
		UpdatedAt:            now,
		MessageWindow:        len(messages),
		PreferenceConfidence: confidenceFromWindow(len(messages)),
		TopTopics:            toTopicCounts(top),
		TopicTrends: memorystore.TopicTrends{
			Rising: toTopicDeltas(rising),
			Fading: toTopicDeltas(fading),
		},
	}
	if manualPrompt != "" {
		sc.ManualPrompt = manualPrompt
	}
	return sc
}

func confidenceFromWindow(n int) float64 {
	c := float64(n) / 20.0
	if c > 1.0 {
		return 1.0
	}
	return c
}

func toTopicCounts(in []topicCount) []memorystore.TopicCount {
	out := make([]memorystore.TopicCount, len(in))
	for i, tc := range in {
		out[i] = memorystore.TopicCount{Topic: tc.topic, Count: tc.count}
	}
	return out
}

func toTopicDeltas(in []topicDelta) []memorystore.TopicDelta {
	out := make([]memorystore.TopicDelta, len(in))
	for i, td := range in {
		out[i] = memorystore.TopicDelta{Topic: td.topic, Delta: td.delta}
	}
	return out
}

// BuildPersonalityProfile summarizes how a session tends to communicate:
// verbosity, emoji use, and structured-vs-freeform formatting.
func BuildPersonalityProfile(threadID string, messages []string, manualPrompt string, now time.Time) memorystore.PersonalityProfile {
	var totalLen, nonEmpty int
	for _, m := range messages {
		if m == "" {
			continue
		}
		totalLen += len(m)
		nonEmpty++
	}
	avgLen := 0.0
	if nonEmpty > 0 {
		avgLen = float64(totalLen) / float64(nonEmpty)
	}

	verbosity := "balanced"
	switch {
	case avgLen <= 60:
		verbosity = "concise"
	case avgLen >= 180:
		verbosity = "verbose"
	}

	emojiHits := 0
	for _, m := range messages {
		if emojiPresent(m) {
			emojiHits++
		}
	}
	emojiThreshold := len(messages) / 4
	if emojiThreshold < 1 {
		emojiThreshold = 1
	}
	emoji := "off"
	if emojiHits >= emojiThreshold {
		emoji = "on"
	}

	structured := false
	for _, m := range messages {
		for _, line := range strings.Split(m, "\n") {
			if isStructuredLine(line) {
				structured = true
				break
			}
		}
		if structured {
			break
		}
	}
	format := "freeform"
	if structured {
		format = "structured"
	}

	profile := memorystore.PersonalityProfile{
		ThreadID:      threadID,
		UpdatedAt:     now,
		MessageWindow: len(messages),
		Verbosity:     verbosity,
		Emoji:         emoji,
		Format:        format,
	}
	if manualPrompt != "" {
		profile.ManualPrompt = manualPrompt
	}
	return profile
}
