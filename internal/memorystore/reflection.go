package memorystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ReflectionScorecard is a periodic snapshot of what a session has been
// talking about, written by the reflection loop.
type ReflectionScorecard struct {
	ThreadID             string         `json:"thread_id"`
	UpdatedAt            time.Time      `json:"updated_at"`
	MessageWindow        int            `json:"message_window"`
	PreferenceConfidence float64        `json:"preference_confidence"`
	TopTopics            []TopicCount   `json:"top_topics"`
	TopicTrends          TopicTrends    `json:"topic_trends"`
	ManualPrompt         string         `json:"manual_prompt,omitempty"`
}

// TopicCount pairs a token with how often it appeared.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// TopicDelta pairs a token with its rising/fading frequency change.
type TopicDelta struct {
	Topic string `json:"topic"`
	Delta int    `json:"delta"`
}

// TopicTrends splits topics into those gaining and losing frequency
// between the first and second half of the observed message window.
type TopicTrends struct {
	Rising []TopicDelta `json:"rising"`
	Fading []TopicDelta `json:"fading"`
}

// PersonalityProfile is a periodic snapshot of how a session tends to
// communicate, written by the personality loop.
type PersonalityProfile struct {
	ThreadID      string    `json:"thread_id"`
	UpdatedAt     time.Time `json:"updated_at"`
	MessageWindow int       `json:"message_window"`
	Verbosity     string    `json:"verbosity"` // concise | balanced | verbose
	Emoji         string    `json:"emoji"`      // on | off
	Format        string    `json:"format"`     // structured | freeform
	ManualPrompt  string    `json:"manual_prompt,omitempty"`
}

func initReflectionSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS reflection_scorecards (
	thread_id TEXT NOT NULL PRIMARY KEY,
	scorecard_json TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS personality_profiles (
	thread_id TEXT NOT NULL PRIMARY KEY,
	profile_json TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create reflection schema: %w", err)
	}
	return nil
}

// ListThreads returns up to limit known session ids, ordered by most
// recently active first.
func (s *Store) ListThreads(limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type seen struct {
		id   string
		last time.Time
	}
	var sessions []seen
	for sessionID, mems := range s.cache {
		var latest time.Time
		for _, m := range mems {
			if m.TimestampLastSeen.After(latest) {
				latest = m.TimestampLastSeen
			}
		}
		sessions = append(sessions, seen{id: sessionID, last: latest})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].last.After(sessions[j].last) })
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	out := make([]string, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.id
	}
	return out
}

// RecentUserMessages returns up to window user-sourced message texts for a
// session, oldest first.
func (s *Store) RecentUserMessages(sessionID string, window int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mems []*Memory
	for _, m := range s.cache[sessionID] {
		if m.Source == SourceUser && !m.Retired {
			mems = append(mems, m)
		}
	}
	sort.Slice(mems, func(i, j int) bool { return mems[i].TimestampCreated.Before(mems[j].TimestampCreated) })
	if len(mems) > window {
		mems = mems[len(mems)-window:]
	}
	out := make([]string, len(mems))
	for i, m := range mems {
		out[i] = m.Text
	}
	return out
}

// StoreReflectionScorecard persists the latest reflection scorecard for a
// thread, overwriting any prior snapshot.
func (s *Store) StoreReflectionScorecard(ctx context.Context, scorecard ReflectionScorecard) error {
	blob, err := json.Marshal(scorecard)
	if err != nil {
		return fmt.Errorf("failed to marshal scorecard: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reflection_scorecards (thread_id, scorecard_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET scorecard_json = excluded.scorecard_json, updated_at = excluded.updated_at
	`, scorecard.ThreadID, string(blob), scorecard.UpdatedAt.Unix())
	return err
}

// GetReflectionScorecard returns the most recently stored scorecard for a
// thread, if any.
func (s *Store) GetReflectionScorecard(ctx context.Context, threadID string) (*ReflectionScorecard, error) {
	row := s.db.QueryRowContext(ctx, `SELECT scorecard_json FROM reflection_scorecards WHERE thread_id = ?`, threadID)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var sc ReflectionScorecard
	if err := json.Unmarshal([]byte(blob), &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// StorePersonalityProfile persists the latest personality profile for a
// thread, overwriting any prior snapshot.
func (s *Store) StorePersonalityProfile(ctx context.Context, profile PersonalityProfile) error {
	blob, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO personality_profiles (thread_id, profile_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at
	`, profile.ThreadID, string(blob), profile.UpdatedAt.Unix())
	return err
}

// GetPersonalityProfile returns the most recently stored personality
// profile for a thread, if any.
func (s *Store) GetPersonalityProfile(ctx context.Context, threadID string) (*PersonalityProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT profile_json FROM personality_profiles WHERE thread_id = ?`, threadID)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var p PersonalityProfile
	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
