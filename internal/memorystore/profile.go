package memorystore

import (
	"context"
	"fmt"
	"time"

	"crt/internal/crterrors"
)

// UpsertProfileFact writes a global user-profile fact. Uniqueness on
// (slot, normalized) means a repeated fact refreshes its timestamp and
// confidence rather than duplicating.
func (s *Store) UpsertProfileFact(ctx context.Context, slot, value, normalized, sourceThread string, confidence float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_multi (slot, value, normalized, ts, source_thread, confidence, active)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(slot, normalized) DO UPDATE SET
			value = excluded.value,
			ts = excluded.ts,
			source_thread = excluded.source_thread,
			confidence = excluded.confidence,
			active = 1
	`, slot, value, normalized, time.Now().Unix(), sourceThread, confidence)
	if err != nil {
		return fmt.Errorf("%w: %v", crterrors.ErrStorageBusy, err)
	}
	return nil
}

// activeProfileFacts loads every active profile fact as a synthetic,
// high-trust Memory record for inclusion in the retrieval pool. Embeddings
// are computed on read since profile facts are few and read paths already
// tolerate embedder latency.
func (s *Store) activeProfileFacts() []*Memory {
	rows, err := s.db.Query(`SELECT slot, value, ts, confidence FROM profile_multi WHERE active = 1`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []*Memory
	for rows.Next() {
		var slot, value string
		var ts int64
		var confidence float64
		if err := rows.Scan(&slot, &value, &ts, &confidence); err != nil {
			continue
		}
		text := fmt.Sprintf("%s: %s", slot, value)
		vec, err := s.embedder.Embed(context.Background(), text)
		if err != nil {
			continue
		}
		trust := s.trustCfg.InitSystem
		if trust < 0.9 {
			trust = 0.9
		}
		out = append(out, &Memory{
			ID:                 "profile:" + slot,
			Text:               text,
			Source:             SourceSystem,
			Embedding:          vec,
			Trust:              trust,
			ConfidenceDeclared: confidence,
			TimestampCreated:   time.Unix(ts, 0),
			TimestampLastSeen:  time.Unix(ts, 0),
			SSEMode:            ModeStable,
		})
	}
	return out
}
