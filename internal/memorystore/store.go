package memorystore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	_ "modernc.org/sqlite"

	"crt/internal/config"
	"crt/internal/crterrors"
	"crt/internal/embedder"
)

// Store is the durable, cosine-retrievable memory store: one SQLite
// database (write-through cached in process) plus one chromem-go vector
// collection per session, mirroring the teacher's SQLiteStorage /
// VectorStore split.
type Store struct {
	db       *sql.DB
	vectors  *chromem.DB
	embedder embedder.Embedder
	trustCfg config.TrustConfig
	retryCfg config.StorageConfig
	retCfg   config.ThresholdsConfig

	mu    sync.RWMutex
	cache map[string]map[string]*Memory // sessionID -> memoryID -> Memory

	profileMu sync.RWMutex
}

// New opens the durable store and the vector collection backend.
func New(cfg *config.Config, emb embedder.Embedder) (*Store, error) {
	dsn := cfg.Storage.Path + fmt.Sprintf("?_busy_timeout=%d", cfg.Storage.BusyTimeoutMs)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initReflectionSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	var vdb *chromem.DB
	if cfg.Storage.VectorPersistPath != "" {
		vdb, err = chromem.NewPersistentDB(cfg.Storage.VectorPersistPath, false)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
	} else {
		vdb = chromem.NewDB()
	}

	return &Store{
		db:       db,
		vectors:  vdb,
		embedder: emb,
		trustCfg: cfg.Trust,
		retryCfg: cfg.Storage,
		retCfg:   cfg.Thresholds,
		cache:    make(map[string]map[string]*Memory),
	}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	text TEXT NOT NULL,
	source TEXT NOT NULL,
	trust REAL NOT NULL,
	confidence REAL NOT NULL,
	ts_created INTEGER NOT NULL,
	ts_seen INTEGER NOT NULL,
	reinforcement INTEGER NOT NULL DEFAULT 0,
	context_json TEXT,
	sse_mode TEXT NOT NULL DEFAULT 'stable',
	retired INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, id)
);
CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id) WHERE retired = 0;

CREATE TABLE IF NOT EXISTS profile_multi (
	slot TEXT NOT NULL,
	value TEXT NOT NULL,
	normalized TEXT NOT NULL,
	ts INTEGER NOT NULL,
	source_thread TEXT NOT NULL,
	confidence REAL NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	UNIQUE(slot, normalized)
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentID computes the stable content-addressed identifier for a memory:
// a SHA-256 digest of session, source, and canonical text.
func ContentID(sessionID string, source Source, text string) string {
	h := sha256.New()
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func initTrust(cfg config.TrustConfig, source Source) float64 {
	switch source {
	case SourceUser:
		return cfg.InitUser
	case SourceReflection:
		return cfg.InitReflection
	case SourceSystem, SourceExternal:
		return cfg.InitSystem
	default:
		return cfg.InitUser
	}
}

// Store persists a new memory (or reinforces an existing one with the same
// content-addressed id) and indexes its embedding for retrieval.
func (s *Store) Store(ctx context.Context, sessionID, text string, source Source, confidence float64, memCtx map[string]string, userMarkedImportant bool) (*Memory, error) {
	id := ContentID(sessionID, source, text)
	now := time.Now()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("store: %w: %w", crterrors.ErrEmbeddingUnavailable, err)
	}

	m := &Memory{
		ID:                 id,
		Text:               text,
		Source:             source,
		Embedding:          vec,
		Trust:              initTrust(s.trustCfg, source),
		ConfidenceDeclared: confidence,
		TimestampCreated:   now,
		TimestampLastSeen:  now,
		ReinforcementCount: 0,
		Context:            memCtx,
		SSEMode:            ModeStable,
	}

	if err := s.persistWithRetry(ctx, sessionID, m); err != nil {
		return nil, err
	}

	collection, err := s.getOrCreateCollection(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if err := collection.AddDocument(ctx, chromem.Document{
		ID:        id,
		Content:   text,
		Embedding: vec,
	}); err != nil {
		return nil, fmt.Errorf("failed to index embedding: %w", err)
	}

	s.mu.Lock()
	if s.cache[sessionID] == nil {
		s.cache[sessionID] = make(map[string]*Memory)
	}
	s.cache[sessionID][id] = m
	s.mu.Unlock()

	return m, nil
}

func sessionKey(sessionID string) string { return "session-" + sessionID }

// getOrCreateCollection mirrors the teacher's VectorStore.GetOrCreateCollection,
// since chromem.DB itself only exposes GetCollection/CreateCollection.
func (s *Store) getOrCreateCollection(sessionID string) (*chromem.Collection, error) {
	name := sessionKey(sessionID)
	if c := s.vectors.GetCollection(name, nil); c != nil {
		return c, nil
	}
	return s.vectors.CreateCollection(name, nil, nil)
}

// persistWithRetry writes a memory row, retrying on StorageBusy with the
// configured exponential backoff.
func (s *Store) persistWithRetry(ctx context.Context, sessionID string, m *Memory) error {
	ctxJSON, err := json.Marshal(m.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	backoff := time.Duration(s.retryCfg.RetryInitialBackoffMs) * time.Millisecond
	maxBackoff := time.Duration(s.retryCfg.RetryMaxBackoffMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < s.retryCfg.RetryMaxAttempts; attempt++ {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO memories (id, session_id, text, source, trust, confidence, ts_created, ts_seen, reinforcement, context_json, sse_mode, retired)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
			ON CONFLICT(session_id, id) DO UPDATE SET
				ts_seen = excluded.ts_seen,
				reinforcement = memories.reinforcement + 1
		`, m.ID, sessionID, m.Text, string(m.Source), m.Trust, m.ConfidenceDeclared,
			m.TimestampCreated.Unix(), m.TimestampLastSeen.Unix(), m.ReinforcementCount,
			string(ctxJSON), string(m.SSEMode))
		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("[WARN] memorystore: write busy (attempt %d/%d): %v", attempt+1, s.retryCfg.RetryMaxAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= time.Duration(s.retryCfg.RetryBackoffFactor)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return fmt.Errorf("%w: %v", crterrors.ErrStorageBusy, lastErr)
}

// Retrieve ranks memories for the session by score = similarity * f(trust),
// filtering below theta_ret, and folds in any active global profile facts
// as synthetic high-trust records. Embedding failure never blocks the
// query: it returns an empty result set with the diagnostic flag set.
func (s *Store) Retrieve(ctx context.Context, sessionID, queryText string, k int) *RetrieveResult {
	queryVec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return &RetrieveResult{EmbeddingUnavailable: true}
	}

	collection := s.vectors.GetCollection(sessionKey(sessionID), nil)
	var scored []Scored
	if collection != nil {
		s.mu.RLock()
		limit := len(s.cache[sessionID])
		s.mu.RUnlock()
		if limit == 0 {
			limit = 1
		}
		results, err := collection.QueryEmbedding(ctx, queryVec, limit, nil, nil)
		if err == nil {
			s.mu.RLock()
			for _, r := range results {
				mem, ok := s.cache[sessionID][r.ID]
				if !ok || mem.Retired {
					continue
				}
				sim := float64(r.Similarity)
				if sim < s.retCfg.Retrieval {
					continue
				}
				scored = append(scored, Scored{
					Memory:     mem,
					Similarity: sim,
					Score:      sim * trustBoost(mem.Trust, mem.TimestampLastSeen),
				})
			}
			s.mu.RUnlock()
		}
	}

	for _, pf := range s.activeProfileFacts() {
		sim := embedder.Cosine(queryVec, pf.Embedding)
		if sim < s.retCfg.Retrieval {
			continue
		}
		scored = append(scored, Scored{Memory: pf, Similarity: sim, Score: sim * trustBoost(pf.Trust, pf.TimestampLastSeen)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return &RetrieveResult{Results: scored}
}

// trustBoost implements f(trust): identity multiplied by a mild recency
// boost (decays toward 1.0 over roughly a week of inactivity).
func trustBoost(trust float64, lastSeen time.Time) float64 {
	age := time.Since(lastSeen)
	recency := 1.0 + 0.1*(1.0/(1.0+age.Hours()/168.0))
	return trust * recency
}

// Forget retires a memory; it is never physically removed.
func (s *Store) Forget(ctx context.Context, sessionID, memoryID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE memories SET retired = 1 WHERE session_id = ? AND id = ?`, sessionID, memoryID)
	if err != nil {
		return fmt.Errorf("%w: %v", crterrors.ErrStorageBusy, err)
	}
	s.mu.Lock()
	if mem, ok := s.cache[sessionID][memoryID]; ok {
		mem.Retired = true
	}
	s.mu.Unlock()
	return nil
}

// Get returns a single memory by id for the session, or nil.
func (s *Store) Get(sessionID, memoryID string) *Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[sessionID][memoryID]
}

// UpdateTrust persists a trust-evolver update for a memory in place.
func (s *Store) UpdateTrust(ctx context.Context, sessionID, memoryID string, newTrust float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE memories SET trust = ? WHERE session_id = ? AND id = ?`, newTrust, sessionID, memoryID)
	if err != nil {
		return fmt.Errorf("%w: %v", crterrors.ErrStorageBusy, err)
	}
	s.mu.Lock()
	if mem, ok := s.cache[sessionID][memoryID]; ok {
		mem.Trust = newTrust
	}
	s.mu.Unlock()
	return nil
}
