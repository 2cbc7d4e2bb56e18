package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"crt/internal/crterrors"
)

// Ledger is the durable, append-only contradiction ledger. Each state
// transition inserts a new history row (teacher's append-only idiom from
// SQLiteStorage's validations/insights tables); the latest row per
// ledger_id is the entry's current state.
type Ledger struct {
	db *sql.DB

	mu      sync.RWMutex
	entries map[string]*Entry // ledger_id -> current entry (write-through cache)

	// askedSlots tracks, per session, which slots have already been
	// surfaced this session so the goal queue does not repeat a question.
	askedSlots map[string]map[string]bool
}

// Open creates/attaches the ledger's append-only history table on the
// given database connection (shared with the memory store's db, or a
// dedicated one).
func Open(db *sql.DB) (*Ledger, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS contradictions (
	ledger_id TEXT NOT NULL,
	old_id TEXT NOT NULL,
	new_id TEXT NOT NULL,
	slot TEXT,
	drift REAL NOT NULL,
	state TEXT NOT NULL,
	suggested_question TEXT,
	anchor_type TEXT,
	anchor_prompt TEXT,
	winning_value TEXT,
	resolution_method TEXT,
	ts_created INTEGER NOT NULL,
	ts_asked INTEGER,
	ts_resolved INTEGER,
	seq INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contradictions_state_drift ON contradictions(state, drift DESC);
CREATE INDEX IF NOT EXISTS idx_contradictions_slot_state ON contradictions(slot, state);
`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Ledger{
		db:         db,
		entries:    make(map[string]*Entry),
		askedSlots: make(map[string]map[string]bool),
	}, nil
}

// RecordCandidate creates an entry in `open` state. Repeated calls with
// the same (old, new, slot, drift) canonical key are idempotent: the
// existing open entry is returned rather than duplicated.
func (l *Ledger) RecordCandidate(ctx context.Context, oldID, newID, slot string, drift float64, anchor SemanticAnchor) (*Entry, error) {
	key := candidateKey(oldID, newID, slot, drift)

	l.mu.Lock()
	for _, e := range l.entries {
		if e.State == StateOpen && candidateKey(e.OldMemoryID, e.NewMemoryID, e.Slot, e.Drift) == key {
			l.mu.Unlock()
			return e, nil
		}
	}
	l.mu.Unlock()

	entry := &Entry{
		LedgerID:         uuid.NewString(),
		OldMemoryID:      oldID,
		NewMemoryID:      newID,
		Slot:             slot,
		Drift:            drift,
		State:            StateOpen,
		Anchor:           anchor,
		TimestampCreated: time.Now(),
	}
	if slot != "" {
		entry.SuggestedQuestion = anchor.ClarificationPrompt
		if entry.SuggestedQuestion == "" {
			entry.SuggestedQuestion = fmt.Sprintf("Which %s is correct now?", slot)
		}
	}

	if err := l.appendHistory(ctx, entry, 0); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.entries[entry.LedgerID] = entry
	l.mu.Unlock()
	return entry, nil
}

func candidateKey(oldID, newID, slot string, drift float64) string {
	return fmt.Sprintf("%s|%s|%s|%.6f", oldID, newID, slot, drift)
}

// ListOpen returns up to limit entries in `open` state, ordered by drift
// descending, matching the (state, drift desc) index.
func (l *Ledger) ListOpen(limit int) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var open []*Entry
	for _, e := range l.entries {
		if e.State == StateOpen {
			open = append(open, e)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Drift > open[j].Drift })
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open
}

// NextGoal pops the highest-drift open entry for sessionID whose slot has
// not already been asked this session, and emits its suggested question.
func (l *Ledger) NextGoal(sessionID string) (*Entry, bool) {
	for _, e := range l.ListOpen(0) {
		if e.Slot == "" {
			continue
		}
		l.mu.RLock()
		already := l.askedSlots[sessionID][e.Slot]
		l.mu.RUnlock()
		if already {
			continue
		}
		return e, true
	}
	return nil, false
}

// MarkAsked transitions an entry from open to asked. Only open -> asked is
// a legal transition here; anything else is a LedgerInvariant violation.
func (l *Ledger) MarkAsked(ctx context.Context, sessionID, ledgerID string) error {
	l.mu.Lock()
	entry, ok := l.entries[ledgerID]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("ledger entry %s not found: %w", ledgerID, crterrors.ErrLedgerInvariant)
	}
	if entry.State != StateOpen {
		from := entry.State
		l.mu.Unlock()
		return crterrors.NewLedgerInvariant(ledgerID, string(from), string(StateAsked), "mark_asked requires state=open")
	}
	entry.State = StateAsked
	entry.TimestampAsked = time.Now()
	if l.askedSlots[sessionID] == nil {
		l.askedSlots[sessionID] = make(map[string]bool)
	}
	l.askedSlots[sessionID][entry.Slot] = true
	l.mu.Unlock()

	return l.appendHistory(ctx, entry, 1)
}

// Resolve transitions an entry from asked to resolved, recording the
// winning value and resolution method. Trust-evolver invocation on both
// memories is the caller's responsibility (it must observe this
// transition atomically per spec 5 — callers should hold their own
// session lock around Resolve plus the trust update).
func (l *Ledger) Resolve(ctx context.Context, ledgerID, method, winningValue string) (*Entry, error) {
	l.mu.Lock()
	entry, ok := l.entries[ledgerID]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("ledger entry %s not found: %w", ledgerID, crterrors.ErrLedgerInvariant)
	}
	if entry.State != StateAsked {
		from := entry.State
		l.mu.Unlock()
		return nil, crterrors.NewLedgerInvariant(ledgerID, string(from), string(StateResolved), "resolve requires state=asked")
	}
	entry.State = StateResolved
	entry.TimestampResolved = time.Now()
	entry.ResolutionMethod = method
	entry.WinningValue = winningValue
	l.mu.Unlock()

	if err := l.appendHistory(ctx, entry, 2); err != nil {
		return nil, err
	}
	return entry, nil
}

// Dismiss transitions an entry to dismissed without touching trust.
func (l *Ledger) Dismiss(ctx context.Context, ledgerID string) (*Entry, error) {
	l.mu.Lock()
	entry, ok := l.entries[ledgerID]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("ledger entry %s not found: %w", ledgerID, crterrors.ErrLedgerInvariant)
	}
	if entry.State.terminal() {
		from := entry.State
		l.mu.Unlock()
		return nil, crterrors.NewLedgerInvariant(ledgerID, string(from), string(StateDismissed), "cannot dismiss a terminal entry")
	}
	entry.State = StateDismissed
	entry.TimestampResolved = time.Now()
	l.mu.Unlock()

	if err := l.appendHistory(ctx, entry, 2); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns the current state of a single entry by id.
func (l *Ledger) Get(ledgerID string) (*Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[ledgerID]
	return e, ok
}

// AuditTrail renders a human-readable audit line for an entry, using
// go-humanize for relative timestamps.
func (l *Ledger) AuditTrail(e *Entry) string {
	switch e.State {
	case StateResolved:
		return fmt.Sprintf("ledger %s resolved %s via %s", e.LedgerID, humanize.Time(e.TimestampResolved), e.ResolutionMethod)
	case StateAsked:
		return fmt.Sprintf("ledger %s asked %s, still open", e.LedgerID, humanize.Time(e.TimestampAsked))
	default:
		return fmt.Sprintf("ledger %s created %s, state=%s", e.LedgerID, humanize.Time(e.TimestampCreated), e.State)
	}
}

func (l *Ledger) appendHistory(ctx context.Context, e *Entry, seq int) error {
	var tsAsked, tsResolved sql.NullInt64
	if !e.TimestampAsked.IsZero() {
		tsAsked = sql.NullInt64{Int64: e.TimestampAsked.Unix(), Valid: true}
	}
	if !e.TimestampResolved.IsZero() {
		tsResolved = sql.NullInt64{Int64: e.TimestampResolved.Unix(), Valid: true}
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO contradictions (ledger_id, old_id, new_id, slot, drift, state, suggested_question,
			anchor_type, anchor_prompt, winning_value, resolution_method, ts_created, ts_asked, ts_resolved, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.LedgerID, e.OldMemoryID, e.NewMemoryID, e.Slot, e.Drift, string(e.State), e.SuggestedQuestion,
		e.Anchor.ContradictionType, e.Anchor.ClarificationPrompt, e.WinningValue, e.ResolutionMethod,
		e.TimestampCreated.Unix(), tsAsked, tsResolved, seq)
	if err != nil {
		return fmt.Errorf("%w: %v", crterrors.ErrStorageBusy, err)
	}
	return nil
}
