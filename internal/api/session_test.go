package api

import (
	"context"
	"database/sql"
	"hash/fnv"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crt/internal/config"
	"crt/internal/contradiction"
	"crt/internal/facts"
	"crt/internal/gate"
	"crt/internal/ledger"
	"crt/internal/memorystore"
	"crt/internal/trust"
)

// wordOverlapEmbedder is a deterministic bag-of-words embedder for tests.
// Unlike embedder.MockEmbedder (which hashes the whole string, so any two
// distinct texts are effectively orthogonal), this one gives textually
// related sentences a non-trivial cosine similarity, which the gate and
// retrieval thresholds need to exercise their real behavior.
type wordOverlapEmbedder struct {
	dimension int
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func (e *wordOverlapEmbedder) Dimension() int { return e.dimension }

func (e *wordOverlapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dimension] += 1.0
	}
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		mag := float32(math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] /= mag
		}
	}
	return vec, nil
}

func (e *wordOverlapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestSession(t *testing.T, threadID string) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "crt.db")

	emb := &wordOverlapEmbedder{dimension: 64}
	store, err := memorystore.New(cfg, emb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ledg, err := ledger.Open(db)
	require.NoError(t, err)

	evolver := trust.New(cfg)
	extractor := facts.NewExtractor(nil, false, 0)
	// Semantic threshold set low so overlap-embedder pairs always reach
	// the heuristic classifier in these tests, matching how a real
	// semantic embedder would surface genuinely related claims.
	detector := contradiction.NewDetector(nil, -1.0)
	gateEval := gate.New(cfg)

	return NewSession(threadID, store, emb, evolver, extractor, detector, ledg, gateEval)
}

func TestHandle_EmployerRevisionResolvesViaLedger(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, "thread-1")

	out1, err := s.Handle(ctx, QueryInput{ThreadID: "thread-1", Message: "I work at Microsoft."})
	require.NoError(t, err)
	assert.False(t, out1.ContradictionDetected)

	out2, err := s.Handle(ctx, QueryInput{ThreadID: "thread-1", Message: "I work at Amazon."})
	require.NoError(t, err)
	assert.True(t, out2.ContradictionDetected, "revising a hard slot's value must be flagged as a contradiction")

	open := s.ledger.ListOpen(0)
	require.Len(t, open, 1)
	assert.Equal(t, "employer", open[0].Slot)

	next := s.LedgerNext("thread-1")
	require.True(t, next.HasItem)
	ledgerID := next.Item.LedgerID

	require.NoError(t, s.LedgerAsked(ctx, "thread-1", ledgerID))

	resp, err := s.LedgerRespond(ctx, ledgerID, "amazon", true, "user_confirmed", "resolved")
	require.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.True(t, resp.Resolved)

	out3, err := s.Handle(ctx, QueryInput{ThreadID: "thread-1", Message: "Where do I work?"})
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out3.Answer), "amazon")
	assert.NotContains(t, strings.ToLower(out3.Answer), "microsoft")
}

func TestHandle_QuestionDoesNotContradict(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, "thread-2")

	out1, err := s.Handle(ctx, QueryInput{ThreadID: "thread-2", Message: "My name is Nick."})
	require.NoError(t, err)
	assert.False(t, out1.ContradictionDetected)

	out2, err := s.Handle(ctx, QueryInput{ThreadID: "thread-2", Message: "What is my name?"})
	require.NoError(t, err)
	assert.False(t, out2.ContradictionDetected, "an interrogative utterance must never register as a contradiction")
	assert.Empty(t, s.ledger.ListOpen(0))
}

func TestHandle_TemporalUtteranceDoesNotPersistHardSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, "thread-3")

	_, err := s.Handle(ctx, QueryInput{ThreadID: "thread-3", Message: "I work at Microsoft."})
	require.NoError(t, err)

	out2, err := s.Handle(ctx, QueryInput{ThreadID: "thread-3", Message: "I'm working on homework tonight."})
	require.NoError(t, err)
	assert.False(t, out2.ContradictionDetected)
	assert.Empty(t, s.ledger.ListOpen(0), "a temporally-guarded utterance must not revise the employer slot")

	s.mu.Lock()
	rec, ok := s.slotMemory[facts.SlotEmployer]
	s.mu.Unlock()
	require.True(t, ok)
	assert.Contains(t, rec.value, "microsoft")
}

func TestHandle_NegationOppositesFlaggedAsContradiction(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, "thread-4")

	_, err := s.Handle(ctx, QueryInput{ThreadID: "thread-4", Message: "The statement is true."})
	require.NoError(t, err)

	out2, err := s.Handle(ctx, QueryInput{ThreadID: "thread-4", Message: "The statement is not true."})
	require.NoError(t, err)
	assert.True(t, out2.ContradictionDetected)

	open := s.ledger.ListOpen(0)
	require.Len(t, open, 1)
	assert.Equal(t, "", open[0].Slot)
}

func TestLedgerRespond_DismissDoesNotResolve(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, "thread-5")

	_, err := s.Handle(ctx, QueryInput{ThreadID: "thread-5", Message: "I work at Microsoft."})
	require.NoError(t, err)
	_, err = s.Handle(ctx, QueryInput{ThreadID: "thread-5", Message: "I work at Amazon."})
	require.NoError(t, err)

	next := s.LedgerNext("thread-5")
	require.True(t, next.HasItem)

	resp, err := s.LedgerRespond(ctx, next.Item.LedgerID, "", false, "", "dismissed")
	require.NoError(t, err)
	assert.True(t, resp.Recorded)
	assert.False(t, resp.Resolved)

	s.mu.Lock()
	_, resolved := s.resolvedValue[facts.SlotEmployer]
	s.mu.Unlock()
	assert.False(t, resolved)
}

func TestLedgerReset_ClearsInMemorySlotState(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, "thread-6")

	_, err := s.Handle(ctx, QueryInput{ThreadID: "thread-6", Message: "I work at Microsoft."})
	require.NoError(t, err)

	require.NoError(t, s.LedgerReset(ctx, ResetMemory))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.slotMemory)
	assert.Empty(t, s.resolvedValue)
}

func TestClassifySlotConflict(t *testing.T) {
	assert.Equal(t, contradiction.LabelContradiction, classifySlotConflict("microsoft", "amazon"))
	assert.Equal(t, contradiction.LabelNeutral, classifySlotConflict("microsoft", "microsoft"))
	assert.Equal(t, contradiction.LabelNeutral, classifySlotConflict("", "amazon"))
}

func TestMatchQuestionSlot(t *testing.T) {
	assert.Equal(t, facts.SlotEmployer, matchQuestionSlot("Where do I work?"))
	assert.Equal(t, facts.SlotName, matchQuestionSlot("What is my name?"))
	assert.Equal(t, facts.Slot(""), matchQuestionSlot("How's the weather?"))
}
