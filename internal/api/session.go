package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"crt/internal/contradiction"
	"crt/internal/facts"
	"crt/internal/gate"
	"crt/internal/ledger"
	"crt/internal/memorystore"
	"crt/internal/trust"

	"crt/internal/embedder"
)

// Session orchestrates one conversational thread: it is the concrete
// implementation behind spec section 6's Query and Ledger interfaces,
// wiring together the memory store, trust evolver, two-tier fact
// extractor, contradiction detector, contradiction ledger, and gate
// protocol evaluator.
type Session struct {
	threadID string

	store     *memorystore.Store
	emb       embedder.Embedder
	evolver   *trust.Evolver
	extractor *facts.Extractor
	detector  *contradiction.Detector
	ledger    *ledger.Ledger
	gateEval  *gate.Evaluator

	mu sync.Mutex
	// slotMemory tracks, per hard slot, the most recent normalized value
	// seen in this thread and the content id derived from that value — the
	// value a newly extracted fact for the slot is compared against.
	slotMemory map[facts.Slot]slotRecord
	// resolvedValue holds the ledger-resolved winning value for a slot,
	// once a contradiction has been resolved. answerFor prefers it over
	// retrieval ranking; a later fact for the same slot does not replace
	// it, and only LedgerReset clears it.
	resolvedValue map[facts.Slot]string
}

type slotRecord struct {
	memoryID string
	value    string
}

// NewSession wires one Session from already-constructed engine components.
// The caller owns the lifetime of store/ledger (typically one pair per
// thread, per spec's "one durable store per thread").
func NewSession(threadID string, store *memorystore.Store, emb embedder.Embedder, evolver *trust.Evolver, extractor *facts.Extractor, detector *contradiction.Detector, ledg *ledger.Ledger, gateEval *gate.Evaluator) *Session {
	return &Session{
		threadID:      threadID,
		store:         store,
		emb:           emb,
		evolver:       evolver,
		extractor:     extractor,
		detector:      detector,
		ledger:        ledg,
		gateEval:      gateEval,
		slotMemory:    make(map[facts.Slot]slotRecord),
		resolvedValue: make(map[facts.Slot]string),
	}
}

// Handle runs one turn of the Query interface.
func (s *Session) Handle(ctx context.Context, in QueryInput) (*QueryOutput, error) {
	interrogative := contradiction.IsInterrogative(in.Message)
	queriedSlot := matchQuestionSlot(in.Message)

	result := s.extractor.Extract(ctx, in.ThreadID, in.Message)
	contradictionDetected := false

	queryVec, embedErr := s.emb.Embed(ctx, in.Message)

	if !interrogative {
		for _, f := range result.HardSlots {
			if detected := s.ingestHardSlot(ctx, f); detected {
				contradictionDetected = true
			}
		}
		if embedErr == nil && s.semanticContradictionCheck(ctx, in.ThreadID, in.Message, queryVec) {
			contradictionDetected = true
		}
	}

	const declaredConfidence = 1.0
	if _, err := s.store.Store(ctx, in.ThreadID, in.Message, memorystore.SourceUser, declaredConfidence, nil, in.UserMarkedImportant); err != nil {
		return nil, err
	}

	retrieval := s.store.Retrieve(ctx, in.ThreadID, in.Message, 5)
	now := time.Now()

	var candidates []gate.Candidate
	var retrieved []MemoryView
	for _, scored := range retrieval.Results {
		mem := scored.Memory
		if newTrust := s.evolver.Decay(mem, now); newTrust != mem.Trust {
			_ = s.store.UpdateTrust(ctx, in.ThreadID, mem.ID, newTrust)
			mem.Trust = newTrust
		}
		retrieved = append(retrieved, MemoryView{
			MemoryID:   mem.ID,
			Text:       mem.Text,
			Source:     string(mem.Source),
			Trust:      mem.Trust,
			Similarity: scored.Similarity,
		})
		candidates = append(candidates, gate.Candidate{
			MemoryID:   mem.ID,
			Similarity: scored.Similarity,
			Trust:      mem.Trust,
			Slot:       mem.Context["slot"],
		})
	}

	unresolvedForSlot := 0
	if queriedSlot != "" {
		unresolvedForSlot = s.openEntriesForSlot(string(queriedSlot))
	}

	decision := s.gateEval.Evaluate(gate.Input{
		UtteranceEmbedding:             queryVec,
		Candidates:                     candidates,
		QueriedSlot:                    string(queriedSlot),
		UnresolvedContradictionsForSlot: unresolvedForSlot,
	})

	out := &QueryOutput{
		ResponseType:                  decision.ResponseType,
		GatesPassed:                   decision.GatesPassed,
		GateReason:                    decision.Reason,
		Confidence:                    decision.Confidence,
		IntentAlignment:               decision.IntentAlignment,
		MemoryAlignment:               decision.MemoryAlignment,
		ContradictionDetected:         contradictionDetected,
		RetrievedMemories:             retrieved,
		PromptMemories:                retrieved,
		UnresolvedContradictionsTotal: len(s.ledger.ListOpen(0)),
	}
	if embedErr != nil {
		out.MemoryAlignment = 0
	}

	if decision.ResponseType == gate.ResponseBelief {
		out.Mode = "belief"
		out.Answer = s.answerFor(queriedSlot, retrieved)
		if len(retrieval.Results) > 0 {
			top := retrieval.Results[0].Memory
			newTrust := s.evolver.Reinforce(top, in.UserMarkedImportant)
			_ = s.store.UpdateTrust(ctx, in.ThreadID, top.ID, newTrust)
		}
	} else {
		out.Mode = "uncertainty"
		out.Answer = s.uncertaintyAnswer(in.ThreadID, decision.Reason)
	}

	return out, nil
}

// ingestHardSlot compares a newly extracted hard-slot fact against the
// thread's current value for that slot and, on contradiction, records a
// ledger candidate. It stores no memory itself (Handle stores the whole
// utterance); the new side's id is the content id of the fact value, and
// the slot's current value becomes the new one whether or not a
// contradiction was recorded.
func (s *Session) ingestHardSlot(ctx context.Context, f facts.Fact) bool {
	s.mu.Lock()
	prior, hadPrior := s.slotMemory[f.Slot]
	s.mu.Unlock()

	newID := memorystore.ContentID(s.threadID, memorystore.SourceUser, f.Value)
	detected := false

	if hadPrior && prior.value != f.Normalized {
		label := classifySlotConflict(prior.value, f.Normalized)
		if label == contradiction.LabelContradiction {
			drift := 1.0
			if _, err := s.ledger.RecordCandidate(ctx, prior.memoryID, newID, string(f.Slot), drift, ledger.SemanticAnchor{
				ContradictionType:   "slot_revision",
				ClarificationPrompt: fmt.Sprintf("You previously told me %s for %s — which is correct now?", prior.value, f.Slot),
			}); err == nil {
				detected = true
			}
		}
	}

	s.mu.Lock()
	s.slotMemory[f.Slot] = slotRecord{memoryID: newID, value: f.Normalized}
	s.mu.Unlock()
	return detected
}

// semanticContradictionCheck runs the full contradiction.Detector pipeline
// (semantic prefilter, then heuristic/LLM classification) between the new
// utterance and its top retrieved memories, for free-text contradictions
// that fall outside the closed hard-slot vocabulary (spec boundary
// scenario 1). On a detected contradiction it records a slot-less ledger
// candidate and applies a trust penalty to the contradicted memory.
func (s *Session) semanticContradictionCheck(ctx context.Context, threadID, message string, messageVec []float32) bool {
	retrieval := s.store.Retrieve(ctx, threadID, message, 3)
	if len(retrieval.Results) == 0 {
		return false
	}

	newID := memorystore.ContentID(threadID, memorystore.SourceUser, message)
	var pairs []contradiction.Pair
	for _, scored := range retrieval.Results {
		if scored.Memory.Text == message {
			continue
		}
		pairs = append(pairs, contradiction.Pair{
			IDA:        scored.Memory.ID,
			IDB:        newID,
			TextA:      scored.Memory.Text,
			TextB:      message,
			EmbeddingA: scored.Memory.Embedding,
			EmbeddingB: messageVec,
		})
	}
	if len(pairs) == 0 {
		return false
	}

	detected := false
	for _, result := range s.detector.DetectAll(ctx, pairs) {
		if result.Label != contradiction.LabelContradiction {
			continue
		}
		if _, err := s.ledger.RecordCandidate(ctx, result.Pair.IDA, result.Pair.IDB, "", 1.0, ledger.SemanticAnchor{
			ContradictionType:   "semantic",
			ClarificationPrompt: "This conflicts with something you told me earlier — which one should I keep?",
		}); err == nil {
			detected = true
		}
		for _, scored := range retrieval.Results {
			if scored.Memory.ID != result.Pair.IDA {
				continue
			}
			newTrust := s.evolver.Contradict(scored.Memory)
			_ = s.store.UpdateTrust(ctx, threadID, scored.Memory.ID, newTrust)
		}
	}
	return detected
}

// classifySlotConflict is a lightweight same-slot conflict check: two
// distinct normalized values for the same closed slot are always
// considered contradictory, since the slot vocabulary only ever holds one
// true value at a time (unlike free-text semantic contradiction, which
// uses the full contradiction.Detector pipeline).
func classifySlotConflict(oldValue, newValue string) contradiction.Label {
	if oldValue == "" || newValue == "" || oldValue == newValue {
		return contradiction.LabelNeutral
	}
	return contradiction.LabelContradiction
}

func (s *Session) openEntriesForSlot(slot string) int {
	count := 0
	for _, e := range s.ledger.ListOpen(0) {
		if e.Slot == slot {
			count++
		}
	}
	return count
}

// answerFor renders a belief-mode answer, preferring a ledger-resolved
// winning value for the queried slot over raw retrieval ranking.
func (s *Session) answerFor(queriedSlot facts.Slot, retrieved []MemoryView) string {
	if queriedSlot != "" {
		s.mu.Lock()
		winning, ok := s.resolvedValue[queriedSlot]
		s.mu.Unlock()
		if ok {
			return winning
		}
	}
	if len(retrieved) == 0 {
		return ""
	}
	best := retrieved[0]
	for _, r := range retrieved[1:] {
		if r.Similarity*r.Trust > best.Similarity*best.Trust {
			best = r
		}
	}
	return best.Text
}

func (s *Session) uncertaintyAnswer(threadID string, reason gate.Reason) string {
	var why string
	switch reason {
	case gate.ReasonMemoryAlignmentBelow:
		why = "I don't have a confident memory that matches this."
	case gate.ReasonConfidenceBelow:
		why = "My confidence in the closest memory is too low to answer from belief."
	case gate.ReasonUnresolvedContradiction:
		why = "I have conflicting information on this and haven't resolved it yet."
	default:
		why = "I can't answer this from belief right now."
	}

	if goal, ok := s.ledger.NextGoal(threadID); ok {
		return fmt.Sprintf("%s %s", why, goal.SuggestedQuestion)
	}
	return why
}

// LedgerNext implements GET next(thread_id).
func (s *Session) LedgerNext(threadID string) NextGoalResult {
	goal, ok := s.ledger.NextGoal(threadID)
	if !ok {
		return NextGoalResult{HasItem: false}
	}
	return NextGoalResult{
		HasItem: true,
		Item: &NextGoalItem{
			LedgerID:           goal.LedgerID,
			SuggestedQuestion:  goal.SuggestedQuestion,
			SemanticAnchorType: goal.Anchor.ContradictionType,
			SemanticAnchorText: goal.Anchor.ClarificationPrompt,
		},
	}
}

// LedgerAsked implements POST asked(thread_id, ledger_id).
func (s *Session) LedgerAsked(ctx context.Context, threadID, ledgerID string) error {
	return s.ledger.MarkAsked(ctx, threadID, ledgerID)
}

// LedgerRespond implements POST respond(...). When resolve is true the
// entry transitions to resolved and the winning value becomes the
// thread's answer for that slot going forward; otherwise it is dismissed.
func (s *Session) LedgerRespond(ctx context.Context, ledgerID, answer string, resolve bool, resolutionMethod, newStatus string) (RespondResult, error) {
	if !resolve {
		if _, err := s.ledger.Dismiss(ctx, ledgerID); err != nil {
			return RespondResult{}, err
		}
		return RespondResult{Recorded: true, Resolved: false}, nil
	}

	entry, err := s.ledger.Resolve(ctx, ledgerID, resolutionMethod, answer)
	if err != nil {
		return RespondResult{}, err
	}
	if entry.Slot != "" {
		s.mu.Lock()
		s.resolvedValue[facts.Slot(entry.Slot)] = answer
		s.mu.Unlock()
	}
	return RespondResult{Recorded: true, Resolved: true}, nil
}

// LedgerReset implements POST reset(thread_id, target). For the memory and
// all targets it clears the session's in-process slot state (the current
// value per slot and any ledger-resolved answers); it does not retire
// stored memories. No target changes the ledger, which has no
// physical-delete operation (append-only history): the ledger target is a
// no-op here, and a clean ledger takes a fresh Ledger/Store pair.
func (s *Session) LedgerReset(ctx context.Context, target ResetTarget) error {
	if target != ResetMemory && target != ResetAll {
		return nil
	}
	s.mu.Lock()
	s.slotMemory = make(map[facts.Slot]slotRecord)
	s.resolvedValue = make(map[facts.Slot]string)
	s.mu.Unlock()
	return nil
}

var questionSlotPatterns = map[facts.Slot][]string{
	facts.SlotName:               {"what is my name", "what's my name", "who am i"},
	facts.SlotEmployer:           {"where do i work", "who do i work for", "what company do i work"},
	facts.SlotLocation:           {"where do i live", "where am i from"},
	facts.SlotOccupation:         {"what do i do", "what is my job", "what's my job"},
	facts.SlotRelationshipStatus: {"am i married", "what is my relationship status"},
	facts.SlotAge:                {"how old am i"},
}

// matchQuestionSlot detects which hard slot (if any) an interrogative
// utterance is asking about, used to gate the answer and to count
// unresolved contradictions scoped to that slot.
func matchQuestionSlot(message string) facts.Slot {
	lower := strings.ToLower(message)
	for slot, patterns := range questionSlotPatterns {
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return slot
			}
		}
	}
	return ""
}
