// Package api implements the external interfaces of spec section 6: the
// per-thread Query interface, the Ledger interface, and the orchestrating
// Session that wires the memory store, trust evolver, fact extractor,
// contradiction detector, ledger, and gate protocol together for one
// conversational thread.
package api

import "crt/internal/gate"

// QueryInput is the Query interface's input envelope.
type QueryInput struct {
	ThreadID            string
	Message              string
	UserMarkedImportant  bool
}

// MemoryView is the external projection of a stored memory, used in
// retrieved_memories/prompt_memories.
type MemoryView struct {
	MemoryID   string
	Text       string
	Source     string
	Trust      float64
	Similarity float64
}

// QueryOutput is the Query interface's output envelope.
type QueryOutput struct {
	Answer                       string
	ResponseType                 gate.ResponseType
	GatesPassed                  bool
	GateReason                   gate.Reason
	Confidence                   float64
	Mode                         string
	IntentAlignment              float64
	MemoryAlignment              float64
	ContradictionDetected        bool
	RetrievedMemories            []MemoryView
	PromptMemories               []MemoryView
	UnresolvedContradictionsTotal int
	LearnedSuggestions           []string
	HeuristicSuggestions         []string
}

// NextGoalItem is one outstanding clarification the ledger interface can
// surface via next().
type NextGoalItem struct {
	LedgerID           string
	SuggestedQuestion  string
	SemanticAnchorType string
	SemanticAnchorText string
}

// NextGoalResult is the Ledger interface's next() response.
type NextGoalResult struct {
	HasItem bool
	Item    *NextGoalItem
}

// RespondResult is the Ledger interface's respond() response.
type RespondResult struct {
	Recorded bool
	Resolved bool
}

// ResetTarget names what reset() clears.
type ResetTarget string

const (
	ResetMemory ResetTarget = "memory"
	ResetLedger ResetTarget = "ledger"
	ResetAll    ResetTarget = "all"
)
