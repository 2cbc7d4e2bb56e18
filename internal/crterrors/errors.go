// Package crterrors defines the error kinds the CRT engine surfaces across
// storage, embedding, extraction, LLM, boundary, ledger, and config
// failures. Callers match with errors.Is/errors.As rather than string
// comparison.
package crterrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", ErrX) to add context.
var (
	// ErrStorageBusy indicates the durable store could not complete a
	// write after exhausting retries (e.g. SQLITE_BUSY under contention).
	ErrStorageBusy = errors.New("storage busy")

	// ErrEmbeddingUnavailable indicates the embedding capability failed
	// and the caller must fall back to a non-semantic path.
	ErrEmbeddingUnavailable = errors.New("embedding capability unavailable")

	// ErrExtractionFailed indicates fact or claim extraction could not
	// produce a result from the input text.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrLLMUnavailable indicates an injected LLM capability (fact tier
	// B, NLI classification, claim extraction) failed or timed out.
	ErrLLMUnavailable = errors.New("llm capability unavailable")

	// ErrBoundaryViolation indicates a caller invoked an operation a
	// capability-restricted type forbids (SSE façade, coherence tracker).
	ErrBoundaryViolation = errors.New("boundary violation")

	// ErrLedgerInvariant indicates a ledger state transition would
	// violate the open -> asked -> {resolved, dismissed} lifecycle.
	ErrLedgerInvariant = errors.New("ledger invariant violated")

	// ErrConfigInvalid indicates configuration failed validation and
	// the process must not start.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// BoundaryViolation carries the forbidden operation name and the reason
// it is forbidden, for façade and coherence-tracker boundary traps.
type BoundaryViolation struct {
	Operation string
	Reason    string
}

func (e *BoundaryViolation) Error() string {
	return fmt.Sprintf("boundary violation: %s: %s", e.Operation, e.Reason)
}

func (e *BoundaryViolation) Unwrap() error { return ErrBoundaryViolation }

// NewBoundaryViolation builds a BoundaryViolation for the named operation.
func NewBoundaryViolation(operation, reason string) error {
	return &BoundaryViolation{Operation: operation, Reason: reason}
}

// LedgerInvariant carries the attempted transition that was rejected.
type LedgerInvariant struct {
	EntryID string
	From    string
	To      string
	Reason  string
}

func (e *LedgerInvariant) Error() string {
	return fmt.Sprintf("ledger invariant violated on %s: %s -> %s: %s", e.EntryID, e.From, e.To, e.Reason)
}

func (e *LedgerInvariant) Unwrap() error { return ErrLedgerInvariant }

// NewLedgerInvariant builds a LedgerInvariant error.
func NewLedgerInvariant(entryID, from, to, reason string) error {
	return &LedgerInvariant{EntryID: entryID, From: from, To: to, Reason: reason}
}
