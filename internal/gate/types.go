// Package gate implements the Gate Protocol: the decision function that
// turns retrieval + contradiction signals into either a belief response or
// an honest uncertainty response.
package gate

// ResponseType classifies the decision's output per spec 4.7.
type ResponseType string

const (
	ResponseBelief      ResponseType = "belief"
	ResponseUncertainty ResponseType = "uncertainty"
)

// Reason names which gate failed, when any did.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonMemoryAlignmentBelow  Reason = "memory_alignment_below_threshold"
	ReasonConfidenceBelow       Reason = "confidence_below_threshold"
	ReasonUnresolvedContradiction Reason = "unresolved_hard_contradiction_for_slot"
)

// Candidate is one retrieved memory considered for the gate decision.
type Candidate struct {
	MemoryID   string
	Similarity float64
	Trust      float64
	Slot       string // empty if this memory isn't tied to a hard slot
}

// Input bundles everything the gate decision needs.
type Input struct {
	UtteranceEmbedding []float32
	Candidates         []Candidate
	// QueriedSlot is the hard slot the utterance appears to ask about, if
	// any (empty if the utterance doesn't target a specific slot).
	QueriedSlot string
	// UnresolvedContradictionsForSlot is the count of open/asked ledger
	// entries whose slot equals QueriedSlot.
	UnresolvedContradictionsForSlot int
}

// Decision is the gate's output.
type Decision struct {
	ResponseType     ResponseType
	GatesPassed      bool
	Reason           Reason
	IntentAlignment  float64
	MemoryAlignment  float64
	Confidence       float64
}
