// Package memorystore implements Engine 1's Memory Store: content-addressed
// memory records, persisted durably and retrieved by cosine similarity
// against a per-session vector collection.
package memorystore

import "time"

// Source identifies who or what produced a memory.
type Source string

const (
	SourceUser       Source = "user"
	SourceSystem     Source = "system"
	SourceReflection Source = "reflection"
	SourceExternal   Source = "external"
)

// SSEMode is the last-observed coherence status of a memory.
type SSEMode string

const (
	ModeStable       SSEMode = "stable"
	ModeUncertain    SSEMode = "uncertain"
	ModeContradicted SSEMode = "contradicted"
)

// Memory is the primary entity of the Memory & Trust Engine.
type Memory struct {
	ID                 string
	Text               string
	Source             Source
	Embedding          []float32
	Trust              float64
	ConfidenceDeclared float64
	TimestampCreated   time.Time
	TimestampLastSeen  time.Time
	ReinforcementCount int
	Context            map[string]string
	SSEMode            SSEMode
	Retired            bool
}

// Scored pairs a memory with its cosine similarity to a query.
type Scored struct {
	Memory     *Memory
	Similarity float64
	Score      float64 // similarity * f(trust)
}

// RetrieveResult is the outcome of a retrieve() call, including the
// diagnostic flag the spec requires on embedding failure.
type RetrieveResult struct {
	Results            []Scored
	EmbeddingUnavailable bool
}
