// Package trust implements the Trust Evolver: saturating reinforcement,
// contradiction penalties, and windowed multiplicative decay over memory
// trust scores, per the configuration record loaded once at session start.
package trust

import (
	"time"

	"crt/internal/config"
	"crt/internal/memorystore"
)

// Evolver applies trust updates using a fixed configuration snapshot, read
// once at session start and held read-only for the session's lifetime.
type Evolver struct {
	cfg config.TrustConfig
	thr config.ThresholdsConfig
}

// New builds an Evolver from the loaded configuration.
func New(cfg *config.Config) *Evolver {
	return &Evolver{cfg: cfg.Trust, thr: cfg.Thresholds}
}

// clip bounds trust to [0, 1].
func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Reinforce applies the saturating positive update:
// trust <- clip(trust + delta_plus*(1-trust), 0, 1), doubling delta_plus
// when the user marked the turn important.
func (e *Evolver) Reinforce(mem *memorystore.Memory, userMarkedImportant bool) float64 {
	delta := e.cfg.ReinforceDelta
	if userMarkedImportant {
		delta *= e.cfg.ImportantFactor
	}
	next := clip(mem.Trust + delta*(1-mem.Trust))
	return e.applyFloor(mem, next)
}

// Contradict applies: trust <- clip(trust - delta_minus*trust, 0, 1).
func (e *Evolver) Contradict(mem *memorystore.Memory) float64 {
	next := clip(mem.Trust - e.cfg.ContradictDelta*mem.Trust)
	return e.applyFloor(mem, next)
}

// Decay applies multiplicative decay (1-epsilon) if the memory has not
// been touched within the configured window; otherwise trust is unchanged.
// Call this at the next touch of a memory, per spec 4.3.
func (e *Evolver) Decay(mem *memorystore.Memory, now time.Time) float64 {
	window := time.Duration(e.cfg.DecayWindowHours) * time.Hour
	if now.Sub(mem.TimestampLastSeen) < window {
		return mem.Trust
	}
	next := clip(mem.Trust * (1 - e.cfg.DecayEpsilon))
	return e.applyFloor(mem, next)
}

// applyFloor enforces the source floor: system-sourced memories cannot
// fall below the configured floor (default 0.5), satisfying Invariant IX.
func (e *Evolver) applyFloor(mem *memorystore.Memory, trust float64) float64 {
	if mem.Source == memorystore.SourceSystem && trust < e.cfg.SystemFloor {
		return e.cfg.SystemFloor
	}
	return trust
}

// AlignmentAction classifies how an alignment score alpha should move
// trust, per the reinforcement/contradiction thresholds.
type AlignmentAction int

const (
	ActionNone AlignmentAction = iota
	ActionReinforce
	ActionContradict
)

// Classify decides whether alpha triggers reinforcement, a contradiction
// penalty, or no trust change, using theta_align and theta_contra.
func (e *Evolver) Classify(alpha float64) AlignmentAction {
	switch {
	case alpha > e.thr.MemoryAlignment:
		return ActionReinforce
	case alpha < -e.thr.Contradiction:
		return ActionContradict
	default:
		return ActionNone
	}
}
