// Package config provides configuration management for the CRT engine.
//
// Configuration can be loaded from multiple sources (in order of precedence):
// 1. Environment variables (highest priority)
// 2. Configuration file (JSON)
// 3. Default values (lowest priority)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config represents the complete engine configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Storage    StorageConfig    `json:"storage"`
	Trust      TrustConfig      `json:"trust"`
	Thresholds ThresholdsConfig `json:"thresholds"`
	Extraction ExtractionConfig `json:"extraction"`
	SSE        SSEConfig        `json:"sse"`
	Loops      LoopConfig       `json:"loops"`
	Features   FeatureFlags     `json:"features"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig contains process-level identification.
type ServerConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// StorageConfig controls the durable store backend.
type StorageConfig struct {
	// Type selects the backend: "sqlite" or "memory" (tests only).
	Type string `json:"type"`

	// Path to the SQLite database file.
	Path string `json:"path"`

	// VectorPersistPath, if set, persists the chromem-go vector store
	// to disk; empty means in-memory only.
	VectorPersistPath string `json:"vector_persist_path"`

	BusyTimeoutMs int `json:"busy_timeout_ms"`

	// Retry policy for transient StorageBusy conditions.
	RetryInitialBackoffMs int `json:"retry_initial_backoff_ms"`
	RetryBackoffFactor    int `json:"retry_backoff_factor"`
	RetryMaxBackoffMs     int `json:"retry_max_backoff_ms"`
	RetryMaxAttempts      int `json:"retry_max_attempts"`
}

// TrustConfig carries the trust-evolution constants from spec section 4.3.
type TrustConfig struct {
	InitUser       float64 `json:"init_user"`
	InitReflection float64 `json:"init_reflection"`
	InitSystem     float64 `json:"init_system"`

	ReinforceDelta   float64 `json:"reinforce_delta"`   // delta_plus
	ContradictDelta  float64 `json:"contradict_delta"`  // delta_minus
	ImportantFactor  float64 `json:"important_factor"`  // doubles delta_plus when user-marked important
	DecayEpsilon     float64 `json:"decay_epsilon"`     // multiplicative decay per window
	DecayWindowHours float64 `json:"decay_window_hours"`
	SystemFloor      float64 `json:"system_floor"` // system-sourced memories never decay below this
}

// ThresholdsConfig carries the gate and contradiction thresholds.
type ThresholdsConfig struct {
	MemoryAlignment     float64 `json:"memory_alignment"`      // theta_align
	Confidence          float64 `json:"confidence"`            // theta_min
	Contradiction       float64 `json:"contradiction"`         // theta_contra
	Retrieval           float64 `json:"retrieval"`              // theta_ret
	SemanticPrefilter   float64 `json:"semantic_prefilter"`    // cosine >= this to consider NLI
	DedupCosine         float64 `json:"dedup_cosine"`          // >= this to consider two claims candidate-duplicates
	DedupTextSimilarity float64 `json:"dedup_text_similarity"` // > this (ratio) to confirm duplicate
}

// ExtractionConfig tunes the two-tier fact extractor.
type ExtractionConfig struct {
	MinConfidence   float64 `json:"min_confidence"`
	LLMTierEnabled  bool    `json:"llm_tier_enabled"`
}

// SSEConfig tunes the semantic string engine chunker/extractor.
type SSEConfig struct {
	MaxChunkChars    int     `json:"max_chunk_chars"`
	ChunkOverlapChars int    `json:"chunk_overlap_chars"`
	MinHedgeScore    float64 `json:"min_hedge_score"`
	LLMAssistEnabled bool    `json:"llm_assist_enabled"`
}

// LoopConfig tunes the continuous-reflection background loops.
type LoopConfig struct {
	ReflectionEnabled      bool `json:"reflection_enabled"`
	PersonalityEnabled     bool `json:"personality_enabled"`
	ReflectionIntervalSecs int  `json:"reflection_interval_secs"`
	PersonalityIntervalSecs int `json:"personality_interval_secs"`
	Window                 int  `json:"window"`
}

// FeatureFlags controls which optional capabilities are active.
type FeatureFlags struct {
	ContradictionDetection bool `json:"contradiction_detection"`
	LedgerEnabled          bool `json:"ledger_enabled"`
	CoherenceTracking      bool `json:"coherence_tracking"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"`
	EnableTimestamps bool   `json:"enable_timestamps"`
}

// Default returns the default configuration with every constant from
// the spec's numeric tables filled in.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "crt",
			Version:     "1.0.0",
			Environment: "development",
		},
		Storage: StorageConfig{
			Type:                  "sqlite",
			Path:                  "crt.db",
			VectorPersistPath:     "",
			BusyTimeoutMs:         5000,
			RetryInitialBackoffMs: 100,
			RetryBackoffFactor:    2,
			RetryMaxBackoffMs:     2000,
			RetryMaxAttempts:      5,
		},
		Trust: TrustConfig{
			InitUser:         0.7,
			InitReflection:   0.5,
			InitSystem:       0.9,
			ReinforceDelta:   0.1,
			ContradictDelta:  0.3,
			ImportantFactor:  2.0,
			DecayEpsilon:     0.01,
			DecayWindowHours: 24,
			SystemFloor:      0.5,
		},
		Thresholds: ThresholdsConfig{
			MemoryAlignment:     0.30,
			Confidence:          0.25,
			Contradiction:       0.5,
			Retrieval:           0.2,
			SemanticPrefilter:   0.2,
			DedupCosine:         0.99,
			DedupTextSimilarity: 0.8,
		},
		Extraction: ExtractionConfig{
			MinConfidence:  0.5,
			LLMTierEnabled: true,
		},
		SSE: SSEConfig{
			MaxChunkChars:     800,
			ChunkOverlapChars: 200,
			MinHedgeScore:     0.5,
			LLMAssistEnabled:  false,
		},
		Loops: LoopConfig{
			ReflectionEnabled:       true,
			PersonalityEnabled:      true,
			ReflectionIntervalSecs:  900,
			PersonalityIntervalSecs: 1200,
			Window:                  20,
		},
		Features: FeatureFlags{
			ContradictionDetection: true,
			LedgerEnabled:          true,
			CoherenceTracking:      true,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			EnableTimestamps: true,
		},
	}
}

// Load loads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	c := Default()
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromFile loads a JSON configuration file, falling back to defaults
// for any field left zero-valued in the file, then applies environment
// overrides on top.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CRT_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("CRT_SERVER_ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}
	if v := os.Getenv("CRT_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("CRT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("CRT_STORAGE_BUSY_TIMEOUT_MS"); v != "" {
		c.Storage.BusyTimeoutMs = parseInt(v, c.Storage.BusyTimeoutMs)
	}
	if v := os.Getenv("CRT_TRUST_REINFORCE_DELTA"); v != "" {
		c.Trust.ReinforceDelta = parseFloat(v, c.Trust.ReinforceDelta)
	}
	if v := os.Getenv("CRT_TRUST_CONTRADICT_DELTA"); v != "" {
		c.Trust.ContradictDelta = parseFloat(v, c.Trust.ContradictDelta)
	}
	if v := os.Getenv("CRT_TRUST_DECAY_EPSILON"); v != "" {
		c.Trust.DecayEpsilon = parseFloat(v, c.Trust.DecayEpsilon)
	}
	if v := os.Getenv("CRT_THRESHOLDS_MEMORY_ALIGNMENT"); v != "" {
		c.Thresholds.MemoryAlignment = parseFloat(v, c.Thresholds.MemoryAlignment)
	}
	if v := os.Getenv("CRT_THRESHOLDS_CONFIDENCE"); v != "" {
		c.Thresholds.Confidence = parseFloat(v, c.Thresholds.Confidence)
	}
	if v := os.Getenv("CRT_SSE_MAX_CHUNK_CHARS"); v != "" {
		c.SSE.MaxChunkChars = parseInt(v, c.SSE.MaxChunkChars)
	}
	if v := os.Getenv("CRT_SSE_CHUNK_OVERLAP_CHARS"); v != "" {
		c.SSE.ChunkOverlapChars = parseInt(v, c.SSE.ChunkOverlapChars)
	}
	if v := os.Getenv("CRT_REFLECTION_LOOP_ENABLED"); v != "" {
		c.Loops.ReflectionEnabled = parseBool(v)
	}
	if v := os.Getenv("CRT_PERSONALITY_LOOP_ENABLED"); v != "" {
		c.Loops.PersonalityEnabled = parseBool(v)
	}
	if v := os.Getenv("CRT_REFLECTION_LOOP_SECONDS"); v != "" {
		c.Loops.ReflectionIntervalSecs = parseInt(v, c.Loops.ReflectionIntervalSecs)
	}
	if v := os.Getenv("CRT_PERSONALITY_LOOP_SECONDS"); v != "" {
		c.Loops.PersonalityIntervalSecs = parseInt(v, c.Loops.PersonalityIntervalSecs)
	}
	if v := os.Getenv("CRT_LOOP_WINDOW"); v != "" {
		c.Loops.Window = parseInt(v, c.Loops.Window)
	}
	if v := os.Getenv("CRT_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration. A non-nil error here is a
// ConfigInvalid condition and must be fatal at startup.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name cannot be empty")
	}
	if c.Storage.Type != "sqlite" && c.Storage.Type != "memory" {
		return fmt.Errorf("storage.type must be 'sqlite' or 'memory'")
	}
	if c.Storage.Type == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path cannot be empty when storage.type is 'sqlite'")
	}
	if c.Storage.RetryMaxAttempts < 1 {
		return fmt.Errorf("storage.retry_max_attempts must be >= 1")
	}

	for _, f := range []struct {
		name string
		val  float64
	}{
		{"trust.init_user", c.Trust.InitUser},
		{"trust.init_reflection", c.Trust.InitReflection},
		{"trust.init_system", c.Trust.InitSystem},
		{"trust.system_floor", c.Trust.SystemFloor},
		{"thresholds.memory_alignment", c.Thresholds.MemoryAlignment},
		{"thresholds.confidence", c.Thresholds.Confidence},
		{"thresholds.semantic_prefilter", c.Thresholds.SemanticPrefilter},
		{"thresholds.dedup_cosine", c.Thresholds.DedupCosine},
		{"thresholds.dedup_text_similarity", c.Thresholds.DedupTextSimilarity},
	} {
		if f.val < 0 || f.val > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", f.name, f.val)
		}
	}

	if c.Trust.ReinforceDelta <= 0 || c.Trust.ContradictDelta <= 0 {
		return fmt.Errorf("trust.reinforce_delta and trust.contradict_delta must be > 0")
	}
	if c.Trust.DecayEpsilon < 0 || c.Trust.DecayEpsilon >= 1 {
		return fmt.Errorf("trust.decay_epsilon must be within [0,1)")
	}

	if c.SSE.MaxChunkChars <= 0 {
		return fmt.Errorf("sse.max_chunk_chars must be > 0")
	}
	if c.SSE.ChunkOverlapChars < 0 || c.SSE.ChunkOverlapChars >= c.SSE.MaxChunkChars {
		return fmt.Errorf("sse.chunk_overlap_chars must be within [0, max_chunk_chars)")
	}

	if c.Loops.ReflectionIntervalSecs < 60 {
		return fmt.Errorf("loops.reflection_interval_secs must be >= 60")
	}
	if c.Loops.PersonalityIntervalSecs < 60 {
		return fmt.Errorf("loops.personality_interval_secs must be >= 60")
	}
	if c.Loops.Window < 5 {
		return fmt.Errorf("loops.window must be >= 5")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return v
}

// ToJSON serializes the configuration to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
