package main

import (
	"log"
	"os"

	"crt/internal/api"
	"crt/internal/config"
	"crt/internal/contradiction"
	"crt/internal/embedder"
	"crt/internal/facts"
	"crt/internal/gate"
	"crt/internal/ledger"
	"crt/internal/loops"
	"crt/internal/memorystore"
	"crt/internal/trust"
)

// Components holds every initialized engine dependency shared across
// threads, extracted from main() so it can be exercised directly by
// tests.
type Components struct {
	Config      *config.Config
	Store       *memorystore.Store
	Embedder    embedder.Embedder
	Evolver     *trust.Evolver
	Extractor   *facts.Extractor
	Detector    *contradiction.Detector
	GateEval    *gate.Evaluator
	Reflection  *loops.ReflectionLoop
	Personality *loops.PersonalityLoop
}

// InitializeEngine loads configuration and wires every engine dependency
// that is shared across threads. Per-thread state (the ledger and the
// api.Session orchestrator) is constructed separately by NewThreadSession,
// since the ledger has no thread_id column and is scoped one-per-thread
// by convention instead (see DESIGN.md's internal/api scoping decision).
func InitializeEngine() (*Components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	emb := buildEmbedder(cfg)

	store, err := memorystore.New(cfg, emb)
	if err != nil {
		return nil, err
	}
	log.Println("Initialized memory store")

	evolver := trust.New(cfg)
	extractor := facts.NewExtractor(nil, cfg.Extraction.LLMTierEnabled, cfg.Extraction.MinConfidence)
	detector := contradiction.NewDetector(nil, cfg.Thresholds.SemanticPrefilter)
	gateEval := gate.New(cfg)
	log.Println("Initialized trust evolver, fact extractor, contradiction detector, gate evaluator")

	reflectionLoop, personalityLoop := loops.BuildLoops(
		store,
		cfg.Loops.ReflectionEnabled,
		cfg.Loops.PersonalityEnabled,
		cfg.Loops.ReflectionIntervalSecs,
		cfg.Loops.PersonalityIntervalSecs,
		cfg.Loops.Window,
	)

	return &Components{
		Config:      cfg,
		Store:       store,
		Embedder:    emb,
		Evolver:     evolver,
		Extractor:   extractor,
		Detector:    detector,
		GateEval:    gateEval,
		Reflection:  reflectionLoop,
		Personality: personalityLoop,
	}, nil
}

// buildEmbedder selects Voyage AI when an API key is configured, falling
// back to the deterministic mock embedder (useful for local runs and
// demos without a network dependency).
func buildEmbedder(cfg *config.Config) embedder.Embedder {
	apiKey := os.Getenv("VOYAGE_API_KEY")
	if apiKey == "" {
		log.Println("VOYAGE_API_KEY not set, using deterministic mock embedder")
		return embedder.NewMockEmbedder(256)
	}
	model := os.Getenv("VOYAGE_MODEL")
	if model == "" {
		model = "voyage-3-lite"
	}
	log.Printf("Initialized Voyage AI embedder (model: %s)", model)
	return embedder.NewVoyageEmbedder(apiKey, model)
}

// NewThreadSession builds the per-thread Session over an already-opened
// Ledger. Each thread owns its own Ledger instance (see DESIGN.md).
func NewThreadSession(c *Components, threadID string, threadLedger *ledger.Ledger) *api.Session {
	return api.NewSession(threadID, c.Store, c.Embedder, c.Evolver, c.Extractor, c.Detector, threadLedger, c.GateEval)
}
