// Package main provides the entry point for the CRT (Cognitive-Reflective
// Transformer) engine: a per-thread memory, trust, contradiction, and
// ledger pipeline fronted by the Query and Ledger interfaces from spec
// section 6.
//
// This binary runs the background reflection/personality loops and drives
// a small demonstration conversation against one thread so the engine's
// wiring can be exercised end to end without a network-facing transport.
//
// Environment variables:
//   - DEBUG: set to "true" for file:line-annotated log output
//   - VOYAGE_API_KEY: enables the real Voyage AI embedder; unset falls
//     back to the deterministic mock embedder
//   - VOYAGE_MODEL: overrides the default voyage-3-lite model
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"crt/internal/api"
	"crt/internal/embedder"
	"crt/internal/ledger"
	"crt/internal/sse/index"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Starting CRT engine in debug mode...")
	}

	components, err := InitializeEngine()
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer func() {
		if err := components.Store.Close(); err != nil {
			log.Printf("Warning: failed to close memory store: %v", err)
		}
	}()

	components.Reflection.Start()
	components.Personality.Start()
	defer components.Reflection.Stop()
	defer components.Personality.Stop()
	log.Println("Started reflection and personality loops")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	const demoThreadID = "demo-thread"
	session, closeLedger, err := openThreadSession(components, demoThreadID)
	if err != nil {
		log.Fatalf("Failed to open thread session: %v", err)
	}
	defer closeLedger()

	runDemoConversation(ctx, session)
	runSSEDemo(ctx, components.Embedder)

	<-ctx.Done()
	log.Println("Shutting down")
}

// runSSEDemo compresses a short source document through the full SSE
// pipeline -- chunk, extract claims, cluster, detect contradictions -- then
// reports through the read-only Navigator and Coherence Tracker, so the
// Claim Extractor, façade, and coherence graph are exercised by this binary
// and not only by their own package tests.
func runSSEDemo(ctx context.Context, emb embedder.Embedder) {
	const doc = "The deployment is safe to run today. The deployment is dangerous to run today. The changelog mentions three minor fixes."

	built, err := index.Build(ctx, "demo-doc", time.Now().UTC().Format(time.RFC3339), doc, emb, nil, index.DefaultOptions())
	if err != nil {
		log.Printf("SSE index build failed: %v", err)
		return
	}

	info := built.Navigator.Info()
	log.Printf("SSE index: claims=%d clusters=%d contradictions=%d", info.NumClaims, info.NumClusters, info.NumContradictions)
	for _, c := range built.Navigator.Contradictions() {
		log.Println(built.Navigator.FormatContradiction(c))
	}

	report := built.Coherence.CoherenceReport()
	log.Printf("coherence report: claims=%d disagreement_edges=%d density=%.2f isolated=%d",
		report.TotalClaims, report.TotalDisagreementEdges, report.DisagreementDensity, report.NumIsolatedClaims)
}

// openThreadSession opens a dedicated ledger database for the thread and
// wires it into a new Session. Each thread gets its own ledger file since
// ledger.Ledger has no thread_id column (see DESIGN.md's internal/api
// scoping decision).
func openThreadSession(c *Components, threadID string) (*api.Session, func(), error) {
	dir := filepath.Dir(c.Config.Storage.Path)
	ledgerPath := filepath.Join(dir, fmt.Sprintf("ledger-%s.db", threadID))

	db, err := sql.Open("sqlite", ledgerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	threadLedger, err := ledger.Open(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	session := NewThreadSession(c, threadID, threadLedger)
	return session, func() { _ = db.Close() }, nil
}

// runDemoConversation drives the spec's employer-revision boundary
// scenario through the Query and Ledger interfaces, logging each turn.
func runDemoConversation(ctx context.Context, session *api.Session) {
	turns := []string{
		"I work at Microsoft.",
		"I work at Amazon.",
		"Where do I work?",
	}
	for _, message := range turns {
		out, err := session.Handle(ctx, api.QueryInput{ThreadID: "demo-thread", Message: message})
		if err != nil {
			log.Printf("turn %q failed: %v", message, err)
			continue
		}
		log.Printf("turn=%q mode=%s contradiction=%v answer=%q", message, out.Mode, out.ContradictionDetected, out.Answer)

		if !out.ContradictionDetected {
			continue
		}
		next := session.LedgerNext("demo-thread")
		if !next.HasItem {
			continue
		}
		log.Printf("ledger clarification: %s", next.Item.SuggestedQuestion)
		if err := session.LedgerAsked(ctx, "demo-thread", next.Item.LedgerID); err != nil {
			log.Printf("mark-asked failed: %v", err)
			continue
		}
		if _, err := session.LedgerRespond(ctx, next.Item.LedgerID, "amazon", true, "user_confirmed", "resolved"); err != nil {
			log.Printf("respond failed: %v", err)
		}
	}
}
