package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/papertree/internal/api"
	"github.com/dgallion1/papertree/internal/claude"
	"github.com/dgallion1/papertree/internal/components"
	"github.com/dgallion1/papertree/internal/config"
	"github.com/dgallion1/papertree/internal/extraction"
	"github.com/dgallion1/papertree/internal/observability"
	"github.com/dgallion1/papertree/internal/pathstore"
	"github.com/dgallion1/papertree/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step timings.
	stats := observability.NewStepStats(time.Hour)
	var sink *observability.Sink
	var metricsDB *sql.DB
	if cfg.MetricsDB != "" {
		metricsDB, err = observability.Open(cfg.MetricsDB)
		if err != nil {
			log.Error("failed to open metrics db", "path", cfg.MetricsDB, "error", err)
			os.Exit(1)
		}
		sink = observability.NewSink(metricsDB, log, 256, 5*time.Second)
	}

	// Reference parsing, optionally backed by Claude.
	var llm *claude.Client
	var refs extraction.ReferenceParser
	if cfg.LLMReferences {
		llm = claude.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL)
		refs = claude.NewReferenceParser(llm, log)
	}
	comps := components.Default(cfg.Extraction, refs)
	comps.Debug = cfg.Debug

	// Publication is optional.
	deps := pipeline.Deps{Components: comps, Stats: stats, Sink: sink}
	opts := api.Options{Claude: llm, Steps: stats, Sink: sink}
	var ps *pathstore.Client
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		pub := pathstore.NewPublisher(ps, "papers")
		deps.Publisher = pub
		opts.Documents = pub
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, deps, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, opts, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. main waits on done so buffered timings get flushed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if sink != nil {
			if err := sink.Close(); err != nil {
				log.Warn("flushing step timings failed", "error", err)
			}
			metricsDB.Close()
		}
		if llm != nil {
			llm.Close()
		}
		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting papertree",
		"port", cfg.Port,
		"debug", cfg.Debug,
		"llm_references", cfg.LLMReferences,
		"publishing", ps != nil,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
