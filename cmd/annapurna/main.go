package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/annapurna-labs/annapurna/internal/adapter/gemini"
	anhttp "github.com/annapurna-labs/annapurna/internal/adapter/http"
	anotel "github.com/annapurna-labs/annapurna/internal/adapter/otel"
	"github.com/annapurna-labs/annapurna/internal/adapter/ristretto"
	"github.com/annapurna-labs/annapurna/internal/adapter/sqlite"
	"github.com/annapurna-labs/annapurna/internal/adapter/websearch"
	"github.com/annapurna-labs/annapurna/internal/config"
	"github.com/annapurna-labs/annapurna/internal/embedding"
	"github.com/annapurna-labs/annapurna/internal/knowledge"
	"github.com/annapurna-labs/annapurna/internal/logger"
	"github.com/annapurna-labs/annapurna/internal/matcher"
	"github.com/annapurna-labs/annapurna/internal/memo"
	"github.com/annapurna-labs/annapurna/internal/middleware"
	"github.com/annapurna-labs/annapurna/internal/resilience"
	"github.com/annapurna-labs/annapurna/internal/service"
)

const serviceName = "annapurna"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	defer closeLogger.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"csv_path", cfg.Knowledge.CSVPath,
	)

	ctx := context.Background()

	// --- Knowledge base ---
	kb, err := knowledge.Load(cfg.Knowledge.CSVPath)
	if err != nil {
		return fmt.Errorf("knowledge base: %w", err)
	}
	slog.Info("knowledge base loaded", "records", kb.Len())

	m := matcher.New(kb, cfg.Matcher)

	// Optional embedding blend; keyword matching stands alone without it.
	if cfg.Embedding.Model != "" {
		emb := embedding.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model)
		m.SetEmbedder(emb)
		go func() {
			if err := m.PrecomputeEmbeddings(ctx); err != nil {
				slog.Warn("embedding precompute failed, keyword-only matching", "error", err)
			}
		}()
	}

	// --- Learning store ---
	learningStore, err := sqlite.NewLearningStore(cfg.Learning.DBPath)
	if err != nil {
		return fmt.Errorf("learning store: %w", err)
	}
	defer func() { _ = learningStore.Close() }()

	if boosts, err := learningStore.TermBoosts(ctx); err != nil {
		slog.Warn("failed to load term boosts", "error", err)
	} else if len(boosts) > 0 {
		m.SetBoosts(boosts)
		slog.Info("term boosts loaded", "terms", len(boosts))
	}

	// --- Cache ---
	cache, err := ristretto.New(cfg.Cache.MaxCostMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- Observability ---
	shutdownTracer := anotel.InitTracer(serviceName)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := anotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Rate limiter ---
	limiter := middleware.NewRateLimiter(cfg.Rate.Limit, cfg.Rate.Window)
	limiter.OnReject(func(r *http.Request) {
		metrics.RateLimited.Add(r.Context(), 1)
	})
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	// --- Upstream clients ---
	llm := gemini.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	search := websearch.NewClient(cfg.Search.BaseURL, cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.Timeout)
	search.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Chat pipeline ---
	sessions := service.NewSessionMemory(cfg.Memory.MaxTurns, cfg.Memory.ContextTurns)
	chatSvc := service.NewChatService(kb, m, memo.New(cache), llm, search,
		learningStore, sessions, cfg.Matcher, cfg.Cache)
	chatSvc.SetMetrics(metrics)

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(anhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(anhttp.SecurityHeaders)
	r.Use(anhttp.Logger)
	r.Use(anotel.HTTPMiddleware(serviceName))

	anhttp.MountRoutes(r, anhttp.NewHandlers(chatSvc, metrics), limiter, cfg.Server.StaticDir)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
