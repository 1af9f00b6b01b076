package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/emberline/empath/internal/adapter/rediscache"
	"github.com/emberline/empath/internal/adapter/sheet"
	"github.com/emberline/empath/internal/adapter/sqlite"
	"github.com/emberline/empath/internal/classify"
	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/memory"
	"github.com/emberline/empath/internal/platform/config"
	"github.com/emberline/empath/internal/platform/logging"
	"github.com/emberline/empath/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupStore selects the history backend. The rest of the process only ever
// sees the domain.HistoryStore contract.
func setupStore(cfg *config.Config) (domain.HistoryStore, func()) {
	switch cfg.HistoryBackend {
	case config.BackendSheet:
		client := sheet.NewHTTPRowClient(cfg.SheetAPIURL)
		store := sheet.NewHistoryStore(client, cfg.SheetID, sheet.Options{
			Timeout:        cfg.StoreTimeout,
			MaxAttempts:    cfg.StoreMaxAttempts,
			InitialBackoff: cfg.StoreInitialBackoff,
			MaxBackoff:     cfg.StoreMaxBackoff,
		})
		return store, func() {}

	default:
		db, err := sqlite.Connect(cfg.SQLitePath)
		if err != nil {
			slog.Error("Failed to open local store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		if err := db.RunMigrations(); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		return sqlite.NewHistoryStore(db), func() { _ = db.Close() }
	}
}

// setupCache wraps the store in the read-through recent-history cache when
// Redis is configured.
func setupCache(cfg *config.Config, store domain.HistoryStore) (domain.HistoryStore, func()) {
	if cfg.RedisURL == "" {
		return store, func() {}
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return rediscache.New(store, client, cfg.RecentCacheTTL), func() { _ = client.Close() }
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.HistoryBackend)

	store, closeStore := setupStore(cfg)
	defer closeStore()

	store, closeCache := setupCache(cfg, store)
	defer closeCache()

	emotion := classify.NewClient(cfg.EmotionModelURL, cfg.ClassifyTimeout)
	sentiment := classify.NewClient(cfg.SentimentModelURL, cfg.ClassifyTimeout)

	manager := memory.NewManager(emotion, sentiment, store, clock,
		memory.WithBufferCapacity(cfg.FallbackBufferSize))

	srv := server.NewServer(cfg, manager)
	done := runGracefulShutdown(srv)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
