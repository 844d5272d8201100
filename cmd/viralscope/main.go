// Command viralscope serves viral-post analysis over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abelbrown/viralscope/internal/brain"
	"github.com/abelbrown/viralscope/internal/config"
	"github.com/abelbrown/viralscope/internal/coord"
	"github.com/abelbrown/viralscope/internal/enhance"
	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/metrics"
	"github.com/abelbrown/viralscope/internal/otel"
	"github.com/abelbrown/viralscope/internal/server"
	"github.com/abelbrown/viralscope/internal/source"
	"github.com/abelbrown/viralscope/internal/store"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	eventRingSize = 2048
	purgeInterval = time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "viralscope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logging.InitWriter(os.Stderr, "info")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.InitWriter(os.Stderr, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Event log: JSONL on disk plus a ring for GET /api/events
	eventFile, err := os.OpenFile(filepath.Join(dataDir, "viralscope.events.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventFile.Close()
	events := otel.NewLogger(eventFile)
	defer events.Close()
	ring := otel.NewRingBuffer(eventRingSize)
	events.SetRingBuffer(ring)

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	savedTTL := time.Duration(cfg.Store.SavedTTLHours) * time.Hour
	var saved store.SavedStore
	if cfg.Store.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Store.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Store.RedisAddr, err)
		}
		saved = store.NewRedisSaved(client, savedTTL)
		logging.Info("Saved items in redis", "addr", cfg.Store.RedisAddr)
	} else {
		sqliteSaved := store.NewSQLiteSaved(st, savedTTL)
		saved = sqliteSaved
		go purgeExpired(ctx, sqliteSaved)
	}

	router := brain.NewRouter(brain.NewProviders(brain.ConfigsFrom(cfg))...)
	router.EnableCircuitBreakers(brain.DefaultBreakerConfig())
	configured := router.Configured()
	if len(configured) == 0 {
		logging.Warn("No AI provider configured; analyze requests will return 503",
			"hint", "set OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY or XAI_API_KEY")
	}

	enhancer := enhance.New(nil)
	demo := source.NewDemo(nil)
	if cfg.Sources.Seed != 0 {
		demo = source.NewSeededDemo(cfg.Sources.Seed)
		enhancer = enhance.NewSeeded(cfg.Sources.Seed)
	}
	var live source.Source
	if len(cfg.Sources.Feeds) > 0 {
		live = source.NewFeed(source.DefaultFeedConfig(cfg.Sources.Feeds))
	}
	posts := source.NewFallback(live, demo, events)

	collector := metrics.New(version)

	coordinator := coord.New(coord.Config{
		Router:          router,
		Posts:           posts,
		Enhancer:        enhancer,
		History:         st,
		Metrics:         collector,
		Events:          events,
		Concurrency:     cfg.Analysis.Concurrency,
		MaxPosts:        cfg.Analysis.MaxPosts,
		DefaultMode:     cfg.Analysis.DefaultMode,
		DefaultProvider: cfg.Providers.Preferred,
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Server.Addr
	srvCfg.Version = version
	srvCfg.GinMode = cfg.Server.GinMode
	srvCfg.RateLimit = cfg.Server.RateLimit
	srvCfg.RateBurst = cfg.Server.RateBurst
	srvCfg.FitAnalysis(coordinator.WorstCase(brain.DefaultTimeout))
	logging.Debug("Server write timeout", "timeout", srvCfg.WriteTimeout)

	srv := server.New(srvCfg, server.Deps{
		Analyzer: coordinator,
		History:  st,
		Saved:    saved,
		Metrics:  collector,
		Events:   events,
		Ring:     ring,
	})

	events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main",
		Count: len(configured), Msg: version,
	})
	logging.Info("viralscope starting", "version", version, "providers", configured, "live_feeds", live != nil)

	err = srv.Run(ctx)
	events.Info(otel.KindShutdown, "main", "server stopped")
	return err
}

// purgeExpired deletes expired saved items until ctx is done.
func purgeExpired(ctx context.Context, saved *store.SQLiteSaved) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := saved.Purge(ctx)
			if err != nil {
				logging.Warn("Purge saved items failed", "error", err)
				continue
			}
			if n > 0 {
				logging.Debug("Purged expired saved items", "count", n)
			}
		}
	}
}
