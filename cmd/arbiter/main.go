// Command arbiter runs the arbitrage detection and refresh pipeline:
// odds ingestion, detection, and the durable store, wired together and
// driven by the refresh scheduler. The HTTP routing/template layer that
// consumes internal/readapi is an external collaborator (spec §1) and is
// not started here.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna-sports/arbiter/adapters/theoddsapi"
	"github.com/fortuna-sports/arbiter/internal/cache"
	"github.com/fortuna-sports/arbiter/internal/config"
	"github.com/fortuna-sports/arbiter/internal/detector"
	"github.com/fortuna-sports/arbiter/internal/markets"
	"github.com/fortuna-sports/arbiter/internal/metrics"
	"github.com/fortuna-sports/arbiter/internal/readapi"
	"github.com/fortuna-sports/arbiter/internal/registry"
	"github.com/fortuna-sports/arbiter/internal/scheduler"
	"github.com/fortuna-sports/arbiter/internal/store"
	"github.com/fortuna-sports/arbiter/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// API key missing etc. - fatal startup error per spec §6.
		telemetry.Plainf("✗ failed to load configuration: %v", err)
		os.Exit(1)
	}

	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	if err := markets.Validate(cfg.MarketKeys()); err != nil {
		telemetry.Errorf("invalid markets configuration: %v", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		telemetry.Errorf("failed to open store at %s: %v", cfg.DBPath, err)
		os.Exit(1)
	}
	defer st.Close()
	telemetry.Infof("✓ store opened at %s", cfg.DBPath)

	cacheLayer := connectCache(cfg)
	if cacheLayer != nil {
		defer cacheLayer.Close()
	}

	client := theoddsapi.NewClient(cfg.APIKey, cfg.Regions, cfg.Markets, cfg.OddsFormat)
	telemetry.Infof("✓ odds client initialised (regions=%s, markets=%s, format=%s)", cfg.Regions, cfg.Markets, cfg.OddsFormat)

	allowList, err := cfg.SportAllowList()
	if err != nil {
		telemetry.Errorf("failed to read sports allow-list: %v", err)
		os.Exit(1)
	}
	reg := registry.NewSportRegistry(allowList)

	m := metrics.New()

	detectCfg := detector.Config{
		Markets:      cfg.MarketKeys(),
		MinProfitPct: cfg.MinProfitPct,
		OddsFormat:   cfg.OddsFormat,
	}

	sched := scheduler.New(client, st, reg, cacheLayer, m, detectCfg, cfg.RefreshInterval)
	api := readapi.New(st, sched, reg, cacheLayer)

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	if cfg.RefreshInterval > 0 {
		telemetry.Infof("✓ scheduler started (interval=%v)", cfg.RefreshInterval)
	} else {
		telemetry.Infof("✓ scheduler started (manual-only mode)")
	}

	go statusReporter(ctx, api)

	<-ctx.Done()
	telemetry.Infof("shutting down gracefully...")

	sched.Stop()
	<-schedDone

	telemetry.Infof("✓ arbiter stopped")
}

// connectCache builds the optional write-through read cache. Redis is an
// accelerator, not a source of truth, so a connection failure here is
// logged and degrades to a nil cache rather than a fatal startup error.
func connectCache(cfg config.Config) *cache.Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		telemetry.L().Warn("redis cache unavailable, continuing without it", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}

	telemetry.Infof("✓ connected to redis cache at %s", cfg.RedisAddr)
	return cache.New(rdb)
}

// statusReporter periodically logs the read surface's status snapshot —
// the same data an external HTTP layer would serve from /api/status.
func statusReporter(ctx context.Context, api *readapi.API) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	logOnce := func() {
		status := api.Status()
		telemetry.Infof("status: sports=%v last_run=%s quota_remaining=%d",
			status.Configured, status.LastRun.Result.Status, status.Quota.RequestsRemaining)
	}

	logOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logOnce()
		}
	}
}
