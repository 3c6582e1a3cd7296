package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulsewatch/pulsewatch/agent/internal/config"
	"github.com/pulsewatch/pulsewatch/agent/internal/probe"
	"github.com/pulsewatch/pulsewatch/agent/internal/transmitter"
)

// sampler bundles the prober and transmitter built from one config revision.
// Hot reload swaps the whole bundle so a cycle never sees mixed settings.
type sampler struct {
	interval time.Duration
	prober   *probe.Prober
	tx       *transmitter.Transmitter
}

func build(cfg *config.Config) *sampler {
	return &sampler{
		interval: cfg.Agent.CheckInterval,
		prober:   probe.New(cfg.Agent.TargetURL, cfg.Agent.RequestTimeout),
		tx:       transmitter.New(cfg.Agent),
	}
}

func main() {
	configPath := flag.String("config", "agent.yaml", "path to config file")
	flag.Parse()

	// Optional .env next to the binary — keys like PULSE_API_KEY live there
	// in development. Absence is fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pulsewatch-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"target_url", cfg.Agent.TargetURL,
		"check_interval", cfg.Agent.CheckInterval,
		"server_url", cfg.Agent.ServerURL,
		"max_retries", cfg.Agent.MaxRetries,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var mu sync.Mutex
	current := build(cfg)

	// Watch the config file for hot reload. A new bundle takes effect on the
	// next cycle; an interval change additionally resets the ticker.
	reloaded := make(chan time.Duration, 1)
	go func() {
		err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			mu.Lock()
			prev := current.interval
			current = build(updated)
			next := current.interval
			mu.Unlock()

			slog.Info("agent: config applied",
				"target_url", updated.Agent.TargetURL,
				"check_interval", next,
			)
			if next != prev {
				select {
				case reloaded <- next:
				default:
				}
			}
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// One probe, one blocking delivery (including its retry sleeps), per tick.
	// The next probe cannot start before the delivery returns.
	runCycle := func() {
		mu.Lock()
		s := current
		mu.Unlock()

		result := s.prober.Check(ctx)
		if err := s.tx.Deliver(ctx, result); err != nil {
			slog.Error("agent: cycle failed, result dropped", "err", err)
		}
	}

	runCycle() // fire once immediately on startup

	ticker := time.NewTicker(current.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pulsewatch-agent shutting down")
			return
		case interval := <-reloaded:
			ticker.Reset(interval)
		case <-ticker.C:
			runCycle()
		}
	}
}
