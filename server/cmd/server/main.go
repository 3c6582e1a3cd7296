package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pulsewatch/pulsewatch/server/internal/api"
	"github.com/pulsewatch/pulsewatch/server/internal/auth"
	"github.com/pulsewatch/pulsewatch/server/internal/config"
	"github.com/pulsewatch/pulsewatch/server/internal/correlator"
	"github.com/pulsewatch/pulsewatch/server/internal/notify"
	"github.com/pulsewatch/pulsewatch/server/internal/store"
	"github.com/pulsewatch/pulsewatch/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "server.yaml", "path to config file")
	flag.Parse()

	// Secrets (API key, bot token) may live in a local .env during development.
	godotenv.Load() //nolint:errcheck

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pulsewatch-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"storage_path", cfg.Server.Storage.Path,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.Server.Storage.Path)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.Server.Storage.Path, "err", err)
		os.Exit(1)
	}

	// Notification channels. Console always; Telegram disables itself when
	// not configured.
	dispatcher := notify.NewDispatcher(st,
		notify.NewConsole(slog.Default()),
		notify.NewTelegram(cfg.Server.Telegram.Token(), cfg.Server.Telegram.ChatID),
	)

	// WebSocket hub — pushes each new alert to connected clients.
	hub := ws.NewHub()
	go hub.Run(ctx)

	corr := correlator.New(st, dispatcher, hub)

	authMW := auth.Middleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(st, corr, authMW))
	httpMux.Handle("/ws/alerts", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("pulsewatch-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
