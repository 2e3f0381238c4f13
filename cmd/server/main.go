// Command server runs the weiche Responses-to-Chat-Completions proxy.
//
// Configuration is layered: built-in defaults, an optional YAML file
// (-config flag, WEICHE_CONFIG env, ./config.yaml, /etc/weiche/config.yaml),
// then WEICHE_* environment overrides. See pkg/config for the schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/weiche-dev/weiche/pkg/auth"
	"github.com/weiche-dev/weiche/pkg/backend"
	"github.com/weiche-dev/weiche/pkg/breaker"
	"github.com/weiche-dev/weiche/pkg/config"
	"github.com/weiche-dev/weiche/pkg/dump"
	"github.com/weiche-dev/weiche/pkg/modelcache"
	"github.com/weiche-dev/weiche/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setupLogging(cfg.Log.Level)

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	defer client.Close()

	cache := modelcache.New(client, cfg.Models.CacheTTL, cfg.Models.Default, cfg.Models.Aliases)
	if cfg.Backend.APIKey != "" {
		warmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		models := cache.Models(warmCtx, cfg.Backend.APIKey)
		cancel()
		slog.Info("model cache warmed", "models", len(models))
	}
	brk := breaker.New(cfg.Breaker.Enabled, cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown)
	gate := auth.NewGate(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	sink := dump.New(cfg.Dump.Enabled, cfg.Dump.Dir)

	handler := transport.NewHandler(client, cache, brk, gate, sink)

	srv := transport.NewServer(handler,
		transport.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transport.WithReadTimeout(cfg.Server.ReadTimeout),
		transport.WithWriteTimeout(cfg.Server.WriteTimeout),
		transport.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
	)

	slog.Info("proxy configured",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
		"default_model", cfg.Models.Default,
		"breaker_enabled", cfg.Breaker.Enabled,
		"jwt_validation", gate != nil,
		"dump_enabled", sink != nil,
	)

	return srv.ListenAndServe()
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
