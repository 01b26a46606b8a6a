package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/habbes/sandstorm/docs"
	"github.com/habbes/sandstorm/internal/config"
	"github.com/habbes/sandstorm/internal/dispatch"
	grpcServer "github.com/habbes/sandstorm/internal/grpc"
	"github.com/habbes/sandstorm/internal/orchestrator"
	"github.com/habbes/sandstorm/internal/provider/local"
	"github.com/habbes/sandstorm/internal/registry"
	"github.com/habbes/sandstorm/internal/rest"
	"github.com/habbes/sandstorm/internal/store/memory"

	"github.com/joho/godotenv"
)

// @title          Sandstorm API
// @version        0.1
// @description    Control plane for cloud sandbox VMs: create sandboxes, run commands through their agents, fetch logs, tear them down
// @BasePath       /
func main() {
	// Load .env if present (no error if missing - production uses real env vars)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting sandstorm orchestrator",
		"rest_addr", cfg.API.Addr,
		"grpc_addr", cfg.GRPC.Addr,
		"agent_endpoint", cfg.GRPC.ExternalEndpoint,
	)

	// 1. Initialize the store. In-memory: nothing survives a restart.
	st := memory.New(logger)

	// 2. Initialize the agent registry and the sweeper that marks agents
	// with stale heartbeats Unreachable.
	reg := registry.New(logger, cfg.Agents.StaleAfter)
	sweeper := registry.NewSweeper(reg, cfg.Agents.SweepInterval, logger)
	go sweeper.Run(ctx)

	// 3. Initialize the command dispatcher.
	disp := dispatch.New(reg, cfg.Dispatch.CommandTimeout, logger)

	// 4. Initialize the cloud provider.
	prov, err := local.New(local.Config{
		Root:     cfg.Provider.Root,
		AgentBin: cfg.Provider.AgentBin,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize provider", "error", err)
		os.Exit(1)
	}
	defer prov.Close()

	// 5. Initialize the orchestrator and the janitor that purges deleted
	// sandbox records.
	orch := orchestrator.New(st, reg, disp, prov, cfg.GRPC.ExternalEndpoint, logger)
	janitor := orchestrator.NewJanitor(st, cfg.Lifecycle.JanitorInterval, cfg.Lifecycle.DeletedRetention, logger)
	go janitor.Run(ctx)

	// 6. Initialize the gRPC server agents connect to.
	grpcSrv, err := grpcServer.NewServer(
		cfg.GRPC.Addr,
		reg,
		disp,
		st,
		logger,
		cfg.Agents.HeartbeatInterval,
	)
	if err != nil {
		logger.Error("failed to initialize gRPC server", "error", err)
		os.Exit(1)
	}

	// 7. Initialize the REST server.
	srv := rest.NewServer(orch, cfg, docs.OpenAPIYAML)

	httpSrv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.API.ReadTimeout,
		WriteTimeout:      cfg.API.WriteTimeout,
		IdleTimeout:       cfg.API.IdleTimeout,
	}

	// 8. Start gRPC server in background.
	grpcErrCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
		if err := grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()

	// 9. Start REST server in background.
	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.API.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	// 10. Wait for signal or error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-grpcErrCh:
		logger.Error("gRPC server error", "error", err)
	case err := <-httpErrCh:
		logger.Error("HTTP server error", "error", err)
	}

	// 11. Graceful shutdown: stop HTTP first (drain in-flight requests),
	// then fail pending commands and detach agent streams so the gRPC
	// server can drain its long-lived RPCs.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		_ = httpSrv.Close()
	} else {
		logger.Info("HTTP server shut down gracefully")
	}

	disp.Shutdown()
	reg.DetachAll()
	grpcSrv.Stop()
	logger.Info("gRPC server stopped")

	if err := orch.Close(); err != nil {
		logger.Error("background work finished with error", "error", err)
	}
}

func setupLogger(levelStr, format string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
