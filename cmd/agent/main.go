package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/habbes/sandstorm/internal/agent"
)

const version = "0.1.0"

const defaultConfigPath = "/etc/sandstorm/agent.yaml"

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, level); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, level *slog.LevelVar) error {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	flag.Parse()

	cfg, err := agent.Load(*configPath)
	if err != nil {
		return err
	}

	// Environment beats the file so container-style deployments can skip it.
	if v := os.Getenv("SANDSTORM_ORCHESTRATOR_ENDPOINT"); v != "" {
		cfg.OrchestratorEndpoint = v
	}
	if v := os.Getenv("SANDSTORM_SANDBOX_ID"); v != "" {
		cfg.SandboxID = v
	}
	if v := os.Getenv("SANDSTORM_VM_ID"); v != "" {
		cfg.VMID = v
	}

	level.Set(parseLevel(cfg.LogLevel))

	if cfg.EnsureIdentity() {
		if err := agent.Save(*configPath, cfg); err != nil {
			logger.Warn("failed to persist generated agent id", "error", err)
		}
		logger.Info("generated agent ID", "agent_id", cfg.AgentID)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("agent starting",
		"agent_id", cfg.AgentID,
		"sandbox_id", cfg.SandboxID,
		"orchestrator", cfg.OrchestratorEndpoint,
		"config", *configPath,
	)

	client := agent.NewClient(*cfg, version, logger)

	// Run connects in the background and reconnects automatically.
	agentErrCh := make(chan error, 1)
	go func() {
		agentErrCh <- client.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("agent shutting down")
	case err := <-agentErrCh:
		if err != nil && ctx.Err() == nil {
			logger.Error("agent error", "error", err)
			return err
		}
	}

	return nil
}

func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
