// Package config loads orchestrator configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API       APIConfig
	GRPC      GRPCConfig
	Agents    AgentConfig
	Dispatch  DispatchConfig
	Lifecycle LifecycleConfig
	Provider  ProviderConfig
	Logging   LoggingConfig
}

type APIConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	EnableDocs      bool
	CORSOrigin      string
	TrustedProxies  []string
}

type GRPCConfig struct {
	Addr string
	// ExternalEndpoint is the address agents dial back to. It is baked
	// into every VM the provider creates, so it must be reachable from
	// inside the sandbox network, not just locally.
	ExternalEndpoint string
}

type AgentConfig struct {
	// HeartbeatInterval is handed to agents in the registration response.
	HeartbeatInterval time.Duration
	// StaleAfter is how long an agent may go without a heartbeat before
	// it is marked unreachable and stops receiving commands.
	StaleAfter    time.Duration
	SweepInterval time.Duration
}

type DispatchConfig struct {
	CommandTimeout time.Duration
}

type LifecycleConfig struct {
	JanitorInterval  time.Duration
	DeletedRetention time.Duration
}

// ProviderConfig configures the bundled local cloud provider. Real cloud
// integrations bring their own credentials and are configured out of band.
type ProviderConfig struct {
	// Root is the directory where the local provider keeps sandbox VM
	// workspaces. Empty means a directory under the system temp dir.
	Root string
	// AgentBin is the agent binary the local provider spawns per sandbox.
	// Empty means workspaces are prepared but no agent is started.
	AgentBin string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.GRPC.ExternalEndpoint == "" {
		return fmt.Errorf("ORCHESTRATOR_EXTERNAL_ENDPOINT is required")
	}
	if c.Agents.StaleAfter <= c.Agents.HeartbeatInterval {
		return fmt.Errorf("AGENT_STALE_AFTER (%s) must be longer than AGENT_HEARTBEAT_INTERVAL (%s)",
			c.Agents.StaleAfter, c.Agents.HeartbeatInterval)
	}
	if c.Dispatch.CommandTimeout <= 0 {
		return fmt.Errorf("COMMAND_TIMEOUT must be positive")
	}
	return nil
}

func Load() *Config {
	return &Config{
		API: APIConfig{
			Addr:            envOr("API_ADDR", "0.0.0.0:5000"),
			ReadTimeout:     envDuration("API_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    envDuration("API_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:     envDuration("API_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: envDuration("API_SHUTDOWN_TIMEOUT", 20*time.Second),
			EnableDocs:      envBool("API_ENABLE_DOCS", false),
			CORSOrigin:      envOr("API_CORS_ORIGIN", "*"),
			TrustedProxies:  envStringSlice("TRUSTED_PROXIES"),
		},
		GRPC: GRPCConfig{
			Addr:             envOr("GRPC_ADDR", "0.0.0.0:5001"),
			ExternalEndpoint: envOr("ORCHESTRATOR_EXTERNAL_ENDPOINT", "localhost:5001"),
		},
		Agents: AgentConfig{
			HeartbeatInterval: envDuration("AGENT_HEARTBEAT_INTERVAL", 30*time.Second),
			StaleAfter:        envDuration("AGENT_STALE_AFTER", 2*time.Minute),
			SweepInterval:     envDuration("AGENT_SWEEP_INTERVAL", 30*time.Second),
		},
		Dispatch: DispatchConfig{
			CommandTimeout: envDuration("COMMAND_TIMEOUT", 300*time.Second),
		},
		Lifecycle: LifecycleConfig{
			JanitorInterval:  envDuration("JANITOR_INTERVAL", 30*time.Second),
			DeletedRetention: envDuration("DELETED_RETENTION", 5*time.Minute),
		},
		Provider: ProviderConfig{
			Root:     envOr("PROVIDER_ROOT", ""),
			AgentBin: envOr("PROVIDER_AGENT_BIN", ""),
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "text"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean for env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration for env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func envStringSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
