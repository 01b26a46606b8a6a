package agent

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds the agent's on-disk configuration. The cloud provider
// writes the initial file when it provisions the sandbox VM.
type Config struct {
	// AgentID identifies this agent to the orchestrator. Generated on
	// first run when empty.
	AgentID string `yaml:"agent_id"`

	// SandboxID is the sandbox this agent serves.
	SandboxID string `yaml:"sandbox_id"`

	// VMID is the provider handle of the VM the agent runs on.
	VMID string `yaml:"vm_id"`

	// OrchestratorEndpoint is the orchestrator gRPC endpoint (host:port).
	OrchestratorEndpoint string `yaml:"orchestrator_endpoint"`

	// WorkDir is the default working directory for commands. Empty means
	// the agent process's own working directory.
	WorkDir string `yaml:"work_dir"`

	// LogLevel controls agent logging: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OrchestratorEndpoint: "localhost:5001",
		LogLevel:             "info",
	}
}

// Load reads configuration from a YAML file, falling back to defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to a YAML file.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// EnsureIdentity generates a persistent agent id when none is configured
// and reports whether the config changed.
func (c *Config) EnsureIdentity() bool {
	if c.AgentID != "" {
		return false
	}
	c.AgentID = "agent-" + uuid.New().String()[:8]
	return true
}

// Validate checks the fields required to reach the orchestrator.
func (c *Config) Validate() error {
	if c.SandboxID == "" {
		return fmt.Errorf("sandbox_id is required")
	}
	if c.OrchestratorEndpoint == "" {
		return fmt.Errorf("orchestrator_endpoint is required")
	}
	return nil
}
