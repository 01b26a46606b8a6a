// Package local is a CloudProvider for development and tests: each
// "VM" is a workspace directory holding an agent config file, and the
// agent binary can be spawned as a child process so commands run end to
// end on one machine.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/habbes/sandstorm/internal/agent"
	"github.com/habbes/sandstorm/internal/provider"
	"github.com/habbes/sandstorm/internal/store"
)

// Config holds settings for the local provider.
type Config struct {
	// Root is where sandbox workspaces live. Defaults to a directory
	// under the system temp dir.
	Root string

	// AgentBin, when set, is the agent binary spawned for each sandbox.
	// Without it the provider only prepares workspaces; an agent must be
	// started by hand.
	AgentBin string
}

// imageManifest describes a built image on disk.
type imageManifest struct {
	ImageID              string    `yaml:"image_id"`
	OrchestratorEndpoint string    `yaml:"orchestrator_endpoint"`
	BuiltAt              time.Time `yaml:"built_at"`
}

type vm struct {
	sandboxID string
	dir       string
	agentProc *exec.Cmd
}

// Provider implements provider.CloudProvider on the local machine.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu  sync.Mutex
	vms map[string]*vm
}

var _ provider.CloudProvider = (*Provider)(nil)

func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		cfg.Root = filepath.Join(os.TempDir(), "sandstorm")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create provider root: %w", err)
	}

	return &Provider{
		cfg:    cfg,
		logger: logger.With("component", "provider"),
		vms:    make(map[string]*vm),
	}, nil
}

// BuildDefaultImage writes an image manifest under the provider root and
// returns its id. Rebuilding overwrites the manifest but keeps the id
// stable so repeated builds converge.
func (p *Provider) BuildDefaultImage(ctx context.Context, orchestratorEndpoint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("build default image: %w", err)
	}

	imageID := "img-local-default"
	dir := filepath.Join(p.cfg.Root, "images", imageID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	manifest := imageManifest{
		ImageID:              imageID,
		OrchestratorEndpoint: orchestratorEndpoint,
		BuiltAt:              time.Now(),
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("marshal image manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "image.yaml"), data, 0o644); err != nil {
		return "", fmt.Errorf("write image manifest: %w", err)
	}

	p.logger.Info("built default image", "image_id", imageID)
	return imageID, nil
}

// CreateSandbox prepares a workspace, writes the agent config into it and
// optionally spawns the agent.
func (p *Provider) CreateSandbox(ctx context.Context, sandboxID string, cfg store.SandboxConfiguration, orchestratorEndpoint string) (*provider.CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create sandbox vm: %w", err)
	}

	vmHandle := "vm-" + uuid.New().String()[:8]
	dir := filepath.Join(p.cfg.Root, vmHandle)
	workDir := filepath.Join(dir, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create vm workspace: %w", err)
	}

	agentCfg := agent.DefaultConfig()
	agentCfg.AgentID = "agent-" + uuid.New().String()[:8]
	agentCfg.SandboxID = sandboxID
	agentCfg.VMID = vmHandle
	agentCfg.OrchestratorEndpoint = orchestratorEndpoint
	agentCfg.WorkDir = workDir

	configPath := filepath.Join(dir, "agent.yaml")
	if err := agent.Save(configPath, &agentCfg); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("write agent config: %w", err)
	}

	v := &vm{sandboxID: sandboxID, dir: dir}

	if p.cfg.AgentBin != "" {
		logFile, err := os.Create(filepath.Join(dir, "agent.log"))
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("create agent log: %w", err)
		}

		// The agent must outlive this call, so it is not bound to ctx.
		proc := exec.Command(p.cfg.AgentBin, "-config", configPath)
		proc.Stdout = logFile
		proc.Stderr = logFile
		if err := proc.Start(); err != nil {
			_ = logFile.Close()
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("start agent: %w", err)
		}
		_ = logFile.Close()
		v.agentProc = proc

		p.logger.Info("spawned local agent",
			"sandbox_id", sandboxID,
			"vm_handle", vmHandle,
			"pid", proc.Process.Pid)
	}

	p.mu.Lock()
	p.vms[vmHandle] = v
	p.mu.Unlock()

	p.logger.Info("created sandbox vm",
		"sandbox_id", sandboxID,
		"vm_handle", vmHandle,
		"image_id", cfg.ImageID)

	return &provider.CreateResult{
		VMHandle: vmHandle,
		PublicIP: "127.0.0.1",
	}, nil
}

// DeleteSandbox kills the spawned agent, if any, and removes the
// workspace. Unknown handles are ignored.
func (p *Provider) DeleteSandbox(ctx context.Context, vmHandle string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete sandbox vm: %w", err)
	}

	p.mu.Lock()
	v, ok := p.vms[vmHandle]
	delete(p.vms, vmHandle)
	p.mu.Unlock()

	if !ok {
		p.logger.Debug("delete of unknown vm handle", "vm_handle", vmHandle)
		return nil
	}

	stopAgent(v)

	if err := os.RemoveAll(v.dir); err != nil {
		return fmt.Errorf("remove vm workspace: %w", err)
	}

	p.logger.Info("deleted sandbox vm", "sandbox_id", v.sandboxID, "vm_handle", vmHandle)
	return nil
}

// Close tears down every VM the provider still tracks. Workspaces are
// left on disk for inspection; only spawned agents are stopped.
func (p *Provider) Close() {
	p.mu.Lock()
	vms := p.vms
	p.vms = make(map[string]*vm)
	p.mu.Unlock()

	for handle, v := range vms {
		stopAgent(v)
		p.logger.Info("stopped sandbox vm", "vm_handle", handle)
	}
}

func stopAgent(v *vm) {
	if v.agentProc == nil || v.agentProc.Process == nil {
		return
	}
	_ = v.agentProc.Process.Kill()
	_ = v.agentProc.Wait()
}
