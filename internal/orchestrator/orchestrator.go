// Package orchestrator implements sandbox lifecycle management. It sits
// between the REST surface and the moving parts underneath: the cloud
// provider that provisions VMs, the registry of in-VM agents, the command
// dispatcher and the store of record.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/habbes/sandstorm/internal/dispatch"
	"github.com/habbes/sandstorm/internal/id"
	"github.com/habbes/sandstorm/internal/provider"
	"github.com/habbes/sandstorm/internal/registry"
	"github.com/habbes/sandstorm/internal/store"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	timeoutBuildImage  = 15 * time.Minute
	timeoutProvisionVM = 5 * time.Minute
	timeoutDeleteVM    = 2 * time.Minute
)

// imageFlightKey coalesces concurrent default image builds onto one call.
const imageFlightKey = "default-image"

// Orchestrator owns the sandbox lifecycle. Create and delete return as
// soon as the state change is recorded; the provider work runs on
// background goroutines that Close drains.
type Orchestrator struct {
	store      store.Store
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	provider   provider.CloudProvider
	logger     *slog.Logger

	// agentEndpoint is the externally reachable gRPC address baked into
	// every VM so its agent can phone home.
	agentEndpoint string

	imageFlight singleflight.Group
	imageMu     sync.Mutex
	imageID     string

	background errgroup.Group
}

// New creates an Orchestrator.
func New(
	st store.Store,
	reg *registry.Registry,
	disp *dispatch.Dispatcher,
	prov provider.CloudProvider,
	agentEndpoint string,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:         st,
		registry:      reg,
		dispatcher:    disp,
		provider:      prov,
		agentEndpoint: agentEndpoint,
		logger:        logger.With("component", "orchestrator"),
	}
}

// Close waits for background provisioning, teardown and process
// finalization to drain. Shut the dispatcher down first so waiting
// finalizers are released.
func (o *Orchestrator) Close() error {
	return o.background.Wait()
}

// ---------------------------------------------------------------------------
// Default image bootstrap
// ---------------------------------------------------------------------------

// EnsureDefaultImage returns the id of the image used for sandboxes
// created without an explicit one, building it on first use. Concurrent
// first creates coalesce onto a single build. Only success is memoized;
// after a failed build the next caller retries.
func (o *Orchestrator) EnsureDefaultImage(ctx context.Context) (string, error) {
	o.imageMu.Lock()
	imageID := o.imageID
	o.imageMu.Unlock()
	if imageID != "" {
		return imageID, nil
	}

	v, err, _ := o.imageFlight.Do(imageFlightKey, func() (any, error) {
		o.imageMu.Lock()
		imageID := o.imageID
		o.imageMu.Unlock()
		if imageID != "" {
			return imageID, nil
		}

		o.logger.Info("building default image", "orchestrator_endpoint", o.agentEndpoint)
		start := time.Now()

		// The build is shared by every coalesced caller, so it must not
		// die with whichever request happened to start it.
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeoutBuildImage)
		defer cancel()

		built, err := o.provider.BuildDefaultImage(buildCtx, o.agentEndpoint)
		if err != nil {
			return nil, fmt.Errorf("build default image: %w", err)
		}

		o.imageMu.Lock()
		o.imageID = built
		o.imageMu.Unlock()

		o.logger.Info("default image ready", "image_id", built, "took", time.Since(start))
		return built, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ---------------------------------------------------------------------------
// Sandbox lifecycle
// ---------------------------------------------------------------------------

// CreateSandbox persists the sandbox in status Creating and returns
// immediately; the VM is provisioned in the background. The record moves
// to Ready once the agent inside the VM registers, or to Error when
// provisioning fails.
func (o *Orchestrator) CreateSandbox(ctx context.Context, req CreateSandboxRequest) (*store.Sandbox, error) {
	cfg := store.SandboxConfiguration{}
	if req.Configuration != nil {
		cfg = *req.Configuration
	}
	if cfg.ImageID == "" {
		imageID, err := o.EnsureDefaultImage(ctx)
		if err != nil {
			return nil, err
		}
		cfg.ImageID = imageID
	}

	sandboxID, err := id.Generate("sbx-")
	if err != nil {
		return nil, fmt.Errorf("generate sandbox ID: %w", err)
	}

	sandbox := &store.Sandbox{
		ID:            sandboxID,
		Status:        store.SandboxCreating,
		Configuration: cfg,
	}
	if err := o.store.CreateSandbox(ctx, sandbox); err != nil {
		return nil, fmt.Errorf("persist sandbox: %w", err)
	}
	o.appendLifecycleLog(ctx, sandboxID, "sandbox created")

	created, err := o.store.GetSandbox(ctx, sandboxID)
	if err != nil {
		return nil, err
	}

	o.logger.Info("creating sandbox", "sandbox_id", sandboxID, "image_id", cfg.ImageID)

	// Provisioning outlives the request that asked for it.
	bgCtx := context.WithoutCancel(ctx)
	o.background.Go(func() error {
		o.provisionSandbox(bgCtx, sandboxID, cfg)
		return nil
	})

	return created, nil
}

// provisionSandbox runs on the background group. ctx is detached from the
// originating request.
func (o *Orchestrator) provisionSandbox(ctx context.Context, sandboxID string, cfg store.SandboxConfiguration) {
	provCtx, cancel := context.WithTimeout(ctx, timeoutProvisionVM)
	defer cancel()

	res, err := o.provider.CreateSandbox(provCtx, sandboxID, cfg, o.agentEndpoint)
	if err != nil {
		o.logger.Error("provisioning failed", "sandbox_id", sandboxID, "error", err)
		o.markSandboxError(ctx, sandboxID, fmt.Sprintf("provisioning failed: %v", err))
		return
	}

	if err := o.store.UpdateSandboxVM(ctx, sandboxID, res.VMHandle, res.PublicIP); err != nil {
		// Deletion won the race while the VM was being provisioned.
		// Destroy it so it does not leak.
		o.logger.Warn("sandbox gone before provisioning finished, reclaiming VM",
			"sandbox_id", sandboxID, "vm_handle", res.VMHandle, "error", err)
		delCtx, delCancel := context.WithTimeout(ctx, timeoutDeleteVM)
		defer delCancel()
		if delErr := o.provider.DeleteSandbox(delCtx, res.VMHandle); delErr != nil {
			o.logger.Error("reclaim failed, VM may be orphaned",
				"sandbox_id", sandboxID, "vm_handle", res.VMHandle, "error", delErr)
		}
		return
	}

	o.appendLifecycleLog(ctx, sandboxID, "vm provisioned: "+res.VMHandle)
	o.logger.Info("sandbox provisioned",
		"sandbox_id", sandboxID,
		"vm_handle", res.VMHandle,
		"public_ip", res.PublicIP)
}

// GetSandbox returns a sandbox by id.
func (o *Orchestrator) GetSandbox(ctx context.Context, sandboxID string) (*store.Sandbox, error) {
	return o.store.GetSandbox(ctx, sandboxID)
}

// ListSandboxes returns every sandbox the store knows, including Deleted
// records the janitor has not purged yet.
func (o *Orchestrator) ListSandboxes(ctx context.Context) ([]*store.Sandbox, error) {
	return o.store.ListSandboxes(ctx)
}

// DeleteSandbox accepts the deletion and returns; the VM teardown runs in
// the background and moves the record to Deleted, or to Error so the
// teardown can be retried. Pending commands are aborted and the sandbox's
// agents are dropped right away. Deleting a sandbox that is already
// Stopping is a no-op; one already Deleted reports NotFound.
func (o *Orchestrator) DeleteSandbox(ctx context.Context, sandboxID string) error {
	sandbox, err := o.store.GetSandbox(ctx, sandboxID)
	if err != nil {
		return err
	}
	switch sandbox.Status {
	case store.SandboxDeleted:
		return fmt.Errorf("%w: sandbox %s is deleted", store.ErrNotFound, sandboxID)
	case store.SandboxStopping:
		return nil
	}

	if err := o.store.UpdateSandboxStatus(ctx, sandboxID, store.SandboxStopping); err != nil {
		return fmt.Errorf("mark sandbox stopping: %w", err)
	}

	o.dispatcher.CancelSandbox(sandboxID)
	o.registry.RemoveSandboxAgents(sandboxID)
	if _, err := o.store.DeleteSandboxProcesses(ctx, sandboxID); err != nil {
		o.logger.Warn("dropping sandbox processes failed", "sandbox_id", sandboxID, "error", err)
	}
	o.appendLifecycleLog(ctx, sandboxID, "deletion requested")

	o.logger.Info("deleting sandbox", "sandbox_id", sandboxID, "vm_handle", sandbox.VMHandle)

	bgCtx := context.WithoutCancel(ctx)
	vmHandle := sandbox.VMHandle
	o.background.Go(func() error {
		o.finalizeDelete(bgCtx, sandboxID, vmHandle)
		return nil
	})
	return nil
}

// finalizeDelete destroys the VM and marks the record Deleted. A failed
// teardown parks the sandbox in Error; DeleteSandbox on it retries.
func (o *Orchestrator) finalizeDelete(ctx context.Context, sandboxID, vmHandle string) {
	if vmHandle != "" {
		delCtx, cancel := context.WithTimeout(ctx, timeoutDeleteVM)
		defer cancel()
		if err := o.provider.DeleteSandbox(delCtx, vmHandle); err != nil {
			o.logger.Error("vm teardown failed",
				"sandbox_id", sandboxID, "vm_handle", vmHandle, "error", err)
			o.markSandboxError(ctx, sandboxID, fmt.Sprintf("vm teardown failed: %v", err))
			return
		}
	}

	o.appendLifecycleLog(ctx, sandboxID, "sandbox deleted")
	if err := o.store.UpdateSandboxStatus(ctx, sandboxID, store.SandboxDeleted); err != nil {
		o.logger.Warn("sandbox not marked deleted", "sandbox_id", sandboxID, "error", err)
		return
	}
	o.logger.Info("sandbox deleted", "sandbox_id", sandboxID)
}

// IsSandboxReady reports whether the sandbox currently has a Ready agent
// with a fresh heartbeat and a live command stream.
func (o *Orchestrator) IsSandboxReady(sandboxID string) bool {
	_, ok := o.registry.FindReadyAgent(sandboxID)
	return ok
}

// markSandboxError parks the sandbox in Error with the reason on its
// lifecycle log. Losing to a concurrent deletion is fine.
func (o *Orchestrator) markSandboxError(ctx context.Context, sandboxID, reason string) {
	o.appendLifecycleLog(ctx, sandboxID, reason)
	if err := o.store.UpdateSandboxStatus(ctx, sandboxID, store.SandboxError); err != nil {
		o.logger.Debug("sandbox not moved to Error", "sandbox_id", sandboxID, "error", err)
	}
}

// appendLifecycleLog records a control plane event on the sandbox log,
// next to the lines the sandbox's agents report. Best effort.
func (o *Orchestrator) appendLifecycleLog(ctx context.Context, sandboxID, message string) {
	line := store.FormatLogLine(time.Now(), "info", message)
	if err := o.store.AppendSandboxLog(ctx, sandboxID, line); err != nil {
		o.logger.Debug("sandbox log append failed", "sandbox_id", sandboxID, "error", err)
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// SubmitCommand sends a shell command to the sandbox's agent and records
// it as a running process. The result is collected in the background;
// callers poll the process status. The process id doubles as the wire
// command id.
func (o *Orchestrator) SubmitCommand(ctx context.Context, sandboxID, command string) (*store.Process, error) {
	sandbox, err := o.store.GetSandbox(ctx, sandboxID)
	if err != nil {
		return nil, err
	}
	switch sandbox.Status {
	case store.SandboxStopping, store.SandboxDeleted:
		return nil, fmt.Errorf("%w: sandbox %s is %s", store.ErrNotFound, sandboxID, sandbox.Status)
	}

	pending, err := o.dispatcher.Dispatch(dispatch.Request{
		SandboxID: sandboxID,
		Command:   command,
	})
	if err != nil {
		return nil, err
	}

	proc := &store.Process{
		ID:        pending.CommandID,
		SandboxID: sandboxID,
		Command:   command,
		Status:    store.ProcessRunning,
		StartedAt: time.Now(),
	}
	if err := o.store.CreateProcess(ctx, proc); err != nil {
		// Without a record the caller could never see or stop the
		// command, so reel it back in.
		o.dispatcher.Terminate(pending.CommandID)
		return nil, fmt.Errorf("persist process: %w", err)
	}

	o.logger.Info("command submitted",
		"sandbox_id", sandboxID,
		"process_id", proc.ID,
		"agent_id", pending.AgentID)

	bgCtx := context.WithoutCancel(ctx)
	started := proc.StartedAt
	o.background.Go(func() error {
		o.finalizeProcess(bgCtx, pending, started)
		return nil
	})

	return proc, nil
}

// finalizeProcess waits for the command's result and writes the process's
// terminal state. Dispatch sentinels map onto synthetic results so the
// status endpoint always ends up with an exit code.
func (o *Orchestrator) finalizeProcess(ctx context.Context, pending *dispatch.Pending, started time.Time) {
	res, err := pending.Wait(ctx)

	var (
		result *store.CommandResult
		status store.ProcessStatus
	)
	switch {
	case err == nil:
		result = &store.CommandResult{
			ExitCode:   int(res.GetExitCode()),
			Stdout:     res.GetStdout(),
			Stderr:     res.GetStderr(),
			DurationMs: res.GetDurationMs(),
		}
		status = store.ProcessCompleted
	case errors.Is(err, dispatch.ErrTimeout):
		result = syntheticResult("timeout", started)
		status = store.ProcessCompleted
	case errors.Is(err, dispatch.ErrTerminated):
		result = syntheticResult("terminated", started)
		status = store.ProcessTerminated
	default:
		// ErrShutdown, from dispatcher shutdown or sandbox deletion.
		result = syntheticResult("shutdown", started)
		status = store.ProcessTerminated
	}

	if ferr := o.store.FinishProcess(ctx, pending.CommandID, result, status); ferr != nil {
		// The record is already gone, typically dropped by deletion.
		o.logger.Debug("process not finalized", "process_id", pending.CommandID, "error", ferr)
		return
	}
	o.logger.Debug("process finished",
		"process_id", pending.CommandID,
		"sandbox_id", pending.SandboxID,
		"status", status,
		"exit_code", result.ExitCode)
}

// syntheticResult is the terminal result for a command that never
// reported one.
func syntheticResult(reason string, started time.Time) *store.CommandResult {
	return &store.CommandResult{
		ExitCode:   -1,
		Stderr:     reason,
		DurationMs: time.Since(started).Milliseconds(),
	}
}

// GetProcess returns a process scoped to its sandbox; a process id from
// another sandbox reads as NotFound.
func (o *Orchestrator) GetProcess(ctx context.Context, sandboxID, processID string) (*store.Process, error) {
	proc, err := o.store.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}
	if proc.SandboxID != sandboxID {
		return nil, fmt.Errorf("%w: process %s", store.ErrNotFound, processID)
	}
	return proc, nil
}

// ListProcesses returns the sandbox's processes, oldest first.
func (o *Orchestrator) ListProcesses(ctx context.Context, sandboxID string) ([]*store.Process, error) {
	if _, err := o.store.GetSandbox(ctx, sandboxID); err != nil {
		return nil, err
	}
	return o.store.ListProcesses(ctx, sandboxID)
}

// ProcessLogs returns the lines the agent reported for a process.
func (o *Orchestrator) ProcessLogs(ctx context.Context, sandboxID, processID string) ([]string, error) {
	if _, err := o.GetProcess(ctx, sandboxID, processID); err != nil {
		return nil, err
	}
	return o.store.ProcessLogs(ctx, processID)
}

// TerminateProcess kills a running process. The record moves to
// Terminated once the aborted wait is finalized. Terminating a process
// that already finished is a no-op.
func (o *Orchestrator) TerminateProcess(ctx context.Context, sandboxID, processID string) error {
	proc, err := o.GetProcess(ctx, sandboxID, processID)
	if err != nil {
		return err
	}
	if !proc.IsRunning() {
		return nil
	}
	if !o.dispatcher.Terminate(processID) {
		// The waiter is gone; the finalizer is writing the terminal state
		// right now.
		o.logger.Debug("terminate raced with completion", "process_id", processID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Logs and agents
// ---------------------------------------------------------------------------

// SandboxLogs merges the control plane lifecycle log with the agent-wide
// logs of every agent registered for the sandbox.
func (o *Orchestrator) SandboxLogs(ctx context.Context, sandboxID string) ([]string, error) {
	lines, err := o.store.SandboxLogs(ctx, sandboxID)
	if err != nil {
		return nil, err
	}
	for _, a := range o.registry.List() {
		if a.SandboxID != sandboxID {
			continue
		}
		lines = append(lines, o.registry.AgentLogs(a.AgentID)...)
	}
	return lines, nil
}

// ListAgents returns the REST view of every agent record.
func (o *Orchestrator) ListAgents() []*AgentInfo {
	return o.agentInfos(o.registry.List())
}

// ListActiveAgents returns only the agents whose heartbeat is still
// within the staleness window.
func (o *Orchestrator) ListActiveAgents() []*AgentInfo {
	return o.agentInfos(o.registry.ListActive())
}

func (o *Orchestrator) agentInfos(agents []registry.Agent) []*AgentInfo {
	out := make([]*AgentInfo, 0, len(agents))
	for _, a := range agents {
		info := &AgentInfo{
			AgentID:       a.AgentID,
			SandboxID:     a.SandboxID,
			VMID:          a.VMID,
			Version:       a.Version,
			Status:        string(a.Status),
			Connected:     o.registry.StreamAttached(a.AgentID),
			RegisteredAt:  a.RegisteredAt.UTC().Format(time.RFC3339),
			LastHeartbeat: a.LastHeartbeat.UTC().Format(time.RFC3339),
		}
		if a.Usage != nil {
			info.CPUPercent = a.Usage.CPUPercent
			info.MemoryBytes = a.Usage.MemoryBytes
			info.DiskBytes = a.Usage.DiskBytes
			info.ProcessCount = a.Usage.ProcessCount
		}
		out = append(out, info)
	}
	return out
}
