// Package store defines the control plane's data model and the storage
// interface the orchestrator reads and writes it through.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrConflict      = errors.New("store: conflict")
	ErrInvalid       = errors.New("store: invalid input")
)

// SandboxStatus is the lifecycle state of a sandbox.
type SandboxStatus string

const (
	SandboxCreating SandboxStatus = "Creating"
	SandboxStarting SandboxStatus = "Starting"
	SandboxReady    SandboxStatus = "Ready"
	SandboxStopping SandboxStatus = "Stopping"
	SandboxStopped  SandboxStatus = "Stopped"
	SandboxDeleted  SandboxStatus = "Deleted"
	SandboxError    SandboxStatus = "Error"
)

// ProcessStatus is the lifecycle state of a command process. Completed and
// Terminated are both final.
type ProcessStatus string

const (
	ProcessRunning    ProcessStatus = "Running"
	ProcessCompleted  ProcessStatus = "Completed"
	ProcessTerminated ProcessStatus = "Terminated"
)

// SandboxConfiguration is the caller-supplied shape of a sandbox. The
// orchestrator treats it as opaque and hands it to the cloud provider.
type SandboxConfiguration struct {
	ImageID       string            `json:"imageId,omitempty"`
	Size          string            `json:"size,omitempty"`
	Region        string            `json:"region,omitempty"`
	AdminUsername string            `json:"adminUsername,omitempty"`
	AdminPassword string            `json:"adminPassword,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// Sandbox is one provisioned (or provisioning) sandbox VM.
type Sandbox struct {
	ID            string               `json:"id"`
	Status        SandboxStatus        `json:"status"`
	Configuration SandboxConfiguration `json:"configuration"`
	PublicIP      string               `json:"publicIp,omitempty"`
	VMHandle      string               `json:"vmHandle,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// CommandResult is the outcome of one executed command.
type CommandResult struct {
	ExitCode   int    `json:"exitCode"`
	Stdout     string `json:"standardOutput"`
	Stderr     string `json:"standardError"`
	DurationMs int64  `json:"durationMs"`
}

// Process is one command dispatched to a sandbox. Its ID doubles as the
// correlation id on the agent wire.
type Process struct {
	ID         string         `json:"id"`
	SandboxID  string         `json:"sandboxId"`
	Command    string         `json:"command"`
	Status     ProcessStatus  `json:"status"`
	Result     *CommandResult `json:"result,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
}

// IsRunning reports whether the process has not reached a final state yet.
func (p *Process) IsRunning() bool {
	return p.Status == ProcessRunning
}

// Store is the storage contract the orchestrator depends on. The bundled
// implementation is in-memory; state does not survive a restart.
type Store interface {
	// Sandboxes
	CreateSandbox(ctx context.Context, sb *Sandbox) error
	GetSandbox(ctx context.Context, id string) (*Sandbox, error)
	ListSandboxes(ctx context.Context) ([]*Sandbox, error)
	UpdateSandboxStatus(ctx context.Context, id string, status SandboxStatus) error
	UpdateSandboxVM(ctx context.Context, id, vmHandle, publicIP string) error
	DeleteSandbox(ctx context.Context, id string) error

	// Processes
	CreateProcess(ctx context.Context, p *Process) error
	GetProcess(ctx context.Context, id string) (*Process, error)
	ListProcesses(ctx context.Context, sandboxID string) ([]*Process, error)
	FinishProcess(ctx context.Context, id string, result *CommandResult, status ProcessStatus) error
	DeleteSandboxProcesses(ctx context.Context, sandboxID string) (int, error)

	// Logs
	AppendProcessLog(ctx context.Context, processID, line string) error
	ProcessLogs(ctx context.Context, processID string) ([]string, error)
	AppendSandboxLog(ctx context.Context, sandboxID, line string) error
	SandboxLogs(ctx context.Context, sandboxID string) ([]string, error)
}

// FormatLogLine renders one stored log line. Both agent-reported entries
// and control plane lifecycle events use this shape so fetched logs read
// uniformly.
func FormatLogLine(ts time.Time, level, message string) string {
	if level == "" {
		level = "info"
	}
	return fmt.Sprintf("%s [%s] %s", ts.UTC().Format(time.RFC3339), strings.ToUpper(level), message)
}

// sandboxTransitions is the lifecycle graph. A status may only move along
// one of its listed edges; identical updates are treated as no-ops.
var sandboxTransitions = map[SandboxStatus][]SandboxStatus{
	SandboxCreating: {SandboxStarting, SandboxReady, SandboxStopping, SandboxError},
	SandboxStarting: {SandboxReady, SandboxStopping, SandboxError},
	SandboxReady:    {SandboxStopping, SandboxError},
	SandboxStopping: {SandboxStopped, SandboxDeleted, SandboxError},
	SandboxStopped:  {SandboxStopping, SandboxDeleted, SandboxError},
	SandboxError:    {SandboxStopping, SandboxDeleted},
	SandboxDeleted:  {},
}

// CanTransition reports whether a sandbox may move from one status to
// another.
func CanTransition(from, to SandboxStatus) bool {
	if from == to {
		return true
	}
	for _, next := range sandboxTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
