package agent

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"
)

// Executor runs shell commands on the VM and tracks running ones so
// terminate requests can reach them.
type Executor struct {
	logger  *slog.Logger
	workDir string

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewExecutor(workDir string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		logger:  logger.With("component", "executor"),
		workDir: workDir,
		running: make(map[string]context.CancelFunc),
	}
}

// Run executes the command under "sh -c" and returns its result. The run
// is bounded by the request's timeout and can be cut short by Terminate.
func (e *Executor) Run(ctx context.Context, cmd *sandstormv1.CommandRequest) *sandstormv1.CommandResult {
	timeout := time.Duration(cmd.GetTimeoutS()) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.track(cmd.GetCommandId(), cancel)
	defer e.untrack(cmd.GetCommandId())

	e.logger.Info("executing command", "command_id", cmd.GetCommandId(), "command", cmd.GetCommand())

	proc := exec.CommandContext(runCtx, "sh", "-c", cmd.GetCommand())
	if wd := cmd.GetWorkingDir(); wd != "" {
		proc.Dir = wd
	} else if e.workDir != "" {
		proc.Dir = e.workDir
	}
	proc.Env = os.Environ()
	for k, v := range cmd.GetEnv() {
		proc.Env = append(proc.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	start := time.Now()
	err := proc.Run()
	elapsed := time.Since(start)

	res := &sandstormv1.CommandResult{
		CommandId:  cmd.GetCommandId(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: elapsed.Milliseconds(),
	}

	switch {
	case err == nil:
		res.Success = true
	case runCtx.Err() != nil:
		res.ExitCode = -1
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.Stderr = "timeout"
		} else {
			res.Stderr = "terminated"
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = int32(exitErr.ExitCode())
		} else {
			res.ExitCode = -1
			res.Stderr = err.Error()
		}
	}

	e.logger.Info("command finished",
		"command_id", cmd.GetCommandId(),
		"exit_code", res.GetExitCode(),
		"duration_ms", res.GetDurationMs())
	return res
}

// Terminate cancels a running command and reports whether it was found.
func (e *Executor) Terminate(commandID string) bool {
	e.mu.Lock()
	cancel, ok := e.running[commandID]
	e.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	return true
}

// RunningCount returns the number of commands currently executing.
func (e *Executor) RunningCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

func (e *Executor) track(commandID string, cancel context.CancelFunc) {
	e.mu.Lock()
	e.running[commandID] = cancel
	e.mu.Unlock()
}

func (e *Executor) untrack(commandID string) {
	e.mu.Lock()
	delete(e.running, commandID)
	e.mu.Unlock()
}
