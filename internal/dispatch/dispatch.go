// Package dispatch correlates commands written to agent streams with the
// results agents report back on their unary RPCs. Every in-flight command
// has exactly one waiter, keyed by command id.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/habbes/sandstorm/internal/id"
	"github.com/habbes/sandstorm/internal/registry"
	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"
)

var (
	ErrNoReadyAgent      = errors.New("dispatch: no ready agent")
	ErrAgentDisconnected = errors.New("dispatch: agent disconnected")
	ErrAgentWriteFailed  = errors.New("dispatch: agent write failed")
	ErrTimeout           = errors.New("dispatch: command timed out")
	ErrCancelled         = errors.New("dispatch: wait cancelled")
	ErrTerminated        = errors.New("dispatch: command terminated")
	ErrShutdown          = errors.New("dispatch: shutting down")
)

// DefaultTimeout bounds a command when the caller does not supply one.
const DefaultTimeout = 300 * time.Second

// Request describes one command to run in a sandbox.
type Request struct {
	SandboxID string
	// CommandID is optional; one is generated when empty.
	CommandID  string
	Command    string
	Timeout    time.Duration
	WorkingDir string
	Env        map[string]string
}

// waiter is the one-shot completion handle for an in-flight command. Both
// channels have capacity 1 and exactly one sender, decided by whoever wins
// the LoadAndDelete on the pending map.
type waiter struct {
	sandboxID string
	agentID   string
	result    chan *sandstormv1.CommandResult
	abort     chan error
}

// Pending is a dispatched command whose result has not arrived yet. Wait
// must be called exactly once.
type Pending struct {
	CommandID string
	AgentID   string
	SandboxID string

	deadline time.Time
	d        *Dispatcher
	w        *waiter
}

// Dispatcher routes commands to agents through the registry and hands
// results back to waiters.
type Dispatcher struct {
	registry       *registry.Registry
	logger         *slog.Logger
	defaultTimeout time.Duration

	// pending maps command id -> *waiter.
	pending sync.Map
	closed  atomic.Bool
}

func New(reg *registry.Registry, defaultTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Dispatcher{
		registry:       reg,
		logger:         logger.With("component", "dispatch"),
		defaultTimeout: defaultTimeout,
	}
}

// Dispatch resolves a ready agent for the request's sandbox, registers a
// waiter and writes the command to the agent's stream. The returned Pending
// must be waited on exactly once; Dispatch never blocks on the agent.
func (d *Dispatcher) Dispatch(req Request) (*Pending, error) {
	if d.closed.Load() {
		return nil, ErrShutdown
	}

	agent, ok := d.registry.FindReadyAgent(req.SandboxID)
	if !ok {
		return nil, fmt.Errorf("%w: sandbox %s", ErrNoReadyAgent, req.SandboxID)
	}

	commandID := req.CommandID
	if commandID == "" {
		var err error
		commandID, err = id.Generate("cmd-")
		if err != nil {
			return nil, err
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}

	w := &waiter{
		sandboxID: req.SandboxID,
		agentID:   agent.AgentID,
		result:    make(chan *sandstormv1.CommandResult, 1),
		abort:     make(chan error, 1),
	}
	if _, loaded := d.pending.LoadOrStore(commandID, w); loaded {
		return nil, fmt.Errorf("dispatch: command %s already pending", commandID)
	}

	cmd := &sandstormv1.CommandRequest{
		CommandId:  commandID,
		Command:    req.Command,
		TimeoutS:   int32(timeout / time.Second),
		WorkingDir: req.WorkingDir,
		Env:        req.Env,
		Kind:       sandstormv1.CommandKind_COMMAND_KIND_EXEC,
	}
	if err := d.registry.Send(agent.AgentID, cmd); err != nil {
		d.pending.Delete(commandID)
		if errors.Is(err, registry.ErrNotConnected) {
			return nil, fmt.Errorf("%w: agent %s", ErrAgentDisconnected, agent.AgentID)
		}
		return nil, fmt.Errorf("%w: agent %s: %v", ErrAgentWriteFailed, agent.AgentID, err)
	}

	d.logger.Debug("command dispatched",
		"command_id", commandID,
		"sandbox_id", req.SandboxID,
		"agent_id", agent.AgentID,
		"timeout", timeout)

	return &Pending{
		CommandID: commandID,
		AgentID:   agent.AgentID,
		SandboxID: req.SandboxID,
		deadline:  time.Now().Add(timeout),
		d:         d,
		w:         w,
	}, nil
}

// Wait blocks until the command's result arrives, the deadline fixed at
// dispatch passes, the wait is aborted, or ctx is cancelled. The waiter is
// always unregistered before Wait returns.
func (p *Pending) Wait(ctx context.Context) (*sandstormv1.CommandResult, error) {
	defer p.d.pending.Delete(p.CommandID)

	timer := time.NewTimer(time.Until(p.deadline))
	defer timer.Stop()

	select {
	case res := <-p.w.result:
		return res, nil
	case err := <-p.w.abort:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: command %s", ErrTimeout, p.CommandID)
	}
}

// Execute is Dispatch followed by Wait.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (*sandstormv1.CommandResult, error) {
	p, err := d.Dispatch(req)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

// Complete delivers a result to its waiter. It reports false when no
// waiter is pending for the command id, which happens for duplicate and
// late results.
func (d *Dispatcher) Complete(res *sandstormv1.CommandResult) bool {
	v, ok := d.pending.LoadAndDelete(res.GetCommandId())
	if !ok {
		return false
	}
	v.(*waiter).result <- res
	return true
}

// PendingCount returns the number of in-flight commands.
func (d *Dispatcher) PendingCount() int {
	n := 0
	d.pending.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Terminate asks the agent running processID to kill it and aborts the
// pending wait with ErrTerminated. It reports false when nothing is
// pending under the id.
func (d *Dispatcher) Terminate(processID string) bool {
	v, ok := d.pending.LoadAndDelete(processID)
	if !ok {
		return false
	}
	w := v.(*waiter)

	kill := &sandstormv1.CommandRequest{
		CommandId: id.MustGenerate("term-"),
		Command:   processID,
		Kind:      sandstormv1.CommandKind_COMMAND_KIND_TERMINATE,
	}
	if err := d.registry.Send(w.agentID, kill); err != nil {
		// The waiter is released regardless; the agent will learn about
		// the termination when it reconnects.
		d.logger.Warn("terminate delivery failed",
			"process_id", processID,
			"agent_id", w.agentID,
			"error", err)
	}

	w.abort <- fmt.Errorf("%w: process %s", ErrTerminated, processID)
	return true
}

// CancelSandbox aborts every pending command for the sandbox with
// ErrShutdown and returns how many were cancelled. Used when the sandbox
// is deleted out from under its commands.
func (d *Dispatcher) CancelSandbox(sandboxID string) int {
	n := 0
	d.pending.Range(func(key, value any) bool {
		if value.(*waiter).sandboxID != sandboxID {
			return true
		}
		if v, ok := d.pending.LoadAndDelete(key); ok {
			v.(*waiter).abort <- fmt.Errorf("%w: sandbox %s deleted", ErrShutdown, sandboxID)
			n++
		}
		return true
	})
	if n > 0 {
		d.logger.Info("cancelled pending commands", "sandbox_id", sandboxID, "count", n)
	}
	return n
}

// Shutdown aborts every pending command and rejects new dispatches.
func (d *Dispatcher) Shutdown() int {
	d.closed.Store(true)

	n := 0
	d.pending.Range(func(key, _ any) bool {
		if v, ok := d.pending.LoadAndDelete(key); ok {
			v.(*waiter).abort <- ErrShutdown
			n++
		}
		return true
	})
	if n > 0 {
		d.logger.Info("aborted pending commands on shutdown", "count", n)
	}
	return n
}
