// Package registry tracks the agents connected to the orchestrator and
// owns their downstream command streams.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"
)

// ErrNotConnected is returned when a command is sent to an agent that has
// no attached stream.
var ErrNotConnected = errors.New("registry: agent not connected")

// maxAgentLogLines bounds each agent's rolling log; the oldest lines are
// dropped first.
const maxAgentLogLines = 1000

// AgentStatus is an agent's reported liveness state.
type AgentStatus string

const (
	StatusStarting    AgentStatus = "Starting"
	StatusReady       AgentStatus = "Ready"
	StatusBusy        AgentStatus = "Busy"
	StatusUnreachable AgentStatus = "Unreachable"
)

// ParseStatus maps a status string reported over the wire onto a known
// AgentStatus.
func ParseStatus(s string) (AgentStatus, bool) {
	switch AgentStatus(s) {
	case StatusStarting, StatusReady, StatusBusy, StatusUnreachable:
		return AgentStatus(s), true
	default:
		return "", false
	}
}

// ResourceUsage is the most recent utilization snapshot an agent reported.
type ResourceUsage struct {
	CPUPercent   float64
	MemoryBytes  int64
	DiskBytes    int64
	ProcessCount int32
}

// Agent is the registry's record of one agent. Records are only removed
// when the owning sandbox is deleted; a silent agent is marked Unreachable
// instead.
type Agent struct {
	AgentID       string
	SandboxID     string
	VMID          string
	Version       string
	Metadata      map[string]string
	Status        AgentStatus
	Usage         *ResourceUsage
	RegisteredAt  time.Time
	LastHeartbeat time.Time
}

// CommandStream is the downstream half of an agent's command subscription.
type CommandStream interface {
	Send(*sandstormv1.CommandRequest) error
}

// attachment ties a live command stream to the cancel func that ends it.
type attachment struct {
	stream CommandStream
	cancel context.CancelFunc
}

// Registry is safe for concurrent use. Agent records live under a single
// RWMutex; stream attachments use sync.Map so sends never contend with
// record reads.
type Registry struct {
	logger     *slog.Logger
	staleAfter time.Duration

	mu        sync.RWMutex
	agents    map[string]*Agent
	agentLogs map[string][]string

	// attachments maps agent id -> *attachment for agents with a live
	// command stream.
	attachments sync.Map
	// sendMu maps agent id -> *sync.Mutex serializing writes to that
	// agent's stream. Entries survive reattachment.
	sendMu sync.Map
}

// New creates a Registry. staleAfter is the window after which an agent
// without a heartbeat no longer counts as alive.
func New(logger *slog.Logger, staleAfter time.Duration) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	return &Registry{
		logger:     logger.With("component", "registry"),
		staleAfter: staleAfter,
		agents:     make(map[string]*Agent),
		agentLogs:  make(map[string][]string),
	}
}

// Register inserts or overwrites the record for an agent and detaches any
// previous command stream. Registration cannot fail; re-registering is how
// agents recover from restarts.
func (r *Registry) Register(a Agent) {
	now := time.Now()
	if a.Status == "" {
		a.Status = StatusReady
	}
	if a.RegisteredAt.IsZero() {
		a.RegisteredAt = now
	}
	a.LastHeartbeat = now

	r.mu.Lock()
	r.agents[a.AgentID] = cloneAgent(&a)
	r.mu.Unlock()

	// A re-registration invalidates whatever stream the previous
	// incarnation held open.
	if r.DetachStream(a.AgentID) {
		r.logger.Info("cleared stale stream on re-registration", "agent_id", a.AgentID)
	}

	r.logger.Info("agent registered",
		"agent_id", a.AgentID,
		"sandbox_id", a.SandboxID,
		"version", a.Version)
}

// Heartbeat refreshes an agent's liveness. It reports false when the agent
// id is unknown. An empty or unrecognized status leaves the stored status
// untouched, except that any heartbeat revives an Unreachable agent.
func (r *Registry) Heartbeat(agentID, status string, usage *ResourceUsage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return false
	}

	a.LastHeartbeat = time.Now()
	if st, ok := ParseStatus(status); ok {
		a.Status = st
	} else if a.Status == StatusUnreachable {
		a.Status = StatusReady
	}
	if usage != nil {
		cp := *usage
		a.Usage = &cp
	}
	return true
}

// Get returns a copy of the record for agentID.
func (r *Registry) Get(agentID string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[agentID]
	if !ok {
		return Agent{}, false
	}
	return *cloneAgent(a), true
}

// List returns copies of all agent records sorted by agent id.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *cloneAgent(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// ListActive returns copies of the agents whose last heartbeat is still
// within the staleness window.
func (r *Registry) ListActive() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-r.staleAfter)
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if a.LastHeartbeat.Before(cutoff) {
			continue
		}
		out = append(out, *cloneAgent(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// FindReadyAgent picks the agent commands for sandboxID should go to: it
// must be Ready, have a fresh heartbeat and an attached stream. Ties are
// broken by lowest agent id so placement is deterministic.
func (r *Registry) FindReadyAgent(sandboxID string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-r.staleAfter)
	var best *Agent
	for _, a := range r.agents {
		if a.SandboxID != sandboxID || a.Status != StatusReady {
			continue
		}
		if a.LastHeartbeat.Before(cutoff) {
			continue
		}
		if _, ok := r.attachments.Load(a.AgentID); !ok {
			continue
		}
		if best == nil || a.AgentID < best.AgentID {
			best = a
		}
	}
	if best == nil {
		return Agent{}, false
	}
	return *cloneAgent(best), true
}

// AttachStream makes stream the agent's live command stream and blocks
// until the attachment ends: the context is cancelled, the agent is
// detached, or a newer stream replaces this one. At most one stream is
// attached per agent.
func (r *Registry) AttachStream(ctx context.Context, agentID string, stream CommandStream) error {
	if old, ok := r.attachments.LoadAndDelete(agentID); ok {
		old.(*attachment).cancel()
		r.logger.Info("replacing agent stream", "agent_id", agentID)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	att := &attachment{stream: stream, cancel: cancel}
	r.attachments.Store(agentID, att)
	r.logger.Info("agent stream attached", "agent_id", agentID)

	// Clear the handle on every exit path, but only if it is still ours; a
	// replacement may already be attached.
	defer func() {
		if r.attachments.CompareAndDelete(agentID, att) {
			r.logger.Info("agent stream detached", "agent_id", agentID)
		}
	}()

	<-streamCtx.Done()
	return ctx.Err()
}

// DetachStream ends the agent's current attachment, if any, and reports
// whether one existed. The agent record is left in place.
func (r *Registry) DetachStream(agentID string) bool {
	v, ok := r.attachments.LoadAndDelete(agentID)
	if !ok {
		return false
	}
	v.(*attachment).cancel()
	return true
}

// DetachAll ends every live attachment and returns how many there were.
// Called at shutdown so blocked command-stream handlers return and the
// RPC server can drain.
func (r *Registry) DetachAll() int {
	n := 0
	r.attachments.Range(func(key, _ any) bool {
		if r.DetachStream(key.(string)) {
			n++
		}
		return true
	})
	if n > 0 {
		r.logger.Info("detached all agent streams", "count", n)
	}
	return n
}

// StreamAttached reports whether the agent currently has a live stream.
func (r *Registry) StreamAttached(agentID string) bool {
	_, ok := r.attachments.Load(agentID)
	return ok
}

// Send writes one command request to the agent's stream. Writes to the
// same agent are serialized; gRPC forbids concurrent SendMsg on one
// stream.
func (r *Registry) Send(agentID string, req *sandstormv1.CommandRequest) error {
	v, ok := r.attachments.Load(agentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, agentID)
	}
	att := v.(*attachment)

	muAny, _ := r.sendMu.LoadOrStore(agentID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if err := att.stream.Send(req); err != nil {
		return fmt.Errorf("send command to agent %s: %w", agentID, err)
	}
	return nil
}

// AppendAgentLog attaches an untagged log line to the agent's rolling log.
// Lines from unknown agents are dropped. The log survives re-registration
// so reconnect churn stays visible.
func (r *Registry) AppendAgentLog(agentID, line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[agentID]; !ok {
		return false
	}
	logs := append(r.agentLogs[agentID], line)
	if overflow := len(logs) - maxAgentLogLines; overflow > 0 {
		logs = logs[overflow:]
	}
	r.agentLogs[agentID] = logs
	return true
}

// AgentLogs returns a copy of the agent's rolling log, oldest first.
func (r *Registry) AgentLogs(agentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := r.agentLogs[agentID]
	out := make([]string, len(logs))
	copy(out, logs)
	return out
}

// MarkStale flips agents whose heartbeat fell out of the staleness window
// to Unreachable and returns their ids. Records are never deleted here.
func (r *Registry) MarkStale() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.staleAfter)
	var stale []string
	for _, a := range r.agents {
		if a.Status != StatusUnreachable && a.LastHeartbeat.Before(cutoff) {
			a.Status = StatusUnreachable
			stale = append(stale, a.AgentID)
		}
	}
	sort.Strings(stale)
	return stale
}

// RemoveSandboxAgents deletes the records and streams of every agent
// belonging to sandboxID and returns how many were removed. This is the
// only way agent records leave the registry.
func (r *Registry) RemoveSandboxAgents(sandboxID string) int {
	r.mu.Lock()
	var removed []string
	for id, a := range r.agents {
		if a.SandboxID == sandboxID {
			delete(r.agents, id)
			delete(r.agentLogs, id)
			removed = append(removed, id)
		}
	}
	r.mu.Unlock()

	for _, id := range removed {
		r.DetachStream(id)
		r.sendMu.Delete(id)
	}
	if len(removed) > 0 {
		r.logger.Info("removed sandbox agents", "sandbox_id", sandboxID, "count", len(removed))
	}
	return len(removed)
}

func cloneAgent(a *Agent) *Agent {
	cp := *a
	if a.Metadata != nil {
		cp.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	if a.Usage != nil {
		u := *a.Usage
		cp.Usage = &u
	}
	return &cp
}
