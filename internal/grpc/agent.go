package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"

	"github.com/habbes/sandstorm/internal/dispatch"
	"github.com/habbes/sandstorm/internal/registry"
	"github.com/habbes/sandstorm/internal/store"
)

// AgentHandler implements sandstormv1.AgentServiceServer.
type AgentHandler struct {
	sandstormv1.UnimplementedAgentServiceServer

	registry          *registry.Registry
	dispatcher        *dispatch.Dispatcher
	store             store.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
}

// NewAgentHandler creates an agent handler wired to the given dependencies.
func NewAgentHandler(
	reg *registry.Registry,
	disp *dispatch.Dispatcher,
	st store.Store,
	logger *slog.Logger,
	heartbeatInterval time.Duration,
) *AgentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	return &AgentHandler{
		registry:          reg,
		dispatcher:        disp,
		store:             st,
		logger:            logger.With("component", "agent-handler"),
		heartbeatInterval: heartbeatInterval,
	}
}

// RegisterAgent records the agent in the registry. Re-registration replaces
// any previous session for the same agent id, so a restarting agent always
// converges on a clean state.
func (h *AgentHandler) RegisterAgent(ctx context.Context, req *sandstormv1.RegisterAgentRequest) (*sandstormv1.RegisterAgentResponse, error) {
	agentID := req.GetAgentId()
	sandboxID := req.GetSandboxId()

	if agentID == "" || sandboxID == "" {
		return &sandstormv1.RegisterAgentResponse{
			Ok:      false,
			Message: "agent_id and sandbox_id are required",
		}, nil
	}

	h.registry.Register(registry.Agent{
		AgentID:   agentID,
		SandboxID: sandboxID,
		VMID:      req.GetVmId(),
		Version:   req.GetAgentVersion(),
		Metadata:  req.GetMetadata(),
	})

	// A registering agent means its VM booted. Promote the sandbox to
	// Ready unless its lifecycle has already moved past that point.
	if err := h.store.UpdateSandboxStatus(ctx, sandboxID, store.SandboxReady); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.logger.Warn("agent registered for unknown sandbox",
				"agent_id", agentID, "sandbox_id", sandboxID)
		case errors.Is(err, store.ErrConflict):
			h.logger.Debug("sandbox not promoted on agent registration",
				"sandbox_id", sandboxID, "error", err)
		default:
			h.logger.Error("failed to update sandbox status",
				"sandbox_id", sandboxID, "error", err)
		}
	}

	h.logger.Info("agent registered",
		"agent_id", agentID,
		"sandbox_id", sandboxID,
		"vm_id", req.GetVmId(),
		"version", req.GetAgentVersion())

	return &sandstormv1.RegisterAgentResponse{
		Ok:                 true,
		HeartbeatIntervalS: int32(h.heartbeatInterval / time.Second),
	}, nil
}

// Heartbeat refreshes agent liveness. An unknown agent id gets ok=false so
// the agent knows to re-register.
func (h *AgentHandler) Heartbeat(ctx context.Context, req *sandstormv1.HeartbeatRequest) (*sandstormv1.HeartbeatResponse, error) {
	agentID := req.GetAgentId()
	if agentID == "" {
		return &sandstormv1.HeartbeatResponse{Ok: false, Message: "agent_id is required"}, nil
	}

	var usage *registry.ResourceUsage
	if u := req.GetResourceUsage(); u != nil {
		usage = &registry.ResourceUsage{
			CPUPercent:   u.GetCpuPercent(),
			MemoryBytes:  u.GetMemoryBytes(),
			DiskBytes:    u.GetDiskBytes(),
			ProcessCount: u.GetProcessCount(),
		}
	}

	if !h.registry.Heartbeat(agentID, req.GetStatus(), usage) {
		return &sandstormv1.HeartbeatResponse{Ok: false, Message: "unknown agent"}, nil
	}

	return &sandstormv1.HeartbeatResponse{Ok: true}, nil
}

// GetCommands attaches the agent's downstream command stream and blocks for
// the life of the connection. Commands are pushed from the dispatcher via
// the registry; this handler only holds the stream open.
func (h *AgentHandler) GetCommands(req *sandstormv1.GetCommandsRequest, stream sandstormv1.AgentService_GetCommandsServer) error {
	agentID := req.GetAgentId()
	if agentID == "" {
		return fmt.Errorf("agent_id is required")
	}

	rec, ok := h.registry.Get(agentID)
	if !ok {
		return fmt.Errorf("agent %s is not registered", agentID)
	}
	if sb := req.GetSandboxId(); sb != "" && sb != rec.SandboxID {
		return fmt.Errorf("agent %s is registered for sandbox %s, not %s", agentID, rec.SandboxID, sb)
	}

	logger := h.logger.With("agent_id", agentID, "sandbox_id", rec.SandboxID)
	logger.Info("command stream attached")

	err := h.registry.AttachStream(stream.Context(), agentID, stream)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("command stream ended", "error", err)
		return err
	}

	logger.Info("command stream detached")
	return nil
}

// SendCommandResult routes a result to the waiter that dispatched the
// command. Results the orchestrator no longer tracks are acknowledged and
// dropped so a retrying agent does not wedge on an already-finished command.
func (h *AgentHandler) SendCommandResult(ctx context.Context, res *sandstormv1.CommandResult) (*sandstormv1.CommandResultAck, error) {
	if res.GetCommandId() == "" {
		return &sandstormv1.CommandResultAck{Ok: false}, nil
	}

	if !h.dispatcher.Complete(res) {
		h.logger.Debug("discarding result for unknown command",
			"command_id", res.GetCommandId(),
			"agent_id", res.GetAgentId())
	}

	return &sandstormv1.CommandResultAck{Ok: true}, nil
}

// SendLogs consumes a stream of log lines. Lines tagged with a process id
// attach to that process; untagged lines attach to the sending agent's
// rolling log. Rejected lines are dropped without failing the stream.
func (h *AgentHandler) SendLogs(stream sandstormv1.AgentService_SendLogsServer) error {
	ctx := stream.Context()
	var received int32

	for {
		entry, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stream.SendAndClose(&sandstormv1.SendLogsResponse{Ok: true, Received: received})
			}
			return fmt.Errorf("recv log entry: %w", err)
		}
		received++

		line := formatLogLine(entry)

		if pid := entry.GetProcessId(); pid != "" {
			if err := h.store.AppendProcessLog(ctx, pid, line); err != nil {
				h.logger.Debug("dropping process log line", "process_id", pid, "error", err)
			}
			continue
		}

		if !h.registry.AppendAgentLog(entry.GetAgentId(), line) {
			h.logger.Debug("dropping log line from unknown agent", "agent_id", entry.GetAgentId())
		}
	}
}

// formatLogLine renders a LogEntry as one stored line. Entries without a
// timestamp get the receive time.
func formatLogLine(entry *sandstormv1.LogEntry) string {
	ts := time.Now()
	if ms := entry.GetTimestampUnixMs(); ms > 0 {
		ts = time.UnixMilli(ms)
	}
	return store.FormatLogLine(ts, entry.GetLevel(), entry.GetMessage())
}
