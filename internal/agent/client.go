// Package agent implements the in-VM process that connects a sandbox to
// the orchestrator. It registers, heartbeats, executes commands from the
// command stream and ships log lines back.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"
)

// resultSendAttempts bounds the retries for delivering a command result.
// An undelivered result is eventually treated as a timeout upstream.
const resultSendAttempts = 3

// Client is the VM side of the agent protocol.
type Client struct {
	cfg      Config
	version  string
	logger   *slog.Logger
	executor *Executor

	heartbeatInterval time.Duration

	// logCh buffers log lines for the SendLogs stream. Lines are dropped
	// when the buffer is full; log shipping is best effort.
	logCh chan *sandstormv1.LogEntry
}

func NewClient(cfg Config, version string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:               cfg,
		version:           version,
		logger:            logger.With("component", "agent"),
		executor:          NewExecutor(cfg.WorkDir, logger),
		heartbeatInterval: 30 * time.Second,
		logCh:             make(chan *sandstormv1.LogEntry, 256),
	}
}

// Run connects to the orchestrator and serves until ctx is done. It
// reconnects automatically on failure using exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	return RunWithReconnect(ctx, c.logger, c.connectAndServe)
}

// connectAndServe runs a single session: dial, register, then serve the
// heartbeat, command and log loops until one of them fails.
func (c *Client) connectAndServe(ctx context.Context) error {
	conn, err := grpc.NewClient(c.cfg.OrchestratorEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial orchestrator %s: %w", c.cfg.OrchestratorEndpoint, err)
	}
	defer conn.Close()

	client := sandstormv1.NewAgentServiceClient(conn)

	if err := c.register(ctx, client); err != nil {
		return err
	}
	c.enqueueLog("info", "agent session started", "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.heartbeatLoop(gctx, client) })
	g.Go(func() error { return c.commandLoop(gctx, client) })
	g.Go(func() error { return c.logLoop(gctx, client) })
	return g.Wait()
}

// register announces the agent. A rejected registration fails the session;
// the reconnect loop will retry it.
func (c *Client) register(ctx context.Context, client sandstormv1.AgentServiceClient) error {
	resp, err := client.RegisterAgent(ctx, &sandstormv1.RegisterAgentRequest{
		AgentId:      c.cfg.AgentID,
		SandboxId:    c.cfg.SandboxID,
		VmId:         c.cfg.VMID,
		AgentVersion: c.version,
		Metadata: map[string]string{
			"os":   runtime.GOOS,
			"arch": runtime.GOARCH,
		},
	})
	if err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	if !resp.GetOk() {
		return fmt.Errorf("registration rejected: %s", resp.GetMessage())
	}
	if s := resp.GetHeartbeatIntervalS(); s > 0 {
		c.heartbeatInterval = time.Duration(s) * time.Second
	}

	c.logger.Info("registered with orchestrator",
		"agent_id", c.cfg.AgentID,
		"sandbox_id", c.cfg.SandboxID,
		"heartbeat_interval", c.heartbeatInterval)
	return nil
}

// heartbeatLoop reports liveness on the interval assigned at registration.
// A rejected heartbeat (for example after an orchestrator restart that
// lost the registration) fails the session so the agent re-registers.
func (c *Client) heartbeatLoop(ctx context.Context, client sandstormv1.AgentServiceClient) error {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			resp, err := client.Heartbeat(ctx, &sandstormv1.HeartbeatRequest{
				AgentId: c.cfg.AgentID,
				// The agent executes commands concurrently and keeps
				// accepting work, so it never self-reports Busy.
				Status:        "Ready",
				ResourceUsage: c.resourceUsage(),
			})
			if err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
			if !resp.GetOk() {
				return fmt.Errorf("heartbeat rejected: %s", resp.GetMessage())
			}
		}
	}
}

// commandLoop holds the command stream open and hands every request to the
// executor. Execution is concurrent; the loop itself never blocks on a
// command.
func (c *Client) commandLoop(ctx context.Context, client sandstormv1.AgentServiceClient) error {
	stream, err := client.GetCommands(ctx, &sandstormv1.GetCommandsRequest{
		AgentId:   c.cfg.AgentID,
		SandboxId: c.cfg.SandboxID,
	})
	if err != nil {
		return fmt.Errorf("open command stream: %w", err)
	}
	c.logger.Info("command stream open")

	for {
		cmd, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Info("command stream closed by orchestrator")
				return nil
			}
			return fmt.Errorf("recv command: %w", err)
		}

		if cmd.GetKind() == sandstormv1.CommandKind_COMMAND_KIND_TERMINATE {
			target := cmd.GetCommand()
			if c.executor.Terminate(target) {
				c.logger.Info("terminated command", "command_id", target)
				c.enqueueLog("warn", "command terminated by orchestrator", target)
			} else {
				c.logger.Warn("terminate for unknown command", "command_id", target)
			}
			continue
		}

		go c.execute(ctx, client, cmd)
	}
}

// execute runs one command and reports its result.
func (c *Client) execute(ctx context.Context, client sandstormv1.AgentServiceClient, cmd *sandstormv1.CommandRequest) {
	c.enqueueLog("info", "executing: "+cmd.GetCommand(), cmd.GetCommandId())

	res := c.executor.Run(ctx, cmd)
	res.AgentId = c.cfg.AgentID

	c.enqueueLog("info", fmt.Sprintf("finished: exit=%d", res.GetExitCode()), cmd.GetCommandId())

	for attempt := 1; attempt <= resultSendAttempts; attempt++ {
		_, err := client.SendCommandResult(ctx, res)
		if err == nil {
			return
		}
		c.logger.Error("send command result failed",
			"command_id", cmd.GetCommandId(),
			"attempt", attempt,
			"error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// logLoop drains the log buffer into a SendLogs stream.
func (c *Client) logLoop(ctx context.Context, client sandstormv1.AgentServiceClient) error {
	stream, err := client.SendLogs(ctx)
	if err != nil {
		return fmt.Errorf("open log stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_, _ = stream.CloseAndRecv()
			return ctx.Err()
		case entry := <-c.logCh:
			if err := stream.Send(entry); err != nil {
				return fmt.Errorf("send log: %w", err)
			}
		}
	}
}

// enqueueLog buffers a log line for shipping. processID may be empty for
// sandbox-level lines.
func (c *Client) enqueueLog(level, message, processID string) {
	entry := &sandstormv1.LogEntry{
		AgentId:         c.cfg.AgentID,
		Level:           level,
		Message:         message,
		TimestampUnixMs: time.Now().UnixMilli(),
		ProcessId:       processID,
	}
	select {
	case c.logCh <- entry:
	default:
	}
}

// resourceUsage snapshots what the agent can observe about itself.
func (c *Client) resourceUsage() *sandstormv1.ResourceUsage {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &sandstormv1.ResourceUsage{
		MemoryBytes:  int64(mem.Sys),
		ProcessCount: int32(c.executor.RunningCount()),
	}
}
