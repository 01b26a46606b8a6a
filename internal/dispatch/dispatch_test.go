package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/habbes/sandstorm/internal/registry"
	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"
)

// fakeStream collects the command requests written to it.
type fakeStream struct {
	mu   sync.Mutex
	sent []*sandstormv1.CommandRequest
	err  error
}

func (f *fakeStream) Send(req *sandstormv1.CommandRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

// take drains and returns everything sent so far.
func (f *fakeStream) take() []*sandstormv1.CommandRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

// waitForSent polls until at least n commands were written to the stream.
func (f *fakeStream) waitForSent(t *testing.T, n int) []*sandstormv1.CommandRequest {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		f.mu.Lock()
		if len(f.sent) >= n {
			out := make([]*sandstormv1.CommandRequest, len(f.sent))
			copy(out, f.sent)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()

		select {
		case <-deadline:
			t.Fatalf("expected %d sent commands", n)
		case <-time.After(time.Millisecond):
		}
	}
}

func attachAgent(t *testing.T, reg *registry.Registry, agentID, sandboxID string, stream registry.CommandStream) {
	t.Helper()

	reg.Register(registry.Agent{AgentID: agentID, SandboxID: sandboxID})
	go func() {
		_ = reg.AttachStream(context.Background(), agentID, stream)
	}()

	deadline := time.After(2 * time.Second)
	for !reg.StreamAttached(agentID) {
		select {
		case <-deadline:
			t.Fatal("stream never attached")
		case <-time.After(time.Millisecond):
		}
	}
}

func newDispatchEnv(t *testing.T) (*Dispatcher, *registry.Registry, *fakeStream) {
	t.Helper()

	reg := registry.New(nil, time.Minute)
	stream := &fakeStream{}
	attachAgent(t, reg, "agent-1", "sbx-1", stream)
	return New(reg, 2*time.Second, nil), reg, stream
}

func TestExecute_Success(t *testing.T) {
	d, _, stream := newDispatchEnv(t)

	go func() {
		cmds := stream.waitForSent(t, 1)
		d.Complete(&sandstormv1.CommandResult{
			CommandId:  cmds[0].GetCommandId(),
			AgentId:    "agent-1",
			ExitCode:   0,
			Stdout:     "hi\n",
			DurationMs: 12,
			Success:    true,
		})
	}()

	res, err := d.Execute(context.Background(), Request{SandboxID: "sbx-1", Command: "echo hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GetExitCode() != 0 || res.GetStdout() != "hi\n" {
		t.Errorf("unexpected result: %+v", res)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected no pending commands, got %d", d.PendingCount())
	}
}

func TestDispatch_WireFormat(t *testing.T) {
	d, _, stream := newDispatchEnv(t)

	p, err := d.Dispatch(Request{
		SandboxID:  "sbx-1",
		Command:    "ls -la",
		WorkingDir: "/tmp",
		Env:        map[string]string{"FOO": "bar"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Shutdown()
	go func() { _, _ = p.Wait(context.Background()) }()

	cmds := stream.waitForSent(t, 1)
	cmd := cmds[0]
	if cmd.GetCommandId() != p.CommandID {
		t.Errorf("expected command id %s on the wire, got %s", p.CommandID, cmd.GetCommandId())
	}
	if cmd.GetCommand() != "ls -la" {
		t.Errorf("expected command 'ls -la', got %q", cmd.GetCommand())
	}
	if cmd.GetTimeoutS() != 2 {
		t.Errorf("expected default timeout 2s on the wire, got %d", cmd.GetTimeoutS())
	}
	if cmd.GetWorkingDir() != "/tmp" {
		t.Errorf("expected working dir /tmp, got %q", cmd.GetWorkingDir())
	}
	if cmd.GetEnv()["FOO"] != "bar" {
		t.Errorf("expected env FOO=bar, got %v", cmd.GetEnv())
	}
	if cmd.GetKind() != sandstormv1.CommandKind_COMMAND_KIND_EXEC {
		t.Errorf("expected exec kind, got %v", cmd.GetKind())
	}
	if p.AgentID != "agent-1" || p.SandboxID != "sbx-1" {
		t.Errorf("unexpected pending placement: %+v", p)
	}
}

func TestDispatch_UsesProvidedCommandID(t *testing.T) {
	d, _, stream := newDispatchEnv(t)

	p, err := d.Dispatch(Request{SandboxID: "sbx-1", CommandID: "cmd-fixed", Command: "true"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CommandID != "cmd-fixed" {
		t.Errorf("expected cmd-fixed, got %s", p.CommandID)
	}

	cmds := stream.waitForSent(t, 1)
	if cmds[0].GetCommandId() != "cmd-fixed" {
		t.Errorf("expected cmd-fixed on the wire, got %s", cmds[0].GetCommandId())
	}

	// Dispatching the same id again while pending is rejected.
	if _, err := d.Dispatch(Request{SandboxID: "sbx-1", CommandID: "cmd-fixed", Command: "true"}); err == nil {
		t.Error("expected error for duplicate pending command id")
	}
}

func TestDispatch_NoReadyAgent(t *testing.T) {
	reg := registry.New(nil, time.Minute)
	d := New(reg, time.Second, nil)

	_, err := d.Dispatch(Request{SandboxID: "sbx-1", Command: "echo hi"})
	if !errors.Is(err, ErrNoReadyAgent) {
		t.Errorf("expected ErrNoReadyAgent, got %v", err)
	}
}

func TestDispatch_WriteFailed(t *testing.T) {
	reg := registry.New(nil, time.Minute)
	stream := &fakeStream{err: errors.New("broken pipe")}
	attachAgent(t, reg, "agent-1", "sbx-1", stream)
	d := New(reg, time.Second, nil)

	_, err := d.Dispatch(Request{SandboxID: "sbx-1", Command: "echo hi"})
	if !errors.Is(err, ErrAgentWriteFailed) {
		t.Errorf("expected ErrAgentWriteFailed, got %v", err)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected failed dispatch to unregister its waiter, got %d pending", d.PendingCount())
	}
}

func TestWait_Timeout(t *testing.T) {
	d, _, _ := newDispatchEnv(t)

	start := time.Now()
	_, err := d.Execute(context.Background(), Request{
		SandboxID: "sbx-1",
		Command:   "sleep 60",
		Timeout:   30 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took too long: %s", elapsed)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected waiter to be unregistered after timeout, got %d pending", d.PendingCount())
	}
}

func TestWait_Cancelled(t *testing.T) {
	d, _, _ := newDispatchEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := d.Execute(ctx, Request{SandboxID: "sbx-1", Command: "sleep 60"})
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestComplete_LateResultDiscarded(t *testing.T) {
	d, _, _ := newDispatchEnv(t)

	if d.Complete(&sandstormv1.CommandResult{CommandId: "cmd-unknown"}) {
		t.Error("expected late result to be discarded")
	}

	// A result for a command that already timed out is late too.
	_, err := d.Execute(context.Background(), Request{
		SandboxID: "sbx-1",
		Command:   "sleep 60",
		Timeout:   20 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if d.Complete(&sandstormv1.CommandResult{CommandId: "cmd-unknown"}) {
		t.Error("expected result after timeout to be discarded")
	}
}

func TestTerminate(t *testing.T) {
	d, _, stream := newDispatchEnv(t)

	p, err := d.Dispatch(Request{SandboxID: "sbx-1", Command: "sleep 60"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		_, err := p.Wait(context.Background())
		waitErr <- err
	}()
	stream.waitForSent(t, 1)

	if !d.Terminate(p.CommandID) {
		t.Fatal("expected terminate to find the pending command")
	}

	select {
	case err := <-waitErr:
		if !errors.Is(err, ErrTerminated) {
			t.Errorf("expected ErrTerminated, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait never returned after terminate")
	}

	cmds := stream.waitForSent(t, 2)
	kill := cmds[1]
	if kill.GetKind() != sandstormv1.CommandKind_COMMAND_KIND_TERMINATE {
		t.Errorf("expected terminate kind, got %v", kill.GetKind())
	}
	if kill.GetCommand() != p.CommandID {
		t.Errorf("expected terminate to reference process %s, got %q", p.CommandID, kill.GetCommand())
	}

	if d.Terminate("cmd-unknown") {
		t.Error("expected terminate of unknown command to report false")
	}
}

func TestCancelSandbox(t *testing.T) {
	d, reg, _ := newDispatchEnv(t)
	attachAgent(t, reg, "agent-2", "sbx-2", &fakeStream{})

	waitErrs := make(chan error, 3)
	for _, sb := range []string{"sbx-1", "sbx-1", "sbx-2"} {
		p, err := d.Dispatch(Request{SandboxID: sb, Command: "sleep 60"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		go func() {
			_, err := p.Wait(context.Background())
			waitErrs <- err
		}()
	}

	if n := d.CancelSandbox("sbx-1"); n != 2 {
		t.Fatalf("expected 2 cancelled, got %d", n)
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-waitErrs:
			if !errors.Is(err, ErrShutdown) {
				t.Errorf("expected ErrShutdown, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("cancelled wait never returned")
		}
	}

	if d.PendingCount() != 1 {
		t.Errorf("expected the sbx-2 command to stay pending, got %d", d.PendingCount())
	}
}

func TestShutdown(t *testing.T) {
	d, _, _ := newDispatchEnv(t)

	p, err := d.Dispatch(Request{SandboxID: "sbx-1", Command: "sleep 60"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		_, err := p.Wait(context.Background())
		waitErr <- err
	}()

	if n := d.Shutdown(); n != 1 {
		t.Errorf("expected 1 aborted command, got %d", n)
	}

	select {
	case err := <-waitErr:
		if !errors.Is(err, ErrShutdown) {
			t.Errorf("expected ErrShutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait never returned after shutdown")
	}

	if _, err := d.Dispatch(Request{SandboxID: "sbx-1", Command: "echo hi"}); !errors.Is(err, ErrShutdown) {
		t.Errorf("expected new dispatches to be rejected, got %v", err)
	}
}

func TestExecute_ManyConcurrent(t *testing.T) {
	d, _, stream := newDispatchEnv(t)

	// Echo every command back as its own result, exercising the
	// correlation map under contention.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, cmd := range stream.take() {
				d.Complete(&sandstormv1.CommandResult{
					CommandId: cmd.GetCommandId(),
					Stdout:    cmd.GetCommand(),
					Success:   true,
				})
			}
			time.Sleep(time.Millisecond)
		}
	}()

	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			command := fmt.Sprintf("echo %d", i)
			res, err := d.Execute(context.Background(), Request{SandboxID: "sbx-1", Command: command})
			if err != nil {
				errs <- err
				return
			}
			if res.GetStdout() != command {
				errs <- fmt.Errorf("command %d got result for %q", i, res.GetStdout())
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent execute: %v", err)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected no pending commands, got %d", d.PendingCount())
	}
}
