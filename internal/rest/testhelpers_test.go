package rest

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/habbes/sandstorm/internal/config"
	"github.com/habbes/sandstorm/internal/dispatch"
	"github.com/habbes/sandstorm/internal/orchestrator"
	"github.com/habbes/sandstorm/internal/provider"
	"github.com/habbes/sandstorm/internal/registry"
	"github.com/habbes/sandstorm/internal/store"
	"github.com/habbes/sandstorm/internal/store/memory"

	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"
)

// ---------------------------------------------------------------------------
// fakeProvider implements provider.CloudProvider without touching any cloud
// ---------------------------------------------------------------------------

type fakeProvider struct {
	mu      sync.Mutex
	builds  int
	creates int
	deleted []string
}

var _ provider.CloudProvider = (*fakeProvider)(nil)

func (f *fakeProvider) BuildDefaultImage(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	return "img-default", nil
}

func (f *fakeProvider) CreateSandbox(_ context.Context, sandboxID string, _ store.SandboxConfiguration, _ string) (*provider.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return &provider.CreateResult{VMHandle: "vm-" + sandboxID, PublicIP: "10.0.0.9"}, nil
}

func (f *fakeProvider) DeleteSandbox(_ context.Context, vmHandle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, vmHandle)
	return nil
}

// ---------------------------------------------------------------------------
// fakeStream implements registry.CommandStream
// ---------------------------------------------------------------------------

type fakeStream struct {
	mu   sync.Mutex
	sent []*sandstormv1.CommandRequest
}

func (f *fakeStream) Send(req *sandstormv1.CommandRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return nil
}

// waitForSent polls until at least n commands were written to the stream.
func (f *fakeStream) waitForSent(t *testing.T, n int) []*sandstormv1.CommandRequest {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.sent) >= n {
			out := make([]*sandstormv1.CommandRequest, len(f.sent))
			copy(out, f.sent)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d commands on stream", n)
	return nil
}

// ---------------------------------------------------------------------------
// testEnv wires a Server over the real orchestrator stack
// ---------------------------------------------------------------------------

type testEnv struct {
	store *memory.Store
	reg   *registry.Registry
	disp  *dispatch.Dispatcher
	prov  *fakeProvider
	orch  *orchestrator.Orchestrator
	srv   *Server
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			Addr:       ":0",
			CORSOrigin: "*",
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	st := memory.New(nil)
	reg := registry.New(nil, 2*time.Minute)
	disp := dispatch.New(reg, 2*time.Second, nil)
	prov := &fakeProvider{}
	orch := orchestrator.New(st, reg, disp, prov, "localhost:5001", nil)
	srv := NewServer(orch, cfg, []byte("openapi: 3.0.3\n"))

	t.Cleanup(func() {
		disp.Shutdown()
		if err := orch.Close(); err != nil {
			t.Errorf("close orchestrator: %v", err)
		}
	})

	return &testEnv{store: st, reg: reg, disp: disp, prov: prov, orch: orch, srv: srv}
}

// seedSandbox inserts a sandbox record directly, bypassing provisioning.
func seedSandbox(t *testing.T, env *testEnv, id string, status store.SandboxStatus) *store.Sandbox {
	t.Helper()
	sb := &store.Sandbox{
		ID:            id,
		Status:        status,
		Configuration: store.SandboxConfiguration{ImageID: "img-test"},
	}
	if err := env.store.CreateSandbox(context.Background(), sb); err != nil {
		t.Fatalf("seed sandbox %s: %v", id, err)
	}
	return sb
}

// attachAgent registers an agent for the sandbox and attaches a command
// stream, so dispatch can find it.
func attachAgent(t *testing.T, env *testEnv, agentID, sandboxID string) *fakeStream {
	t.Helper()
	env.reg.Register(registry.Agent{AgentID: agentID, SandboxID: sandboxID})

	stream := &fakeStream{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = env.reg.AttachStream(ctx, agentID, stream) }()

	waitFor(t, "stream attach", func() bool { return env.reg.StreamAttached(agentID) })
	return stream
}

// readySandbox seeds a Ready sandbox with a connected agent.
func readySandbox(t *testing.T, env *testEnv, id string) (*store.Sandbox, *fakeStream) {
	t.Helper()
	sb := seedSandbox(t, env, id, store.SandboxReady)
	stream := attachAgent(t, env, "agent-"+id, id)
	return sb, stream
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

// parseJSONResponse reads body into a map
func parseJSONResponse(rr *httptest.ResponseRecorder) map[string]any {
	var result map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &result)
	return result
}
