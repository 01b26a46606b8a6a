package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/habbes/sandstorm/internal/dispatch"
	"github.com/habbes/sandstorm/internal/orchestrator"
	"github.com/habbes/sandstorm/internal/registry"
	"github.com/habbes/sandstorm/internal/store/memory"
)

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.srv.Router.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := parseJSONResponse(rr)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestHandleListAgents(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		env := newTestEnv(t)

		rr := httptest.NewRecorder()
		env.srv.Router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/agents", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		body := parseJSONResponse(rr)
		agents, ok := body["agents"].([]any)
		if !ok {
			t.Fatalf("expected agents array, got %v", body["agents"])
		}
		if len(agents) != 0 || body["count"] != float64(0) {
			t.Errorf("expected no agents, got %v", body)
		}
	})

	t.Run("populated", func(t *testing.T) {
		env := newTestEnv(t)
		attachAgent(t, env, "agent-1", "sbx-1")
		env.reg.Register(registry.Agent{AgentID: "agent-2", SandboxID: "sbx-2", Version: "0.1.0"})
		env.reg.Heartbeat("agent-2", "Busy", &registry.ResourceUsage{CPUPercent: 12.5, ProcessCount: 3})

		rr := httptest.NewRecorder()
		env.srv.Router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/agents", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		body := parseJSONResponse(rr)
		agents, _ := body["agents"].([]any)
		if len(agents) != 2 {
			t.Fatalf("expected 2 agents, got %d", len(agents))
		}

		byID := map[string]map[string]any{}
		for _, a := range agents {
			m := a.(map[string]any)
			byID[m["agentId"].(string)] = m
		}
		first := byID["agent-1"]
		if first == nil || first["connected"] != true {
			t.Errorf("expected agent-1 connected, got %v", first)
		}
		second := byID["agent-2"]
		if second == nil || second["connected"] != false {
			t.Fatalf("expected agent-2 not connected, got %v", second)
		}
		if second["status"] != "Busy" {
			t.Errorf("expected agent-2 Busy, got %v", second["status"])
		}
		if second["cpuPercent"] != 12.5 {
			t.Errorf("expected reported cpu usage, got %v", second["cpuPercent"])
		}
	})

	t.Run("active_filter", func(t *testing.T) {
		// A short staleness window so one agent can age out.
		st := memory.New(nil)
		reg := registry.New(nil, 30*time.Millisecond)
		disp := dispatch.New(reg, time.Second, nil)
		orch := orchestrator.New(st, reg, disp, &fakeProvider{}, "localhost:5001", nil)
		srv := NewServer(orch, testConfig(), []byte("openapi: 3.0.3\n"))

		reg.Register(registry.Agent{AgentID: "agent-old", SandboxID: "sbx-1"})
		time.Sleep(50 * time.Millisecond)
		reg.Register(registry.Agent{AgentID: "agent-new", SandboxID: "sbx-1"})

		rr := httptest.NewRecorder()
		srv.Router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/agents?active=true", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		body := parseJSONResponse(rr)
		agents, _ := body["agents"].([]any)
		if len(agents) != 1 {
			t.Fatalf("expected 1 active agent, got %d", len(agents))
		}
		if agents[0].(map[string]any)["agentId"] != "agent-new" {
			t.Errorf("expected agent-new, got %v", agents[0])
		}

		// Without the filter both records show.
		rr = httptest.NewRecorder()
		srv.Router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/agents", nil))
		body = parseJSONResponse(rr)
		if agents, _ := body["agents"].([]any); len(agents) != 2 {
			t.Errorf("expected 2 agents unfiltered, got %d", len(agents))
		}
	})
}
