package config

import (
	"strings"
	"testing"
	"time"
)

func TestEnvOr_WithValue(t *testing.T) {
	t.Setenv("TEST_ENV_OR_KEY", "custom_value")

	got := envOr("TEST_ENV_OR_KEY", "default_value")
	if got != "custom_value" {
		t.Errorf("expected 'custom_value', got %q", got)
	}
}

func TestEnvOr_Fallback(t *testing.T) {
	// TEST_ENV_OR_MISSING is not set
	got := envOr("TEST_ENV_OR_MISSING", "fallback")
	if got != "fallback" {
		t.Errorf("expected 'fallback', got %q", got)
	}
}

func TestEnvOr_EmptyString(t *testing.T) {
	t.Setenv("TEST_ENV_OR_EMPTY", "")

	got := envOr("TEST_ENV_OR_EMPTY", "fallback")
	if got != "fallback" {
		t.Errorf("expected 'fallback' when env is empty string, got %q", got)
	}
}

func TestEnvBool_True(t *testing.T) {
	t.Setenv("TEST_ENV_BOOL", "true")

	if got := envBool("TEST_ENV_BOOL", false); got != true {
		t.Error("expected true, got false")
	}
}

func TestEnvBool_Invalid(t *testing.T) {
	t.Setenv("TEST_ENV_BOOL_BAD", "notabool")

	if got := envBool("TEST_ENV_BOOL_BAD", true); got != true {
		t.Error("expected fallback true, got false")
	}
}

func TestEnvDuration_Valid(t *testing.T) {
	t.Setenv("TEST_ENV_DUR", "45s")

	got := envDuration("TEST_ENV_DUR", time.Minute)
	if got != 45*time.Second {
		t.Errorf("expected 45s, got %s", got)
	}
}

func TestEnvDuration_Invalid(t *testing.T) {
	t.Setenv("TEST_ENV_DUR_BAD", "soon")

	got := envDuration("TEST_ENV_DUR_BAD", time.Minute)
	if got != time.Minute {
		t.Errorf("expected fallback 1m, got %s", got)
	}
}

func TestEnvStringSlice(t *testing.T) {
	t.Setenv("TEST_ENV_SLICE", "10.0.0.0/8, 192.168.1.1 ,,::1")

	got := envStringSlice("TEST_ENV_SLICE")
	want := []string{"10.0.0.0/8", "192.168.1.1", "::1"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEnvStringSlice_Missing(t *testing.T) {
	if got := envStringSlice("TEST_ENV_SLICE_MISSING"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.API.Addr != "0.0.0.0:5000" {
		t.Errorf("expected API addr 0.0.0.0:5000, got %q", cfg.API.Addr)
	}
	if cfg.GRPC.Addr != "0.0.0.0:5001" {
		t.Errorf("expected gRPC addr 0.0.0.0:5001, got %q", cfg.GRPC.Addr)
	}
	if cfg.GRPC.ExternalEndpoint != "localhost:5001" {
		t.Errorf("expected external endpoint localhost:5001, got %q", cfg.GRPC.ExternalEndpoint)
	}
	if cfg.Agents.HeartbeatInterval != 30*time.Second {
		t.Errorf("expected heartbeat interval 30s, got %s", cfg.Agents.HeartbeatInterval)
	}
	if cfg.Agents.StaleAfter != 2*time.Minute {
		t.Errorf("expected stale after 2m, got %s", cfg.Agents.StaleAfter)
	}
	if cfg.Dispatch.CommandTimeout != 300*time.Second {
		t.Errorf("expected command timeout 300s, got %s", cfg.Dispatch.CommandTimeout)
	}
	if cfg.Lifecycle.DeletedRetention != 5*time.Minute {
		t.Errorf("expected deleted retention 5m, got %s", cfg.Lifecycle.DeletedRetention)
	}
	if cfg.API.EnableDocs {
		t.Error("expected docs disabled by default")
	}
	if cfg.Provider.Root != "" || cfg.Provider.AgentBin != "" {
		t.Errorf("expected empty provider config, got %+v", cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_ADDR", "127.0.0.1:8080")
	t.Setenv("COMMAND_TIMEOUT", "90s")
	t.Setenv("API_ENABLE_DOCS", "true")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,172.16.0.0/12")
	t.Setenv("PROVIDER_ROOT", "/var/lib/sandstorm")

	cfg := Load()

	if cfg.API.Addr != "127.0.0.1:8080" {
		t.Errorf("expected API addr 127.0.0.1:8080, got %q", cfg.API.Addr)
	}
	if cfg.Dispatch.CommandTimeout != 90*time.Second {
		t.Errorf("expected command timeout 90s, got %s", cfg.Dispatch.CommandTimeout)
	}
	if !cfg.API.EnableDocs {
		t.Error("expected docs enabled")
	}
	if len(cfg.API.TrustedProxies) != 2 {
		t.Errorf("expected 2 trusted proxies, got %v", cfg.API.TrustedProxies)
	}
	if cfg.Provider.Root != "/var/lib/sandstorm" {
		t.Errorf("expected provider root override, got %q", cfg.Provider.Root)
	}
}

func TestValidate_StaleAfterTooShort(t *testing.T) {
	cfg := Load()
	cfg.Agents.HeartbeatInterval = time.Minute
	cfg.Agents.StaleAfter = 30 * time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when stale window is shorter than heartbeat interval")
	}
	if !strings.Contains(err.Error(), "AGENT_STALE_AFTER") {
		t.Errorf("expected error to name AGENT_STALE_AFTER, got %v", err)
	}
}

func TestValidate_MissingExternalEndpoint(t *testing.T) {
	cfg := Load()
	cfg.GRPC.ExternalEndpoint = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when external endpoint is empty")
	}
}

func TestValidate_NonPositiveCommandTimeout(t *testing.T) {
	cfg := Load()
	cfg.Dispatch.CommandTimeout = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when command timeout is zero")
	}
}
