package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/habbes/sandstorm/internal/store"
)

func newTestStore() *Store {
	return New(nil)
}

func TestCreateSandbox_Defaults(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb, err := s.GetSandbox(ctx, "sbx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.Status != store.SandboxCreating {
		t.Errorf("expected status Creating, got %s", sb.Status)
	}
	if sb.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestCreateSandbox_Duplicate(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateSandbox_EmptyID(t *testing.T) {
	s := newTestStore()

	err := s.CreateSandbox(context.Background(), &store.Sandbox{})
	if !errors.Is(err, store.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestGetSandbox_NotFound(t *testing.T) {
	s := newTestStore()

	_, err := s.GetSandbox(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSandbox_ReturnsCopy(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	orig := &store.Sandbox{
		ID:            "sbx-1",
		Configuration: store.SandboxConfiguration{Tags: map[string]string{"team": "infra"}},
	}
	if err := s.CreateSandbox(ctx, orig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, _ := s.GetSandbox(ctx, "sbx-1")
	first.Status = store.SandboxError
	first.Configuration.Tags["team"] = "mutated"

	second, _ := s.GetSandbox(ctx, "sbx-1")
	if second.Status != store.SandboxCreating {
		t.Errorf("mutation of returned sandbox leaked into store: status %s", second.Status)
	}
	if second.Configuration.Tags["team"] != "infra" {
		t.Errorf("mutation of returned tags leaked into store: %v", second.Configuration.Tags)
	}
}

func TestListSandboxes_SortedByCreation(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	base := time.Now()
	for i := 3; i >= 1; i-- {
		sb := &store.Sandbox{
			ID:        fmt.Sprintf("sbx-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateSandbox(ctx, sb); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	list, err := s.ListSandboxes(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 sandboxes, got %d", len(list))
	}
	for i, want := range []string{"sbx-1", "sbx-2", "sbx-3"} {
		if list[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].ID)
		}
	}
}

func TestUpdateSandboxStatus_Transitions(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Creating -> Ready is the promotion path taken when an agent registers.
	if err := s.UpdateSandboxStatus(ctx, "sbx-1", store.SandboxReady); err != nil {
		t.Fatalf("Creating -> Ready: unexpected error: %v", err)
	}
	if err := s.UpdateSandboxStatus(ctx, "sbx-1", store.SandboxStopping); err != nil {
		t.Fatalf("Ready -> Stopping: unexpected error: %v", err)
	}
	if err := s.UpdateSandboxStatus(ctx, "sbx-1", store.SandboxDeleted); err != nil {
		t.Fatalf("Stopping -> Deleted: unexpected error: %v", err)
	}

	// Deleted is terminal.
	err := s.UpdateSandboxStatus(ctx, "sbx-1", store.SandboxReady)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("Deleted -> Ready: expected ErrConflict, got %v", err)
	}
}

func TestUpdateSandboxStatus_SameStatusIsNoOp(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.UpdateSandboxStatus(ctx, "sbx-1", store.SandboxCreating); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

func TestUpdateSandboxStatus_NotFound(t *testing.T) {
	s := newTestStore()

	err := s.UpdateSandboxStatus(context.Background(), "nope", store.SandboxReady)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSandboxVM(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.UpdateSandboxVM(ctx, "sbx-1", "vm-42", "203.0.113.7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb, _ := s.GetSandbox(ctx, "sbx-1")
	if sb.VMHandle != "vm-42" {
		t.Errorf("expected vm handle vm-42, got %q", sb.VMHandle)
	}
	if sb.PublicIP != "203.0.113.7" {
		t.Errorf("expected public ip 203.0.113.7, got %q", sb.PublicIP)
	}
}

func TestUpdateSandboxVM_RejectedOnceDeletionStarted(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.UpdateSandboxStatus(ctx, "sbx-1", store.SandboxStopping); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.UpdateSandboxVM(ctx, "sbx-1", "vm-42", "203.0.113.7")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	sb, _ := s.GetSandbox(ctx, "sbx-1")
	if sb.VMHandle != "" {
		t.Errorf("expected vm handle untouched, got %q", sb.VMHandle)
	}
}

func TestDeleteSandbox(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DeleteSandbox(ctx, "sbx-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetSandbox(ctx, "sbx-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteSandbox(ctx, "sbx-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func createRunningProcess(t *testing.T, s *Store, id, sandboxID string) {
	t.Helper()
	err := s.CreateProcess(context.Background(), &store.Process{
		ID:        id,
		SandboxID: sandboxID,
		Command:   "echo hi",
	})
	if err != nil {
		t.Fatalf("create process %s: %v", id, err)
	}
}

func TestCreateProcess_Defaults(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	createRunningProcess(t, s, "cmd-1", "sbx-1")

	p, err := s.GetProcess(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != store.ProcessRunning {
		t.Errorf("expected status Running, got %s", p.Status)
	}
	if !p.IsRunning() {
		t.Error("expected IsRunning to be true")
	}
	if p.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}
	if p.Result != nil {
		t.Error("expected no result on a running process")
	}
}

func TestCreateProcess_Validation(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateProcess(ctx, &store.Process{SandboxID: "sbx-1"}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("missing id: expected ErrInvalid, got %v", err)
	}
	if err := s.CreateProcess(ctx, &store.Process{ID: "cmd-1"}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("missing sandbox id: expected ErrInvalid, got %v", err)
	}
}

func TestFinishProcess_FirstFinalStateWins(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	createRunningProcess(t, s, "cmd-1", "sbx-1")

	first := &store.CommandResult{ExitCode: 0, Stdout: "hi\n", DurationMs: 12}
	if err := s.FinishProcess(ctx, "cmd-1", first, store.ProcessCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second finish must not overwrite the recorded result.
	second := &store.CommandResult{ExitCode: -1, Stderr: "terminated"}
	if err := s.FinishProcess(ctx, "cmd-1", second, store.ProcessTerminated); err != nil {
		t.Fatalf("unexpected error on repeat finish: %v", err)
	}

	p, _ := s.GetProcess(ctx, "cmd-1")
	if p.Status != store.ProcessCompleted {
		t.Errorf("expected status Completed, got %s", p.Status)
	}
	if p.Result == nil || p.Result.ExitCode != 0 || p.Result.Stdout != "hi\n" {
		t.Errorf("expected first result to win, got %+v", p.Result)
	}
	if p.FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}
}

func TestFinishProcess_RejectsNonFinalStatus(t *testing.T) {
	s := newTestStore()
	createRunningProcess(t, s, "cmd-1", "sbx-1")

	err := s.FinishProcess(context.Background(), "cmd-1", nil, store.ProcessRunning)
	if !errors.Is(err, store.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestFinishProcess_NotFound(t *testing.T) {
	s := newTestStore()

	err := s.FinishProcess(context.Background(), "nope", nil, store.ProcessCompleted)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendProcessLog(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	createRunningProcess(t, s, "cmd-1", "sbx-1")

	for i := 0; i < 3; i++ {
		if err := s.AppendProcessLog(ctx, "cmd-1", fmt.Sprintf("line %d", i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	lines, err := s.ProcessLogs(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "line 0" || lines[2] != "line 2" {
		t.Errorf("expected lines in arrival order, got %v", lines)
	}
}

func TestAppendProcessLog_AfterFinish(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	createRunningProcess(t, s, "cmd-1", "sbx-1")
	if err := s.FinishProcess(ctx, "cmd-1", &store.CommandResult{}, store.ProcessCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.AppendProcessLog(ctx, "cmd-1", "straggler")
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestAppendProcessLog_NotFound(t *testing.T) {
	s := newTestStore()

	err := s.AppendProcessLog(context.Background(), "nope", "line")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessLogs_Capped(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	createRunningProcess(t, s, "cmd-1", "sbx-1")

	for i := 0; i < maxLogLines+5; i++ {
		if err := s.AppendProcessLog(ctx, "cmd-1", fmt.Sprintf("line %d", i)); err != nil {
			t.Fatalf("unexpected error at line %d: %v", i, err)
		}
	}

	lines, _ := s.ProcessLogs(ctx, "cmd-1")
	if len(lines) != maxLogLines {
		t.Fatalf("expected %d lines, got %d", maxLogLines, len(lines))
	}
	// Oldest lines are dropped first.
	if lines[0] != "line 5" {
		t.Errorf("expected first retained line to be 'line 5', got %q", lines[0])
	}
	if lines[len(lines)-1] != fmt.Sprintf("line %d", maxLogLines+4) {
		t.Errorf("expected newest line last, got %q", lines[len(lines)-1])
	}
}

func TestListProcesses_FiltersBySandbox(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	createRunningProcess(t, s, "cmd-1", "sbx-1")
	createRunningProcess(t, s, "cmd-2", "sbx-1")
	createRunningProcess(t, s, "cmd-3", "sbx-2")

	list, err := s.ListProcesses(ctx, "sbx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 processes, got %d", len(list))
	}
	for _, p := range list {
		if p.SandboxID != "sbx-1" {
			t.Errorf("expected sandbox sbx-1, got %s", p.SandboxID)
		}
	}
}

func TestDeleteSandboxProcesses(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	createRunningProcess(t, s, "cmd-1", "sbx-1")
	createRunningProcess(t, s, "cmd-2", "sbx-1")
	createRunningProcess(t, s, "cmd-3", "sbx-2")

	n, err := s.DeleteSandboxProcesses(ctx, "sbx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	if _, err := s.GetProcess(ctx, "cmd-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected cmd-1 gone, got %v", err)
	}
	if _, err := s.GetProcess(ctx, "cmd-3"); err != nil {
		t.Errorf("expected cmd-3 untouched, got %v", err)
	}
}

func TestSandboxLogs(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if err := s.CreateSandbox(ctx, &store.Sandbox{ID: "sbx-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AppendSandboxLog(ctx, "sbx-1", "agent started"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines, err := s.SandboxLogs(ctx, "sbx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "agent started" {
		t.Errorf("expected one line 'agent started', got %v", lines)
	}

	if err := s.AppendSandboxLog(ctx, "nope", "line"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown sandbox, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to store.SandboxStatus
		want     bool
	}{
		{store.SandboxCreating, store.SandboxStarting, true},
		{store.SandboxCreating, store.SandboxReady, true},
		{store.SandboxStarting, store.SandboxReady, true},
		{store.SandboxReady, store.SandboxStopping, true},
		{store.SandboxStopping, store.SandboxDeleted, true},
		{store.SandboxStopping, store.SandboxStopped, true},
		{store.SandboxCreating, store.SandboxError, true},
		{store.SandboxError, store.SandboxStopping, true},
		{store.SandboxDeleted, store.SandboxReady, false},
		{store.SandboxReady, store.SandboxCreating, false},
		{store.SandboxStopped, store.SandboxReady, false},
	}

	for _, tt := range tests {
		if got := store.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
