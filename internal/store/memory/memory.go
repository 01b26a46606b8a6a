// Package memory implements store.Store with plain maps guarded by a
// mutex. The control plane keeps no durable state; a restart starts empty.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/habbes/sandstorm/internal/store"
)

// maxLogLines caps the retained log lines per process and per sandbox.
// Older lines are dropped first.
const maxLogLines = 10000

type Store struct {
	logger *slog.Logger

	mu          sync.RWMutex
	sandboxes   map[string]*store.Sandbox
	processes   map[string]*store.Process
	processLogs map[string][]string
	sandboxLogs map[string][]string
}

var _ store.Store = (*Store)(nil)

func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:      logger.With("component", "store"),
		sandboxes:   make(map[string]*store.Sandbox),
		processes:   make(map[string]*store.Process),
		processLogs: make(map[string][]string),
		sandboxLogs: make(map[string][]string),
	}
}

func (s *Store) CreateSandbox(_ context.Context, sb *store.Sandbox) error {
	if sb == nil || sb.ID == "" {
		return fmt.Errorf("%w: sandbox id is required", store.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sandboxes[sb.ID]; ok {
		return fmt.Errorf("%w: sandbox %s", store.ErrAlreadyExists, sb.ID)
	}

	now := time.Now()
	cp := cloneSandbox(sb)
	if cp.Status == "" {
		cp.Status = store.SandboxCreating
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.sandboxes[sb.ID] = cp
	return nil
}

func (s *Store) GetSandbox(_ context.Context, id string) (*store.Sandbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sb, ok := s.sandboxes[id]
	if !ok {
		return nil, fmt.Errorf("%w: sandbox %s", store.ErrNotFound, id)
	}
	return cloneSandbox(sb), nil
}

func (s *Store) ListSandboxes(_ context.Context) ([]*store.Sandbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Sandbox, 0, len(s.sandboxes))
	for _, sb := range s.sandboxes {
		out = append(out, cloneSandbox(sb))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateSandboxStatus(_ context.Context, id string, status store.SandboxStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.sandboxes[id]
	if !ok {
		return fmt.Errorf("%w: sandbox %s", store.ErrNotFound, id)
	}
	if sb.Status == status {
		return nil
	}
	if !store.CanTransition(sb.Status, status) {
		return fmt.Errorf("%w: sandbox %s cannot move from %s to %s", store.ErrConflict, id, sb.Status, status)
	}
	sb.Status = status
	sb.UpdatedAt = time.Now()
	return nil
}

// UpdateSandboxVM records the provisioned VM. Sandboxes whose deletion has
// already started reject the update so the caller can reclaim the VM.
func (s *Store) UpdateSandboxVM(_ context.Context, id, vmHandle, publicIP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.sandboxes[id]
	if !ok {
		return fmt.Errorf("%w: sandbox %s", store.ErrNotFound, id)
	}
	switch sb.Status {
	case store.SandboxStopping, store.SandboxStopped, store.SandboxDeleted:
		return fmt.Errorf("%w: sandbox %s is %s", store.ErrConflict, id, sb.Status)
	}
	sb.VMHandle = vmHandle
	sb.PublicIP = publicIP
	sb.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteSandbox(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sandboxes[id]; !ok {
		return fmt.Errorf("%w: sandbox %s", store.ErrNotFound, id)
	}
	delete(s.sandboxes, id)
	delete(s.sandboxLogs, id)
	return nil
}

func (s *Store) CreateProcess(_ context.Context, p *store.Process) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: process id is required", store.ErrInvalid)
	}
	if p.SandboxID == "" {
		return fmt.Errorf("%w: process sandbox id is required", store.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processes[p.ID]; ok {
		return fmt.Errorf("%w: process %s", store.ErrAlreadyExists, p.ID)
	}

	cp := cloneProcess(p)
	if cp.Status == "" {
		cp.Status = store.ProcessRunning
	}
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now()
	}
	s.processes[p.ID] = cp
	return nil
}

func (s *Store) GetProcess(_ context.Context, id string) (*store.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.processes[id]
	if !ok {
		return nil, fmt.Errorf("%w: process %s", store.ErrNotFound, id)
	}
	return cloneProcess(p), nil
}

func (s *Store) ListProcesses(_ context.Context, sandboxID string) ([]*store.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.Process
	for _, p := range s.processes {
		if p.SandboxID == sandboxID {
			out = append(out, cloneProcess(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// FinishProcess records the final state of a process. The first final state
// wins; finishing an already finished process is a no-op.
func (s *Store) FinishProcess(_ context.Context, id string, result *store.CommandResult, status store.ProcessStatus) error {
	if status != store.ProcessCompleted && status != store.ProcessTerminated {
		return fmt.Errorf("%w: %s is not a final process status", store.ErrInvalid, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.processes[id]
	if !ok {
		return fmt.Errorf("%w: process %s", store.ErrNotFound, id)
	}
	if p.Status != store.ProcessRunning {
		s.logger.Debug("process already finished", "process_id", id, "status", p.Status)
		return nil
	}

	now := time.Now()
	p.Status = status
	p.Result = cloneResult(result)
	p.FinishedAt = &now
	return nil
}

func (s *Store) DeleteSandboxProcesses(_ context.Context, sandboxID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, p := range s.processes {
		if p.SandboxID == sandboxID {
			delete(s.processes, id)
			delete(s.processLogs, id)
			n++
		}
	}
	return n, nil
}

// AppendProcessLog adds a line to a running process's log. Lines for
// finished processes are rejected with ErrConflict.
func (s *Store) AppendProcessLog(_ context.Context, processID, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.processes[processID]
	if !ok {
		return fmt.Errorf("%w: process %s", store.ErrNotFound, processID)
	}
	if p.Status != store.ProcessRunning {
		return fmt.Errorf("%w: process %s already finished", store.ErrConflict, processID)
	}
	s.processLogs[processID] = appendCapped(s.processLogs[processID], line)
	return nil
}

func (s *Store) ProcessLogs(_ context.Context, processID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.processes[processID]; !ok {
		return nil, fmt.Errorf("%w: process %s", store.ErrNotFound, processID)
	}
	lines := s.processLogs[processID]
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *Store) AppendSandboxLog(_ context.Context, sandboxID, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sandboxes[sandboxID]; !ok {
		return fmt.Errorf("%w: sandbox %s", store.ErrNotFound, sandboxID)
	}
	s.sandboxLogs[sandboxID] = appendCapped(s.sandboxLogs[sandboxID], line)
	return nil
}

func (s *Store) SandboxLogs(_ context.Context, sandboxID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sandboxes[sandboxID]; !ok {
		return nil, fmt.Errorf("%w: sandbox %s", store.ErrNotFound, sandboxID)
	}
	lines := s.sandboxLogs[sandboxID]
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

func appendCapped(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

func cloneSandbox(sb *store.Sandbox) *store.Sandbox {
	cp := *sb
	if sb.Configuration.Tags != nil {
		cp.Configuration.Tags = make(map[string]string, len(sb.Configuration.Tags))
		for k, v := range sb.Configuration.Tags {
			cp.Configuration.Tags[k] = v
		}
	}
	return &cp
}

func cloneProcess(p *store.Process) *store.Process {
	cp := *p
	cp.Result = cloneResult(p.Result)
	if p.FinishedAt != nil {
		t := *p.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

func cloneResult(r *store.CommandResult) *store.CommandResult {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
