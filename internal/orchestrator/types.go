package orchestrator

import "github.com/habbes/sandstorm/internal/store"

// CreateSandboxRequest is the request for creating a sandbox.
type CreateSandboxRequest struct {
	Configuration *store.SandboxConfiguration `json:"configuration,omitempty"`
}

// RunCommandRequest is the request for running a command in a sandbox.
// SandboxID is optional in the body; when set it must match the URL.
type RunCommandRequest struct {
	SandboxID string `json:"sandboxId,omitempty"`
	Command   string `json:"command"`
}

// AgentInfo is the REST representation of a registered agent.
type AgentInfo struct {
	AgentID       string  `json:"agentId"`
	SandboxID     string  `json:"sandboxId"`
	VMID          string  `json:"vmId,omitempty"`
	Version       string  `json:"version,omitempty"`
	Status        string  `json:"status"`
	Connected     bool    `json:"connected"`
	RegisteredAt  string  `json:"registeredAt"`
	LastHeartbeat string  `json:"lastHeartbeat"`
	CPUPercent    float64 `json:"cpuPercent,omitempty"`
	MemoryBytes   int64   `json:"memoryBytes,omitempty"`
	DiskBytes     int64   `json:"diskBytes,omitempty"`
	ProcessCount  int32   `json:"processCount,omitempty"`
}
