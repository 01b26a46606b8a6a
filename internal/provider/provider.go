// Package provider abstracts the machinery that turns sandbox
// configurations into running VMs.
package provider

import (
	"context"

	"github.com/habbes/sandstorm/internal/store"
)

// CreateResult is what a provider hands back for a freshly provisioned
// sandbox VM.
type CreateResult struct {
	VMHandle string
	PublicIP string
}

// CloudProvider provisions and destroys sandbox VMs. Implementations must
// be safe for concurrent use.
type CloudProvider interface {
	// BuildDefaultImage produces the image used for sandboxes created
	// without one. orchestratorEndpoint is baked into the image so agents
	// know where to register. The call may take minutes; the orchestrator
	// serializes and memoizes it.
	BuildDefaultImage(ctx context.Context, orchestratorEndpoint string) (string, error)

	// CreateSandbox provisions a VM for the sandbox and returns its
	// provider handle and, when available, a public IP.
	CreateSandbox(ctx context.Context, sandboxID string, cfg store.SandboxConfiguration, orchestratorEndpoint string) (*CreateResult, error)

	// DeleteSandbox destroys the VM behind a handle. Deleting an unknown
	// handle is not an error.
	DeleteSandbox(ctx context.Context, vmHandle string) error
}
