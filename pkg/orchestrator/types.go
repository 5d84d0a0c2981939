package orchestrator

import (
	"context"
	"time"

	"github.com/prowlsec/prowl/pkg/plugin"
	"github.com/prowlsec/prowl/pkg/resource"
)

// State is the orchestrator's position in the per-invocation state machine.
type State string

const (
	StateResolving            State = "resolving"
	StateAdmitting            State = "admitting"
	StateDispatchingLocal     State = "dispatching_local"
	StateDispatchingContainer State = "dispatching_container"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// Dispatch modes.
const (
	DispatchLocal     = "local"
	DispatchContainer = "container"
)

// Report is the outcome of one orchestrated run.
type Report struct {
	RunID       string            `json:"run_id"`
	Plugin      string            `json:"plugin"`
	Target      string            `json:"target,omitempty"`
	Dispatch    string            `json:"dispatch"`
	State       State             `json:"state"`
	Result      *plugin.RunResult `json:"result"`
	Elapsed     time.Duration     `json:"elapsed"`
	ContainerID string            `json:"container_id,omitempty"`
}

// Succeeded reports whether the run completed with a success result.
func (r *Report) Succeeded() bool {
	return r.State == StateCompleted
}

// ResourceGate is the resource-management surface the orchestrator needs:
// admission checks, local process tracking, and container dispatch.
// *resource.Manager satisfies it.
type ResourceGate interface {
	CheckResources(ctx context.Context, req *resource.Requirement) (bool, string)
	DockerAvailable() bool
	RunInContainer(ctx context.Context, image string, command []string,
		volumes map[string]string, environment map[string]string,
		limits *resource.Requirement, name string) (string, error)
	ContainerStatus(ctx context.Context, id string) (*resource.ContainerStatus, error)
	StopContainer(ctx context.Context, id string) bool
	RemoveContainer(ctx context.Context, id string)
	TrackProcess(pid int32, name string, req *resource.Requirement)
	UntrackProcess(pid int32)
	Usage() (*resource.Snapshot, error)
}
