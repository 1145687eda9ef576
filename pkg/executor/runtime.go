package executor

import (
	"context"
	"errors"
)

// Sentinel errors the orchestrator classifies on. Implementations wrap
// these with fmt.Errorf("…: %w", …) so detail is preserved.
var (
	// ErrImageNotFound means the sandbox image/template is not present on
	// the isolation backend. This is an environment misconfiguration, not
	// a failure of the generated code, and is never retried.
	ErrImageNotFound = errors.New("sandbox image not found")

	// ErrContainerFailed means the isolation backend raised a distinct
	// container-error signal, as opposed to the generated code merely
	// exiting non-zero.
	ErrContainerFailed = errors.New("container failed")
)

// Handle identifies one live sandbox instance. A handle belongs to exactly
// one in-flight request and must be destroyed before that request returns.
type Handle struct {
	ID string
}

// Bind is a read-only binding exposing a host file inside the sandbox.
type Bind struct {
	HostPath    string
	SandboxPath string
}

// RunSpec describes the sandbox instance to create. Resource limits are
// fixed policy of the Runtime implementation, not part of the spec.
type RunSpec struct {
	Image   string
	Command []string
	Binds   []Bind
	Env     []string

	// Network is the backend-visible network to attach, or empty for the
	// backend's default isolation policy.
	Network string

	// Name is the instance name, unique per execution.
	Name string
}

// Runtime is the isolation backend client. Implementations must be safe
// for concurrent use by independent executions.
type Runtime interface {
	// CreateAndStart creates and starts a sandbox instance. Errors wrap
	// ErrImageNotFound when the image is absent.
	CreateAndStart(ctx context.Context, spec RunSpec) (Handle, error)

	// Wait blocks until the instance reaches a terminal state or the
	// context deadline fires. On deadline the implementation must stop
	// the instance before returning context.DeadlineExceeded; the
	// backend is not trusted to enforce the deadline itself. The first
	// return value is the instance's exit code.
	Wait(ctx context.Context, h Handle) (int64, error)

	// Logs returns the instance's combined stdout and stderr as one
	// interleaved byte stream.
	Logs(ctx context.Context, h Handle) ([]byte, error)

	// Destroy force-removes the instance. It is idempotent and never
	// fails upward: removal problems are logged and swallowed so they
	// cannot mask the primary result.
	Destroy(h Handle)
}

// NetworkResolver maps a logical network name onto the name the isolation
// backend actually knows, or empty when no match exists. It isolates the
// deployment-tool naming conventions from the planning logic.
type NetworkResolver interface {
	Resolve(ctx context.Context, name string) string
}
