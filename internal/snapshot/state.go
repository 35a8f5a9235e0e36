package snapshot

import (
	"errors"
	"time"
)

var (
	ErrControllerNotReady = errors.New("snapshot controller is not ready; ensure it is installed and running")
	ErrMissingSourcePod   = errors.New("sandbox pod name not found; ensure the sandbox is created")
	ErrTimeout            = errors.New("timed out waiting for the controller")
	ErrUnresolvedBinding  = errors.New("snapshot reference could not be resolved to a ready snapshot")
)

// State is the mutable state of one session. It is passed to every engine
// explicitly and must not be shared between goroutines.
type State struct {
	// ControllerReady only ever changes from false to true.
	ControllerReady bool

	// CreatedTriggers lists the triggers created by this session in creation
	// order. Cleanup deletes them and their snapshots.
	CreatedTriggers []string

	// PodName is the source pod for checkpoints. It is empty for sessions
	// that only restore.
	PodName string

	Namespace          string
	TemplateName       string
	Labels             map[string]string
	PodSnapshotTimeout time.Duration

	// Binding is set by ResolveAndBind and applied to restore claims.
	Binding *Binding
}

// Binding ties restore claims to a specific snapshot.
type Binding struct {
	Trigger      string
	SnapshotName string
	SnapshotUID  string
}

// Result is the outcome of a command-style operation. Failures are reported
// with a non-zero ExitCode and a message in Stderr, never as Go errors.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

func success(stdout string) Result {
	return Result{Stdout: stdout}
}

func failure(err error) Result {
	return Result{Stderr: err.Error(), ExitCode: 1}
}
