// Package job implements client-side control of long-lived, versioned job
// resources and their pods.
package job

import "context"

// Operation names a remote procedure on the cluster service.
type Operation string

// Job service operations.
const (
	OpCreateJob  Operation = "CreateJob"
	OpStartJob   Operation = "StartJob"
	OpStopJob    Operation = "StopJob"
	OpRestartJob Operation = "RestartJob"
	OpDeleteJob  Operation = "DeleteJob"
	OpGetJob     Operation = "GetJob"
	OpQueryPods  Operation = "QueryPods"
)

// Pod service operations. These are unversioned: no entity version is
// checked and no concurrency control applies.
const (
	OpStartPod     Operation = "StartPod"
	OpStopPod      Operation = "StopPod"
	OpGetPod       Operation = "GetPod"
	OpGetPodEvents Operation = "GetPodEvents"
)

// Resource pool service operations.
const (
	OpLookupResourcePool Operation = "LookupResourcePool"
	OpCreateResourcePool Operation = "CreateResourcePool"
)

// Gateway is the RPC capability the control layer depends on. Given an
// operation name and a request payload it fills resp with the response or
// returns a classified failure (see internal/apperrors).
//
// The gateway is the sole owner of transport concerns: connection state,
// per-call timeouts, and mapping of transport errors onto the error
// taxonomy. A stale entity version surfaces as apperrors.ErrVersionConflict;
// the control layer never inspects raw transport errors.
//
// Implementations must be safe for concurrent use. The locally cached
// entity version on a Controller is not; callers sharing a Controller
// across goroutines must serialize mutating calls externally.
type Gateway interface {
	Invoke(ctx context.Context, op Operation, req, resp any) error
}
