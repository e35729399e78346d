// Package runtime defines the driver interface for the external container
// runtime.
package runtime

import "context"

// Driver is the capability surface the reconciler uses to control workloads
// in the external runtime. Workloads are keyed by the opaque runtime
// identifier returned from CreateWorkload.
//
// # Ownership
//
// The driver holds no record state: the record store is the source of truth
// and the reconciler is the only caller that mutates workloads. Drivers must
// be safe for concurrent use; the reconciler and the health checker call them
// independently.
//
// # Errors
//
// Every method reports failure through its error return and nothing else.
// The reconciler decides what a failure means for the record (Failed status,
// transient no-op, or best-effort teardown); drivers should not retry or mask
// errors themselves.
type Driver interface {
	// CreateWorkload creates, but does not start, a workload for the given
	// name and image, returning its runtime identifier. Creating a name that
	// already exists in the runtime is an error.
	CreateWorkload(ctx context.Context, name, image string) (string, error)

	// StartWorkload starts a created workload.
	StartWorkload(ctx context.Context, runtimeID string) error

	// StopWorkload stops a running workload, granting it the configured
	// grace period before it is killed.
	StopWorkload(ctx context.Context, runtimeID string) error

	// RemoveWorkload removes a workload and its runtime resources. The
	// workload does not need to be stopped first.
	RemoveWorkload(ctx context.Context, runtimeID string) error

	// InspectStatus returns the runtime's state string for a workload, e.g.
	// "running" or "exited". The vocabulary is runtime-defined; callers map
	// it onto the record enumeration.
	InspectStatus(ctx context.Context, runtimeID string) (string, error)

	// Ready checks if the runtime backend is reachable.
	Ready(ctx context.Context) error

	// Close releases resources held by the driver.
	// Workloads are NOT stopped - they continue independently.
	Close() error
}
