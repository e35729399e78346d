// Package container defines the container record model, its status
// enumeration, and the record store capability consumed by the API layer and
// the reconciliation engine.
package container

import "context"

// Store defines the durable keyed storage capability for container records.
// Implementations live in internal/store.
//
// # Write ordering
//
// The store is the arbiter of concurrent mutation: the reconciler and the
// HTTP front-end call it independently, and whichever write lands last wins.
// The engine re-reads every record at the next tick and proceeds from
// whatever status it finds, so implementations need no cross-record locking,
// only per-call safety for concurrent use.
//
// # Status fidelity
//
// Implementations persist Status as its exact string name and must return
// whatever string is stored, even when it is outside the known enumeration.
// Unrecognized values are the engine's to report; masking them to a default
// in the store would hide corruption.
type Store interface {
	// ListAll returns every record. The returned slice is a snapshot; callers
	// may mutate it freely.
	ListAll(ctx context.Context) ([]Record, error)

	// GetByID returns the record with the given id, or a not found error.
	GetByID(ctx context.Context, id string) (*Record, error)

	// Insert persists a new record. Inserting an id that already exists is an
	// error.
	Insert(ctx context.Context, rec *Record) error

	// UpdateStatus sets the record's status and refreshes its update
	// timestamp, returning the stored result. A non-empty runtimeID is
	// persisted alongside; an empty runtimeID leaves the stored handle
	// untouched, since a handle is never cleared once set.
	UpdateStatus(ctx context.Context, id string, status Status, runtimeID string) (*Record, error)

	// DeleteByID removes the record. Deleting an absent id is an error.
	DeleteByID(ctx context.Context, id string) error

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
