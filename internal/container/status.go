package container

import (
	"encoding/json"
	"fmt"

	"steward/internal/apperrors"
)

// Status is the lifecycle state of a container record. It is the single
// enumeration used by the API layer, the store, and the reconciler; the
// persisted form is the exact string name of each constant.
type Status string

const (
	// StatusPending means the record exists but has no runtime counterpart yet.
	StatusPending Status = "Pending"
	// StatusCreated means the runtime counterpart exists but is not started.
	StatusCreated Status = "Created"
	// StatusRunning means the runtime counterpart is believed running.
	StatusRunning Status = "Running"
	// StatusStopped means the runtime counterpart exists but is not running.
	StatusStopped Status = "Stopped"
	// StatusFailed means an operation failed; the record is retained for diagnostics.
	StatusFailed Status = "Failed"
	// StatusRemoving means deletion was requested; the runtime counterpart is
	// torn down and then the record itself is deleted.
	StatusRemoving Status = "Removing"
)

// AllStatuses lists every known status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusCreated,
		StatusRunning,
		StatusStopped,
		StatusFailed,
		StatusRemoving,
	}
}

// ParseStatus converts a persisted string into a Status. Unrecognized values
// are rejected rather than mapped to a default so that corrupt or
// foreign-version rows surface instead of silently changing meaning.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", apperrors.Protocol(fmt.Sprintf("unrecognized status %q", s))
	}
	return status, nil
}

// IsValid reports whether the status is a member of the known enumeration.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCreated, StatusRunning, StatusStopped, StatusFailed, StatusRemoving:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the engine takes no further lifecycle action for
// the status beyond best-effort runtime cleanup. Terminal records stay until
// an external request re-triggers them or marks them for removal.
func (s Status) IsTerminal() bool {
	return s == StatusStopped || s == StatusFailed
}

// CanMarkRemoving reports whether a removal request is allowed from this
// status. Every status qualifies except Removing itself; the only state after
// Removing is absence.
func (s Status) CanMarkRemoving() bool {
	return s != StatusRemoving
}

// String returns the persisted string form.
func (s Status) String() string {
	return string(s)
}

// MarshalJSON emits the persisted string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON parses strictly; unknown values are an error, never a default.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// runtimeStateMap translates the state strings reported by the runtime driver
// into the record enumeration. Anything not listed maps to Stopped: a state
// the engine does not understand is treated as "exists but not running".
var runtimeStateMap = map[string]Status{
	"created": StatusCreated,
	"running": StatusRunning,
	"exited":  StatusStopped,
	"paused":  StatusStopped,
	"dead":    StatusStopped,
}

// StatusFromRuntimeState maps a driver-reported state string onto the
// enumeration. Unlike ParseStatus this is deliberately lenient; the runtime's
// vocabulary is not under our control and defaults to Stopped.
func StatusFromRuntimeState(state string) Status {
	if status, ok := runtimeStateMap[state]; ok {
		return status
	}
	return StatusStopped
}
