package container

import (
	"time"

	"github.com/google/uuid"
)

// Record is the persisted lifecycle record for one workload container.
//
// RuntimeID is the opaque handle returned by the runtime driver once the
// workload exists there. It is empty while the record is Pending, and once
// set it is never cleared; the record is simply deleted when teardown
// completes.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Status    Status    `json:"status"`
	RuntimeID string    `json:"runtime_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord builds a Pending record for the given name and image with a fresh
// id and matching creation/update timestamps.
func NewRecord(name, image string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:        uuid.NewString(),
		Name:      name,
		Image:     image,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes the update timestamp.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// CreateRequest is the payload accepted by the creation API.
type CreateRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ListResponse is the payload returned by the listing API.
type ListResponse struct {
	Containers []Record `json:"containers"`
	Count      int      `json:"count"`
}
