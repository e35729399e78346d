package container

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"steward/internal/apperrors"
	"steward/internal/observability"
)

// Validation limits
const (
	maxNameLength  = 63
	maxImageLength = 255
)

// namePattern allows alphanumeric, hyphens, underscores, and dots, matching
// what common runtimes accept as a container name.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Service is the front-end facade over the record store.
//
// The Service never talks to the runtime driver: creation persists a Pending
// record and deletion marks the record Removing, and the reconciler performs
// every runtime action asynchronously. This keeps the request path free of
// runtime latency and failure modes, and keeps the engine the only writer of
// lifecycle transitions.
type Service struct {
	store   Store
	metrics *observability.Metrics
}

// NewService creates a new container service.
func NewService(store Store, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		metrics: metrics,
	}
}

// Create validates the request and persists a new Pending record. The runtime
// workload does not exist yet when this returns; the reconciler creates it on
// a subsequent tick.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Record, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	rec := NewRecord(req.Name, req.Image)
	logger := slog.With("containerId", rec.ID, "name", rec.Name, "image", rec.Image)

	if err := s.store.Insert(ctx, rec); err != nil {
		logger.Error("Container record creation failed", "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordContainerCreated(ctx, rec.Image)
	}

	logger.Info("Container record created")

	return rec, nil
}

// Get returns the record with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, apperrors.Validation("id", "container ID is required")
	}
	return s.store.GetByID(ctx, id)
}

// List returns all records.
func (s *Service) List(ctx context.Context) (*ListResponse, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Containers: records, Count: len(records)}, nil
}

// MarkForRemoval flags the record for asynchronous teardown. The reconciler
// stops and removes the runtime workload on a later tick and then deletes the
// record. Marking a record that is already Removing is a no-op and returns
// the record unchanged.
func (s *Service) MarkForRemoval(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, apperrors.Validation("id", "container ID is required")
	}

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger := slog.With("containerId", rec.ID, "name", rec.Name)

	if !rec.Status.CanMarkRemoving() {
		logger.Info("Container already marked for removal")
		return rec, nil
	}

	updated, err := s.store.UpdateStatus(ctx, id, StatusRemoving, "")
	if err != nil {
		logger.Error("Container removal request failed", "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRemovalRequested(ctx, rec.Image)
	}

	logger.Info("Container marked for removal")

	return updated, nil
}

// validate validates a creation request. Does not modify the request.
func (s *Service) validate(req *CreateRequest) error {
	if req.Name == "" {
		return apperrors.Validation("name", "container name is required")
	}
	if len(req.Name) > maxNameLength {
		return apperrors.Validation("name", fmt.Sprintf("container name exceeds maximum length of %d", maxNameLength))
	}
	if !namePattern.MatchString(req.Name) {
		return apperrors.Validation("name", "container name must be alphanumeric (hyphens, underscores and dots allowed, cannot lead)")
	}

	if req.Image == "" {
		return apperrors.Validation("image", "image is required")
	}
	if len(req.Image) > maxImageLength {
		return apperrors.Validation("image", fmt.Sprintf("image exceeds maximum length of %d", maxImageLength))
	}
	if strings.ContainsAny(req.Image, " \t\n") {
		return apperrors.Validation("image", "image must not contain whitespace")
	}

	return nil
}
