package store

import (
	"context"
	"sync"
	"time"

	"steward/internal/apperrors"
	"steward/internal/container"
)

// Memory is an in-memory container.Store with thread-safe access. Records are
// stored by value; callers never share memory with the store's internal map.
type Memory struct {
	mu      sync.RWMutex
	records map[string]container.Record
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]container.Record),
	}
}

// ListAll returns a snapshot of every record.
func (m *Memory) ListAll(ctx context.Context) ([]container.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]container.Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, nil
}

// GetByID returns a copy of the record with the given id.
func (m *Memory) GetByID(ctx context.Context, id string) (*container.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.records[id]
	if !exists {
		return nil, apperrors.NotFound("container", id)
	}
	return &rec, nil
}

// Insert stores a new record. Returns a conflict error if the id exists.
func (m *Memory) Insert(ctx context.Context, rec *container.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return apperrors.Conflict("container", rec.ID, "container already exists")
	}
	m.records[rec.ID] = *rec
	return nil
}

// UpdateStatus sets the record's status, refreshes updated_at, and persists
// the runtime handle when one is supplied.
func (m *Memory) UpdateStatus(ctx context.Context, id string, status container.Status, runtimeID string) (*container.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.records[id]
	if !exists {
		return nil, apperrors.NotFound("container", id)
	}

	rec.Status = status
	if runtimeID != "" {
		rec.RuntimeID = runtimeID
	}
	rec.UpdatedAt = time.Now().UTC()
	m.records[id] = rec

	return &rec, nil
}

// DeleteByID removes the record.
func (m *Memory) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return apperrors.NotFound("container", id)
	}
	delete(m.records, id)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
