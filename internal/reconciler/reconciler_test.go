package reconciler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"steward/internal/apperrors"
	"steward/internal/container"
	"steward/internal/runtime"
	"steward/internal/store"
	"steward/internal/testutil"
)

// fakeDriver scripts runtime behavior for loop tests. Counters are atomic so
// tests can poll them while the loop runs in its own goroutine.
type fakeDriver struct {
	createID   string
	createErr  error
	startErr   error
	stopErr    error
	removeErr  error
	inspectErr error
	readyErr   error

	// inspectState is what InspectStatus reports for a live workload.
	inspectState string

	// removeFailures fails this many remove calls before removal succeeds.
	removeFailures atomic.Int64

	createCalls  atomic.Int64
	startCalls   atomic.Int64
	stopCalls    atomic.Int64
	removeCalls  atomic.Int64
	inspectCalls atomic.Int64

	sawDeadline     atomic.Bool
	missingDeadline atomic.Bool
}

var _ runtime.Driver = (*fakeDriver)(nil)

func (d *fakeDriver) CreateWorkload(ctx context.Context, name, image string) (string, error) {
	d.createCalls.Add(1)
	d.noteDeadline(ctx)
	if d.createErr != nil {
		return "", d.createErr
	}
	return d.createID, nil
}

func (d *fakeDriver) StartWorkload(ctx context.Context, runtimeID string) error {
	d.startCalls.Add(1)
	d.noteDeadline(ctx)
	return d.startErr
}

func (d *fakeDriver) StopWorkload(ctx context.Context, runtimeID string) error {
	d.stopCalls.Add(1)
	d.noteDeadline(ctx)
	return d.stopErr
}

func (d *fakeDriver) RemoveWorkload(ctx context.Context, runtimeID string) error {
	d.removeCalls.Add(1)
	d.noteDeadline(ctx)
	if d.removeFailures.Load() > 0 {
		d.removeFailures.Add(-1)
		return errors.New("removal refused")
	}
	return d.removeErr
}

func (d *fakeDriver) InspectStatus(ctx context.Context, runtimeID string) (string, error) {
	d.inspectCalls.Add(1)
	d.noteDeadline(ctx)
	if d.inspectErr != nil {
		return "", d.inspectErr
	}
	return d.inspectState, nil
}

func (d *fakeDriver) Ready(ctx context.Context) error {
	return d.readyErr
}

func (d *fakeDriver) Close() error {
	return nil
}

func (d *fakeDriver) noteDeadline(ctx context.Context) {
	if _, ok := ctx.Deadline(); ok {
		d.sawDeadline.Store(true)
	} else {
		d.missingDeadline.Store(true)
	}
}

// flakyStore wraps a real store to force failures on selected operations.
type flakyStore struct {
	container.Store
	listErr   error
	pingErr   error
	updateErr map[string]error // record id -> forced UpdateStatus failure

	// listGate, when non-nil, blocks each ListAll until the gate is closed;
	// listStarted signals that a pass has entered ListAll.
	listGate    chan struct{}
	listStarted chan struct{}
	listCalls   atomic.Int64
}

func (s *flakyStore) ListAll(ctx context.Context) ([]container.Record, error) {
	s.listCalls.Add(1)
	if s.listStarted != nil {
		select {
		case s.listStarted <- struct{}{}:
		default:
		}
	}
	if s.listGate != nil {
		<-s.listGate
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.ListAll(ctx)
}

func (s *flakyStore) UpdateStatus(ctx context.Context, id string, status container.Status, runtimeID string) (*container.Record, error) {
	if err, ok := s.updateErr[id]; ok {
		return nil, err
	}
	return s.Store.UpdateStatus(ctx, id, status, runtimeID)
}

func (s *flakyStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.Store.Ping(ctx)
}

func seedRecord(t *testing.T, s container.Store, id string, status container.Status, runtimeID string) container.Record {
	t.Helper()

	now := time.Now().UTC().Add(-time.Minute)
	rec := container.Record{
		ID:        id,
		Name:      "web-" + id,
		Image:     "nginx:latest",
		Status:    status,
		RuntimeID: runtimeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Insert(context.Background(), &rec); err != nil {
		t.Fatalf("Failed to seed record: %v", err)
	}
	return rec
}

func mustGet(t *testing.T, s container.Store, id string) *container.Record {
	t.Helper()

	rec, err := s.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to get record %s: %v", id, err)
	}
	return rec
}

func TestReconcilePendingCreatesWorkload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{createID: "rt-1"}
	seeded := seedRecord(t, st, "c1", container.StatusPending, "")

	r := New(st, drv, Config{OpTimeout: 5 * time.Second}, nil)
	r.reconcileAll(ctx)

	if got := drv.createCalls.Load(); got != 1 {
		t.Errorf("Expected 1 create call, got %d", got)
	}

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusCreated {
		t.Errorf("Expected status Created, got %s", rec.Status)
	}
	if rec.RuntimeID != "rt-1" {
		t.Errorf("Expected runtime id rt-1, got %q", rec.RuntimeID)
	}
	if !rec.UpdatedAt.After(seeded.UpdatedAt) {
		t.Error("Expected updated_at to advance on transition")
	}
}

func TestReconcilePendingCreateFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{createErr: errors.New("image not found")}
	seedRecord(t, st, "c1", container.StatusPending, "")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusFailed {
		t.Errorf("Expected status Failed, got %s", rec.Status)
	}
	if rec.RuntimeID != "" {
		t.Errorf("Expected no runtime id, got %q", rec.RuntimeID)
	}
}

func TestReconcilePendingWithStaleRuntimeID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{createID: "rt-fresh"}
	seedRecord(t, st, "c1", container.StatusPending, "rt-stale")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	// A leftover runtime id never blocks creation.
	if got := drv.createCalls.Load(); got != 1 {
		t.Errorf("Expected 1 create call despite stale runtime id, got %d", got)
	}

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusCreated {
		t.Errorf("Expected status Created, got %s", rec.Status)
	}
	if rec.RuntimeID != "rt-fresh" {
		t.Errorf("Expected fresh runtime id to replace the stale one, got %q", rec.RuntimeID)
	}
}

func TestReconcilePendingDuplicateCreateConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{createErr: errors.New("container name already in use")}
	seedRecord(t, st, "c1", container.StatusPending, "rt-stale")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusFailed {
		t.Errorf("Expected duplicate creation to surface as Failed, got %s", rec.Status)
	}
	if rec.RuntimeID != "rt-stale" {
		t.Errorf("Expected stale runtime id preserved for diagnosis, got %q", rec.RuntimeID)
	}
}

func TestReconcileCreatedStartsWorkload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{}
	seedRecord(t, st, "c1", container.StatusCreated, "rt-1")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	if got := drv.startCalls.Load(); got != 1 {
		t.Errorf("Expected 1 start call, got %d", got)
	}

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusRunning {
		t.Errorf("Expected status Running, got %s", rec.Status)
	}
	if rec.RuntimeID != "rt-1" {
		t.Errorf("Expected runtime id preserved, got %q", rec.RuntimeID)
	}
}

func TestReconcileCreatedStartFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{startErr: errors.New("port already in use")}
	seedRecord(t, st, "c1", container.StatusCreated, "rt-1")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusFailed {
		t.Errorf("Expected status Failed, got %s", rec.Status)
	}
	if rec.RuntimeID != "rt-1" {
		t.Errorf("Expected runtime id preserved for diagnosis, got %q", rec.RuntimeID)
	}
}

func TestReconcileCreatedMissingRuntimeID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{}
	seeded := seedRecord(t, st, "c1", container.StatusCreated, "")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	if got := drv.startCalls.Load(); got != 0 {
		t.Errorf("Expected no start calls, got %d", got)
	}

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusCreated {
		t.Errorf("Expected status unchanged, got %s", rec.Status)
	}
	if !rec.UpdatedAt.Equal(seeded.UpdatedAt) {
		t.Error("Expected no write for anomalous record")
	}
}

func TestReconcileRunningStillRunning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{inspectState: "running"}
	seeded := seedRecord(t, st, "c1", container.StatusRunning, "rt-1")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	if got := drv.inspectCalls.Load(); got != 1 {
		t.Errorf("Expected 1 inspect call, got %d", got)
	}

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusRunning {
		t.Errorf("Expected status unchanged, got %s", rec.Status)
	}
	if !rec.UpdatedAt.Equal(seeded.UpdatedAt) {
		t.Error("Expected no write when nothing drifted")
	}
}

func TestReconcileRunningDrift(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		state      string
		wantStatus container.Status
	}{
		{"exited maps to Stopped", "exited", container.StatusStopped},
		{"paused maps to Stopped", "paused", container.StatusStopped},
		{"dead maps to Stopped", "dead", container.StatusStopped},
		{"created maps to Created", "created", container.StatusCreated},
		{"unrecognized defaults to Stopped", "restarting", container.StatusStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := store.NewMemory()
			drv := &fakeDriver{inspectState: tt.state}
			seedRecord(t, st, "c1", container.StatusRunning, "rt-1")

			r := New(st, drv, Config{}, nil)
			r.reconcileAll(ctx)

			rec := mustGet(t, st, "c1")
			if rec.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, rec.Status)
			}
			if rec.RuntimeID != "rt-1" {
				t.Errorf("Expected runtime id preserved, got %q", rec.RuntimeID)
			}
		})
	}
}

func TestReconcileRunningInspectError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{inspectErr: errors.New("daemon busy")}
	seeded := seedRecord(t, st, "c1", container.StatusRunning, "rt-1")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	rec := mustGet(t, st, "c1")
	if rec.Status != container.StatusRunning {
		t.Errorf("Expected transient inspect failure to leave status, got %s", rec.Status)
	}
	if !rec.UpdatedAt.Equal(seeded.UpdatedAt) {
		t.Error("Expected no write on transient inspect failure")
	}
}

func TestReconcileRemovingTearsDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	// Stop refusing does not block teardown.
	drv := &fakeDriver{stopErr: errors.New("already stopped")}
	seedRecord(t, st, "c1", container.StatusRemoving, "rt-1")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	if got := drv.stopCalls.Load(); got != 1 {
		t.Errorf("Expected 1 stop call, got %d", got)
	}
	if got := drv.removeCalls.Load(); got != 1 {
		t.Errorf("Expected 1 remove call, got %d", got)
	}

	if _, err := st.GetByID(ctx, "c1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected record deleted, got %v", err)
	}
}

func TestReconcileRemovingRemoveFailsStillDeletes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{removeErr: errors.New("device busy")}
	seedRecord(t, st, "c1", container.StatusRemoving, "rt-1")

	r := New(st, drv, Config{RemoveRetries: 2}, nil)
	r.reconcileAll(ctx)

	// One initial attempt plus two retries.
	if got := drv.removeCalls.Load(); got != 3 {
		t.Errorf("Expected 3 remove attempts, got %d", got)
	}

	if _, err := st.GetByID(ctx, "c1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected record deleted despite removal failure, got %v", err)
	}
}

func TestReconcileRemovingRetriesUntilRemoved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{}
	drv.removeFailures.Store(1)
	seedRecord(t, st, "c1", container.StatusRemoving, "rt-1")

	r := New(st, drv, Config{RemoveRetries: 2}, nil)
	r.reconcileAll(ctx)

	if got := drv.removeCalls.Load(); got != 2 {
		t.Errorf("Expected retry to stop after success, got %d attempts", got)
	}

	if _, err := st.GetByID(ctx, "c1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected record deleted, got %v", err)
	}
}

func TestReconcileRemovingWithoutRuntimeID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{}
	seedRecord(t, st, "c1", container.StatusRemoving, "")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	if got := drv.stopCalls.Load() + drv.removeCalls.Load(); got != 0 {
		t.Errorf("Expected no driver calls, got %d", got)
	}

	if _, err := st.GetByID(ctx, "c1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected record deleted, got %v", err)
	}
}

func TestReconcileTerminalCleanup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		status    container.Status
		removeErr error
	}{
		{"stopped workload removed", container.StatusStopped, nil},
		{"failed workload removed", container.StatusFailed, nil},
		{"stopped removal refused", container.StatusStopped, errors.New("device busy")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := store.NewMemory()
			drv := &fakeDriver{removeErr: tt.removeErr}
			seeded := seedRecord(t, st, "c1", tt.status, "rt-9")

			r := New(st, drv, Config{}, nil)
			r.reconcileAll(ctx)

			if got := drv.removeCalls.Load(); got != 1 {
				t.Errorf("Expected 1 remove call, got %d", got)
			}

			rec := mustGet(t, st, "c1")
			if rec.Status != tt.status {
				t.Errorf("Expected status unchanged, got %s", rec.Status)
			}
			if !rec.UpdatedAt.Equal(seeded.UpdatedAt) {
				t.Error("Expected terminal cleanup to never write the record")
			}
		})
	}
}

func TestReconcileTerminalWithoutRuntimeID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{}
	seedRecord(t, st, "c1", container.StatusFailed, "")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	if got := drv.removeCalls.Load(); got != 0 {
		t.Errorf("Expected no remove calls, got %d", got)
	}
}

func TestReconcileUnrecognizedStatusSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{}
	seeded := seedRecord(t, st, "c1", container.Status("Archived"), "rt-1")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	calls := drv.createCalls.Load() + drv.startCalls.Load() + drv.stopCalls.Load() +
		drv.removeCalls.Load() + drv.inspectCalls.Load()
	if calls != 0 {
		t.Errorf("Expected no driver calls for unrecognized status, got %d", calls)
	}

	rec := mustGet(t, st, "c1")
	if rec.Status != container.Status("Archived") {
		t.Errorf("Expected status preserved verbatim, got %s", rec.Status)
	}
	if !rec.UpdatedAt.Equal(seeded.UpdatedAt) {
		t.Error("Expected no write for unrecognized status")
	}
}

func TestReconcileIsolatesRecordFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemory()
	st := &flakyStore{
		Store:     mem,
		updateErr: map[string]error{"c2": errors.New("disk full")},
	}
	drv := &fakeDriver{createID: "rt-1"}

	seedRecord(t, mem, "c1", container.StatusPending, "")
	seedRecord(t, mem, "c2", container.StatusCreated, "rt-2")
	seedRecord(t, mem, "c3", container.StatusRemoving, "rt-3")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	// c2's write failed but both neighbors converged.
	if rec := mustGet(t, mem, "c1"); rec.Status != container.StatusCreated {
		t.Errorf("Expected c1 Created, got %s", rec.Status)
	}
	if rec := mustGet(t, mem, "c2"); rec.Status != container.StatusCreated {
		t.Errorf("Expected c2 unchanged, got %s", rec.Status)
	}
	if _, err := mem.GetByID(ctx, "c3"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected c3 deleted, got %v", err)
	}
}

func TestReconcileListingFailureAbandonsTick(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemory()
	st := &flakyStore{Store: mem, listErr: errors.New("database locked")}
	drv := &fakeDriver{createID: "rt-1"}
	seedRecord(t, mem, "c1", container.StatusPending, "")

	r := New(st, drv, Config{}, nil)
	r.reconcileAll(ctx)

	if got := drv.createCalls.Load(); got != 0 {
		t.Errorf("Expected abandoned tick to touch no records, got %d create calls", got)
	}
	if rec := mustGet(t, mem, "c1"); rec.Status != container.StatusPending {
		t.Errorf("Expected c1 untouched, got %s", rec.Status)
	}
}

func TestDriverCallsCarryDeadline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{createID: "rt-1", inspectState: "running"}

	seedRecord(t, st, "c1", container.StatusPending, "")
	seedRecord(t, st, "c2", container.StatusCreated, "rt-2")
	seedRecord(t, st, "c3", container.StatusRunning, "rt-3")
	seedRecord(t, st, "c4", container.StatusRemoving, "rt-4")
	seedRecord(t, st, "c5", container.StatusStopped, "rt-5")

	r := New(st, drv, Config{OpTimeout: 5 * time.Second}, nil)
	r.reconcileAll(ctx)

	if !drv.sawDeadline.Load() {
		t.Error("Expected driver calls to carry a deadline")
	}
	if drv.missingDeadline.Load() {
		t.Error("Expected every driver call to carry a deadline")
	}
}

func TestDriverCallsUnboundedWhenTimeoutDisabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{createID: "rt-1"}
	seedRecord(t, st, "c1", container.StatusPending, "")

	r := New(st, drv, Config{OpTimeout: 0}, nil)
	r.reconcileAll(ctx)

	if drv.sawDeadline.Load() {
		t.Error("Expected no deadline when the per-call timeout is disabled")
	}
}

func TestStartAndShutdown(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	drv := &fakeDriver{inspectState: "running"}
	seedRecord(t, st, "c1", container.StatusRunning, "rt-1")

	r := New(st, drv, Config{TickInterval: 10 * time.Millisecond}, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start()
	}()

	// Let at least two full ticks run.
	testutil.MustWaitForCount(t, &drv.inspectCalls, 2, testutil.WithInterval(5*time.Millisecond))

	r.Shutdown()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestShutdownDiscardsQueuedTick(t *testing.T) {
	t.Parallel()
	st := &flakyStore{
		Store:       store.NewMemory(),
		listGate:    make(chan struct{}),
		listStarted: make(chan struct{}, 1),
	}
	drv := &fakeDriver{}

	r := New(st, drv, Config{TickInterval: time.Millisecond}, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start()
	}()

	// Hold the first pass open on ListAll until the ticker has queued
	// another tick behind it, then shut down before releasing the pass.
	<-st.listStarted
	time.Sleep(20 * time.Millisecond)
	r.Shutdown()
	close(st.listGate)

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}

	if got := st.listCalls.Load(); got != 1 {
		t.Errorf("Expected the queued tick to be discarded after Shutdown, got %d passes", got)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	drv := &fakeDriver{}
	seedRecord(t, st, "c1", container.StatusPending, "")

	r := New(st, drv, Config{TickInterval: 10 * time.Millisecond}, nil)
	r.Shutdown()
	r.Shutdown() // idempotent

	if err := r.Start(); err != nil {
		t.Errorf("Expected Start to return nil after early shutdown, got %v", err)
	}
	if got := drv.createCalls.Load(); got != 0 {
		t.Errorf("Expected no tick to run, got %d create calls", got)
	}
}

func TestStartFailsWhenDriverUnavailable(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	drv := &fakeDriver{readyErr: errors.New("cannot connect to daemon")}

	r := New(st, drv, Config{}, nil)
	if err := r.Start(); err == nil {
		t.Error("Expected Start to fail when the driver is unreachable")
	}
}

func TestStartFailsWhenStoreUnavailable(t *testing.T) {
	t.Parallel()
	st := &flakyStore{Store: store.NewMemory(), pingErr: errors.New("database closed")}
	drv := &fakeDriver{}

	r := New(st, drv, Config{}, nil)
	if err := r.Start(); err == nil {
		t.Error("Expected Start to fail when the store is unreachable")
	}
}

func TestLifecycleConvergesAcrossTicks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	drv := &fakeDriver{createID: "rt-1", inspectState: "running"}
	seedRecord(t, st, "c1", container.StatusPending, "")

	r := New(st, drv, Config{TickInterval: 10 * time.Millisecond}, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start()
	}()
	defer func() {
		r.Shutdown()
		<-errCh
	}()

	testutil.MustWaitFor(t, func() bool {
		rec, err := st.GetByID(ctx, "c1")
		return err == nil && rec.Status == container.StatusRunning
	}, testutil.WithInterval(5*time.Millisecond))

	rec := mustGet(t, st, "c1")
	if rec.RuntimeID != "rt-1" {
		t.Errorf("Expected runtime id rt-1 after convergence, got %q", rec.RuntimeID)
	}

	// A removal request drains the record out of the system.
	if _, err := st.UpdateStatus(ctx, "c1", container.StatusRemoving, ""); err != nil {
		t.Fatalf("Failed to request removal: %v", err)
	}

	testutil.MustWaitFor(t, func() bool {
		_, err := st.GetByID(ctx, "c1")
		return errors.Is(err, apperrors.ErrNotFound)
	}, testutil.WithInterval(5*time.Millisecond))
}
