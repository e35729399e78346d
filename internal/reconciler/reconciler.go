// Package reconciler implements the container lifecycle engine. A single
// goroutine wakes on a fixed interval, lists every persisted record, and
// drives each one toward its runtime counterpart: Pending records get their
// workload created, Created records get it started, Running records are
// checked for drift, Removing records are torn down and deleted, and
// terminal records have leftover workloads cleaned up best-effort.
//
// The loop is the only writer of reconciliation transitions. Records are
// processed sequentially within a tick, and a failure on one record never
// stops the rest; only a failure to list the records abandons the tick.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"steward/internal/apperrors"
	"steward/internal/container"
	"steward/internal/observability"
	"steward/internal/runtime"
	"steward/pkg/backoff"
)

// Reconciler owns the reconciliation loop. Create one with New, run it
// with Start, and stop it with Shutdown.
type Reconciler struct {
	store   container.Store
	driver  runtime.Driver
	cfg     Config
	metrics *observability.Metrics
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Reconciler. A non-positive TickInterval falls back to 10
// seconds; a zero OpTimeout disables per-call deadlines.
func New(store container.Store, driver runtime.Driver, cfg Config, metrics *observability.Metrics) *Reconciler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Second
	}
	if cfg.OpTimeout < 0 {
		cfg.OpTimeout = 0
	}
	if cfg.RemoveRetries < 0 {
		cfg.RemoveRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Reconciler{
		store:   store,
		driver:  driver,
		cfg:     cfg,
		metrics: metrics,
		logger:  slog.With("component", "reconciler"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs the reconciliation loop until Shutdown is called. It blocks,
// so callers normally run it in its own goroutine. It returns an error only
// when the store or the runtime driver is unreachable at startup; after
// that, per-tick failures are logged and the loop keeps going.
func (r *Reconciler) Start() error {
	checkCtx, cancel := r.opContext(context.Background())
	defer cancel()

	if err := r.store.Ping(checkCtx); err != nil {
		return fmt.Errorf("record store unavailable: %w", err)
	}
	if err := r.driver.Ready(checkCtx); err != nil {
		return fmt.Errorf("runtime driver unavailable: %w", err)
	}

	r.logger.Info("Reconciler started",
		"tickInterval", r.cfg.TickInterval.String(),
		"opTimeout", r.cfg.OpTimeout.String(),
		"removeRetries", r.cfg.RemoveRetries)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Info("Reconciler stopped")
			return nil
		case <-ticker.C:
			// A tick already queued when Shutdown fires is discarded; no
			// new pass starts once stop has been requested.
			if r.ctx.Err() != nil {
				continue
			}
			// Each tick runs on its own context: shutdown is observed at
			// tick boundaries and never interrupts an in-flight pass.
			r.reconcileAll(context.Background())
		}
	}
}

// Shutdown requests the loop stop before its next tick. It does not block
// and is safe to call more than once; callers observe termination through
// Start returning.
func (r *Reconciler) Shutdown() {
	r.cancel()
}

// reconcileAll performs one full pass over the record set. A listing
// failure abandons the tick; any other failure is contained to its record.
func (r *Reconciler) reconcileAll(ctx context.Context) {
	start := time.Now()

	records, err := r.store.ListAll(ctx)
	if err != nil {
		r.logger.Error("Record listing failed, tick abandoned", "error", err)
		if r.metrics != nil {
			r.metrics.RecordTickAbandoned(ctx)
		}
		return
	}

	counts := make(map[container.Status]int, len(container.AllStatuses()))
	for i := range records {
		rec := &records[i]
		counts[rec.Status]++
		if err := r.reconcileRecord(ctx, rec); err != nil {
			r.logger.Error("Record reconciliation failed",
				"containerId", rec.ID,
				"status", rec.Status.String(),
				"error", err)
			if r.metrics != nil {
				r.metrics.RecordReconcileError(ctx, rec.Status.String())
			}
		}
	}

	if r.metrics != nil {
		r.metrics.RecordTick(ctx, time.Since(start).Seconds())
		for _, status := range container.AllStatuses() {
			r.metrics.RecordStatusCount(ctx, status.String(), int64(counts[status]))
		}
	}

	r.logger.Debug("Tick complete",
		"records", len(records),
		"duration", time.Since(start).String())
}

// reconcileRecord dispatches one record on its persisted status. Returned
// errors are store write failures; driver failures are resolved here into
// the status the record converges to.
func (r *Reconciler) reconcileRecord(ctx context.Context, rec *container.Record) error {
	switch rec.Status {
	case container.StatusPending:
		return r.createWorkload(ctx, rec)
	case container.StatusCreated:
		return r.startWorkload(ctx, rec)
	case container.StatusRunning:
		return r.observeWorkload(ctx, rec)
	case container.StatusRemoving:
		return r.teardown(ctx, rec)
	case container.StatusStopped, container.StatusFailed:
		return r.cleanupTerminal(ctx, rec)
	default:
		// Unrecognized statuses are left exactly as persisted so an
		// operator can inspect them.
		r.logger.Warn("Skipping record with unrecognized status",
			"containerId", rec.ID,
			"error", apperrors.Protocol(fmt.Sprintf("unrecognized status %q", string(rec.Status))))
		return nil
	}
}

// createWorkload handles Pending records: ask the driver to create the
// workload, then persist Created with the returned runtime id. A driver
// failure moves the record to Failed.
func (r *Reconciler) createWorkload(ctx context.Context, rec *container.Record) error {
	logger := r.logger.With("containerId", rec.ID, "name", rec.Name, "image", rec.Image)

	if rec.RuntimeID != "" {
		// Pending never carries a runtime id on the normal path. Creation
		// still proceeds; the fresh id overwrites the stale one.
		logger.Warn("Pending record already carries a runtime id", "runtimeId", rec.RuntimeID)
	}

	opCtx, cancel := r.opContext(ctx)
	runtimeID, err := r.driver.CreateWorkload(opCtx, rec.Name, rec.Image)
	cancel()
	if err != nil {
		logger.Error("Workload creation failed", "error", err)
		return r.transition(ctx, rec, container.StatusFailed, "")
	}

	logger.Info("Workload created", "runtimeId", runtimeID)
	return r.transition(ctx, rec, container.StatusCreated, runtimeID)
}

// startWorkload handles Created records: start the workload recorded by a
// previous tick. A driver failure moves the record to Failed; a missing
// runtime id is an anomaly that is logged and left alone.
func (r *Reconciler) startWorkload(ctx context.Context, rec *container.Record) error {
	logger := r.logger.With("containerId", rec.ID, "name", rec.Name)

	if rec.RuntimeID == "" {
		logger.Warn("Created record has no runtime id, skipping")
		return nil
	}

	opCtx, cancel := r.opContext(ctx)
	err := r.driver.StartWorkload(opCtx, rec.RuntimeID)
	cancel()
	if err != nil {
		logger.Error("Workload start failed", "runtimeId", rec.RuntimeID, "error", err)
		return r.transition(ctx, rec, container.StatusFailed, "")
	}

	logger.Info("Workload started", "runtimeId", rec.RuntimeID)
	return r.transition(ctx, rec, container.StatusRunning, "")
}

// observeWorkload handles Running records: inspect the live workload and
// fold any drift back into the record. Inspection failures are treated as
// transient and leave the record untouched for the next tick.
func (r *Reconciler) observeWorkload(ctx context.Context, rec *container.Record) error {
	logger := r.logger.With("containerId", rec.ID, "name", rec.Name)

	if rec.RuntimeID == "" {
		logger.Warn("Running record has no runtime id, skipping")
		return nil
	}

	opCtx, cancel := r.opContext(ctx)
	state, err := r.driver.InspectStatus(opCtx, rec.RuntimeID)
	cancel()
	if err != nil {
		logger.Warn("Workload inspection failed, leaving status unchanged",
			"runtimeId", rec.RuntimeID, "error", err)
		return nil
	}

	mapped := container.StatusFromRuntimeState(state)
	if mapped == container.StatusRunning {
		return nil
	}

	logger.Info("Workload state drifted", "runtimeId", rec.RuntimeID,
		"observedState", state, "newStatus", mapped.String())
	return r.transition(ctx, rec, mapped, "")
}

// teardown handles Removing records: stop the workload, remove it, and
// delete the record. Stop and remove are best-effort; the record is
// deleted even when the runtime refuses to let the workload go, so a
// removal request can never wedge a record in Removing.
func (r *Reconciler) teardown(ctx context.Context, rec *container.Record) error {
	logger := r.logger.With("containerId", rec.ID, "name", rec.Name)

	if rec.RuntimeID != "" {
		opCtx, cancel := r.opContext(ctx)
		if err := r.driver.StopWorkload(opCtx, rec.RuntimeID); err != nil {
			logger.Warn("Workload stop failed during teardown",
				"runtimeId", rec.RuntimeID, "error", err)
		}
		cancel()

		if err := r.removeWithRetry(ctx, rec.RuntimeID); err != nil {
			logger.Warn("Workload removal failed, runtime resources may be orphaned",
				"runtimeId", rec.RuntimeID, "error", err)
		}
	}

	if err := r.store.DeleteByID(ctx, rec.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	logger.Info("Record deleted after teardown")
	r.recordTransition(ctx, rec.Status.String(), "deleted")
	return nil
}

// cleanupTerminal handles Stopped and Failed records: remove a leftover
// workload if one is known, without touching the record. Failures are
// logged and retried naturally on the next tick.
func (r *Reconciler) cleanupTerminal(ctx context.Context, rec *container.Record) error {
	if rec.RuntimeID == "" {
		return nil
	}

	opCtx, cancel := r.opContext(ctx)
	err := r.driver.RemoveWorkload(opCtx, rec.RuntimeID)
	cancel()
	if err != nil {
		r.logger.Warn("Best-effort workload cleanup failed",
			"containerId", rec.ID,
			"status", rec.Status.String(),
			"runtimeId", rec.RuntimeID,
			"error", err)
		return nil
	}

	r.logger.Debug("Workload removed for terminal record",
		"containerId", rec.ID, "runtimeId", rec.RuntimeID)
	return nil
}

// removeWithRetry removes a workload, retrying with exponential backoff up
// to RemoveRetries extra attempts. It returns the last driver error when
// every attempt fails.
func (r *Reconciler) removeWithRetry(ctx context.Context, runtimeID string) error {
	var lastErr error

	for attempt := range r.cfg.RemoveRetries + 1 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff.Exponential(attempt, nil)):
			}
		}

		opCtx, cancel := r.opContext(ctx)
		lastErr = r.driver.RemoveWorkload(opCtx, runtimeID)
		cancel()
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}

// transition persists a status change and records it. An empty runtimeID
// leaves the stored runtime id untouched.
func (r *Reconciler) transition(ctx context.Context, rec *container.Record, to container.Status, runtimeID string) error {
	from := rec.Status

	updated, err := r.store.UpdateStatus(ctx, rec.ID, to, runtimeID)
	if err != nil {
		return err
	}

	*rec = *updated
	r.recordTransition(ctx, from.String(), to.String())
	return nil
}

func (r *Reconciler) recordTransition(ctx context.Context, from, to string) {
	if r.metrics != nil {
		r.metrics.RecordStatusTransition(ctx, from, to)
	}
}

// opContext bounds a single driver call so one hung call cannot stall the
// whole loop.
func (r *Reconciler) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.OpTimeout)
}
