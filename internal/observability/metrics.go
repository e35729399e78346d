package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long requests and reconcile passes take
// - Traffic: Request throughput and status transitions
// - Errors: Rate of failures
// - Saturation: Records tracked per lifecycle status
type Metrics struct {
	meter metric.Meter

	// HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Container API metrics (Traffic)
	ContainersCreated metric.Int64Counter
	RemovalsRequested metric.Int64Counter

	// Reconciler metrics (Latency, Traffic, Errors, Saturation)
	TickDuration     metric.Float64Histogram
	TicksTotal       metric.Int64Counter
	TicksAbandoned   metric.Int64Counter
	TransitionsTotal metric.Int64Counter
	ReconcileErrors  metric.Int64Counter
	RecordsByStatus  metric.Int64Gauge
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("steward")
	m := &Metrics{meter: meter}

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Container API metrics
	m.ContainersCreated, err = meter.Int64Counter(
		"containers_created_total",
		metric.WithDescription("Total number of container records accepted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RemovalsRequested, err = meter.Int64Counter(
		"container_removals_requested_total",
		metric.WithDescription("Total number of removal requests accepted"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Reconciler metrics
	m.TickDuration, err = meter.Float64Histogram(
		"reconcile_tick_duration_seconds",
		metric.WithDescription("Reconcile pass latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TicksTotal, err = meter.Int64Counter(
		"reconcile_ticks_total",
		metric.WithDescription("Total number of completed reconcile passes"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TicksAbandoned, err = meter.Int64Counter(
		"reconcile_ticks_abandoned_total",
		metric.WithDescription("Total number of passes abandoned because listing records failed"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TransitionsTotal, err = meter.Int64Counter(
		"container_status_transitions_total",
		metric.WithDescription("Total number of persisted status transitions"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ReconcileErrors, err = meter.Int64Counter(
		"reconcile_record_errors_total",
		metric.WithDescription("Total number of records whose reconciliation failed"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RecordsByStatus, err = meter.Int64Gauge(
		"containers_by_status",
		metric.WithDescription("Number of container records per lifecycle status (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		httpStatusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordContainerCreated records a container record being accepted.
func (m *Metrics) RecordContainerCreated(ctx context.Context, image string) {
	m.ContainersCreated.Add(ctx, 1, metric.WithAttributes(imageAttr(image)))
}

// RecordRemovalRequested records a removal request being accepted.
func (m *Metrics) RecordRemovalRequested(ctx context.Context, image string) {
	m.RemovalsRequested.Add(ctx, 1, metric.WithAttributes(imageAttr(image)))
}

// RecordTick records a completed reconcile pass with its duration.
func (m *Metrics) RecordTick(ctx context.Context, durationSeconds float64) {
	m.TicksTotal.Add(ctx, 1)
	m.TickDuration.Record(ctx, durationSeconds)
}

// RecordTickAbandoned records a pass abandoned before any record was
// processed.
func (m *Metrics) RecordTickAbandoned(ctx context.Context) {
	m.TicksAbandoned.Add(ctx, 1)
}

// RecordStatusTransition records a persisted status change, including the
// final transition out of Removing into deletion.
func (m *Metrics) RecordStatusTransition(ctx context.Context, from, to string) {
	m.TransitionsTotal.Add(ctx, 1, metric.WithAttributes(fromAttr(from), toAttr(to)))
}

// RecordReconcileError records a record-local reconciliation failure.
func (m *Metrics) RecordReconcileError(ctx context.Context, status string) {
	m.ReconcileErrors.Add(ctx, 1, metric.WithAttributes(recordStatusAttr(status)))
}

// RecordStatusCount records how many records currently hold a status.
func (m *Metrics) RecordStatusCount(ctx context.Context, status string, count int64) {
	m.RecordsByStatus.Record(ctx, count, metric.WithAttributes(recordStatusAttr(status)))
}
