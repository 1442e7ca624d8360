package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/reporthere/reporthere"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Event log metrics
	EventsLoggedTotal metric.Int64Counter

	// Claim workflow metrics
	ClaimsSubmittedTotal metric.Int64Counter
	ClaimsApprovedTotal  metric.Int64Counter

	// Complaint metrics
	ComplaintsFiledTotal metric.Int64Counter

	// Outbox metrics
	EmailsQueuedTotal metric.Int64Counter
	EmailsSentTotal   metric.Int64Counter
	EmailsFailedTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.EventsLoggedTotal, _ = meter.Int64Counter(
		"reporthere.events.logged.total",
		metric.WithDescription("Total number of platform events appended to the log"),
		metric.WithUnit("{event}"),
	)

	m.ClaimsSubmittedTotal, _ = meter.Int64Counter(
		"reporthere.claims.submitted.total",
		metric.WithDescription("Total number of company claims submitted"),
		metric.WithUnit("{claim}"),
	)

	m.ClaimsApprovedTotal, _ = meter.Int64Counter(
		"reporthere.claims.approved.total",
		metric.WithDescription("Total number of company claims approved"),
		metric.WithUnit("{claim}"),
	)

	m.ComplaintsFiledTotal, _ = meter.Int64Counter(
		"reporthere.complaints.filed.total",
		metric.WithDescription("Total number of consumer complaints filed"),
		metric.WithUnit("{complaint}"),
	)

	m.EmailsQueuedTotal, _ = meter.Int64Counter(
		"reporthere.emails.queued.total",
		metric.WithDescription("Total number of emails enqueued to the outbox"),
		metric.WithUnit("{email}"),
	)

	m.EmailsSentTotal, _ = meter.Int64Counter(
		"reporthere.emails.sent.total",
		metric.WithDescription("Total number of emails delivered by the outbox worker"),
		metric.WithUnit("{email}"),
	)

	m.EmailsFailedTotal, _ = meter.Int64Counter(
		"reporthere.emails.failed.total",
		metric.WithDescription("Total number of emails that exhausted delivery attempts"),
		metric.WithUnit("{email}"),
	)

	return m
}
