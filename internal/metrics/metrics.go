package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rotisserie/eris"
)

// Outcome labels for ProviderCalls.
const (
	OutcomeSuccess = "success"
	OutcomeMiss    = "miss"
	OutcomeError   = "error"
)

type Metrics struct {
	ProviderCalls  *prometheus.CounterVec
	APIErrors      *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	ActiveWorkers  prometheus.Gauge
	RowsResolved   *prometheus.CounterVec
	BatchesSent    prometheus.Counter

	gatherer prometheus.Gatherer
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderCalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_provider_calls_total",
			Help: "Total number of geocoding provider invocations by outcome.",
		}, []string{"provider", "outcome"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_provider_api_errors_total",
			Help: "Total number of errors received from geocoding provider APIs.",
		}, []string{"provider"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meridian_provider_request_duration_seconds",
			Help:    "Duration of requests to geocoding provider APIs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "meridian_cascade_active_workers",
			Help: "Current number of cascade workers resolving addresses.",
		}),
		RowsResolved: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_rows_resolved_total",
			Help: "Total number of rows that received a geometry, by service.",
		}, []string{"service"}),
		BatchesSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "meridian_bulk_batches_submitted_total",
			Help: "Total number of batches submitted to the bulk geocoder.",
		}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	return m
}

// ObserveCall records one provider invocation.
func (m *Metrics) ObserveCall(provider, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
	m.RequestSeconds.WithLabelValues(provider).Observe(seconds)
	if outcome == OutcomeError {
		m.APIErrors.WithLabelValues(provider).Inc()
	}
}

// Push sends the registry contents to a Prometheus pushgateway. A batch run
// usually ends before a scrape, so this is how its numbers survive.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || m.gatherer == nil {
		return eris.New("metrics registry cannot be gathered")
	}

	if err := push.New(url, job).Gatherer(m.gatherer).PushContext(ctx); err != nil {
		return eris.Wrapf(err, "failed to push metrics to %s", url)
	}
	return nil
}
