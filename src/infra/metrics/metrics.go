// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"metadirectory/src/core/domain"
	"metadirectory/src/core/ports"
)

var _ ports.Metrics = (*Metrics)(nil)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	heartbeats      prometheus.Counter
	fieldsRejected  *prometheus.CounterVec
	updatesDenied   prometheus.Counter
	domainsDeleted  prometheus.Counter
	cascadeFailures prometheus.Counter
	enumFailures    prometheus.Counter
	requests        *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "directory_heartbeats_accepted_total",
			Help: "Domain updates committed, heartbeats included.",
		}),
		fieldsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_fields_rejected_total",
			Help: "Fields skipped during domain updates, by field and reason.",
		}, []string{"field", "reason"}),
		updatesDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "directory_updates_denied_total",
			Help: "Domain updates rejected by the permission gate.",
		}),
		domainsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "directory_domains_deleted_total",
			Help: "Domains removed by administrators.",
		}),
		cascadeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "directory_place_cascade_failures_total",
			Help: "Places that could not be removed after their domain was deleted.",
		}),
		enumFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "directory_place_enumeration_failures_total",
			Help: "Domain deletes whose places could not be listed, leaving possible orphans.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "directory_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(
		m.heartbeats,
		m.fieldsRejected,
		m.updatesDenied,
		m.domainsDeleted,
		m.cascadeFailures,
		m.enumFailures,
		m.requests,
	)
	return m
}

func (m *Metrics) HeartbeatAccepted() { m.heartbeats.Inc() }

func (m *Metrics) FieldRejected(field domain.Field, reason string) {
	m.fieldsRejected.WithLabelValues(string(field), reason).Inc()
}

func (m *Metrics) UpdateDenied() { m.updatesDenied.Inc() }

func (m *Metrics) DomainDeleted() { m.domainsDeleted.Inc() }

func (m *Metrics) PlaceCascadeFailed() { m.cascadeFailures.Inc() }

func (m *Metrics) PlaceEnumerationFailed() { m.enumFailures.Inc() }

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
