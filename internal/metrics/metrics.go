// Package metrics exposes Prometheus collectors for the HTTP surface and the
// order, negotiation and provenance workflows.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	OrdersCreated      *prometheus.CounterVec
	OrderStatusChanges *prometheus.CounterVec
	PaymentUpdates     *prometheus.CounterVec

	BulkRequestsCreated prometheus.Counter
	OffersSubmitted     prometheus.Counter
	OffersResolved      *prometheus.CounterVec
	OffersConverted     prometheus.Counter

	ProvenanceEvents *prometheus.CounterVec

	WriteRetries         *prometheus.CounterVec
	IdentifierCollisions *prometheus.CounterVec
	EventPublishFailures *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Orders created by order type",
		}, []string{"order_type"}),
		OrderStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_order_status_changes_total",
			Help: "Order status updates by target status",
		}, []string{"status"}),
		PaymentUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_order_payment_updates_total",
			Help: "Order payment updates by payment status",
		}, []string{"payment_status"}),

		BulkRequestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_bulk_requests_created_total",
			Help: "Bulk requests posted by processors",
		}),
		OffersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_offers_submitted_total",
			Help: "Offers appended to bulk requests",
		}),
		OffersResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_offers_resolved_total",
			Help: "Offer resolutions by outcome",
		}, []string{"status"}),
		OffersConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_offers_converted_total",
			Help: "Accepted offers converted into orders",
		}),

		ProvenanceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_provenance_events_total",
			Help: "Traceability ledger writes by kind",
		}, []string{"kind"}),

		WriteRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_write_retries_total",
			Help: "Aggregate writes retried after a version or identifier conflict",
		}, []string{"aggregate", "reason"}),
		IdentifierCollisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_identifier_collisions_total",
			Help: "Generated identifiers rejected by a uniqueness constraint",
		}, []string{"aggregate"}),
		EventPublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_event_publish_failures_total",
			Help: "Domain events that could not be published",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPDuration,
		m.OrdersCreated, m.OrderStatusChanges, m.PaymentUpdates,
		m.BulkRequestsCreated, m.OffersSubmitted, m.OffersResolved, m.OffersConverted,
		m.ProvenanceEvents,
		m.WriteRetries, m.IdentifierCollisions, m.EventPublishFailures,
	)

	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) OrderCreated(orderType string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(orderType).Inc()
}

func (m *Metrics) OrderStatusChanged(status string) {
	if m == nil {
		return
	}
	m.OrderStatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) PaymentUpdated(status string) {
	if m == nil {
		return
	}
	m.PaymentUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) BulkRequestCreated() {
	if m == nil {
		return
	}
	m.BulkRequestsCreated.Inc()
}

func (m *Metrics) OfferSubmitted() {
	if m == nil {
		return
	}
	m.OffersSubmitted.Inc()
}

func (m *Metrics) OfferResolved(status string) {
	if m == nil {
		return
	}
	m.OffersResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) OfferConverted() {
	if m == nil {
		return
	}
	m.OffersConverted.Inc()
}

func (m *Metrics) ProvenanceEvent(kind string) {
	if m == nil {
		return
	}
	m.ProvenanceEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) WriteRetried(aggregate, reason string) {
	if m == nil {
		return
	}
	m.WriteRetries.WithLabelValues(aggregate, reason).Inc()
}

func (m *Metrics) IdentifierCollision(aggregate string) {
	if m == nil {
		return
	}
	m.IdentifierCollisions.WithLabelValues(aggregate).Inc()
}

func (m *Metrics) EventPublishFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventPublishFailures.WithLabelValues(eventType).Inc()
}
