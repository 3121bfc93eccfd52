package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OrderCreated("crop")
	m.OrderCreated("crop")
	m.OfferResolved("accepted")
	m.ObserveRequest(http.MethodPost, "/v1/orders", http.StatusCreated, 20*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.OrdersCreated.WithLabelValues("crop")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OffersResolved.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/v1/orders", "201")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OrderCreated("bulk")
		m.WriteRetried("order", "stale_version")
		m.EventPublishFailed("order.created")
		m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	})
}
