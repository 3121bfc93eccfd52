package services

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/events"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/idempotency"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/metrics"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/testutil"
)

type fixture struct {
	db      *gorm.DB
	svc     *Services
	events  *events.Recorder
	metrics *metrics.Metrics
}

func newFixture(t testing.TB, policy TransitionPolicy) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	recorder := &events.Recorder{}
	m := metrics.New(prometheus.NewRegistry())

	svc := New(Dependencies{
		DB:              db,
		Policy:          policy,
		Idempotency:     idempotency.NewMemoryStore(),
		Events:          recorder,
		Metrics:         m,
		MaxWriteRetries: 5,
	})

	return &fixture{db: db, svc: svc, events: recorder, metrics: m}
}

func principalOf(u *models.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role, VerificationStatus: u.VerificationStatus}
}
