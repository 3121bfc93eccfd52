// internal/services/services.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/events"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/idempotency"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/metrics"
)

const publishTimeout = 5 * time.Second

type Dependencies struct {
	DB              *gorm.DB
	Identifiers     *IdentifierGenerator
	Policy          TransitionPolicy
	Idempotency     idempotency.Store
	IdempotencyTTL  time.Duration
	Events          events.Publisher
	Archive         *ArchiveService
	Metrics         *metrics.Metrics
	MaxWriteRetries int
	Clock           func() time.Time
}

type Services struct {
	Orders       *OrderService
	BulkRequests *BulkRequestService
	Traceability *TraceabilityService
}

func New(deps Dependencies) *Services {
	w := newWorkflow(deps)
	orders := &OrderService{workflow: w}
	return &Services{
		Orders:       orders,
		BulkRequests: &BulkRequestService{workflow: w, orders: orders},
		Traceability: &TraceabilityService{workflow: w, archive: deps.Archive, directory: NewUserDirectory(deps.DB)},
	}
}

// workflow is the plumbing shared by the three aggregate services.
type workflow struct {
	db             *gorm.DB
	writer         *aggregateWriter
	ids            *IdentifierGenerator
	policy         TransitionPolicy
	idempotency    idempotency.Store
	idempotencyTTL time.Duration
	events         events.Publisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

func newWorkflow(d Dependencies) *workflow {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Identifiers == nil {
		d.Identifiers = NewIdentifierGenerator(d.Clock)
	}
	if d.Idempotency == nil {
		d.Idempotency = idempotency.NewMemoryStore()
	}
	if d.IdempotencyTTL <= 0 {
		d.IdempotencyTTL = 24 * time.Hour
	}
	if d.Events == nil {
		d.Events = events.NoopPublisher{}
	}
	if d.MaxWriteRetries < 1 {
		d.MaxWriteRetries = 5
	}

	return &workflow{
		db:             d.DB,
		writer:         &aggregateWriter{db: d.DB, maxRetries: d.MaxWriteRetries, metrics: d.Metrics},
		ids:            d.Identifiers,
		policy:         d.Policy,
		idempotency:    d.Idempotency,
		idempotencyTTL: d.IdempotencyTTL,
		events:         d.Events,
		metrics:        d.Metrics,
		now:            d.Clock,
	}
}

func (w *workflow) timestamp() time.Time {
	return w.now().UTC()
}

// publish sends evt after the owning transaction committed. Failures are logged
// and counted; the caller's result stands.
func (w *workflow) publish(ctx context.Context, evt events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := w.events.Publish(ctx, evt); err != nil {
		w.metrics.EventPublishFailed(evt.Type)
		logrus.WithFields(logrus.Fields{
			"event_type": evt.Type,
			"reference":  evt.Reference,
		}).WithError(err).Error("Failed to publish domain event")
	}
}

// idempotentCreate runs create at most once per (scope, principal, key). A replay
// loads the aggregate the first call produced.
func idempotentCreate[T any](
	ctx context.Context,
	w *workflow,
	scope string,
	p Principal,
	clientKey string,
	create func() (*T, string, error),
	load func(id string) (*T, error),
) (*T, bool, error) {
	if clientKey == "" {
		result, _, err := create()
		return result, false, err
	}

	key := idempotency.Key(scope, p.UserID.String(), clientKey)
	existing, err := w.idempotency.Reserve(ctx, key, w.idempotencyTTL)
	if errors.Is(err, idempotency.ErrInFlight) {
		return nil, false, ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, false, asInternal(err)
	}
	if existing != "" {
		result, err := load(existing)
		return result, true, err
	}

	result, id, err := create()
	if err != nil {
		if relErr := w.idempotency.Release(ctx, key); relErr != nil {
			logrus.WithError(relErr).WithField("scope", scope).Warn("Failed to release idempotency key")
		}
		return nil, false, err
	}

	if err := w.idempotency.Complete(ctx, key, id, w.idempotencyTTL); err != nil {
		logrus.WithError(err).WithField("scope", scope).Error("Failed to record idempotency result")
	}
	return result, false, nil
}

func requireRole(p Principal, allowed func(Principal) bool, action string) error {
	if allowed(p) {
		return nil
	}
	return fmt.Errorf("%w: %s cannot %s", ErrRoleNotPermitted, p.Role, action)
}
