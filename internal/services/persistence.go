// internal/services/persistence.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/metrics"
)

var (
	errStaleVersion    = errors.New("aggregate version changed since it was read")
	errIdentifierTaken = errors.New("generated identifier already exists")
)

// aggregateWriter runs read-modify-write transactions against a single aggregate
// row. A transaction that loses a version check or draws an identifier that is
// already stored is retried from the read.
type aggregateWriter struct {
	db         *gorm.DB
	maxRetries int
	metrics    *metrics.Metrics
}

func (w *aggregateWriter) run(ctx context.Context, aggregate string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		err = w.db.WithContext(ctx).Transaction(fn)

		switch {
		case errors.Is(err, errStaleVersion):
			w.metrics.WriteRetried(aggregate, "stale_version")
		case errors.Is(err, errIdentifierTaken):
			w.metrics.IdentifierCollision(aggregate)
			w.metrics.WriteRetried(aggregate, "identifier_collision")
		default:
			return asInternal(err)
		}

		logrus.WithFields(logrus.Fields{
			"aggregate": aggregate,
			"attempt":   attempt,
		}).WithError(err).Warn("Retrying aggregate write")

		if ctxErr := ctx.Err(); ctxErr != nil {
			return asInternal(ctxErr)
		}
	}

	if errors.Is(err, errStaleVersion) {
		return fmt.Errorf("%w: %s was modified by %d concurrent writers", ErrConcurrentModification, aggregate, w.maxRetries)
	}
	return fmt.Errorf("%w: could not allocate a unique %s identifier: %w", ErrInternal, aggregate, err)
}

// saveVersioned writes fields only if the row still carries the version that was
// read, and bumps the version. table is an empty model value naming the table.
func saveVersioned(tx *gorm.DB, table interface{}, id uuid.UUID, version int64, fields map[string]interface{}) error {
	fields["version"] = version + 1

	res := tx.Model(table).Where("id = ? AND version = ?", id, version).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStaleVersion
	}
	return nil
}

// createWithIdentifier inserts a new aggregate, mapping a unique violation to a
// retryable identifier collision.
func createWithIdentifier(tx *gorm.DB, value interface{}) error {
	if err := tx.Create(value).Error; err != nil {
		if isUniqueViolation(err) {
			return errIdentifierTaken
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// byReference matches either the primary key or the human-readable identifier column.
func byReference(tx *gorm.DB, ref, column string) *gorm.DB {
	if id, err := uuid.Parse(ref); err == nil {
		return tx.Where("id = ?", id)
	}
	return tx.Where(column+" = ?", ref)
}

func findOne(tx *gorm.DB, dest interface{}, notFound error) error {
	if err := tx.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound
		}
		return err
	}
	return nil
}
