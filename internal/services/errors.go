// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of these so the
// HTTP layer can map it without inspecting messages.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInternal               = errors.New("internal error")
)

var (
	ErrEmptyOrder        = fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	ErrMixedSellers      = fmt.Errorf("%w: all items must belong to the same seller", ErrInvalidInput)
	ErrSelfOrder         = fmt.Errorf("%w: buyer and seller must be different users", ErrInvalidInput)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
	ErrInvalidPrice      = fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	ErrInvalidPriceRange = fmt.Errorf("%w: minimum price must not exceed maximum price", ErrInvalidInput)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown status", ErrInvalidInput)

	ErrOrderNotFound        = fmt.Errorf("%w: order", ErrNotFound)
	ErrItemNotFound         = fmt.Errorf("%w: order item", ErrNotFound)
	ErrCropNotFound         = fmt.Errorf("%w: crop", ErrNotFound)
	ErrProductNotFound      = fmt.Errorf("%w: product", ErrNotFound)
	ErrRequestNotFound      = fmt.Errorf("%w: bulk request", ErrNotFound)
	ErrOfferNotFound        = fmt.Errorf("%w: offer", ErrNotFound)
	ErrTraceabilityNotFound = fmt.Errorf("%w: traceability record", ErrNotFound)

	ErrNotOrderParty    = fmt.Errorf("%w: order is visible only to its buyer, seller or an admin", ErrForbidden)
	ErrNotOrderSeller   = fmt.Errorf("%w: only the seller or an admin may change order status", ErrForbidden)
	ErrNotRequestOwner  = fmt.Errorf("%w: only the processor who posted the request may do this", ErrForbidden)
	ErrRoleNotPermitted = fmt.Errorf("%w: role is not permitted to perform this operation", ErrForbidden)
	ErrNotItemOwner     = fmt.Errorf("%w: item belongs to another user", ErrForbidden)

	ErrInsufficientQuantity = fmt.Errorf("%w: requested quantity is not available", ErrConflict)
	ErrItemUnavailable      = fmt.Errorf("%w: item is not available for sale", ErrConflict)
	ErrRequestNotOpen       = fmt.Errorf("%w: bulk request is not open for offers", ErrConflict)
	ErrDuplicateOffer       = fmt.Errorf("%w: farmer already has an offer on this request", ErrConflict)
	ErrOfferNotAccepted     = fmt.Errorf("%w: only accepted offers can be converted to orders", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: status transition is not allowed", ErrConflict)
	ErrIdempotencyInFlight  = fmt.Errorf("%w: a request with this idempotency key is still in progress", ErrConflict)
)

var errorKinds = []error{ErrInvalidInput, ErrNotFound, ErrForbidden, ErrConflict, ErrConcurrentModification, ErrInternal}

func isKnownKind(err error) bool {
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// asInternal wraps infrastructure failures that do not already carry a kind.
func asInternal(err error) error {
	if err == nil || isKnownKind(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
