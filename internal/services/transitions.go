// internal/services/transitions.go
package services

import (
	"fmt"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

// TransitionPolicy decides which status changes are legal. The zero value is
// permissive: any known status may follow any other. Strict mode enforces the
// conventional forward-only lifecycles below.
type TransitionPolicy struct {
	Strict bool
}

var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled, models.OrderStatusRejected},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
}

var requestTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.RequestStatusOpen: {
		models.RequestStatusPartiallyFulfilled, models.RequestStatusFulfilled,
		models.RequestStatusClosed, models.RequestStatusCancelled,
	},
	models.RequestStatusPartiallyFulfilled: {
		models.RequestStatusFulfilled, models.RequestStatusClosed, models.RequestStatusCancelled,
	},
	models.RequestStatusFulfilled: {models.RequestStatusClosed},
}

func (p TransitionPolicy) CheckOrderStatus(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: order status %q", ErrInvalidStatus, to)
	}
	if !p.Strict || contains(orderTransitions[from], to) {
		return nil
	}
	return fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, from, to)
}

func (p TransitionPolicy) CheckRequestStatus(from, to models.RequestStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: bulk request status %q", ErrInvalidStatus, to)
	}
	if !p.Strict || from == to || contains(requestTransitions[from], to) {
		return nil
	}
	return fmt.Errorf("%w: bulk request %s -> %s", ErrInvalidTransition, from, to)
}

// CheckOfferResolution only admits accepted or rejected as targets. In strict
// mode an offer can be resolved once.
func (p TransitionPolicy) CheckOfferResolution(from, to models.OfferStatus) error {
	if to != models.OfferStatusAccepted && to != models.OfferStatusRejected {
		return fmt.Errorf("%w: offer status %q", ErrInvalidStatus, to)
	}
	if !p.Strict || from == models.OfferStatusPending {
		return nil
	}
	return fmt.Errorf("%w: offer already %s", ErrInvalidTransition, from)
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
