// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess                = "success"
	KeyInternalError          = "error.internal"
	KeyAccessDenied           = "error.access_denied"
	KeyConflict               = "error.conflict"
	KeyConcurrentModification = "error.concurrent_modification"
	KeyRateLimited            = "error.rate_limited"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"

	// Orders
	KeyOrderCreated        = "order.created"
	KeyOrderNotFound       = "order.not_found"
	KeyOrderStatusUpdated  = "order.status_updated"
	KeyOrderPaymentUpdated = "order.payment_updated"
	KeyOrderItemNotFound   = "order_item.not_found"
	KeyOrderInsufficient   = "order.insufficient_quantity"

	// Bulk requests and offers
	KeyBulkRequestCreated  = "bulk_request.created"
	KeyBulkRequestUpdated  = "bulk_request.updated"
	KeyBulkRequestNotFound = "bulk_request.not_found"
	KeyBulkRequestNotOpen  = "bulk_request.not_open"
	KeyOfferSubmitted      = "offer.submitted"
	KeyOfferResolved       = "offer.resolved"
	KeyOfferNotFound       = "offer.not_found"
	KeyOfferDuplicate      = "offer.duplicate"
	KeyOfferConverted      = "offer.converted"
	KeyOfferNotAccepted    = "offer.not_accepted"
	KeyInvalidTransition   = "status.invalid_transition"
	KeyIdempotencyInFlight = "idempotency.in_flight"

	// Traceability
	KeyTraceabilityCreated  = "traceability.created"
	KeyTraceabilityNotFound = "traceability.not_found"
	KeyProcessingAppended   = "traceability.processing_appended"
	KeyQualityCheckAppended = "traceability.quality_check_appended"

	// Catalog
	KeyCropNotFound    = "crop.not_found"
	KeyProductNotFound = "product.not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
