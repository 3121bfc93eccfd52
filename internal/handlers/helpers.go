// internal/handlers/helpers.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/i18n"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/services"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

const idempotencyHeader = "Idempotency-Key"

// principal converts the claims stored by middleware.AuthRequired into the
// explicit principal every service call takes. It writes a 401 and returns false
// when the claims are missing or malformed.
func principal(c *gin.Context) (services.Principal, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return services.Principal{}, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthInvalidToken))
		return services.Principal{}, false
	}

	role, _ := utils.GetRoleFromContext(c)
	verification, _ := utils.GetVerificationStatusFromContext(c)

	return services.Principal{
		UserID:             userID,
		Role:               models.Role(role),
		VerificationStatus: models.VerificationStatus(verification),
	}, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// offerIDParam parses :offerId. A malformed id cannot name an existing offer,
// so it is reported as not found.
func offerIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("offerId"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: %q", services.ErrOfferNotFound, c.Param("offerId")))
		return uuid.Nil, false
	}
	return id, true
}

// created answers 201 for a new aggregate and 200 when an idempotency key
// replayed an earlier one.
func created(c *gin.Context, replayed bool, data interface{}) {
	if replayed {
		c.Header("Idempotent-Replayed", "true")
		utils.SuccessResponse(c, data)
		return
	}
	utils.CreatedResponse(c, data)
}

var notFoundResources = []struct {
	err      error
	resource string
}{
	{services.ErrOrderNotFound, "order"},
	{services.ErrRequestNotFound, "bulk_request"},
	{services.ErrOfferNotFound, "offer"},
	{services.ErrTraceabilityNotFound, "traceability"},
	{services.ErrCropNotFound, "crop"},
	{services.ErrProductNotFound, "product"},
	{services.ErrItemNotFound, "order_item"},
}

var conflictCodes = []struct {
	err  error
	code string
	key  string
}{
	{services.ErrDuplicateOffer, "DUPLICATE_OFFER", i18n.KeyOfferDuplicate},
	{services.ErrRequestNotOpen, "REQUEST_NOT_OPEN", i18n.KeyBulkRequestNotOpen},
	{services.ErrOfferNotAccepted, "OFFER_NOT_ACCEPTED", i18n.KeyOfferNotAccepted},
	{services.ErrInvalidTransition, "INVALID_TRANSITION", i18n.KeyInvalidTransition},
	{services.ErrInsufficientQuantity, "INSUFFICIENT_QUANTITY", i18n.KeyOrderInsufficient},
	{services.ErrItemUnavailable, "ITEM_UNAVAILABLE", i18n.KeyOrderInsufficient},
	{services.ErrIdempotencyInFlight, "IDEMPOTENCY_IN_FLIGHT", i18n.KeyIdempotencyInFlight},
}

// respondError maps a service error kind onto the response envelope.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		if details := utils.GetValidationErrors(err); len(details) > 0 {
			utils.ValidationErrorResponse(c, details)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)

	case errors.Is(err, services.ErrNotFound):
		resource := "order_item"
		for _, r := range notFoundResources {
			if errors.Is(err, r.err) {
				resource = r.resource
				break
			}
		}
		utils.NotFoundResponse(c, resource, err.Error())

	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "", err.Error())

	case errors.Is(err, services.ErrConcurrentModification):
		utils.ConflictResponse(c, "")

	case errors.Is(err, services.ErrConflict):
		code, key := "CONFLICT", i18n.KeyConflict
		for _, cc := range conflictCodes {
			if errors.Is(err, cc.err) {
				code, key = cc.code, cc.key
				break
			}
		}
		utils.ErrorResponse(c, http.StatusBadRequest, code, i18n.T(lang, key), err.Error())

	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"route":  c.FullPath(),
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}
