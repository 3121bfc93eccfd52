// internal/handlers/bulk_request.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/i18n"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/services"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

type BulkRequestHandler struct {
	bulkRequestService *services.BulkRequestService
}

func NewBulkRequestHandler(bulkRequestService *services.BulkRequestService) *BulkRequestHandler {
	return &BulkRequestHandler{bulkRequestService: bulkRequestService}
}

type resolveOfferRequest struct {
	Status models.OfferStatus `json:"status" binding:"required"`
}

// POST /bulk-requests
func (h *BulkRequestHandler) CreateBulkRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.CreateBulkRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	request, replayed, err := h.bulkRequestService.CreateRequest(c.Request.Context(), p, req, c.GetHeader(idempotencyHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	created(c, replayed, gin.H{
		"message":      i18n.T(utils.GetLangFromContext(c), i18n.KeyBulkRequestCreated),
		"bulk_request": request,
	})
}

// GET /bulk-requests
func (h *BulkRequestHandler) GetBulkRequests(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	requests, total, err := h.bulkRequestService.ListOpen(c.Request.Context(), services.BulkRequestFilter{
		Pagination: params,
		Status:     models.RequestStatus(c.Query("status")),
		CropType:   c.Query("crop_type"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(requests, total, params))
}

// GET /bulk-requests/:id
func (h *BulkRequestHandler) GetBulkRequest(c *gin.Context) {
	request, err := h.bulkRequestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, request)
}

// PUT /bulk-requests/:id
func (h *BulkRequestHandler) UpdateBulkRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var patch services.UpdateBulkRequestRequest
	if !bindJSON(c, &patch) {
		return
	}

	request, err := h.bulkRequestService.UpdateRequest(c.Request.Context(), p, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(utils.GetLangFromContext(c), i18n.KeyBulkRequestUpdated),
		"bulk_request": request,
	})
}

// POST /bulk-requests/:id/offers
func (h *BulkRequestHandler) SubmitOffer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.SubmitOfferRequest
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.bulkRequestService.SubmitOffer(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferSubmitted),
		"bulk_request": request,
	})
}

// PUT /bulk-requests/:id/offers/:offerId
func (h *BulkRequestHandler) ResolveOffer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	offerID, ok := offerIDParam(c)
	if !ok {
		return
	}

	var req resolveOfferRequest
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.bulkRequestService.ResolveOffer(c.Request.Context(), p, c.Param("id"), offerID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferResolved),
		"bulk_request": request,
	})
}

// POST /bulk-requests/:id/offers/:offerId/order
func (h *BulkRequestHandler) ConvertOffer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	offerID, ok := offerIDParam(c)
	if !ok {
		return
	}

	order, isNew, err := h.bulkRequestService.ConvertOfferToOrder(c.Request.Context(), p, c.Param("id"), offerID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	c.JSON(status, utils.APIResponse{
		Success: true,
		Data: gin.H{
			"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferConverted),
			"order":   order,
		},
	})
}
