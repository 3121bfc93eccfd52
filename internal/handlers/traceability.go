// internal/handlers/traceability.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/i18n"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/services"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

type TraceabilityHandler struct {
	traceabilityService *services.TraceabilityService
}

func NewTraceabilityHandler(traceabilityService *services.TraceabilityService) *TraceabilityHandler {
	return &TraceabilityHandler{traceabilityService: traceabilityService}
}

// POST /traceability
func (h *TraceabilityHandler) OpenTraceability(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.OpenTraceabilityRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.traceabilityService.Open(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(utils.GetLangFromContext(c), i18n.KeyTraceabilityCreated),
		"traceability": record,
	})
}

// POST /traceability/:batchId/processing
func (h *TraceabilityHandler) AppendProcessingStage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.ProcessingStageRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.traceabilityService.AppendProcessingStage(c.Request.Context(), p, c.Param("batchId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(utils.GetLangFromContext(c), i18n.KeyProcessingAppended),
		"traceability": record,
	})
}

// POST /traceability/:batchId/quality-checks
func (h *TraceabilityHandler) AppendQualityCheck(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.QualityCheckRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.traceabilityService.AppendQualityCheck(c.Request.Context(), p, c.Param("batchId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(utils.GetLangFromContext(c), i18n.KeyQualityCheckAppended),
		"traceability": record,
	})
}

// GET /traceability/:batchId
func (h *TraceabilityHandler) LookupTraceability(c *gin.Context) {
	view, err := h.traceabilityService.Lookup(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}
