// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/i18n"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/services"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, replayed, err := h.orderService.Create(c.Request.Context(), p, req, c.GetHeader(idempotencyHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	created(c, replayed, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOrderCreated),
		"order":   order,
	})
}

// GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	orders, total, err := h.orderService.List(c.Request.Context(), p, services.OrderListParams{
		Pagination: params,
		Role:       c.Query("role"),
		Status:     models.OrderStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// PUT /orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOrderStatusUpdated),
		"order":   order,
	})
}

// PUT /orders/:id/payment
func (h *OrderHandler) UpdateOrderPayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdatePayment(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOrderPaymentUpdated),
		"order":   order,
	})
}
