// internal/services/order_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/events"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

const orderCreatedNote = "Order created"

type OrderService struct {
	*workflow
}

type OrderItemRequest struct {
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	ItemType models.ItemType `json:"item_type" validate:"required,oneof=crop product"`
	Quantity decimal.Decimal `json:"quantity"`
}

type CreateOrderRequest struct {
	OrderType       models.OrderType   `json:"order_type" validate:"omitempty,oneof=crop product bulk"`
	Items           []OrderItemRequest `json:"items" validate:"max=50,dive"`
	ShippingAddress models.Address     `json:"shipping_address"`
	Notes           string             `json:"notes" validate:"max=1000"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
	Note   string             `json:"note" validate:"max=500"`
}

type UpdatePaymentRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" validate:"required"`
	Method        string               `json:"method" validate:"max=50"`
	TransactionID string               `json:"transaction_id" validate:"max=255"`
}

type OrderListParams struct {
	Pagination utils.PaginationParams
	// Role narrows the listing to orders where the caller is "buyer" or "seller".
	Role   string
	Status models.OrderStatus
}

// Create prices every item from the catalog, decrements its availability and
// stores the order in one transaction. A non-empty idempotencyKey makes retries
// return the order created by the first call.
func (s *OrderService) Create(ctx context.Context, p Principal, req CreateOrderRequest, idempotencyKey string) (*models.Order, bool, error) {
	if len(req.Items) == 0 {
		return nil, false, ErrEmptyOrder
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, false, validationError(err)
	}
	for i, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return nil, false, fmt.Errorf("%w (item %d)", ErrInvalidQuantity, i)
		}
	}

	return idempotentCreate(ctx, s.workflow, "orders.create", p, idempotencyKey,
		func() (*models.Order, string, error) {
			order, err := s.create(ctx, p, req)
			if err != nil {
				return nil, "", err
			}
			return order, order.ID.String(), nil
		},
		func(id string) (*models.Order, error) {
			return s.load(ctx, id)
		},
	)
}

func (s *OrderService) create(ctx context.Context, p Principal, req CreateOrderRequest) (*models.Order, error) {
	var order *models.Order
	err := s.writer.run(ctx, "order", func(tx *gorm.DB) error {
		var sellerID uuid.UUID
		items := make([]models.OrderItem, 0, len(req.Items))
		total := decimal.Zero

		for i, r := range req.Items {
			sold, err := sellItem(tx, r.ItemType, r.ItemID, r.Quantity)
			if err != nil {
				return err
			}
			if i == 0 {
				sellerID = sold.SellerID
			} else if sold.SellerID != sellerID {
				return ErrMixedSellers
			}
			items = append(items, sold.Item)
			total = total.Add(sold.Item.Subtotal)
		}
		if sellerID == p.UserID {
			return ErrSelfOrder
		}

		orderType := req.OrderType
		if orderType == "" {
			orderType = models.OrderType(req.Items[0].ItemType)
		}

		order = &models.Order{
			BuyerID:         p.UserID,
			SellerID:        sellerID,
			OrderType:       orderType,
			Items:           items,
			TotalAmount:     total,
			ShippingAddress: datatypes.NewJSONType(req.ShippingAddress),
			Notes:           req.Notes,
		}
		return s.insert(tx, order, p.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(string(order.OrderType))
	s.publish(ctx, events.New(events.OrderCreated, order.ID, order.OrderNumber, p.UserID, map[string]interface{}{
		"buyer_id":     order.BuyerID,
		"seller_id":    order.SellerID,
		"order_type":   order.OrderType,
		"total_amount": order.TotalAmount,
	}))
	return order, nil
}

// insert assigns the order number and initial state. Items and totals must
// already be set.
func (s *OrderService) insert(tx *gorm.DB, order *models.Order, actorID uuid.UUID) error {
	if err := order.CheckTotals(); err != nil {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	number, err := s.ids.OrderNumber()
	if err != nil {
		return err
	}

	order.OrderNumber = number
	order.Status = models.OrderStatusPending
	order.PaymentStatus = models.PaymentStatusPending
	order.StatusHistory = []models.StatusEntry{{
		Status:    models.OrderStatusPending,
		Note:      orderCreatedNote,
		Timestamp: s.timestamp(),
		ActorID:   &actorID,
	}}
	order.Version = 1

	return createWithIdentifier(tx, order)
}

// UpdateStatus appends exactly one history entry and moves the order to the
// new status. Only the seller or an admin may do this.
func (s *OrderService) UpdateStatus(ctx context.Context, p Principal, ref string, req UpdateOrderStatusRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: order status %q", ErrInvalidStatus, req.Status)
	}

	var order models.Order
	var previous models.OrderStatus
	err := s.writer.run(ctx, "order", func(tx *gorm.DB) error {
		order = models.Order{}
		if err := s.lock(tx, ref, &order); err != nil {
			return err
		}
		if order.SellerID != p.UserID && !p.IsAdmin() {
			return ErrNotOrderSeller
		}
		if err := s.policy.CheckOrderStatus(order.Status, req.Status); err != nil {
			return err
		}

		now := s.timestamp()
		actorID := p.UserID
		previous = order.Status
		order.Status = req.Status
		order.StatusHistory = append(order.StatusHistory, models.StatusEntry{
			Status:    req.Status,
			Note:      req.Note,
			Timestamp: now,
			ActorID:   &actorID,
		})

		if err := saveVersioned(tx, &models.Order{}, order.ID, order.Version, map[string]interface{}{
			"status":         order.Status,
			"status_history": order.StatusHistory,
			"updated_at":     now,
		}); err != nil {
			return err
		}
		order.Version++
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderStatusChanged(string(order.Status))
	s.publish(ctx, events.New(events.OrderStatusChanged, order.ID, order.OrderNumber, p.UserID, map[string]interface{}{
		"from": previous,
		"to":   order.Status,
		"note": req.Note,
	}))
	return &order, nil
}

// UpdatePayment replaces the payment details. PaidAt is stamped only when the
// new status is paid and cleared otherwise.
func (s *OrderService) UpdatePayment(ctx context.Context, p Principal, ref string, req UpdatePaymentRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if !req.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: payment status %q", ErrInvalidStatus, req.PaymentStatus)
	}

	var order models.Order
	err := s.writer.run(ctx, "order", func(tx *gorm.DB) error {
		order = models.Order{}
		if err := s.lock(tx, ref, &order); err != nil {
			return err
		}

		now := s.timestamp()
		details := models.PaymentDetails{Method: req.Method, TransactionID: req.TransactionID}
		if req.PaymentStatus == models.PaymentStatusPaid {
			details.PaidAt = &now
		}
		order.PaymentStatus = req.PaymentStatus
		order.PaymentDetails = details

		if err := saveVersioned(tx, &models.Order{}, order.ID, order.Version, map[string]interface{}{
			"payment_status":         order.PaymentStatus,
			"payment_method":         details.Method,
			"payment_transaction_id": details.TransactionID,
			"payment_paid_at":        details.PaidAt,
			"updated_at":             now,
		}); err != nil {
			return err
		}
		order.Version++
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentUpdated(string(order.PaymentStatus))
	s.publish(ctx, events.New(events.OrderPaymentUpdated, order.ID, order.OrderNumber, p.UserID, map[string]interface{}{
		"payment_status": order.PaymentStatus,
		"method":         order.PaymentDetails.Method,
		"transaction_id": order.PaymentDetails.TransactionID,
	}))
	return &order, nil
}

// Get returns the order by id or order number if the caller is a party to it
// or an admin.
func (s *OrderService) Get(ctx context.Context, p Principal, ref string) (*models.Order, error) {
	order, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(p.UserID) && !p.IsAdmin() {
		return nil, ErrNotOrderParty
	}
	return order, nil
}

// List returns the caller's orders, newest first. Admins without a role filter
// see every order.
func (s *OrderService) List(ctx context.Context, p Principal, params OrderListParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	switch params.Role {
	case "buyer":
		query = query.Where("buyer_id = ?", p.UserID)
	case "seller":
		query = query.Where("seller_id = ?", p.UserID)
	case "":
		if !p.IsAdmin() {
			query = query.Where("buyer_id = ? OR seller_id = ?", p.UserID, p.UserID)
		}
	default:
		return nil, 0, fmt.Errorf("%w: role filter must be buyer or seller", ErrInvalidInput)
	}

	if params.Status != "" {
		if !params.Status.Valid() {
			return nil, 0, fmt.Errorf("%w: order status %q", ErrInvalidStatus, params.Status)
		}
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, asInternal(err)
	}

	pagination := utils.NormalizePagination(params.Pagination)
	query = utils.ApplySort(query, pagination, []string{"created_at", "updated_at", "total_amount", "status"})
	query = utils.ApplyPagination(query, pagination)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, asInternal(err)
	}
	return orders, total, nil
}

func (s *OrderService) load(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := findOne(byReference(s.db.WithContext(ctx), ref, "order_number"), &order, fmt.Errorf("%w: %s", ErrOrderNotFound, ref))
	if err != nil {
		return nil, asInternal(err)
	}
	return &order, nil
}

func (s *OrderService) lock(tx *gorm.DB, ref string, order *models.Order) error {
	return findOne(forUpdate(byReference(tx, ref, "order_number")), order, fmt.Errorf("%w: %s", ErrOrderNotFound, ref))
}
