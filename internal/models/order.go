// internal/models/order.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderType string

const (
	OrderTypeCrop    OrderType = "crop"
	OrderTypeProduct OrderType = "product"
	OrderTypeBulk    OrderType = "bulk"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// OrderItem is priced once at order creation and never re-read from the catalog.
type OrderItem struct {
	ItemID   uuid.UUID       `json:"item_id"`
	ItemType ItemType        `json:"item_type"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ActorID   *uuid.UUID  `json:"actor_id,omitempty"`
}

type PaymentDetails struct {
	Method        string     `json:"method,omitempty" gorm:"size:50"`
	TransactionID string     `json:"transaction_id,omitempty" gorm:"size:255"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type Address struct {
	Name     string   `json:"name,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Line1    string   `json:"line1,omitempty"`
	Line2    string   `json:"line2,omitempty"`
	Location Location `json:"location"`
}

type Order struct {
	BaseModel
	OrderNumber     string                           `json:"order_number" gorm:"size:40;not null;uniqueIndex"`
	BuyerID         uuid.UUID                        `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID        uuid.UUID                        `json:"seller_id" gorm:"type:uuid;not null;index"`
	OrderType       OrderType                        `json:"order_type" gorm:"type:varchar(20);not null"`
	Items           datatypes.JSONSlice[OrderItem]   `json:"items" gorm:"not null"`
	TotalAmount     decimal.Decimal                  `json:"total_amount" gorm:"type:numeric;not null"`
	Status          OrderStatus                      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus   PaymentStatus                    `json:"payment_status" gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentDetails  PaymentDetails                   `json:"payment_details" gorm:"embedded;embeddedPrefix:payment_"`
	ShippingAddress datatypes.JSONType[Address]      `json:"shipping_address"`
	Notes           string                           `json:"notes,omitempty" gorm:"type:text"`
	StatusHistory   datatypes.JSONSlice[StatusEntry] `json:"status_history" gorm:"not null"`
	SourceRequestID *uuid.UUID                       `json:"source_request_id,omitempty" gorm:"type:uuid;index"`
	SourceOfferID   *uuid.UUID                       `json:"source_offer_id,omitempty" gorm:"type:uuid;uniqueIndex"`
	Version         int64                            `json:"version" gorm:"not null;default:1"`
}

// CheckTotals verifies subtotal = quantity × price for every item and
// total = Σ subtotal, exactly.
func (o *Order) CheckTotals() error {
	sum := decimal.Zero
	for i, item := range o.Items {
		if !item.Subtotal.Equal(item.Quantity.Mul(item.Price)) {
			return fmt.Errorf("item %d subtotal %s does not equal %s x %s", i, item.Subtotal, item.Quantity, item.Price)
		}
		sum = sum.Add(item.Subtotal)
	}
	if !sum.Equal(o.TotalAmount) {
		return fmt.Errorf("total %s does not equal sum of subtotals %s", o.TotalAmount, sum)
	}
	return nil
}

// IsParty reports whether the user is the order's buyer or seller.
func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}
