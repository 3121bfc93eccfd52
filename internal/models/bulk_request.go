// internal/models/bulk_request.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type RequestStatus string

const (
	RequestStatusOpen               RequestStatus = "open"
	RequestStatusPartiallyFulfilled RequestStatus = "partially_fulfilled"
	RequestStatusFulfilled          RequestStatus = "fulfilled"
	RequestStatusClosed             RequestStatus = "closed"
	RequestStatusCancelled          RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusOpen, RequestStatusPartiallyFulfilled, RequestStatusFulfilled,
		RequestStatusClosed, RequestStatusCancelled:
		return true
	}
	return false
}

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
)

func (s OfferStatus) Valid() bool {
	return s == OfferStatusPending || s == OfferStatusAccepted || s == OfferStatusRejected
}

// Offer is a seller's bid on a bulk request. It lives inside the request row and
// is addressed by its own ID.
type Offer struct {
	ID         uuid.UUID       `json:"id"`
	FarmerID   uuid.UUID       `json:"farmer_id"`
	CropID     *uuid.UUID      `json:"crop_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Message    string          `json:"message,omitempty"`
	Status     OfferStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	OrderID    *uuid.UUID      `json:"order_id,omitempty"`
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

type BulkRequest struct {
	BaseModel
	RequestNumber       string                      `json:"request_number" gorm:"size:40;not null;uniqueIndex"`
	ProcessorID         uuid.UUID                   `json:"processor_id" gorm:"type:uuid;not null;index"`
	CropType            string                      `json:"crop_type" gorm:"size:60;not null;index"`
	Variety             string                      `json:"variety,omitempty" gorm:"size:100"`
	Quantity            decimal.Decimal             `json:"quantity" gorm:"type:numeric;not null"`
	Unit                string                      `json:"unit" gorm:"size:20;not null"`
	PriceRange          PriceRange                  `json:"price_range" gorm:"embedded;embeddedPrefix:price_"`
	QualityRequirements datatypes.JSONSlice[string] `json:"quality_requirements"`
	DeliveryLocation    Location                    `json:"delivery_location" gorm:"embedded;embeddedPrefix:delivery_"`
	RequiredBy          *time.Time                  `json:"required_by,omitempty"`
	Status              RequestStatus               `json:"status" gorm:"type:varchar(30);not null;default:'open';index"`
	Offers              datatypes.JSONSlice[Offer]  `json:"offers" gorm:"not null"`
	Version             int64                       `json:"version" gorm:"not null;default:1"`
}

// FindOffer returns the index of the offer with the given id, or -1.
func (r *BulkRequest) FindOffer(offerID uuid.UUID) int {
	for i := range r.Offers {
		if r.Offers[i].ID == offerID {
			return i
		}
	}
	return -1
}

func (r *BulkRequest) HasOfferFrom(farmerID uuid.UUID) bool {
	for i := range r.Offers {
		if r.Offers[i].FarmerID == farmerID {
			return true
		}
	}
	return false
}
