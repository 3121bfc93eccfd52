// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields. Aggregates are never soft-deleted.
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Location is the administrative address used across farms, crops and users.
type Location struct {
	Village  string `json:"village,omitempty"`
	District string `json:"district,omitempty"`
	State    string `json:"state,omitempty"`
	Pincode  string `json:"pincode,omitempty" validate:"omitempty,pincode"`
}

// Enums
type Role string

const (
	RoleFarmer    Role = "farmer"
	RoleSHG       Role = "shg"
	RoleFPO       Role = "fpo"
	RoleProcessor Role = "processor"
	RoleConsumer  Role = "consumer"
	RoleAdmin     Role = "admin"
)

// IsSeller reports whether the role may list produce and submit offers.
func (r Role) IsSeller() bool {
	return r == RoleFarmer || r == RoleSHG || r == RoleFPO
}

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleSHG, RoleFPO, RoleProcessor, RoleConsumer, RoleAdmin:
		return true
	}
	return false
}

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

type ItemType string

const (
	ItemTypeCrop    ItemType = "crop"
	ItemTypeProduct ItemType = "product"
)

type CropStatus string

const (
	CropStatusAvailable CropStatus = "available"
	CropStatusReserved  CropStatus = "reserved"
	CropStatusSold      CropStatus = "sold"
)

type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusSoldOut  ProductStatus = "sold_out"
	ProductStatusInactive ProductStatus = "inactive"
)
