// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Crop is a farmer's harvest listing. Quantity is what is still available for sale.
type Crop struct {
	BaseModel
	FarmerID      uuid.UUID       `json:"farmer_id" gorm:"type:uuid;not null;index"`
	CropType      string          `json:"crop_type" gorm:"size:60;not null;index"`
	Variety       string          `json:"variety,omitempty" gorm:"size:100"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:numeric;not null"`
	Unit          string          `json:"unit" gorm:"size:20;not null;default:'kg'"`
	ExpectedPrice decimal.Decimal `json:"expected_price" gorm:"type:numeric;not null"`
	Location      Location        `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Status        CropStatus      `json:"status" gorm:"type:varchar(20);default:'available';index"`
}

func (c *Crop) DisplayName() string {
	if c.Variety != "" {
		return c.CropType + " (" + c.Variety + ")"
	}
	return c.CropType
}

// Product is a processed, packaged good sold by a seller or processor.
type Product struct {
	BaseModel
	SellerID    uuid.UUID                   `json:"seller_id" gorm:"type:uuid;not null;index"`
	Name        string                      `json:"name" gorm:"size:255;not null"`
	Description string                      `json:"description,omitempty" gorm:"type:text"`
	Category    string                      `json:"category,omitempty" gorm:"size:100;index"`
	Price       decimal.Decimal             `json:"price" gorm:"type:numeric;not null"`
	Stock       decimal.Decimal             `json:"stock" gorm:"type:numeric;not null"`
	Unit        string                      `json:"unit" gorm:"size:20;not null;default:'pack'"`
	Images      datatypes.JSONSlice[string] `json:"images,omitempty"`
	Status      ProductStatus               `json:"status" gorm:"type:varchar(20);default:'active';index"`
}
