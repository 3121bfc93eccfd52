// internal/services/catalog.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

// soldItem is a catalog entry priced and decremented for an order.
type soldItem struct {
	SellerID uuid.UUID
	Item     models.OrderItem
}

// sellItem locks the referenced crop or product, checks that quantity is
// available and decrements it in the same transaction as the order insert.
func sellItem(tx *gorm.DB, itemType models.ItemType, itemID uuid.UUID, quantity decimal.Decimal) (soldItem, error) {
	switch itemType {
	case models.ItemTypeCrop:
		crop, err := sellCrop(tx, itemID, quantity)
		if err != nil {
			return soldItem{}, err
		}
		return soldItem{
			SellerID: crop.FarmerID,
			Item:     newOrderItem(crop.ID, models.ItemTypeCrop, crop.DisplayName(), quantity, crop.Unit, crop.ExpectedPrice),
		}, nil

	case models.ItemTypeProduct:
		var product models.Product
		if err := findOne(forUpdate(tx).Where("id = ?", itemID), &product, fmt.Errorf("%w: product %s", ErrProductNotFound, itemID)); err != nil {
			return soldItem{}, err
		}
		if product.Status != models.ProductStatusActive {
			return soldItem{}, fmt.Errorf("%w: product %s is %s", ErrItemUnavailable, product.ID, product.Status)
		}
		if product.Stock.LessThan(quantity) {
			return soldItem{}, fmt.Errorf("%w: product %s has %s %s left", ErrInsufficientQuantity, product.ID, product.Stock, product.Unit)
		}

		remaining := product.Stock.Sub(quantity)
		status := product.Status
		if remaining.IsZero() {
			status = models.ProductStatusSoldOut
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Updates(map[string]interface{}{"stock": remaining, "status": status}).Error; err != nil {
			return soldItem{}, fmt.Errorf("failed to update product stock: %w", err)
		}

		return soldItem{
			SellerID: product.SellerID,
			Item:     newOrderItem(product.ID, models.ItemTypeProduct, product.Name, quantity, product.Unit, product.Price),
		}, nil
	}

	return soldItem{}, fmt.Errorf("%w: item type %q", ErrInvalidInput, itemType)
}

func sellCrop(tx *gorm.DB, cropID uuid.UUID, quantity decimal.Decimal) (*models.Crop, error) {
	var crop models.Crop
	if err := findOne(forUpdate(tx).Where("id = ?", cropID), &crop, fmt.Errorf("%w: crop %s", ErrCropNotFound, cropID)); err != nil {
		return nil, err
	}
	if crop.Status != models.CropStatusAvailable {
		return nil, fmt.Errorf("%w: crop %s is %s", ErrItemUnavailable, crop.ID, crop.Status)
	}
	if crop.Quantity.LessThan(quantity) {
		return nil, fmt.Errorf("%w: crop %s has %s %s left", ErrInsufficientQuantity, crop.ID, crop.Quantity, crop.Unit)
	}

	remaining := crop.Quantity.Sub(quantity)
	status := crop.Status
	if remaining.IsZero() {
		status = models.CropStatusSold
	}
	if err := tx.Model(&models.Crop{}).Where("id = ?", crop.ID).
		Updates(map[string]interface{}{"quantity": remaining, "status": status}).Error; err != nil {
		return nil, fmt.Errorf("failed to update crop quantity: %w", err)
	}

	crop.Quantity = remaining
	crop.Status = status
	return &crop, nil
}

func newOrderItem(id uuid.UUID, itemType models.ItemType, name string, quantity decimal.Decimal, unit string, price decimal.Decimal) models.OrderItem {
	return models.OrderItem{
		ItemID:   id,
		ItemType: itemType,
		Name:     name,
		Quantity: quantity,
		Unit:     unit,
		Price:    price,
		Subtotal: quantity.Mul(price),
	}
}
