// internal/services/bulk_request_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/events"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

// BulkRequestService runs the offer negotiation between a processor's
// standing demand and the sellers bidding on it.
type BulkRequestService struct {
	*workflow
	orders *OrderService
}

type CreateBulkRequestRequest struct {
	CropType            string            `json:"crop_type" validate:"required,max=60"`
	Variety             string            `json:"variety" validate:"max=100"`
	Quantity            decimal.Decimal   `json:"quantity"`
	Unit                string            `json:"unit" validate:"required,max=20"`
	PriceRange          models.PriceRange `json:"price_range"`
	QualityRequirements []string          `json:"quality_requirements" validate:"max=20,dive,max=200"`
	DeliveryLocation    models.Location   `json:"delivery_location"`
	RequiredBy          *time.Time        `json:"required_by"`
}

// UpdateBulkRequestRequest is a partial update; nil fields are left alone.
type UpdateBulkRequestRequest struct {
	CropType            *string               `json:"crop_type"`
	Variety             *string               `json:"variety"`
	Quantity            *decimal.Decimal      `json:"quantity"`
	Unit                *string               `json:"unit"`
	PriceRange          *models.PriceRange    `json:"price_range"`
	QualityRequirements *[]string             `json:"quality_requirements"`
	DeliveryLocation    *models.Location      `json:"delivery_location"`
	RequiredBy          *time.Time            `json:"required_by"`
	Status              *models.RequestStatus `json:"status"`
}

type SubmitOfferRequest struct {
	CropID   *uuid.UUID      `json:"crop_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Message  string          `json:"message" validate:"max=1000"`
}

type BulkRequestFilter struct {
	Pagination utils.PaginationParams
	Status     models.RequestStatus
	CropType   string
}

func validateDemand(req CreateBulkRequestRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return validationError(err)
	}
	if !req.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if req.PriceRange.Min.IsNegative() || req.PriceRange.Max.IsNegative() {
		return ErrInvalidPrice
	}
	if req.PriceRange.Max.LessThan(req.PriceRange.Min) {
		return ErrInvalidPriceRange
	}
	return nil
}

// CreateRequest posts a new demand in the open state with no offers.
func (s *BulkRequestService) CreateRequest(ctx context.Context, p Principal, req CreateBulkRequestRequest, idempotencyKey string) (*models.BulkRequest, bool, error) {
	if err := requireRole(p, Principal.IsProcessor, "post bulk requests"); err != nil {
		return nil, false, err
	}
	if err := validateDemand(req); err != nil {
		return nil, false, err
	}

	return idempotentCreate(ctx, s.workflow, "bulk_requests.create", p, idempotencyKey,
		func() (*models.BulkRequest, string, error) {
			request, err := s.create(ctx, p, req)
			if err != nil {
				return nil, "", err
			}
			return request, request.ID.String(), nil
		},
		func(id string) (*models.BulkRequest, error) {
			return s.Get(ctx, id)
		},
	)
}

func (s *BulkRequestService) create(ctx context.Context, p Principal, req CreateBulkRequestRequest) (*models.BulkRequest, error) {
	requirements := req.QualityRequirements
	if requirements == nil {
		requirements = []string{}
	}

	var request *models.BulkRequest
	err := s.writer.run(ctx, "bulk_request", func(tx *gorm.DB) error {
		number, err := s.ids.RequestNumber()
		if err != nil {
			return err
		}

		request = &models.BulkRequest{
			RequestNumber:       number,
			ProcessorID:         p.UserID,
			CropType:            req.CropType,
			Variety:             req.Variety,
			Quantity:            req.Quantity,
			Unit:                req.Unit,
			PriceRange:          req.PriceRange,
			QualityRequirements: datatypes.JSONSlice[string](requirements),
			DeliveryLocation:    req.DeliveryLocation,
			RequiredBy:          req.RequiredBy,
			Status:              models.RequestStatusOpen,
			Offers:              []models.Offer{},
			Version:             1,
		}
		return createWithIdentifier(tx, request)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BulkRequestCreated()
	s.publish(ctx, events.New(events.BulkRequestCreated, request.ID, request.RequestNumber, p.UserID, map[string]interface{}{
		"crop_type": request.CropType,
		"quantity":  request.Quantity,
		"unit":      request.Unit,
	}))
	return request, nil
}

// ListOpen is the public listing. Status defaults to open.
func (s *BulkRequestService) ListOpen(ctx context.Context, filter BulkRequestFilter) ([]models.BulkRequest, int64, error) {
	status := filter.Status
	if status == "" {
		status = models.RequestStatusOpen
	}
	if !status.Valid() {
		return nil, 0, fmt.Errorf("%w: bulk request status %q", ErrInvalidStatus, status)
	}

	query := s.db.WithContext(ctx).Model(&models.BulkRequest{}).Where("status = ?", status)
	if filter.CropType != "" {
		query = query.Where("crop_type = ?", filter.CropType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, asInternal(err)
	}

	pagination := utils.NormalizePagination(filter.Pagination)
	query = utils.ApplySort(query, pagination, []string{"created_at", "required_by", "quantity"})
	query = utils.ApplyPagination(query, pagination)

	var requests []models.BulkRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, 0, asInternal(err)
	}
	return requests, total, nil
}

// Get returns one request with its offers, by id or request number.
func (s *BulkRequestService) Get(ctx context.Context, ref string) (*models.BulkRequest, error) {
	var request models.BulkRequest
	err := findOne(byReference(s.db.WithContext(ctx), ref, "request_number"), &request, fmt.Errorf("%w: %s", ErrRequestNotFound, ref))
	if err != nil {
		return nil, asInternal(err)
	}
	return &request, nil
}

// SubmitOffer appends a pending offer from the calling seller. A seller gets
// one offer per request.
func (s *BulkRequestService) SubmitOffer(ctx context.Context, p Principal, ref string, req SubmitOfferRequest) (*models.BulkRequest, error) {
	if err := requireRole(p, Principal.IsSeller, "submit offers"); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	var request models.BulkRequest
	var offer models.Offer
	err := s.writer.run(ctx, "bulk_request", func(tx *gorm.DB) error {
		request = models.BulkRequest{}
		if err := s.lock(tx, ref, &request); err != nil {
			return err
		}
		if request.Status != models.RequestStatusOpen {
			return fmt.Errorf("%w: %s is %s", ErrRequestNotOpen, request.RequestNumber, request.Status)
		}
		if request.HasOfferFrom(p.UserID) {
			return ErrDuplicateOffer
		}
		if req.CropID != nil {
			if err := checkCropOwner(tx, *req.CropID, p.UserID); err != nil {
				return err
			}
		}

		now := s.timestamp()
		offer = models.Offer{
			ID:        uuid.New(),
			FarmerID:  p.UserID,
			CropID:    req.CropID,
			Quantity:  req.Quantity,
			Price:     req.Price,
			Message:   req.Message,
			Status:    models.OfferStatusPending,
			CreatedAt: now,
		}
		request.Offers = append(request.Offers, offer)

		return s.saveOffers(tx, &request, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OfferSubmitted()
	s.publish(ctx, events.New(events.OfferSubmitted, request.ID, request.RequestNumber, p.UserID, offer))
	return &request, nil
}

// ResolveOffer accepts or rejects one offer. Sibling offers and the request
// status are left as they are.
func (s *BulkRequestService) ResolveOffer(ctx context.Context, p Principal, ref string, offerID uuid.UUID, status models.OfferStatus) (*models.BulkRequest, error) {
	if status != models.OfferStatusAccepted && status != models.OfferStatusRejected {
		return nil, fmt.Errorf("%w: offer status %q", ErrInvalidStatus, status)
	}

	var request models.BulkRequest
	err := s.writer.run(ctx, "bulk_request", func(tx *gorm.DB) error {
		request = models.BulkRequest{}
		if err := s.lockOwned(tx, p, ref, &request); err != nil {
			return err
		}

		idx := request.FindOffer(offerID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
		}
		if err := s.policy.CheckOfferResolution(request.Offers[idx].Status, status); err != nil {
			return err
		}

		now := s.timestamp()
		request.Offers[idx].Status = status
		request.Offers[idx].ResolvedAt = &now

		return s.saveOffers(tx, &request, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OfferResolved(string(status))
	s.publish(ctx, events.New(events.OfferResolved, request.ID, request.RequestNumber, p.UserID, map[string]interface{}{
		"offer_id": offerID,
		"status":   status,
	}))
	return &request, nil
}

// UpdateRequest patches the demand. The patched request is validated as a whole
// and a status change goes through the transition policy.
func (s *BulkRequestService) UpdateRequest(ctx context.Context, p Principal, ref string, patch UpdateBulkRequestRequest) (*models.BulkRequest, error) {
	var request models.BulkRequest
	err := s.writer.run(ctx, "bulk_request", func(tx *gorm.DB) error {
		request = models.BulkRequest{}
		if err := s.lockOwned(tx, p, ref, &request); err != nil {
			return err
		}

		if patch.Status != nil {
			if err := s.policy.CheckRequestStatus(request.Status, *patch.Status); err != nil {
				return err
			}
			request.Status = *patch.Status
		}
		applyDemandPatch(&request, patch)

		if err := validateDemand(demandOf(&request)); err != nil {
			return err
		}

		now := s.timestamp()
		if err := saveVersioned(tx, &models.BulkRequest{}, request.ID, request.Version, map[string]interface{}{
			"crop_type":            request.CropType,
			"variety":              request.Variety,
			"quantity":             request.Quantity,
			"unit":                 request.Unit,
			"price_min":            request.PriceRange.Min,
			"price_max":            request.PriceRange.Max,
			"quality_requirements": request.QualityRequirements,
			"delivery_village":     request.DeliveryLocation.Village,
			"delivery_district":    request.DeliveryLocation.District,
			"delivery_state":       request.DeliveryLocation.State,
			"delivery_pincode":     request.DeliveryLocation.Pincode,
			"required_by":          request.RequiredBy,
			"status":               request.Status,
			"updated_at":           now,
		}); err != nil {
			return err
		}
		request.Version++
		request.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.BulkRequestUpdated, request.ID, request.RequestNumber, p.UserID, map[string]interface{}{
		"status": request.Status,
	}))
	return &request, nil
}

// ConvertOfferToOrder turns an accepted offer into a bulk order between the
// processor and the seller at the negotiated price. The order id is stored on
// the offer, so repeating the call returns the same order with created=false.
func (s *BulkRequestService) ConvertOfferToOrder(ctx context.Context, p Principal, ref string, offerID uuid.UUID) (*models.Order, bool, error) {
	var request models.BulkRequest
	var order *models.Order
	created := false

	err := s.writer.run(ctx, "bulk_request", func(tx *gorm.DB) error {
		request = models.BulkRequest{}
		order = nil
		created = false

		if err := s.lockOwned(tx, p, ref, &request); err != nil {
			return err
		}
		idx := request.FindOffer(offerID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
		}
		offer := request.Offers[idx]
		if offer.Status != models.OfferStatusAccepted {
			return fmt.Errorf("%w: offer is %s", ErrOfferNotAccepted, offer.Status)
		}

		if offer.OrderID != nil {
			order = &models.Order{}
			return findOne(tx.Where("id = ?", *offer.OrderID), order, fmt.Errorf("%w: %s", ErrOrderNotFound, *offer.OrderID))
		}

		item, err := s.offerItem(tx, &request, offer)
		if err != nil {
			return err
		}
		if offer.FarmerID == request.ProcessorID {
			return ErrSelfOrder
		}

		requestID, sourceOfferID := request.ID, offer.ID
		order = &models.Order{
			BuyerID:         request.ProcessorID,
			SellerID:        offer.FarmerID,
			OrderType:       models.OrderTypeBulk,
			Items:           []models.OrderItem{item},
			TotalAmount:     item.Subtotal,
			ShippingAddress: datatypes.NewJSONType(models.Address{Location: request.DeliveryLocation}),
			Notes:           fmt.Sprintf("Bulk request %s", request.RequestNumber),
			SourceRequestID: &requestID,
			SourceOfferID:   &sourceOfferID,
		}
		if err := s.orders.insert(tx, order, p.UserID); err != nil {
			return err
		}

		request.Offers[idx].OrderID = &order.ID
		if err := s.saveOffers(tx, &request, s.timestamp()); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.metrics.OfferConverted()
		s.metrics.OrderCreated(string(order.OrderType))
		s.publish(ctx, events.New(events.OrderCreated, order.ID, order.OrderNumber, p.UserID, map[string]interface{}{
			"buyer_id":     order.BuyerID,
			"seller_id":    order.SellerID,
			"order_type":   order.OrderType,
			"total_amount": order.TotalAmount,
		}))
		s.publish(ctx, events.New(events.OfferConverted, request.ID, request.RequestNumber, p.UserID, map[string]interface{}{
			"offer_id":     offerID,
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		}))
	}
	return order, created, nil
}

// offerItem prices the offer as a single order line. An offer tied to a crop
// listing draws the quantity down from it.
func (s *BulkRequestService) offerItem(tx *gorm.DB, request *models.BulkRequest, offer models.Offer) (models.OrderItem, error) {
	if offer.CropID == nil {
		name := request.CropType
		if request.Variety != "" {
			name += " (" + request.Variety + ")"
		}
		return newOrderItem(offer.ID, models.ItemTypeCrop, name, offer.Quantity, request.Unit, offer.Price), nil
	}

	crop, err := sellCrop(tx, *offer.CropID, offer.Quantity)
	if err != nil {
		return models.OrderItem{}, err
	}
	return newOrderItem(crop.ID, models.ItemTypeCrop, crop.DisplayName(), offer.Quantity, crop.Unit, offer.Price), nil
}

func (s *BulkRequestService) saveOffers(tx *gorm.DB, request *models.BulkRequest, now time.Time) error {
	if err := saveVersioned(tx, &models.BulkRequest{}, request.ID, request.Version, map[string]interface{}{
		"offers":     request.Offers,
		"updated_at": now,
	}); err != nil {
		return err
	}
	request.Version++
	request.UpdatedAt = now
	return nil
}

func (s *BulkRequestService) lock(tx *gorm.DB, ref string, request *models.BulkRequest) error {
	return findOne(forUpdate(byReference(tx, ref, "request_number")), request, fmt.Errorf("%w: %s", ErrRequestNotFound, ref))
}

func (s *BulkRequestService) lockOwned(tx *gorm.DB, p Principal, ref string, request *models.BulkRequest) error {
	if err := s.lock(tx, ref, request); err != nil {
		return err
	}
	if request.ProcessorID != p.UserID {
		return ErrNotRequestOwner
	}
	return nil
}

func checkCropOwner(tx *gorm.DB, cropID, userID uuid.UUID) error {
	var crop models.Crop
	if err := findOne(tx.Where("id = ?", cropID), &crop, fmt.Errorf("%w: %s", ErrCropNotFound, cropID)); err != nil {
		return err
	}
	if crop.FarmerID != userID {
		return fmt.Errorf("%w: crop %s", ErrNotItemOwner, cropID)
	}
	return nil
}

func applyDemandPatch(request *models.BulkRequest, patch UpdateBulkRequestRequest) {
	if patch.CropType != nil {
		request.CropType = *patch.CropType
	}
	if patch.Variety != nil {
		request.Variety = *patch.Variety
	}
	if patch.Quantity != nil {
		request.Quantity = *patch.Quantity
	}
	if patch.Unit != nil {
		request.Unit = *patch.Unit
	}
	if patch.PriceRange != nil {
		request.PriceRange = *patch.PriceRange
	}
	if patch.QualityRequirements != nil {
		request.QualityRequirements = append(datatypes.JSONSlice[string]{}, (*patch.QualityRequirements)...)
	}
	if patch.DeliveryLocation != nil {
		request.DeliveryLocation = *patch.DeliveryLocation
	}
	if patch.RequiredBy != nil {
		request.RequiredBy = patch.RequiredBy
	}
}

func demandOf(request *models.BulkRequest) CreateBulkRequestRequest {
	return CreateBulkRequestRequest{
		CropType:            request.CropType,
		Variety:             request.Variety,
		Quantity:            request.Quantity,
		Unit:                request.Unit,
		PriceRange:          request.PriceRange,
		QualityRequirements: request.QualityRequirements,
		DeliveryLocation:    request.DeliveryLocation,
		RequiredBy:          request.RequiredBy,
	}
}
