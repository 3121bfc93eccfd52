// internal/services/traceability_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/events"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

const (
	processingEventPrefix = "Processing: "
	qualityCheckEvent     = "Quality Check"
	archiveTimeout        = 10 * time.Second
)

// TraceabilityService keeps the provenance ledger: one append-only record per
// physical batch.
type TraceabilityService struct {
	*workflow
	archive   *ArchiveService
	directory *UserDirectory
}

type OpenTraceabilityRequest struct {
	FarmDetails        models.FarmDetails        `json:"farm_details"`
	CultivationDetails models.CultivationDetails `json:"cultivation_details"`
	Certifications     []models.Certification    `json:"certifications" validate:"max=20,dive"`
	CropID             *uuid.UUID                `json:"crop_id"`
	ProductID          *uuid.UUID                `json:"product_id"`
}

type ProcessingStageRequest struct {
	Stage       string `json:"stage" validate:"required,max=100"`
	Location    string `json:"location" validate:"max=200"`
	Description string `json:"description" validate:"max=1000"`
}

type QualityCheckRequest struct {
	Parameters []models.QualityParameter `json:"parameters" validate:"max=50,dive"`
	Result     models.QualityResult      `json:"result" validate:"required"`
	Remarks    string                    `json:"remarks" validate:"max=1000"`
}

// ProvenanceView is the public lookup result.
type ProvenanceView struct {
	*models.Traceability
	Farmer        *FarmerSummary `json:"farmer,omitempty"`
	ChainVerified bool           `json:"chain_verified"`
}

// Open creates the batch record with an empty timeline and stamps the QR
// payload. The QR code is a creation-time snapshot and is never regenerated.
func (s *TraceabilityService) Open(ctx context.Context, p Principal, req OpenTraceabilityRequest) (*models.Traceability, error) {
	if err := requireRole(p, Principal.IsSeller, "open traceability records"); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	farmLocation := req.FarmDetails.Location
	if farmLocation.District == "" || farmLocation.State == "" {
		return nil, fmt.Errorf("%w: farm district and state are required", ErrInvalidInput)
	}

	farmer, err := s.directory.Summary(ctx, p.UserID)
	if err != nil {
		return nil, asInternal(err)
	}
	farmerName := ""
	if farmer != nil {
		farmerName = farmer.Name
	}

	certifications := req.Certifications
	if certifications == nil {
		certifications = []models.Certification{}
	}

	var record *models.Traceability
	err = s.writer.run(ctx, "traceability", func(tx *gorm.DB) error {
		if err := checkLinks(tx, p.UserID, req.CropID, req.ProductID); err != nil {
			return err
		}

		batchID, err := s.ids.BatchID()
		if err != nil {
			return err
		}

		payload := models.QRPayload{
			BatchID:    batchID,
			FarmerName: farmerName,
			Location:   formatLocation(farmLocation),
		}
		qrCode, err := encodeQRPayload(payload)
		if err != nil {
			return err
		}

		record = &models.Traceability{
			BatchID:            batchID,
			FarmerID:           p.UserID,
			CropID:             req.CropID,
			ProductID:          req.ProductID,
			FarmDetails:        datatypes.NewJSONType(req.FarmDetails),
			CultivationDetails: datatypes.NewJSONType(req.CultivationDetails),
			Certifications:     certifications,
			ProcessingDetails:  []models.ProcessingStage{},
			QualityChecks:      []models.QualityCheck{},
			Timeline:           []models.TimelineEvent{},
			QRCode:             qrCode,
			QRPayload:          datatypes.NewJSONType(payload),
			QRGeneratedAt:      s.timestamp(),
			ArchiveURL:         s.archive.PublicURL(batchID),
			Version:            1,
		}
		return createWithIdentifier(tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ProvenanceEvent("opened")
	s.publish(ctx, events.New(events.TraceabilityOpened, record.ID, record.BatchID, p.UserID, map[string]interface{}{
		"crop_type": req.CultivationDetails.CropType,
	}))
	s.archiveRecord(ctx, record)
	return record, nil
}

// AppendProcessingStage adds a stage and its timeline summary. Stages may arrive
// in any order.
func (s *TraceabilityService) AppendProcessingStage(ctx context.Context, p Principal, batchID string, req ProcessingStageRequest) (*models.Traceability, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	record, err := s.appendEvent(ctx, p, batchID, func(record *models.Traceability, now time.Time) map[string]interface{} {
		record.ProcessingDetails = append(record.ProcessingDetails, models.ProcessingStage{
			Stage:       req.Stage,
			Date:        now,
			Location:    req.Location,
			ProcessedBy: p.UserID,
			Description: req.Description,
		})
		appendTimeline(record, models.TimelineEvent{
			Event:       processingEventPrefix + req.Stage,
			Description: req.Description,
			Location:    req.Location,
			ActorID:     p.UserID,
			Date:        now,
		})
		return map[string]interface{}{"processing_details": record.ProcessingDetails}
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ProvenanceEvent("processing")
	s.publish(ctx, events.New(events.TraceabilityProcessingAdded, record.ID, record.BatchID, p.UserID, map[string]interface{}{
		"stage": req.Stage,
	}))
	s.archiveRecord(ctx, record)
	return record, nil
}

// AppendQualityCheck adds a check and its timeline summary.
func (s *TraceabilityService) AppendQualityCheck(ctx context.Context, p Principal, batchID string, req QualityCheckRequest) (*models.Traceability, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Result != models.QualityResultPassed && req.Result != models.QualityResultFailed {
		return nil, fmt.Errorf("%w: quality result must be passed or failed", ErrInvalidInput)
	}

	parameters := req.Parameters
	if parameters == nil {
		parameters = []models.QualityParameter{}
	}

	record, err := s.appendEvent(ctx, p, batchID, func(record *models.Traceability, now time.Time) map[string]interface{} {
		record.QualityChecks = append(record.QualityChecks, models.QualityCheck{
			Date:       now,
			CheckedBy:  p.UserID,
			Parameters: parameters,
			Result:     req.Result,
			Remarks:    req.Remarks,
		})
		appendTimeline(record, models.TimelineEvent{
			Event:       qualityCheckEvent,
			Description: "Result: " + string(req.Result),
			ActorID:     p.UserID,
			Date:        now,
		})
		return map[string]interface{}{"quality_checks": record.QualityChecks}
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ProvenanceEvent("quality_check")
	s.publish(ctx, events.New(events.TraceabilityQualityCheckAdded, record.ID, record.BatchID, p.UserID, map[string]interface{}{
		"result": req.Result,
	}))
	s.archiveRecord(ctx, record)
	return record, nil
}

// Lookup is public. It returns the record with the farmer's directory entry and
// whether the timeline hash chain is intact.
func (s *TraceabilityService) Lookup(ctx context.Context, batchID string) (*ProvenanceView, error) {
	var record models.Traceability
	err := findOne(byReference(s.db.WithContext(ctx), batchID, "batch_id"), &record, fmt.Errorf("%w: %s", ErrTraceabilityNotFound, batchID))
	if err != nil {
		return nil, asInternal(err)
	}

	farmer, err := s.directory.Summary(ctx, record.FarmerID)
	if err != nil {
		return nil, asInternal(err)
	}

	return &ProvenanceView{
		Traceability:  &record,
		Farmer:        farmer,
		ChainVerified: VerifyTimeline(record.Timeline),
	}, nil
}

// appendEvent runs mutate against the locked record; mutate returns the detail
// column it changed. The timeline column is always written.
func (s *TraceabilityService) appendEvent(
	ctx context.Context,
	p Principal,
	batchID string,
	mutate func(record *models.Traceability, now time.Time) map[string]interface{},
) (*models.Traceability, error) {
	var record models.Traceability
	err := s.writer.run(ctx, "traceability", func(tx *gorm.DB) error {
		record = models.Traceability{}
		if err := findOne(forUpdate(byReference(tx, batchID, "batch_id")), &record, fmt.Errorf("%w: %s", ErrTraceabilityNotFound, batchID)); err != nil {
			return err
		}

		now := s.timestamp()
		fields := mutate(&record, now)
		fields["timeline"] = record.Timeline
		fields["updated_at"] = now

		if err := saveVersioned(tx, &models.Traceability{}, record.ID, record.Version, fields); err != nil {
			return err
		}
		record.Version++
		record.UpdatedAt = now
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"batch_id": batchID,
			"actor_id": p.UserID,
		}).WithError(err).Debug("Provenance append rejected")
		return nil, err
	}
	return &record, nil
}

func (s *TraceabilityService) archiveRecord(ctx context.Context, record *models.Traceability) {
	if !s.archive.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	if err := s.archive.Store(ctx, record); err != nil {
		logrus.WithError(err).WithField("batch_id", record.BatchID).Error("Failed to archive traceability record")
	}
}

// checkLinks verifies that linked crop and product listings exist and belong to
// the farmer opening the record.
func checkLinks(tx *gorm.DB, farmerID uuid.UUID, cropID, productID *uuid.UUID) error {
	if cropID != nil {
		if err := checkCropOwner(tx, *cropID, farmerID); err != nil {
			return err
		}
	}
	if productID != nil {
		var product models.Product
		if err := findOne(tx.Where("id = ?", *productID), &product, fmt.Errorf("%w: %s", ErrProductNotFound, *productID)); err != nil {
			return err
		}
		if product.SellerID != farmerID {
			return fmt.Errorf("%w: product %s", ErrNotItemOwner, *productID)
		}
	}
	return nil
}

func formatLocation(l models.Location) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{l.Village, l.District, l.State} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

func encodeQRPayload(payload models.QRPayload) (string, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal QR payload: %w", err)
	}
	return utils.GenerateQRDataURL(string(content))
}
