// internal/models/traceability.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type QualityResult string

const (
	QualityResultPassed QualityResult = "passed"
	QualityResultFailed QualityResult = "failed"
)

type FarmDetails struct {
	FarmName  string   `json:"farm_name" validate:"required,max=200"`
	Location  Location `json:"location"`
	AreaAcres float64  `json:"area_acres,omitempty" validate:"gte=0"`
	SoilType  string   `json:"soil_type,omitempty"`
}

type CultivationDetails struct {
	CropType      string     `json:"crop_type" validate:"required,max=60"`
	Variety       string     `json:"variety,omitempty"`
	SowingDate    *time.Time `json:"sowing_date,omitempty"`
	HarvestDate   *time.Time `json:"harvest_date,omitempty"`
	FarmingMethod string     `json:"farming_method,omitempty"`
	Irrigation    string     `json:"irrigation,omitempty"`
	InputsUsed    []string   `json:"inputs_used,omitempty"`
	SeedSource    string     `json:"seed_source,omitempty"`
}

type Certification struct {
	Name        string     `json:"name" validate:"required"`
	Issuer      string     `json:"issuer" validate:"required"`
	Number      string     `json:"number,omitempty"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	DocumentURL string     `json:"document_url,omitempty" validate:"omitempty,url"`
}

type ProcessingStage struct {
	Stage       string    `json:"stage"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	ProcessedBy uuid.UUID `json:"processed_by"`
	Description string    `json:"description,omitempty"`
}

type QualityParameter struct {
	Name     string `json:"name" validate:"required"`
	Value    string `json:"value" validate:"required"`
	Unit     string `json:"unit,omitempty"`
	Standard string `json:"standard,omitempty"`
}

type QualityCheck struct {
	Date       time.Time          `json:"date"`
	CheckedBy  uuid.UUID          `json:"checked_by"`
	Parameters []QualityParameter `json:"parameters"`
	Result     QualityResult      `json:"result"`
	Remarks    string             `json:"remarks,omitempty"`
}

// TimelineEvent is one entry of the provenance log. Hash chains each entry to its
// predecessor so tampering with stored history is detectable.
type TimelineEvent struct {
	Sequence    int       `json:"sequence"`
	Event       string    `json:"event"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	ActorID     uuid.UUID `json:"actor_id"`
	Date        time.Time `json:"date"`
	Hash        string    `json:"hash"`
}

// QRPayload is the summary encoded into the batch QR code at creation time.
type QRPayload struct {
	BatchID    string `json:"batch_id"`
	FarmerName string `json:"farmer_name"`
	Location   string `json:"location"`
}

type Traceability struct {
	BaseModel
	BatchID            string                                 `json:"batch_id" gorm:"size:40;not null;uniqueIndex"`
	FarmerID           uuid.UUID                              `json:"farmer_id" gorm:"type:uuid;not null;index"`
	CropID             *uuid.UUID                             `json:"crop_id,omitempty" gorm:"type:uuid;index"`
	ProductID          *uuid.UUID                             `json:"product_id,omitempty" gorm:"type:uuid;index"`
	FarmDetails        datatypes.JSONType[FarmDetails]        `json:"farm_details"`
	CultivationDetails datatypes.JSONType[CultivationDetails] `json:"cultivation_details"`
	Certifications     datatypes.JSONSlice[Certification]     `json:"certifications"`
	ProcessingDetails  datatypes.JSONSlice[ProcessingStage]   `json:"processing_details" gorm:"not null"`
	QualityChecks      datatypes.JSONSlice[QualityCheck]      `json:"quality_checks" gorm:"not null"`
	Timeline           datatypes.JSONSlice[TimelineEvent]     `json:"timeline" gorm:"not null"`
	QRCode             string                                 `json:"qr_code" gorm:"type:text"`
	QRPayload          datatypes.JSONType[QRPayload]          `json:"qr_payload"`
	QRGeneratedAt      time.Time                              `json:"qr_generated_at"`
	ArchiveURL         string                                 `json:"archive_url,omitempty" gorm:"size:500"`
	Version            int64                                  `json:"version" gorm:"not null;default:1"`
}

// LastHash returns the hash of the newest timeline entry, or "" for an empty timeline.
func (t *Traceability) LastHash() string {
	if len(t.Timeline) == 0 {
		return ""
	}
	return t.Timeline[len(t.Timeline)-1].Hash
}
