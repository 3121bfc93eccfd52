// internal/services/directory.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

// FarmerSummary is the public identity shown alongside a provenance record.
type FarmerSummary struct {
	ID                 uuid.UUID                 `json:"id"`
	Name               string                    `json:"name"`
	Role               models.Role               `json:"role"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
	Location           models.Location           `json:"location"`
}

// UserDirectory reads the identity directory. Accounts are managed elsewhere,
// so a missing user is not an error here.
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// Summary returns nil when the user is not in the directory.
func (d *UserDirectory) Summary(ctx context.Context, userID uuid.UUID) (*FarmerSummary, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %w", userID, err)
	}

	return &FarmerSummary{
		ID:                 user.ID,
		Name:               user.Name,
		Role:               user.Role,
		VerificationStatus: user.VerificationStatus,
		Location:           user.Location,
	}, nil
}
