// internal/services/principal.go
package services

import (
	"github.com/google/uuid"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

// Principal is the authenticated caller. Every workflow operation receives it
// explicitly; services never read request-scoped state.
type Principal struct {
	UserID             uuid.UUID
	Role               models.Role
	VerificationStatus models.VerificationStatus
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p Principal) IsSeller() bool {
	return p.Role.IsSeller()
}

func (p Principal) IsProcessor() bool {
	return p.Role == models.RoleProcessor
}
