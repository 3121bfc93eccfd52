// internal/models/user.go
package models

// User is the read-only identity directory entry. Registration and credentials live
// in the account service; this table only mirrors what the marketplace displays.
type User struct {
	BaseModel
	Name               string             `json:"name" gorm:"size:120;not null"`
	Phone              string             `json:"phone,omitempty" gorm:"size:20;index"`
	Email              string             `json:"email,omitempty" gorm:"size:255"`
	Role               Role               `json:"role" gorm:"type:varchar(20);not null;index"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:varchar(20);default:'pending'"`
	Location           Location           `json:"location" gorm:"embedded;embeddedPrefix:location_"`
}
