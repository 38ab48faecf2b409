package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event lifecycle states.
const (
	EventStatusDraft     = "draft"
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusArchived  = "archived"
)

// Event is a social event owned by a tenant.
type Event struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64 `gorm:"not null;index"` // Owning tenant ID.

	Name            string     `gorm:"type:text;not null"` // Event name.
	EventType       string     `gorm:"type:varchar(32)"`   // wedding, birthday, corporate, ...
	Date            time.Time  `gorm:"not null"`           // Start date.
	EndDate         *time.Time // Optional end date.
	LocationName    string     `gorm:"type:text"` // Venue name.
	LocationAddress string     `gorm:"type:text"` // Venue address.
	DressCode       string     `gorm:"type:text"` // Dress code hint.
	CustomMessage   string     `gorm:"type:text"` // Message shown on the RSVP page.
	MaxGuests       int        `gorm:"not null;default:100"`
	Status          string     `gorm:"type:varchar(16);not null;default:'draft'"`

	Settings         datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Free-form event settings.
	InvitationDesign datatypes.JSON `gorm:"type:jsonb"`                       // Invitation canvas document.

	CreatedBy *uint64 `gorm:"index"` // Creating user ID.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
