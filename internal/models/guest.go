package models

import (
	"time"

	"gorm.io/datatypes"
)

// RSVP states.
const (
	RSVPPending   = "pending"
	RSVPConfirmed = "confirmed"
	RSVPDeclined  = "declined"
	RSVPTentative = "tentative"
)

// DietaryRestrictions holds the restriction flags a guest reports.
type DietaryRestrictions struct {
	IsVegetarian        bool     `json:"is_vegetarian,omitempty"`
	IsVegan             bool     `json:"is_vegan,omitempty"`
	IsGlutenFree        bool     `json:"is_gluten_free,omitempty"`
	IsLactoseIntolerant bool     `json:"is_lactose_intolerant,omitempty"`
	Allergies           []string `json:"allergies,omitempty"`
	OtherNotes          string   `json:"other_notes,omitempty"`
}

// Guest is an invitee of one event.
type Guest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID uint64 `gorm:"not null;index"` // Owning event ID.

	FullName string `gorm:"type:text;not null"` // Display name.
	Email    string `gorm:"type:text"`          // Contact email.
	Phone    string `gorm:"type:text"`          // Contact phone.

	InvitationToken string `gorm:"type:varchar(64);not null;uniqueIndex"` // Opaque RSVP token.

	RSVPStatus        string                      `gorm:"column:rsvp_status;type:varchar(16);not null;default:'pending'"`
	PlusOnesAllowed   int                         `gorm:"not null;default:0"`
	PlusOnesConfirmed int                         `gorm:"not null;default:0"`
	PlusOnesNames     datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"`

	DietaryRestrictions datatypes.JSONType[DietaryRestrictions] `gorm:"type:jsonb;not null;default:'{}'"`

	GroupName string  `gorm:"type:text"` // Category such as family or friends.
	TableID   *uint64 `gorm:"index"`     // Assigned table ID.
	Notes     string  `gorm:"type:text"` // Free-form notes.

	InvitationSentAt   *time.Time // Last invitation email.
	InvitationOpenedAt *time.Time // First RSVP page view.
	RespondedAt        *time.Time // Last RSVP submission.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
