package models

import (
	"time"

	"gorm.io/datatypes"
)

// Communication kinds and delivery states.
const (
	CommunicationInvitation   = "invitation"
	CommunicationReminder     = "reminder"
	CommunicationAnnouncement = "announcement"

	CommunicationSent   = "sent"
	CommunicationFailed = "failed"
)

// Communication records an outbound message for an event.
type Communication struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID uint64 `gorm:"not null;index"` // Owning event ID.

	Type            string     `gorm:"type:varchar(32);not null"` // invitation, reminder, announcement.
	Subject         string     `gorm:"type:text"`                 // Email subject.
	Status          string     `gorm:"type:varchar(16);not null"` // sent, failed.
	RecipientsCount int        `gorm:"not null;default:0"`        // Number of recipients.
	SentAt          *time.Time // Delivery timestamp.

	Metadata datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // guest_id, provider message id.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
