package models

import (
	"time"

	"gorm.io/datatypes"
)

// Moderation states.
const (
	PhotoPending  = "pending"
	PhotoApproved = "approved"
	PhotoRejected = "rejected"
)

// Photo is an image uploaded to an event gallery.
type Photo struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID           uint64  `gorm:"not null;index"` // Owning event ID.
	UploadedByGuestID *uint64 `gorm:"index"`          // Uploading guest, when known.

	FilePath         string `gorm:"type:text;not null"`                          // Object path inside the bucket.
	Caption          string `gorm:"type:text"`                                   // Optional caption.
	FileSizeBytes    int64  `gorm:"not null;default:0"`                          // Upload size.
	ModerationStatus string `gorm:"type:varchar(16);not null;default:'pending'"` // pending, approved, rejected.

	Metadata datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Original filename, mime type.

	UploadedAt time.Time `gorm:"not null;autoCreateTime"` // Upload timestamp.
}
