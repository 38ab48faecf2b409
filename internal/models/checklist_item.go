package models

import "time"

// ChecklistItem is a completable planning task of an event.
type ChecklistItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID uint64 `gorm:"not null;index"` // Owning event ID.

	Title       string     `gorm:"type:text;not null"`     // Task title.
	Description string     `gorm:"type:text"`              // Optional details.
	IsCompleted bool       `gorm:"not null;default:false"` // Completion flag.
	SortOrder   int        `gorm:"not null;default:0"`     // Display order.
	DueDate     *time.Time // Optional due date.
	CompletedAt *time.Time // Set while completed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
