package models

import "time"

// TimelineItem is one entry of an event-day agenda.
type TimelineItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID uint64 `gorm:"not null;index"` // Owning event ID.

	Title       string     `gorm:"type:text;not null"`                        // Item title.
	Description string     `gorm:"type:text"`                                 // Optional details.
	StartTime   time.Time  `gorm:"not null"`                                  // Scheduled start.
	EndTime     *time.Time // Optional end.
	Icon        string     `gorm:"type:varchar(32);not null;default:'clock'"` // Icon tag.
	Order       int        `gorm:"column:sort_order;not null;default:0"`      // Manual position.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
