package models

import "time"

// Table shapes.
const (
	TableShapeRound       = "round"
	TableShapeRectangular = "rectangular"
	TableShapeSquare      = "square"
)

// EventTable is a seating table placed on the layout canvas.
type EventTable struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID uint64 `gorm:"not null;index"` // Owning event ID.

	Name     string  `gorm:"type:text;not null"`                        // Display label.
	Shape    string  `gorm:"type:varchar(16);not null;default:'round'"` // round, rectangular, square.
	Seats    int     `gorm:"not null;default:8"`                        // Seat capacity.
	X        float64 `gorm:"column:x_position;not null;default:0"`      // Canvas x.
	Y        float64 `gorm:"column:y_position;not null;default:0"`      // Canvas y.
	Rotation float64 `gorm:"not null;default:0"`                        // Degrees.
	Notes    string  `gorm:"type:text"`                                 // Free-form notes.

	Guests []Guest `gorm:"foreignKey:TableID"` // Seated guests.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
