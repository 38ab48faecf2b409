package models

import (
	"encoding/json"
	"time"
)

// Setting is a runtime-tunable key/value pair.
type Setting struct {
	Key       string          `gorm:"type:varchar(128);primaryKey"` // Setting key.
	Value     json.RawMessage `gorm:"type:jsonb;not null"`          // JSON encoded value.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime"`      // Last update timestamp.
}
