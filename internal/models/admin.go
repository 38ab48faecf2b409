package models

import "time"

// Admin is a platform operator able to manage tenants and plans.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Login name.
	Password string `gorm:"type:text;not null"`             // Bcrypt hash.

	Active       bool   `gorm:"not null;default:true"`  // Whether the admin can sign in.
	IsSuperAdmin bool   `gorm:"not null;default:false"` // Can manage other admins.
	TOTPSecret   string `gorm:"type:text"`              // TOTP secret for MFA.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
