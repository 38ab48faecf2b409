package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan slugs seeded on first migration.
const (
	PlanSlugFree       = "free"
	PlanSlugPro        = "pro"
	PlanSlugEnterprise = "enterprise"
)

// SubscriptionPlan is a named tier bundling quotas and boolean features.
type SubscriptionPlan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string  `gorm:"type:varchar(255);not null"`            // Display name.
	Slug     string  `gorm:"type:varchar(64);not null;uniqueIndex"` // Stable catalog key.
	PriceUSD float64 `gorm:"type:decimal(10,2);not null;default:0"` // Monthly price.

	MaxGuests      int `gorm:"not null;default:0"` // Guests allowed per event.
	MaxEvents      int `gorm:"not null;default:0"` // Non-archived events allowed per tenant.
	StorageQuotaMB int `gorm:"not null;default:0"` // Photo storage allowance.

	Features datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Feature key -> enabled.

	IsActive  bool `gorm:"not null;default:true"` // Whether new tenants may pick the plan.
	SortOrder int  `gorm:"not null;default:0"`    // Display ordering weight.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
