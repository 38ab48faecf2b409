package models

import "time"

// Subscription states stored on a tenant.
const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Tenant is an organization owning events.
type Tenant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null"` // Organization name.

	PlanID *uint64           `gorm:"index"`             // Current plan ID.
	Plan   *SubscriptionPlan `gorm:"foreignKey:PlanID"` // Current plan.

	SubscriptionStatus string `gorm:"type:varchar(32);not null;default:'active'"` // Billing state.
	StorageUsedMB      int    `gorm:"not null;default:0"`                         // Cumulative photo storage.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
