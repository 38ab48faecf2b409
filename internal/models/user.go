package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tenant member roles.
const (
	RoleTenantOwner  = "tenant_owner"
	RoleOrganizer    = "organizer"
	RoleCollaborator = "collaborator"
)

// User is an organizer account inside a tenant, linked to a hosted-auth identity.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AuthID   string  `gorm:"type:varchar(255);not null;uniqueIndex"` // Hosted-auth subject.
	TenantID uint64  `gorm:"not null;index"`                         // Owning tenant ID.
	Tenant   *Tenant `gorm:"foreignKey:TenantID"`                    // Owning tenant.

	Email    string `gorm:"type:text;not null"`                            // Email address.
	FullName string `gorm:"type:text"`                                     // Display name.
	Role     string `gorm:"type:varchar(32);not null;default:'organizer'"` // Tenant role.

	Permissions datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Extra permission keys.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
