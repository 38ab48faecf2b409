package events

import (
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

const bytesPerMB = 1024 * 1024

// BytesToMB rounds a byte count up to whole megabytes.
func BytesToMB(n int64) int {
	if n <= 0 {
		return 0
	}
	return int((n + bytesPerMB - 1) / bytesPerMB)
}

// AccrueStorage adds mb to the tenant's storage counter.
func AccrueStorage(tx *gorm.DB, tenantID uint64, mb int) error {
	if mb <= 0 {
		return nil
	}
	return tx.Model(&models.Tenant{}).Where("id = ?", tenantID).
		Update("storage_used_mb", gorm.Expr("storage_used_mb + ?", mb)).Error
}

// ReleaseStorage subtracts mb from the tenant's storage counter, flooring at zero.
func ReleaseStorage(tx *gorm.DB, tenantID uint64, mb int) error {
	if mb <= 0 {
		return nil
	}
	return tx.Model(&models.Tenant{}).Where("id = ?", tenantID).
		Update("storage_used_mb", gorm.Expr("CASE WHEN storage_used_mb > ? THEN storage_used_mb - ? ELSE 0 END", mb, mb)).Error
}
