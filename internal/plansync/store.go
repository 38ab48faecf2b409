package plansync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

// StorePlans upserts plans by slug. Plans absent from the catalog are
// deactivated, never deleted, since tenants may still reference them.
func StorePlans(ctx context.Context, db *gorm.DB, plans []models.SubscriptionPlan, syncTime time.Time) error {
	if db == nil {
		return fmt.Errorf("store plans: nil db")
	}
	if len(plans) == 0 {
		return nil
	}
	if syncTime.IsZero() {
		syncTime = time.Now()
	}
	syncTime = syncTime.UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slugs := make([]string, 0, len(plans))
		for i := range plans {
			plan := plans[i]
			slugs = append(slugs, plan.Slug)

			var existing models.SubscriptionPlan
			errFind := tx.Where("slug = ?", plan.Slug).First(&existing).Error
			if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("store plans: query %s: %w", plan.Slug, errFind)
			}
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				if errCreate := tx.Create(&plan).Error; errCreate != nil {
					return fmt.Errorf("store plans: create %s: %w", plan.Slug, errCreate)
				}
				existing = plan
			}
			if errUpdate := tx.Model(&models.SubscriptionPlan{}).Where("id = ?", existing.ID).Updates(map[string]any{
				"name":             plan.Name,
				"price_usd":        plan.PriceUSD,
				"max_guests":       plan.MaxGuests,
				"max_events":       plan.MaxEvents,
				"storage_quota_mb": plan.StorageQuotaMB,
				"features":         plan.Features,
				"is_active":        plan.IsActive,
				"sort_order":       plan.SortOrder,
				"updated_at":       syncTime,
			}).Error; errUpdate != nil {
				return fmt.Errorf("store plans: update %s: %w", plan.Slug, errUpdate)
			}
		}

		if errDeactivate := tx.Model(&models.SubscriptionPlan{}).
			Where("slug NOT IN ? AND is_active = ?", slugs, true).
			Updates(map[string]any{"is_active": false, "updated_at": syncTime}).Error; errDeactivate != nil {
			return fmt.Errorf("store plans: deactivate: %w", errDeactivate)
		}
		return nil
	})
}
