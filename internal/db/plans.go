package db

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultPlans returns the built-in plan catalog.
func DefaultPlans() []models.SubscriptionPlan {
	return []models.SubscriptionPlan{
		{
			Name:           "Free",
			Slug:           models.PlanSlugFree,
			PriceUSD:       0,
			MaxGuests:      50,
			MaxEvents:      1,
			StorageQuotaMB: 500,
			Features:       mustFeatures(entitlement.NewFeatureSet(entitlement.FeatureTables)),
			IsActive:       true,
			SortOrder:      1,
		},
		{
			Name:           "Pro",
			Slug:           models.PlanSlugPro,
			PriceUSD:       29,
			MaxGuests:      300,
			MaxEvents:      5,
			StorageQuotaMB: 5120,
			Features: mustFeatures(entitlement.NewFeatureSet(
				entitlement.FeatureTables,
				entitlement.FeatureCSVImport,
				entitlement.FeatureAdvancedReports,
				entitlement.FeaturePhotoModeration,
				entitlement.FeatureTimeline,
			)),
			IsActive:  true,
			SortOrder: 2,
		},
		{
			Name:           "Enterprise",
			Slug:           models.PlanSlugEnterprise,
			PriceUSD:       99,
			MaxGuests:      10000,
			MaxEvents:      100,
			StorageQuotaMB: 51200,
			Features:       mustFeatures(entitlement.NewFeatureSet(entitlement.AllFeatures()...)),
			IsActive:       true,
			SortOrder:      3,
		},
	}
}

func mustFeatures(fs entitlement.FeatureSet) datatypes.JSON {
	raw, errMarshal := json.Marshal(fs)
	if errMarshal != nil {
		panic(errMarshal)
	}
	return datatypes.JSON(raw)
}

// EnsureDefaultPlans inserts missing built-in plans by slug. Existing plans are left untouched.
func EnsureDefaultPlans(conn *gorm.DB) error {
	for _, plan := range DefaultPlans() {
		var existing models.SubscriptionPlan
		errFind := conn.Where("slug = ?", plan.Slug).First(&existing).Error
		if errFind == nil {
			continue
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("db: query plan %s: %w", plan.Slug, errFind)
		}
		p := plan
		if errCreate := conn.Create(&p).Error; errCreate != nil {
			return fmt.Errorf("db: create plan %s: %w", plan.Slug, errCreate)
		}
	}
	return nil
}

// PlanBySlug loads a plan by its catalog slug.
func PlanBySlug(conn *gorm.DB, slug string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if errFind := conn.Where("slug = ?", slug).First(&plan).Error; errFind != nil {
		return nil, errFind
	}
	return &plan, nil
}
