package db

import (
	"path/filepath"
	"testing"

	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
	internalsettings "github.com/eventhub-saas/eventhub/internal/settings"
)

func TestMigrateSeedsDefaultPlans(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "migrate.db")
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { Close(conn) })

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	// Second run must be a no-op.
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate again: %v", errMigrate)
	}

	var plans []models.SubscriptionPlan
	if errFind := conn.Order("sort_order ASC").Find(&plans).Error; errFind != nil {
		t.Fatalf("list plans: %v", errFind)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}

	free := plans[0]
	if free.Slug != models.PlanSlugFree || free.MaxGuests != 50 || free.MaxEvents != 1 || free.StorageQuotaMB != 500 {
		t.Fatalf("unexpected free plan: %+v", free)
	}
	features := entitlement.DecodeFeatures(free.Features)
	if !features.Has(entitlement.FeatureTables) {
		t.Fatalf("expected free plan to include tables")
	}
	if features.Has(entitlement.FeatureTimeline) {
		t.Fatalf("expected free plan to exclude timeline")
	}

	enterprise := entitlement.DecodeFeatures(plans[2].Features)
	for _, f := range entitlement.AllFeatures() {
		if !enterprise.Has(f) {
			t.Fatalf("expected enterprise to include %s", f)
		}
	}

	var setting models.Setting
	if errFind := conn.Where("key = ?", internalsettings.PublicRateLimitKey).First(&setting).Error; errFind != nil {
		t.Fatalf("expected rate limit setting: %v", errFind)
	}
}

func TestPlanBySlug(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "slug.db")
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { Close(conn) })
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	plan, errPlan := PlanBySlug(conn, models.PlanSlugPro)
	if errPlan != nil {
		t.Fatalf("expected pro plan, got %v", errPlan)
	}
	if plan.MaxEvents != 5 {
		t.Fatalf("expected max_events=5, got %d", plan.MaxEvents)
	}
	if _, errMissing := PlanBySlug(conn, "platinum"); errMissing == nil {
		t.Fatalf("expected error for unknown slug")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "unique.db")
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { Close(conn) })
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	dup := models.SubscriptionPlan{Name: "Dup", Slug: models.PlanSlugFree}
	errCreate := conn.Create(&dup).Error
	if errCreate == nil {
		t.Fatalf("expected duplicate slug to fail")
	}
	if !IsUniqueViolation(errCreate) {
		t.Fatalf("expected unique violation, got %v", errCreate)
	}
	if IsUniqueViolation(nil) {
		t.Fatalf("expected nil error to not be a unique violation")
	}
}
