// Package dbtest builds migrated SQLite databases and fixtures for tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/eventhub-saas/eventhub/internal/db"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Open returns a migrated database in the test's temp dir.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "test.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

// Tenant creates a tenant on the plan with the given slug.
func Tenant(t *testing.T, conn *gorm.DB, planSlug string) models.Tenant {
	t.Helper()
	plan, errPlan := db.PlanBySlug(conn, planSlug)
	if errPlan != nil {
		t.Fatalf("load plan %s: %v", planSlug, errPlan)
	}
	tenant := models.Tenant{Name: "Tenant " + planSlug, PlanID: &plan.ID}
	if errCreate := conn.Create(&tenant).Error; errCreate != nil {
		t.Fatalf("create tenant: %v", errCreate)
	}
	return tenant
}

// Event creates a draft event for the tenant.
func Event(t *testing.T, conn *gorm.DB, tenantID uint64, name string) models.Event {
	t.Helper()
	event := models.Event{
		TenantID:  tenantID,
		Name:      name,
		Date:      time.Now().UTC().Add(30 * 24 * time.Hour),
		MaxGuests: 100,
		Status:    models.EventStatusDraft,
		Settings:  datatypes.JSON("{}"),
	}
	if errCreate := conn.Create(&event).Error; errCreate != nil {
		t.Fatalf("create event: %v", errCreate)
	}
	return event
}

// Guest creates a guest with the given RSVP status.
func Guest(t *testing.T, conn *gorm.DB, eventID uint64, name, status string) models.Guest {
	t.Helper()
	guest := models.Guest{
		EventID:         eventID,
		FullName:        name,
		InvitationToken: uuid.NewString(),
		RSVPStatus:      status,
		PlusOnesNames:   datatypes.JSONSlice[string]{},
	}
	if errCreate := conn.Create(&guest).Error; errCreate != nil {
		t.Fatalf("create guest: %v", errCreate)
	}
	return guest
}

// SetPlanLimits overwrites the numeric quotas of a plan.
func SetPlanLimits(t *testing.T, conn *gorm.DB, planSlug string, maxEvents, maxGuests, storageMB int) {
	t.Helper()
	if errUpdate := conn.Model(&models.SubscriptionPlan{}).Where("slug = ?", planSlug).Updates(map[string]any{
		"max_events":       maxEvents,
		"max_guests":       maxGuests,
		"storage_quota_mb": storageMB,
	}).Error; errUpdate != nil {
		t.Fatalf("update plan: %v", errUpdate)
	}
}
