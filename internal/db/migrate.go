package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/models"
	internalsettings "github.com/eventhub-saas/eventhub/internal/settings"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema and seeds defaults.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.SubscriptionPlan{},
		&models.Tenant{},
		&models.User{},
		&models.Event{},
		&models.EventTable{},
		&models.Guest{},
		&models.TimelineItem{},
		&models.Photo{},
		&models.ChecklistItem{},
		&models.Communication{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_guests_event_table ON guests (event_id, table_id)`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_items_event_order ON timeline_items (event_id, sort_order, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_event_status ON photos (event_id, moderation_status)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tenant_status ON events (tenant_id, status)`,
	} {
		if errIndex := conn.Exec(stmt).Error; errIndex != nil {
			return fmt.Errorf("db: create index: %w", errIndex)
		}
	}

	if errSeed := EnsureDefaultPlans(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureIntSetting(conn, internalsettings.PublicRateLimitKey, internalsettings.DefaultPublicRateLimit); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureIntSetting(conn, internalsettings.BulkEmailDelayMillisKey, internalsettings.DefaultBulkEmailDelayMillis); errSeed != nil {
		return errSeed
	}
	return nil
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := json.RawMessage(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
