package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

// snapshot is the process-wide copy of the settings table.
type snapshot struct {
	mu        sync.RWMutex
	values    map[string]json.RawMessage
	updatedAt time.Time
}

var current = &snapshot{values: map[string]json.RawMessage{}}

// StoreDBConfig replaces the cached settings snapshot.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	copied := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		copied[k] = append(json.RawMessage(nil), v...)
	}
	current.mu.Lock()
	current.values = copied
	current.updatedAt = updatedAt.UTC()
	current.mu.Unlock()
}

// DBConfigValue returns the cached raw JSON value for key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	current.mu.RLock()
	defer current.mu.RUnlock()
	v, ok := current.values[strings.TrimSpace(key)]
	if !ok || len(bytes.TrimSpace(v)) == 0 {
		return nil, false
	}
	return v, true
}

// DBConfigUpdatedAt reports the newest updated_at seen in the snapshot.
func DBConfigUpdatedAt() time.Time {
	current.mu.RLock()
	defer current.mu.RUnlock()
	return current.updatedAt
}

// row mirrors the columns of the settings table read by the snapshot loader.
type row struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// Refresh rebuilds the snapshot from the settings table.
func Refresh(ctx context.Context, db *gorm.DB) error {
	var rows []row
	if errFind := db.WithContext(ctx).
		Table("settings").
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, r := range rows {
		key := strings.TrimSpace(r.Key)
		if key == "" {
			continue
		}
		values[key] = r.Value
		if r.UpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = r.UpdatedAt
		}
	}
	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// String reads a string setting, falling back to def.
func String(key, def string) string {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal != nil {
		return def
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// Int reads a non-negative integer setting, falling back to def.
// Numbers and numeric strings are both accepted.
func Int(key string, def int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	var n int
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil && n >= 0 {
		return n
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		if parsed, errParse := strconv.Atoi(strings.TrimSpace(s)); errParse == nil && parsed >= 0 {
			return parsed
		}
	}
	return def
}
