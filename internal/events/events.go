package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultMaxGuests is the capacity estimate used when none is given.
const DefaultMaxGuests = 100

// ObjectRemover deletes stored objects that belonged to a removed event.
type ObjectRemover interface {
	RemoveObjects(ctx context.Context, paths []string) error
}

// Service manages events of a tenant.
type Service struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
	objects  ObjectRemover
}

// NewService constructs a Service. objects may be nil.
func NewService(db *gorm.DB, resolver *entitlement.Resolver, objects ObjectRemover) *Service {
	return &Service{db: db, resolver: resolver, objects: objects}
}

// CreateInput holds the fields accepted when creating an event.
type CreateInput struct {
	Name            string
	EventType       string
	Date            string
	EndDate         string
	LocationName    string
	LocationAddress string
	DressCode       string
	CustomMessage   string
	MaxGuests       int
}

// UpdateInput holds a partial event update. Nil fields are left unchanged.
type UpdateInput struct {
	Name            *string
	EventType       *string
	Date            *string
	EndDate         *string
	LocationName    *string
	LocationAddress *string
	DressCode       *string
	CustomMessage   *string
	MaxGuests       *int
	Status          *string
}

var validStatuses = map[string]struct{}{
	models.EventStatusDraft:     {},
	models.EventStatusActive:    {},
	models.EventStatusCompleted: {},
	models.EventStatusArchived:  {},
}

var validTypes = map[string]struct{}{
	"wedding": {}, "quinceanera": {}, "birthday": {}, "corporate": {}, "anniversary": {}, "other": {},
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Create validates input, checks the event quota, and inserts a draft event.
func (s *Service) Create(ctx context.Context, tenantID, userID uint64, in CreateInput) (*models.Event, error) {
	fields := domain.FieldErrors{}
	name := strings.TrimSpace(in.Name)
	if len([]rune(name)) < 3 {
		fields.Add("name", "must be at least 3 characters")
	}
	date, okDate := ParseDate(in.Date)
	if !okDate {
		fields.Add("date", "invalid date")
	}
	var endDate *time.Time
	if strings.TrimSpace(in.EndDate) != "" {
		if parsed, ok := ParseDate(in.EndDate); ok {
			endDate = &parsed
		} else {
			fields.Add("end_date", "invalid date")
		}
	}
	if in.MaxGuests < 0 {
		fields.Add("max_guests", "must be positive")
	}
	eventType := strings.TrimSpace(in.EventType)
	if eventType != "" {
		if _, ok := validTypes[eventType]; !ok {
			fields.Add("event_type", "unknown event type")
		}
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}

	decision, errQuota := s.resolver.CheckEventQuota(ctx, tenantID)
	if errQuota != nil {
		return nil, errQuota
	}
	if errDenied := decision.Err(); errDenied != nil {
		return nil, errDenied
	}

	maxGuests := in.MaxGuests
	if maxGuests == 0 {
		maxGuests = DefaultMaxGuests
	}
	event := models.Event{
		TenantID:        tenantID,
		Name:            name,
		EventType:       eventType,
		Date:            date,
		EndDate:         endDate,
		LocationName:    strings.TrimSpace(in.LocationName),
		LocationAddress: strings.TrimSpace(in.LocationAddress),
		DressCode:       strings.TrimSpace(in.DressCode),
		CustomMessage:   strings.TrimSpace(in.CustomMessage),
		MaxGuests:       maxGuests,
		Status:          models.EventStatusDraft,
		Settings:        datatypes.JSON("{}"),
	}
	if userID != 0 {
		event.CreatedBy = &userID
	}
	if errCreate := s.db.WithContext(ctx).Create(&event).Error; errCreate != nil {
		return nil, fmt.Errorf("events: create: %w", errCreate)
	}
	return &event, nil
}

// List returns the tenant's events, newest first.
func (s *Service) List(ctx context.Context, tenantID uint64) ([]models.Event, error) {
	var out []models.Event
	if errFind := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error; errFind != nil {
		return nil, fmt.Errorf("events: list: %w", errFind)
	}
	return out, nil
}

// Get loads an event owned by the tenant.
func (s *Service) Get(ctx context.Context, tenantID, eventID uint64) (*models.Event, error) {
	return Owned(ctx, s.db, tenantID, eventID)
}

// Owned loads an event and rejects events of other tenants with domain.ErrNotFound.
func Owned(ctx context.Context, db *gorm.DB, tenantID, eventID uint64) (*models.Event, error) {
	if eventID == 0 {
		return nil, domain.ErrNotFound
	}
	var event models.Event
	if errFind := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", eventID, tenantID).
		First(&event).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("events: load: %w", errFind)
	}
	return &event, nil
}

// ResolveActive returns the requested event when the tenant owns it, else the latest created event.
func (s *Service) ResolveActive(ctx context.Context, tenantID, requestedID uint64) (*models.Event, error) {
	if requestedID != 0 {
		event, errOwned := Owned(ctx, s.db, tenantID, requestedID)
		if errOwned == nil {
			return event, nil
		}
		if !errors.Is(errOwned, domain.ErrNotFound) {
			return nil, errOwned
		}
	}
	var latest models.Event
	if errFind := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Order("id DESC").
		First(&latest).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("events: latest: %w", errFind)
	}
	return &latest, nil
}

// Update applies a partial update to an owned event.
func (s *Service) Update(ctx context.Context, tenantID, eventID uint64, in UpdateInput) (*models.Event, error) {
	event, errOwned := Owned(ctx, s.db, tenantID, eventID)
	if errOwned != nil {
		return nil, errOwned
	}

	fields := domain.FieldErrors{}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len([]rune(name)) < 3 {
			fields.Add("name", "must be at least 3 characters")
		}
		updates["name"] = name
	}
	if in.EventType != nil {
		eventType := strings.TrimSpace(*in.EventType)
		if _, ok := validTypes[eventType]; eventType != "" && !ok {
			fields.Add("event_type", "unknown event type")
		}
		updates["event_type"] = eventType
	}
	if in.Date != nil {
		date, ok := ParseDate(*in.Date)
		if !ok {
			fields.Add("date", "invalid date")
		}
		updates["date"] = date
	}
	if in.EndDate != nil {
		if strings.TrimSpace(*in.EndDate) == "" {
			updates["end_date"] = nil
		} else if endDate, ok := ParseDate(*in.EndDate); ok {
			updates["end_date"] = endDate
		} else {
			fields.Add("end_date", "invalid date")
		}
	}
	if in.LocationName != nil {
		updates["location_name"] = strings.TrimSpace(*in.LocationName)
	}
	if in.LocationAddress != nil {
		updates["location_address"] = strings.TrimSpace(*in.LocationAddress)
	}
	if in.DressCode != nil {
		updates["dress_code"] = strings.TrimSpace(*in.DressCode)
	}
	if in.CustomMessage != nil {
		updates["custom_message"] = strings.TrimSpace(*in.CustomMessage)
	}
	if in.MaxGuests != nil {
		if *in.MaxGuests <= 0 {
			fields.Add("max_guests", "must be positive")
		}
		updates["max_guests"] = *in.MaxGuests
	}
	if in.Status != nil {
		status := strings.TrimSpace(*in.Status)
		if _, ok := validStatuses[status]; !ok {
			fields.Add("status", "must be one of draft active completed archived")
		}
		updates["status"] = status
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}

	if in.Status != nil && event.Status == models.EventStatusArchived && *in.Status != models.EventStatusArchived {
		// Unarchiving counts against the active event quota again.
		decision, errQuota := s.resolver.CheckEventQuota(ctx, tenantID)
		if errQuota != nil {
			return nil, errQuota
		}
		if errDenied := decision.Err(); errDenied != nil {
			return nil, errDenied
		}
	}

	if errUpdate := s.db.WithContext(ctx).Model(event).Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("events: update: %w", errUpdate)
	}
	return Owned(ctx, s.db, tenantID, eventID)
}

// Delete removes an owned event with everything scoped to it.
// Stored photo objects are removed best effort after the rows are gone.
func (s *Service) Delete(ctx context.Context, tenantID, eventID uint64) error {
	if _, errOwned := Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return errOwned
	}

	var photoPaths []string
	freedMB := 0
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var photos []models.Photo
		if errFind := tx.Select("file_path", "file_size_bytes").Where("event_id = ?", eventID).Find(&photos).Error; errFind != nil {
			return errFind
		}
		for _, p := range photos {
			photoPaths = append(photoPaths, p.FilePath)
			freedMB += BytesToMB(p.FileSizeBytes)
		}
		for _, model := range []any{
			&models.Guest{},
			&models.EventTable{},
			&models.TimelineItem{},
			&models.Photo{},
			&models.ChecklistItem{},
			&models.Communication{},
		} {
			if errDelete := tx.Where("event_id = ?", eventID).Delete(model).Error; errDelete != nil {
				return errDelete
			}
		}
		if freedMB > 0 {
			if errUsage := ReleaseStorage(tx, tenantID, freedMB); errUsage != nil {
				return errUsage
			}
		}
		return tx.Where("id = ? AND tenant_id = ?", eventID, tenantID).Delete(&models.Event{}).Error
	})
	if errTx != nil {
		return fmt.Errorf("events: delete: %w", errTx)
	}

	if s.objects != nil && len(photoPaths) > 0 {
		if errRemove := s.objects.RemoveObjects(ctx, photoPaths); errRemove != nil {
			log.WithError(errRemove).WithField("event_id", eventID).Warn("events: remove photo objects failed")
		}
	}
	return nil
}

// MergeSettings shallow-merges patch into the event settings. Keys absent from patch are kept.
func (s *Service) MergeSettings(ctx context.Context, tenantID, eventID uint64, patch map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	event, errOwned := Owned(ctx, s.db, tenantID, eventID)
	if errOwned != nil {
		return nil, errOwned
	}
	merged, errMerge := MergeJSONObject(event.Settings, patch)
	if errMerge != nil {
		return nil, errMerge
	}
	raw, errMarshal := json.Marshal(merged)
	if errMarshal != nil {
		return nil, fmt.Errorf("events: marshal settings: %w", errMarshal)
	}
	if errUpdate := s.db.WithContext(ctx).Model(event).Updates(map[string]any{
		"settings":   datatypes.JSON(raw),
		"updated_at": time.Now().UTC(),
	}).Error; errUpdate != nil {
		return nil, fmt.Errorf("events: update settings: %w", errUpdate)
	}
	return merged, nil
}

// MergeJSONObject applies patch over the JSON object in current.
func MergeJSONObject(current []byte, patch map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(current) > 0 {
		if errUnmarshal := json.Unmarshal(current, &merged); errUnmarshal != nil || merged == nil {
			merged = map[string]json.RawMessage{}
		}
	}
	for key, value := range patch {
		if strings.TrimSpace(key) == "" {
			return nil, domain.Invalid("settings", "keys must not be empty")
		}
		merged[key] = value
	}
	return merged, nil
}

// SettingBool reads a boolean flag from event settings. Missing or non-boolean values are false.
func SettingBool(event *models.Event, key string) bool {
	if event == nil || len(event.Settings) == 0 {
		return false
	}
	var values map[string]json.RawMessage
	if errUnmarshal := json.Unmarshal(event.Settings, &values); errUnmarshal != nil {
		return false
	}
	var flag bool
	if errUnmarshal := json.Unmarshal(values[key], &flag); errUnmarshal != nil {
		return false
	}
	return flag
}

// SaveInvitationDesign stores the invitation document verbatim.
func (s *Service) SaveInvitationDesign(ctx context.Context, tenantID, eventID uint64, design json.RawMessage) error {
	event, errOwned := Owned(ctx, s.db, tenantID, eventID)
	if errOwned != nil {
		return errOwned
	}
	var fields map[string]json.RawMessage
	if errUnmarshal := json.Unmarshal(design, &fields); errUnmarshal != nil || fields == nil {
		return domain.Invalid("invitation_design", "must be a JSON object")
	}
	if errUpdate := s.db.WithContext(ctx).Model(event).Updates(map[string]any{
		"invitation_design": datatypes.JSON(design),
		"updated_at":        time.Now().UTC(),
	}).Error; errUpdate != nil {
		return fmt.Errorf("events: save invitation design: %w", errUpdate)
	}
	return nil
}

// InvitationDesign returns the stored invitation document, or nil when none was saved.
func (s *Service) InvitationDesign(ctx context.Context, tenantID, eventID uint64) (json.RawMessage, error) {
	event, errOwned := Owned(ctx, s.db, tenantID, eventID)
	if errOwned != nil {
		return nil, errOwned
	}
	if len(event.InvitationDesign) == 0 {
		return nil, nil
	}
	return json.RawMessage(event.InvitationDesign), nil
}
