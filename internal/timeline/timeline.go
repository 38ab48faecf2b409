// Package timeline manages the event-day agenda.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

// DefaultIcon is used when an item names no icon.
const DefaultIcon = "clock"

// ItemInput holds the fields of a new agenda item.
type ItemInput struct {
	Title       string
	Description string
	StartTime   string
	EndTime     string
	Icon        string
	Order       *int
}

// ItemPatch is a partial agenda item update. Nil fields are left unchanged.
type ItemPatch struct {
	Title       *string
	Description *string
	StartTime   *string
	EndTime     *string
	Icon        *string
	Order       *int
}

// Service manages agenda items. Every operation requires the timeline feature.
type Service struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
}

// NewService constructs a Service.
func NewService(db *gorm.DB, resolver *entitlement.Resolver) *Service {
	return &Service{db: db, resolver: resolver}
}

func (s *Service) guard(ctx context.Context, tenantID, eventID uint64) error {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return errOwned
	}
	return s.resolver.RequireFeature(ctx, tenantID, entitlement.FeatureTimeline)
}

// List returns the agenda ordered by manual order, then start time.
func (s *Service) List(ctx context.Context, tenantID, eventID uint64) ([]models.TimelineItem, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	return s.list(ctx, eventID)
}

func (s *Service) list(ctx context.Context, eventID uint64) ([]models.TimelineItem, error) {
	var out []models.TimelineItem
	if errFind := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("sort_order ASC").Order("start_time ASC").Order("id ASC").
		Find(&out).Error; errFind != nil {
		return nil, fmt.Errorf("timeline: list: %w", errFind)
	}
	return out, nil
}

// Create appends an item after the current last one unless an order is given.
func (s *Service) Create(ctx context.Context, tenantID, eventID uint64, in ItemInput) (*models.TimelineItem, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	fields := domain.FieldErrors{}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		fields.Add("title", "is required")
	}
	start, okStart := events.ParseDate(in.StartTime)
	if !okStart {
		fields.Add("start_time", "invalid start time")
	}
	var end *time.Time
	if strings.TrimSpace(in.EndTime) != "" {
		if parsed, ok := events.ParseDate(in.EndTime); ok {
			end = &parsed
		} else {
			fields.Add("end_time", "invalid end time")
		}
	}
	if end != nil && okStart && end.Before(start) {
		fields.Add("end_time", "must not be before start_time")
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}

	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = DefaultIcon
	}
	item := models.TimelineItem{
		EventID:     eventID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		StartTime:   start,
		EndTime:     end,
		Icon:        icon,
	}
	if in.Order != nil {
		item.Order = *in.Order
	} else {
		maxOrder := -1
		if errMax := s.db.WithContext(ctx).Model(&models.TimelineItem{}).
			Where("event_id = ?", eventID).
			Select("COALESCE(MAX(sort_order), -1)").Scan(&maxOrder).Error; errMax != nil {
			return nil, fmt.Errorf("timeline: max order: %w", errMax)
		}
		item.Order = maxOrder + 1
	}
	if errCreate := s.db.WithContext(ctx).Create(&item).Error; errCreate != nil {
		return nil, fmt.Errorf("timeline: create: %w", errCreate)
	}
	return &item, nil
}

func (s *Service) find(ctx context.Context, eventID, itemID uint64) (*models.TimelineItem, error) {
	var item models.TimelineItem
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND event_id = ?", itemID, eventID).
		First(&item).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("timeline: load: %w", errFind)
	}
	return &item, nil
}

// Update writes only the supplied fields.
func (s *Service) Update(ctx context.Context, tenantID, eventID, itemID uint64, patch ItemPatch) (*models.TimelineItem, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	item, errFind := s.find(ctx, eventID, itemID)
	if errFind != nil {
		return nil, errFind
	}

	fields := domain.FieldErrors{}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			fields.Add("title", "is required")
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.StartTime != nil {
		start, ok := events.ParseDate(*patch.StartTime)
		if !ok {
			fields.Add("start_time", "invalid start time")
		}
		updates["start_time"] = start
	}
	if patch.EndTime != nil {
		if strings.TrimSpace(*patch.EndTime) == "" {
			updates["end_time"] = nil
		} else if end, ok := events.ParseDate(*patch.EndTime); ok {
			updates["end_time"] = end
		} else {
			fields.Add("end_time", "invalid end time")
		}
	}
	if patch.Icon != nil {
		icon := strings.TrimSpace(*patch.Icon)
		if icon == "" {
			icon = DefaultIcon
		}
		updates["icon"] = icon
	}
	if patch.Order != nil {
		updates["sort_order"] = *patch.Order
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}
	if errUpdate := s.db.WithContext(ctx).Model(item).Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("timeline: update: %w", errUpdate)
	}
	return s.find(ctx, eventID, itemID)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, tenantID, eventID, itemID uint64) error {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return errGuard
	}
	res := s.db.WithContext(ctx).Where("id = ? AND event_id = ?", itemID, eventID).Delete(&models.TimelineItem{})
	if res.Error != nil {
		return fmt.Errorf("timeline: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Reorder assigns order 0..n-1 to the given ids in one transaction and returns the new agenda.
// Every id must belong to the event and appear once.
func (s *Service) Reorder(ctx context.Context, tenantID, eventID uint64, ids []uint64) ([]models.TimelineItem, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	if len(ids) == 0 {
		return nil, domain.Invalid("items", "must not be empty")
	}
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, domain.Invalid("items", fmt.Sprintf("item %d listed twice", id))
		}
		seen[id] = struct{}{}
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if errCount := tx.Model(&models.TimelineItem{}).
			Where("event_id = ? AND id IN ?", eventID, ids).
			Count(&owned).Error; errCount != nil {
			return errCount
		}
		if owned != int64(len(ids)) {
			return domain.ErrNotFound
		}
		now := time.Now().UTC()
		for i, id := range ids {
			if errUpdate := tx.Model(&models.TimelineItem{}).
				Where("id = ? AND event_id = ?", id, eventID).
				Updates(map[string]any{"sort_order": i, "updated_at": now}).Error; errUpdate != nil {
				return errUpdate
			}
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, domain.ErrNotFound) {
			return nil, errTx
		}
		return nil, fmt.Errorf("timeline: reorder: %w", errTx)
	}
	return s.list(ctx, eventID)
}
