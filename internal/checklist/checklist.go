// Package checklist manages the planning task list of an event.
package checklist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

// DefaultTasks are materialized the first time an event's checklist is read.
var DefaultTasks = []string{
	"Set the event date and venue",
	"Draft the preliminary guest list",
	"Design the digital invitations",
	"Send the invitations",
	"Plan the table layout",
	"Confirm the menu and dietary restrictions",
}

// Input holds the fields of a new task.
type Input struct {
	Title       string
	Description string
	DueDate     string
}

// Service manages checklist items.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns the event's tasks by sort order, creating the default set when none exist.
func (s *Service) List(ctx context.Context, tenantID, eventID uint64) ([]models.ChecklistItem, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	var items []models.ChecklistItem
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Where("event_id = ?", eventID).
			Order("sort_order ASC").Order("id ASC").
			Find(&items).Error; errFind != nil {
			return errFind
		}
		if len(items) > 0 {
			return nil
		}
		items = make([]models.ChecklistItem, 0, len(DefaultTasks))
		for i, title := range DefaultTasks {
			items = append(items, models.ChecklistItem{EventID: eventID, Title: title, SortOrder: i + 1})
		}
		return tx.Create(&items).Error
	})
	if errTx != nil {
		return nil, fmt.Errorf("checklist: list: %w", errTx)
	}
	return items, nil
}

// Create appends a task.
func (s *Service) Create(ctx context.Context, tenantID, eventID uint64, in Input) (*models.ChecklistItem, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	fields := domain.FieldErrors{}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		fields.Add("title", "is required")
	}
	var due *time.Time
	if strings.TrimSpace(in.DueDate) != "" {
		if parsed, ok := events.ParseDate(in.DueDate); ok {
			due = &parsed
		} else {
			fields.Add("due_date", "invalid date")
		}
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}

	maxOrder := 0
	if errMax := s.db.WithContext(ctx).Model(&models.ChecklistItem{}).
		Where("event_id = ?", eventID).
		Select("COALESCE(MAX(sort_order), 0)").Scan(&maxOrder).Error; errMax != nil {
		return nil, fmt.Errorf("checklist: max order: %w", errMax)
	}
	item := models.ChecklistItem{
		EventID:     eventID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		SortOrder:   maxOrder + 1,
		DueDate:     due,
	}
	if errCreate := s.db.WithContext(ctx).Create(&item).Error; errCreate != nil {
		return nil, fmt.Errorf("checklist: create: %w", errCreate)
	}
	return &item, nil
}

func (s *Service) find(ctx context.Context, eventID, itemID uint64) (*models.ChecklistItem, error) {
	var item models.ChecklistItem
	if errFind := s.db.WithContext(ctx).Where("id = ? AND event_id = ?", itemID, eventID).First(&item).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("checklist: load: %w", errFind)
	}
	return &item, nil
}

// SetCompleted sets the completion state. Repeating the same state changes nothing.
func (s *Service) SetCompleted(ctx context.Context, tenantID, eventID, itemID uint64, completed bool) (*models.ChecklistItem, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	item, errFind := s.find(ctx, eventID, itemID)
	if errFind != nil {
		return nil, errFind
	}
	if item.IsCompleted == completed {
		return item, nil
	}
	updates := map[string]any{"is_completed": completed, "completed_at": nil}
	if completed {
		updates["completed_at"] = time.Now().UTC()
	}
	if errUpdate := s.db.WithContext(ctx).Model(item).Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("checklist: toggle: %w", errUpdate)
	}
	return s.find(ctx, eventID, itemID)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, tenantID, eventID, itemID uint64) error {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return errOwned
	}
	res := s.db.WithContext(ctx).Where("id = ? AND event_id = ?", itemID, eventID).Delete(&models.ChecklistItem{})
	if res.Error != nil {
		return fmt.Errorf("checklist: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Progress returns the rounded completion percentage, 0 for an empty list.
func Progress(items []models.ChecklistItem) int {
	if len(items) == 0 {
		return 0
	}
	done := 0
	for _, it := range items {
		if it.IsCompleted {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(items)) * 100))
}
