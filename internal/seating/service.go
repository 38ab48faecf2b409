// Package seating manages event tables, guest seat assignment and the table layout model.
package seating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Defaults for a freshly created table.
const (
	DefaultSeats = 8
	DefaultX     = 100
	DefaultY     = 100
	MaxSeats     = 50
)

var validShapes = map[string]struct{}{
	models.TableShapeRound:       {},
	models.TableShapeRectangular: {},
	models.TableShapeSquare:      {},
}

// ErrTableFull is returned when a table has no free seat left.
var ErrTableFull = domain.Conflictf("table full")

// TablePatch is a partial table update. Nil fields are left unchanged.
type TablePatch struct {
	Name     *string
	Shape    *string
	Seats    *int
	X        *float64
	Y        *float64
	Rotation *float64
	Notes    *string
}

// Service persists tables and seat assignments. Every operation requires the tables feature.
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
	return s.resolver.RequireFeature(ctx, tenantID, entitlement.FeatureTables)
}

// ListTables returns the event's tables in creation order with their seated guests.
func (s *Service) ListTables(ctx context.Context, tenantID, eventID uint64) ([]models.EventTable, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	var tables []models.EventTable
	if errFind := s.db.WithContext(ctx).
		Preload("Guests", func(tx *gorm.DB) *gorm.DB { return tx.Order("full_name ASC") }).
		Where("event_id = ?", eventID).
		Order("created_at ASC").Order("id ASC").
		Find(&tables).Error; errFind != nil {
		return nil, fmt.Errorf("seating: list tables: %w", errFind)
	}
	return tables, nil
}

// ListGuests returns every guest of the event, seated or not.
func (s *Service) ListGuests(ctx context.Context, tenantID, eventID uint64) ([]models.Guest, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	var out []models.Guest
	if errFind := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("full_name ASC").Order("id ASC").
		Find(&out).Error; errFind != nil {
		return nil, fmt.Errorf("seating: list guests: %w", errFind)
	}
	return out, nil
}

// CreateTable inserts a round table with a generated name at the default position.
func (s *Service) CreateTable(ctx context.Context, tenantID, eventID uint64) (*models.EventTable, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.EventTable{}).
		Where("event_id = ?", eventID).Count(&count).Error; errCount != nil {
		return nil, fmt.Errorf("seating: count tables: %w", errCount)
	}
	table := models.EventTable{
		EventID: eventID,
		Name:    fmt.Sprintf("Table %d", count+1),
		Shape:   models.TableShapeRound,
		Seats:   DefaultSeats,
		X:       DefaultX,
		Y:       DefaultY,
		Guests:  []models.Guest{},
	}
	if errCreate := s.db.WithContext(ctx).Omit("Guests").Create(&table).Error; errCreate != nil {
		return nil, fmt.Errorf("seating: create table: %w", errCreate)
	}
	return &table, nil
}

func (s *Service) findTable(ctx context.Context, db *gorm.DB, eventID, tableID uint64) (*models.EventTable, error) {
	var table models.EventTable
	if errFind := db.WithContext(ctx).
		Where("id = ? AND event_id = ?", tableID, eventID).
		First(&table).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("seating: load table: %w", errFind)
	}
	return &table, nil
}

// UpdateTable writes only the supplied fields.
func (s *Service) UpdateTable(ctx context.Context, tenantID, eventID, tableID uint64, patch TablePatch) (*models.EventTable, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	table, errFind := s.findTable(ctx, s.db, eventID, tableID)
	if errFind != nil {
		return nil, errFind
	}

	fields := domain.FieldErrors{}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			fields.Add("name", "is required")
		}
		updates["name"] = name
	}
	if patch.Shape != nil {
		if _, ok := validShapes[*patch.Shape]; !ok {
			fields.Add("shape", "must be one of round rectangular square")
		}
		updates["shape"] = *patch.Shape
	}
	if patch.Seats != nil {
		if *patch.Seats < 1 || *patch.Seats > MaxSeats {
			fields.Add("seats", fmt.Sprintf("must be between 1 and %d", MaxSeats))
		}
		updates["seats"] = *patch.Seats
	}
	if patch.X != nil {
		updates["x_position"] = *patch.X
	}
	if patch.Y != nil {
		updates["y_position"] = *patch.Y
	}
	if patch.Rotation != nil {
		updates["rotation"] = normalizeAngle(*patch.Rotation)
	}
	if patch.Notes != nil {
		updates["notes"] = strings.TrimSpace(*patch.Notes)
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}

	if errUpdate := s.db.WithContext(ctx).Model(table).Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("seating: update table: %w", errUpdate)
	}
	return s.findTable(ctx, s.db, eventID, tableID)
}

// DeleteTable unseats the table's guests and removes the table.
func (s *Service) DeleteTable(ctx context.Context, tenantID, eventID, tableID uint64) error {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return errGuard
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, errFind := s.findTable(ctx, tx, eventID, tableID); errFind != nil {
			return errFind
		}
		if errUnseat := tx.Model(&models.Guest{}).
			Where("table_id = ? AND event_id = ?", tableID, eventID).
			Updates(map[string]any{"table_id": nil, "updated_at": time.Now().UTC()}).Error; errUnseat != nil {
			return fmt.Errorf("seating: unseat guests: %w", errUnseat)
		}
		if errDelete := tx.Where("id = ?", tableID).Delete(&models.EventTable{}).Error; errDelete != nil {
			return fmt.Errorf("seating: delete table: %w", errDelete)
		}
		return nil
	})
}

// AssignGuest seats a guest at a table. A table at or over capacity yields ErrTableFull and nothing is written.
func (s *Service) AssignGuest(ctx context.Context, tenantID, eventID, tableID, guestID uint64) (*models.Guest, error) {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return nil, errGuard
	}
	var guest models.Guest
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, errTable := s.findTable(ctx, tx, eventID, tableID)
		if errTable != nil {
			return errTable
		}
		if errGuest := tx.Where("id = ? AND event_id = ?", guestID, eventID).First(&guest).Error; errGuest != nil {
			if errors.Is(errGuest, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return errGuest
		}
		if guest.TableID != nil && *guest.TableID == tableID {
			return nil
		}
		var seated int64
		if errCount := tx.Model(&models.Guest{}).Where("table_id = ?", tableID).Count(&seated).Error; errCount != nil {
			return errCount
		}
		if seated >= int64(table.Seats) {
			return ErrTableFull
		}
		guest.TableID = &table.ID
		return tx.Model(&guest).Updates(map[string]any{"table_id": table.ID, "updated_at": time.Now().UTC()}).Error
	})
	if errTx != nil {
		if errors.Is(errTx, domain.ErrConflict) || errors.Is(errTx, domain.ErrNotFound) {
			return nil, errTx
		}
		return nil, fmt.Errorf("seating: assign guest: %w", errTx)
	}
	log.WithFields(log.Fields{"event_id": eventID, "table_id": tableID, "guest_id": guestID}).Debug("seating: guest seated")
	return &guest, nil
}

// UnassignGuest clears the guest's table reference.
func (s *Service) UnassignGuest(ctx context.Context, tenantID, eventID, guestID uint64) error {
	if errGuard := s.guard(ctx, tenantID, eventID); errGuard != nil {
		return errGuard
	}
	res := s.db.WithContext(ctx).Model(&models.Guest{}).
		Where("id = ? AND event_id = ?", guestID, eventID).
		Updates(map[string]any{"table_id": nil, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("seating: unassign guest: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// normalizeAngle maps degrees into [0, 360).
func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
