// Package guests manages the guest registry of an event and the public RSVP flow.
package guests

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
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validate = validator.New()

// Service manages guests scoped to tenant events.
type Service struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
}

// NewService constructs a Service.
func NewService(db *gorm.DB, resolver *entitlement.Resolver) *Service {
	return &Service{db: db, resolver: resolver}
}

// CreateInput describes one new guest. FullName wins over FirstName/LastName when set.
type CreateInput struct {
	FirstName      string
	LastName       string
	FullName       string
	Email          string
	Phone          string
	Category       string
	CompanionLimit int
	Notes          string
}

// UpdateInput holds a partial guest update. Nil fields are left unchanged.
type UpdateInput struct {
	FullName            *string
	Email               *string
	Phone               *string
	GroupName           *string
	Notes               *string
	RSVPStatus          *string
	PlusOnesAllowed     *int
	PlusOnesConfirmed   *int
	PlusOnesNames       *[]string
	DietaryRestrictions *models.DietaryRestrictions
}

var validStatuses = map[string]struct{}{
	models.RSVPPending:   {},
	models.RSVPConfirmed: {},
	models.RSVPDeclined:  {},
	models.RSVPTentative: {},
}

// NewToken returns a fresh unguessable invitation token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (in CreateInput) name() string {
	if full := strings.TrimSpace(in.FullName); full != "" {
		return full
	}
	return strings.TrimSpace(strings.TrimSpace(in.FirstName) + " " + strings.TrimSpace(in.LastName))
}

// build validates in and returns the guest row to insert. prefix scopes field names in batch errors.
func (in CreateInput) build(eventID uint64, prefix string, fields domain.FieldErrors) models.Guest {
	name := in.name()
	if name == "" {
		fields.Add(prefix+"full_name", "is required")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if errVar := validate.Var(email, "email"); errVar != nil {
			fields.Add(prefix+"email", "must be a valid email")
		}
	}
	if in.CompanionLimit < 0 {
		fields.Add(prefix+"companion_limit", "must not be negative")
	}
	return models.Guest{
		EventID:         eventID,
		FullName:        name,
		Email:           email,
		Phone:           strings.TrimSpace(in.Phone),
		InvitationToken: NewToken(),
		RSVPStatus:      models.RSVPPending,
		PlusOnesAllowed: in.CompanionLimit,
		PlusOnesNames:   datatypes.JSONSlice[string]{},
		GroupName:       strings.TrimSpace(in.Category),
		Notes:           strings.TrimSpace(in.Notes),
	}
}

func (s *Service) checkGuestQuota(ctx context.Context, tenantID, eventID uint64, delta int) error {
	decision, errQuota := s.resolver.CheckGuestQuota(ctx, tenantID, eventID, delta)
	if errQuota != nil {
		return errQuota
	}
	return decision.Err()
}

// Create adds one guest to an owned event after the guest quota check.
func (s *Service) Create(ctx context.Context, tenantID, eventID uint64, in CreateInput) (*models.Guest, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	fields := domain.FieldErrors{}
	guest := in.build(eventID, "", fields)
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}
	if errQuota := s.checkGuestQuota(ctx, tenantID, eventID, 1); errQuota != nil {
		return nil, errQuota
	}
	if errCreate := s.db.WithContext(ctx).Create(&guest).Error; errCreate != nil {
		return nil, fmt.Errorf("guests: create: %w", errCreate)
	}
	return &guest, nil
}

// List returns the guests of an owned event, newest first.
func (s *Service) List(ctx context.Context, tenantID, eventID uint64) ([]models.Guest, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	var out []models.Guest
	if errFind := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error; errFind != nil {
		return nil, fmt.Errorf("guests: list: %w", errFind)
	}
	return out, nil
}

// Get loads a guest of an owned event.
func (s *Service) Get(ctx context.Context, tenantID, eventID, guestID uint64) (*models.Guest, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	return s.find(ctx, eventID, guestID)
}

func (s *Service) find(ctx context.Context, eventID, guestID uint64) (*models.Guest, error) {
	var guest models.Guest
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND event_id = ?", guestID, eventID).
		First(&guest).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("guests: load: %w", errFind)
	}
	return &guest, nil
}

// Update applies a partial update. plus_ones_confirmed never exceeds plus_ones_allowed.
func (s *Service) Update(ctx context.Context, tenantID, eventID, guestID uint64, in UpdateInput) (*models.Guest, error) {
	guest, errGet := s.Get(ctx, tenantID, eventID, guestID)
	if errGet != nil {
		return nil, errGet
	}

	fields := domain.FieldErrors{}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			fields.Add("full_name", "is required")
		}
		updates["full_name"] = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" && validate.Var(email, "email") != nil {
			fields.Add("email", "must be a valid email")
		}
		updates["email"] = email
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.GroupName != nil {
		updates["group_name"] = strings.TrimSpace(*in.GroupName)
	}
	if in.Notes != nil {
		updates["notes"] = strings.TrimSpace(*in.Notes)
	}
	if in.RSVPStatus != nil {
		status := strings.TrimSpace(*in.RSVPStatus)
		if _, ok := validStatuses[status]; !ok {
			fields.Add("rsvp_status", "must be one of pending confirmed declined tentative")
		}
		updates["rsvp_status"] = status
	}

	allowed := guest.PlusOnesAllowed
	if in.PlusOnesAllowed != nil {
		allowed = *in.PlusOnesAllowed
		if allowed < 0 {
			fields.Add("plus_ones_allowed", "must not be negative")
		}
		updates["plus_ones_allowed"] = allowed
	}
	confirmed := guest.PlusOnesConfirmed
	if in.PlusOnesConfirmed != nil {
		confirmed = *in.PlusOnesConfirmed
		if confirmed < 0 {
			fields.Add("plus_ones_confirmed", "must not be negative")
		}
		updates["plus_ones_confirmed"] = confirmed
	}
	if confirmed > allowed {
		fields.Add("plus_ones_confirmed", fmt.Sprintf("must not exceed %d", allowed))
	}
	if in.PlusOnesNames != nil {
		updates["plus_ones_names"] = datatypes.NewJSONSlice(cleanNames(*in.PlusOnesNames))
	}
	if in.DietaryRestrictions != nil {
		updates["dietary_restrictions"] = datatypes.NewJSONType(*in.DietaryRestrictions)
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}

	if errUpdate := s.db.WithContext(ctx).Model(guest).Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("guests: update: %w", errUpdate)
	}
	return s.find(ctx, eventID, guestID)
}

// Delete removes a guest. The seat reference lives on the guest row, so no table keeps it.
func (s *Service) Delete(ctx context.Context, tenantID, eventID, guestID uint64) error {
	if _, errGet := s.Get(ctx, tenantID, eventID, guestID); errGet != nil {
		return errGet
	}
	if errDelete := s.db.WithContext(ctx).
		Where("id = ? AND event_id = ?", guestID, eventID).
		Delete(&models.Guest{}).Error; errDelete != nil {
		return fmt.Errorf("guests: delete: %w", errDelete)
	}
	return nil
}

// cleanNames trims names and drops empty entries.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if trimmed := strings.TrimSpace(n); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
