package guests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invitation is what the public RSVP page renders for a token.
type Invitation struct {
	Guest models.Guest
	Event models.Event
}

// RSVPInput is a public RSVP submission.
// CompanionNames is a comma separated list; DietaryNotes lands in other_notes.
type RSVPInput struct {
	Status              string
	ConfirmedCompanions int
	CompanionNames      string
	DietaryNotes        string
	Dietary             *models.DietaryRestrictions
	Notes               string
}

var rsvpStatuses = map[string]struct{}{
	models.RSVPConfirmed: {},
	models.RSVPDeclined:  {},
	models.RSVPTentative: {},
}

func (s *Service) byToken(ctx context.Context, token string) (*models.Guest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrNotFound
	}
	var guest models.Guest
	if errFind := s.db.WithContext(ctx).Where("invitation_token = ?", token).First(&guest).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("guests: load by token: %w", errFind)
	}
	return &guest, nil
}

// GetByToken resolves an invitation token to its guest and event.
// The first view stamps invitation_opened_at.
func (s *Service) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	guest, errGuest := s.byToken(ctx, token)
	if errGuest != nil {
		return nil, errGuest
	}
	var event models.Event
	if errFind := s.db.WithContext(ctx).First(&event, guest.EventID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("guests: load event: %w", errFind)
	}
	if guest.InvitationOpenedAt == nil {
		now := time.Now().UTC()
		if errUpdate := s.db.WithContext(ctx).Model(&models.Guest{}).
			Where("id = ? AND invitation_opened_at IS NULL", guest.ID).
			Update("invitation_opened_at", now).Error; errUpdate != nil {
			log.WithError(errUpdate).WithField("guest_id", guest.ID).Warn("guests: stamp invitation_opened_at failed")
		} else {
			guest.InvitationOpenedAt = &now
		}
	}
	return &Invitation{Guest: *guest, Event: event}, nil
}

// SubmitRSVP records a guest's answer. No entitlement applies to the public flow.
func (s *Service) SubmitRSVP(ctx context.Context, token string, in RSVPInput) (*models.Guest, error) {
	guest, errGuest := s.byToken(ctx, token)
	if errGuest != nil {
		return nil, errGuest
	}

	fields := domain.FieldErrors{}
	status := strings.TrimSpace(in.Status)
	if _, ok := rsvpStatuses[status]; !ok {
		fields.Add("status", "must be one of confirmed declined tentative")
	}
	names := cleanNames(strings.Split(in.CompanionNames, ","))
	companions := in.ConfirmedCompanions
	if companions < 0 {
		fields.Add("confirmed_companions", "must not be negative")
	}
	if companions > guest.PlusOnesAllowed {
		fields.Add("confirmed_companions", fmt.Sprintf("must not exceed %d", guest.PlusOnesAllowed))
	}
	if errFields := fields.OrNil(); errFields != nil {
		return nil, errFields
	}
	if status == models.RSVPDeclined {
		companions = 0
		names = []string{}
	}

	dietary := guest.DietaryRestrictions.Data()
	if in.Dietary != nil {
		dietary = *in.Dietary
	}
	if notes := strings.TrimSpace(in.DietaryNotes); notes != "" {
		dietary.OtherNotes = notes
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"rsvp_status":          status,
		"plus_ones_confirmed":  companions,
		"plus_ones_names":      datatypes.NewJSONSlice(names),
		"dietary_restrictions": datatypes.NewJSONType(dietary),
		"notes":                strings.TrimSpace(in.Notes),
		"responded_at":         now,
		"updated_at":           now,
	}
	if errUpdate := s.db.WithContext(ctx).Model(guest).Updates(updates).Error; errUpdate != nil {
		return nil, fmt.Errorf("guests: submit rsvp: %w", errUpdate)
	}
	log.WithFields(log.Fields{"guest_id": guest.ID, "event_id": guest.EventID, "status": status}).Info("guests: rsvp received")
	return s.byToken(ctx, token)
}
