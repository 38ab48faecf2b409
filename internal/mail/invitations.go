package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Failure describes one recipient a bulk send could not reach.
type Failure struct {
	GuestID uint64 `json:"guest_id"`
	Email   string `json:"email"`
	Error   string `json:"error"`
}

// BulkResult summarizes a bulk send.
type BulkResult struct {
	Sent    int       `json:"sent"`
	Skipped int       `json:"skipped"`
	Failed  []Failure `json:"failed"`
}

// Service sends guest invitations and records them as communications.
type Service struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
	sender   Sender
	appURL   string
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService constructs a Service.
func NewService(db *gorm.DB, resolver *entitlement.Resolver, sender Sender, appURL string) *Service {
	return &Service{db: db, resolver: resolver, sender: sender, appURL: appURL, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// bulkDelay is the pause between two bulk sends.
func bulkDelay() time.Duration {
	return time.Duration(settings.Int(settings.BulkEmailDelayMillisKey, settings.DefaultBulkEmailDelayMillis)) * time.Millisecond
}

// SendInvitation emails one guest and records the communication.
func (s *Service) SendInvitation(ctx context.Context, tenantID, eventID, guestID uint64) (*models.Communication, error) {
	event, errOwned := events.Owned(ctx, s.db, tenantID, eventID)
	if errOwned != nil {
		return nil, errOwned
	}
	var guest models.Guest
	if errFind := s.db.WithContext(ctx).Where("id = ? AND event_id = ?", guestID, eventID).First(&guest).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mail: load guest: %w", errFind)
	}
	if strings.TrimSpace(guest.Email) == "" {
		return nil, domain.Invalid("email", "guest has no email address")
	}
	return s.deliver(ctx, event, &guest)
}

// SendBulk emails every guest in guestIDs, or every guest of the event with an
// email address when guestIDs is empty. Sends are sequential with a fixed
// pause; individual failures are collected and do not stop the batch.
func (s *Service) SendBulk(ctx context.Context, tenantID, eventID uint64, guestIDs []uint64) (*BulkResult, error) {
	event, errOwned := events.Owned(ctx, s.db, tenantID, eventID)
	if errOwned != nil {
		return nil, errOwned
	}
	if errFeature := s.resolver.RequireFeature(ctx, tenantID, entitlement.FeatureMassCommunications); errFeature != nil {
		return nil, errFeature
	}

	q := s.db.WithContext(ctx).Where("event_id = ?", eventID)
	if len(guestIDs) > 0 {
		q = q.Where("id IN ?", guestIDs)
	}
	var guests []models.Guest
	if errFind := q.Order("id ASC").Find(&guests).Error; errFind != nil {
		return nil, fmt.Errorf("mail: load guests: %w", errFind)
	}

	result := &BulkResult{Failed: []Failure{}}
	delay := bulkDelay()
	attempted := 0
	for i := range guests {
		guest := &guests[i]
		if strings.TrimSpace(guest.Email) == "" {
			result.Skipped++
			continue
		}
		if attempted > 0 {
			if errSleep := s.sleep(ctx, delay); errSleep != nil {
				return result, errSleep
			}
		}
		attempted++
		if _, errDeliver := s.deliver(ctx, event, guest); errDeliver != nil {
			result.Failed = append(result.Failed, Failure{GuestID: guest.ID, Email: guest.Email, Error: errDeliver.Error()})
			continue
		}
		result.Sent++
	}
	log.WithFields(log.Fields{
		"event_id": eventID,
		"sent":     result.Sent,
		"failed":   len(result.Failed),
		"skipped":  result.Skipped,
	}).Info("mail: bulk invitations finished")
	return result, nil
}

func (s *Service) deliver(ctx context.Context, event *models.Event, guest *models.Guest) (*models.Communication, error) {
	siteName := settings.String(settings.SiteNameKey, settings.DefaultSiteName)
	subject, body, errRender := RenderInvitation(NewInvitationData(event, guest, s.appURL, siteName))
	if errRender != nil {
		return nil, errRender
	}
	messageID, errSend := s.sender.Send(ctx, Message{To: guest.Email, Subject: subject, HTML: body})
	if errSend != nil {
		log.WithError(errSend).WithFields(log.Fields{"event_id": event.ID, "guest_id": guest.ID}).Warn("mail: invitation not delivered")
		return nil, errSend
	}

	now := time.Now().UTC()
	meta, _ := json.Marshal(map[string]any{"guest_id": guest.ID, "message_id": messageID})
	comm := models.Communication{
		EventID:         event.ID,
		Type:            models.CommunicationInvitation,
		Subject:         subject,
		Status:          models.CommunicationSent,
		RecipientsCount: 1,
		SentAt:          &now,
		Metadata:        datatypes.JSON(meta),
	}
	errTx := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&comm).Error; errCreate != nil {
			return errCreate
		}
		return tx.Model(&models.Guest{}).Where("id = ?", guest.ID).
			Updates(map[string]any{"invitation_sent_at": now, "updated_at": now}).Error
	})
	if errTx != nil {
		return nil, fmt.Errorf("mail: record communication: %w", errTx)
	}
	guest.InvitationSentAt = &now
	return &comm, nil
}

// List returns the communications of an event, newest first.
func (s *Service) List(ctx context.Context, tenantID, eventID uint64) ([]models.Communication, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	var out []models.Communication
	if errFind := s.db.WithContext(ctx).Where("event_id = ?", eventID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error; errFind != nil {
		return nil, fmt.Errorf("mail: list: %w", errFind)
	}
	return out, nil
}
