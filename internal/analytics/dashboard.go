package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/eventhub-saas/eventhub/internal/checklist"
	"github.com/eventhub-saas/eventhub/internal/models"
)

// RecentGuestCount is the number of guests listed as recent activity.
const RecentGuestCount = 5

// Dashboard is the home page summary of the active event.
type Dashboard struct {
	Event             *models.Event          `json:"event"`
	TotalGuests       int64                  `json:"total_guests"`
	Confirmed         int64                  `json:"confirmed"`
	Declined          int64                  `json:"declined"`
	Pending           int64                  `json:"pending"`
	DaysLeft          int                    `json:"days_left"`
	RecentGuests      []models.Guest         `json:"recent_guests"`
	ChecklistProgress int                    `json:"checklist_progress"`
	Checklist         []models.ChecklistItem `json:"checklist"`
}

// EventResolver picks the event a dashboard is built for.
type EventResolver interface {
	ResolveActive(ctx context.Context, tenantID, requestedID uint64) (*models.Event, error)
}

// Dashboard builds the summary of the requested event, or of the tenant's
// latest event when requestedID is zero or not owned.
func (s *Service) Dashboard(ctx context.Context, events EventResolver, tasks *checklist.Service, tenantID, requestedID uint64) (*Dashboard, error) {
	event, errResolve := events.ResolveActive(ctx, tenantID, requestedID)
	if errResolve != nil {
		return nil, errResolve
	}

	out := &Dashboard{Event: event, DaysLeft: DaysLeft(event.Date, s.now())}
	type statusCount struct {
		RSVPStatus string
		Total      int64
	}
	var rows []statusCount
	if errCount := s.db.WithContext(ctx).Model(&models.Guest{}).
		Select("rsvp_status, COUNT(*) AS total").
		Where("event_id = ?", event.ID).
		Group("rsvp_status").
		Scan(&rows).Error; errCount != nil {
		return nil, fmt.Errorf("analytics: count guests: %w", errCount)
	}
	for _, r := range rows {
		out.TotalGuests += r.Total
		switch r.RSVPStatus {
		case models.RSVPConfirmed:
			out.Confirmed = r.Total
		case models.RSVPDeclined:
			out.Declined = r.Total
		}
	}
	out.Pending = out.TotalGuests - out.Confirmed - out.Declined

	if errFind := s.db.WithContext(ctx).Where("event_id = ?", event.ID).
		Order("created_at DESC").Order("id DESC").
		Limit(RecentGuestCount).
		Find(&out.RecentGuests).Error; errFind != nil {
		return nil, fmt.Errorf("analytics: recent guests: %w", errFind)
	}

	items, errList := tasks.List(ctx, tenantID, event.ID)
	if errList != nil {
		return nil, errList
	}
	out.Checklist = items
	out.ChecklistProgress = checklist.Progress(items)
	return out, nil
}

// DaysLeft returns the whole days until date, rounded up and never negative.
func DaysLeft(date, now time.Time) int {
	days := math.Ceil(date.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}
