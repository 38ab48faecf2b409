// Package analytics aggregates guest and photo figures of an event.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

// Dietary bucket keys.
const (
	DietNone        = "none"
	DietVegetarian  = "vegetarian"
	DietVegan       = "vegan"
	DietGlutenFree  = "gluten_free"
	DietLactoseFree = "lactose"
	DietOther       = "other"
)

var dietOrder = []string{DietNone, DietVegetarian, DietVegan, DietGlutenFree, DietLactoseFree, DietOther}

const dayLayout = "2006-01-02"

// Bucket is one dietary category with its guest count.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Point is one day of the cumulative RSVP series.
type Point struct {
	Date      string `json:"date"`
	Confirmed int    `json:"confirmed"`
	Declined  int    `json:"declined"`
}

// Report holds the analytics of one event.
type Report struct {
	TotalGuests        int      `json:"total_guests"`
	Confirmed          int      `json:"confirmed"`
	Declined           int      `json:"declined"`
	Tentative          int      `json:"tentative"`
	Pending            int      `json:"pending"`
	ConfirmationRate   int      `json:"confirmation_rate"`
	PlusOnesConfirmed  int      `json:"plus_ones_confirmed"`
	GuestsWithoutTable int      `json:"guests_without_table"`
	TotalPhotos        int64    `json:"total_photos"`
	Dietary            []Bucket `json:"dietary"`
	Series             []Point  `json:"series"`
}

// Service computes event reports.
type Service struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(db *gorm.DB, resolver *entitlement.Resolver) *Service {
	return &Service{db: db, resolver: resolver, now: time.Now}
}

// Report builds the analytics of an event. Requires the advanced reports feature.
func (s *Service) Report(ctx context.Context, tenantID, eventID uint64) (*Report, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	if errFeature := s.resolver.RequireFeature(ctx, tenantID, entitlement.FeatureAdvancedReports); errFeature != nil {
		return nil, errFeature
	}

	var guests []models.Guest
	if errFind := s.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&guests).Error; errFind != nil {
		return nil, fmt.Errorf("analytics: load guests: %w", errFind)
	}
	var photos int64
	if errCount := s.db.WithContext(ctx).Model(&models.Photo{}).
		Where("event_id = ?", eventID).Count(&photos).Error; errCount != nil {
		return nil, fmt.Errorf("analytics: count photos: %w", errCount)
	}

	report := Summarize(guests, s.now())
	report.TotalPhotos = photos
	return report, nil
}

// Summarize derives a report from a guest list. now fixes the date of the
// placeholder point used when no guest has responded.
func Summarize(guests []models.Guest, now time.Time) *Report {
	report := &Report{TotalGuests: len(guests)}
	confirmed := make([]models.Guest, 0, len(guests))
	for _, g := range guests {
		switch g.RSVPStatus {
		case models.RSVPConfirmed:
			report.Confirmed++
			report.PlusOnesConfirmed += g.PlusOnesConfirmed
			if g.TableID == nil {
				report.GuestsWithoutTable++
			}
			confirmed = append(confirmed, g)
		case models.RSVPDeclined:
			report.Declined++
		case models.RSVPTentative:
			report.Tentative++
		default:
			report.Pending++
		}
	}
	report.ConfirmationRate = Percent(report.Confirmed, report.TotalGuests)
	report.Dietary = DietaryBuckets(confirmed)
	report.Series = Series(guests, now)
	return report
}

// Percent returns part/total as a rounded percentage, 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// DietaryBuckets counts restrictions over the given guests. A guest may land in
// several buckets; "none" counts guests with no restriction at all. Empty
// buckets are omitted.
func DietaryBuckets(guests []models.Guest) []Bucket {
	counts := make(map[string]int, len(dietOrder))
	for _, g := range guests {
		d := g.DietaryRestrictions.Data()
		flagged := false
		mark := func(key string) {
			counts[key]++
			flagged = true
		}
		if d.IsVegetarian {
			mark(DietVegetarian)
		}
		if d.IsVegan {
			mark(DietVegan)
		}
		if d.IsGlutenFree {
			mark(DietGlutenFree)
		}
		if d.IsLactoseIntolerant {
			mark(DietLactoseFree)
		}
		if len(d.Allergies) > 0 {
			mark(DietOther)
		}
		if d.OtherNotes != "" {
			mark(DietOther)
		}
		if !flagged {
			counts[DietNone]++
		}
	}
	out := make([]Bucket, 0, len(dietOrder))
	for _, key := range dietOrder {
		if counts[key] > 0 {
			out = append(out, Bucket{Key: key, Count: counts[key]})
		}
	}
	return out
}

// Series returns cumulative confirmed and declined counts per day, keyed by
// responded_at or created_at. The result always holds at least one point.
func Series(guests []models.Guest, now time.Time) []Point {
	type tally struct{ confirmed, declined int }
	days := map[string]*tally{}
	for _, g := range guests {
		if g.RSVPStatus != models.RSVPConfirmed && g.RSVPStatus != models.RSVPDeclined {
			continue
		}
		at := g.CreatedAt
		if g.RespondedAt != nil {
			at = *g.RespondedAt
		}
		key := at.UTC().Format(dayLayout)
		t, ok := days[key]
		if !ok {
			t = &tally{}
			days[key] = t
		}
		if g.RSVPStatus == models.RSVPConfirmed {
			t.confirmed++
		} else {
			t.declined++
		}
	}
	if len(days) == 0 {
		return []Point{{Date: now.UTC().Format(dayLayout)}}
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Point, 0, len(keys))
	running := Point{}
	for _, k := range keys {
		running.Confirmed += days[k].confirmed
		running.Declined += days[k].declined
		out = append(out, Point{Date: k, Confirmed: running.Confirmed, Declined: running.Declined})
	}
	return out
}
