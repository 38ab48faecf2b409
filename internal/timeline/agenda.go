package timeline

import (
	"context"
	"sync"

	"github.com/eventhub-saas/eventhub/internal/models"
	log "github.com/sirupsen/logrus"
)

// ReorderFunc persists a new item order and returns the authoritative agenda.
type ReorderFunc func(ctx context.Context, ids []uint64) ([]models.TimelineItem, error)

// Agenda is an optimistic in-memory agenda. A reorder shows the new order at once;
// if persisting fails the last known-good order is restored.
type Agenda struct {
	mu      sync.Mutex
	items   []models.TimelineItem
	persist ReorderFunc
}

// NewAgenda builds an agenda from server state.
func NewAgenda(items []models.TimelineItem, persist ReorderFunc) *Agenda {
	return &Agenda{items: append([]models.TimelineItem(nil), items...), persist: persist}
}

// Items returns the current order.
func (a *Agenda) Items() []models.TimelineItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.TimelineItem(nil), a.items...)
}

// Move moves the item at index from to index to and persists the result.
func (a *Agenda) Move(ctx context.Context, from, to int) error {
	a.mu.Lock()
	if from < 0 || from >= len(a.items) || to < 0 || to >= len(a.items) || from == to {
		a.mu.Unlock()
		return nil
	}
	previous := append([]models.TimelineItem(nil), a.items...)
	moved := a.items[from]
	next := append(append([]models.TimelineItem(nil), a.items[:from]...), a.items[from+1:]...)
	next = append(next[:to], append([]models.TimelineItem{moved}, next[to:]...)...)
	ids := make([]uint64, len(next))
	for i := range next {
		next[i].Order = i
		ids[i] = next[i].ID
	}
	a.items = next
	a.mu.Unlock()

	saved, err := a.persist(ctx, ids)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		log.WithError(err).Warn("timeline: reorder reverted")
		a.items = previous
		return err
	}
	a.items = saved
	return nil
}
