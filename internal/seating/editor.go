package seating

import (
	"context"
	"errors"
	"sync"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/models"
	log "github.com/sirupsen/logrus"
)

// ErrNotConfirmed is returned when a table deletion was not confirmed.
var ErrNotConfirmed = errors.New("table deletion requires confirmation")

// Store persists layout changes for one event.
type Store interface {
	CreateTable(ctx context.Context) (*models.EventTable, error)
	UpdateTable(ctx context.Context, tableID uint64, patch TablePatch) (*models.EventTable, error)
	DeleteTable(ctx context.Context, tableID uint64) error
	AssignGuest(ctx context.Context, tableID, guestID uint64) error
	UnassignGuest(ctx context.Context, guestID uint64) error
}

// EventStore binds a Service to one tenant event.
type EventStore struct {
	Service  *Service
	TenantID uint64
	EventID  uint64
}

// CreateTable implements Store.
func (s EventStore) CreateTable(ctx context.Context) (*models.EventTable, error) {
	return s.Service.CreateTable(ctx, s.TenantID, s.EventID)
}

// UpdateTable implements Store.
func (s EventStore) UpdateTable(ctx context.Context, tableID uint64, patch TablePatch) (*models.EventTable, error) {
	return s.Service.UpdateTable(ctx, s.TenantID, s.EventID, tableID, patch)
}

// DeleteTable implements Store.
func (s EventStore) DeleteTable(ctx context.Context, tableID uint64) error {
	return s.Service.DeleteTable(ctx, s.TenantID, s.EventID, tableID)
}

// AssignGuest implements Store.
func (s EventStore) AssignGuest(ctx context.Context, tableID, guestID uint64) error {
	_, err := s.Service.AssignGuest(ctx, s.TenantID, s.EventID, tableID, guestID)
	return err
}

// UnassignGuest implements Store.
func (s EventStore) UnassignGuest(ctx context.Context, guestID uint64) error {
	return s.Service.UnassignGuest(ctx, s.TenantID, s.EventID, guestID)
}

// Editor holds the in-memory seating model of one event. Tables and guests here are the
// single source of truth; shapes are regenerated from them on demand.
//
// Table updates are optimistic with last-write-wins: the local change is applied first,
// then persisted. When persisting fails the table reverts to its previous state.
type Editor struct {
	mu       sync.Mutex
	store    Store
	tables   []models.EventTable
	guests   []models.Guest
	selected uint64
}

// NewEditor builds an editor from server state.
func NewEditor(store Store, tables []models.EventTable, guests []models.Guest) *Editor {
	e := &Editor{store: store}
	e.Reconcile(tables, guests)
	return e
}

// Reconcile replaces local state with fresh server data. The selection survives when
// the selected table still exists.
func (e *Editor) Reconcile(tables []models.EventTable, guests []models.Guest) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables = make([]models.EventTable, len(tables))
	copy(e.tables, tables)
	e.guests = make([]models.Guest, len(guests))
	copy(e.guests, guests)
	e.rebuildSeatLists()
	if e.indexOfTable(e.selected) < 0 {
		e.selected = 0
	}
}

// rebuildSeatLists derives each table's guest list from the guests' table references.
func (e *Editor) rebuildSeatLists() {
	byTable := map[uint64][]models.Guest{}
	for _, g := range e.guests {
		if g.TableID != nil {
			byTable[*g.TableID] = append(byTable[*g.TableID], g)
		}
	}
	for i := range e.tables {
		e.tables[i].Guests = byTable[e.tables[i].ID]
	}
}

func (e *Editor) indexOfTable(id uint64) int {
	if id == 0 {
		return -1
	}
	for i := range e.tables {
		if e.tables[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) indexOfGuest(id uint64) int {
	for i := range e.guests {
		if e.guests[i].ID == id {
			return i
		}
	}
	return -1
}

// Select marks a table as selected. Unknown ids clear the selection.
func (e *Editor) Select(tableID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexOfTable(tableID) < 0 {
		e.selected = 0
		return
	}
	e.selected = tableID
}

// Selected returns the selected table id, or 0.
func (e *Editor) Selected() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Tables returns a copy of the tables with their seated guests.
func (e *Editor) Tables() []models.EventTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.EventTable, len(e.tables))
	for i, t := range e.tables {
		t.Guests = append([]models.Guest(nil), t.Guests...)
		out[i] = t
	}
	return out
}

// Unseated returns guests without a table.
func (e *Editor) Unseated() []models.Guest {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []models.Guest
	for _, g := range e.guests {
		if g.TableID == nil {
			out = append(out, g)
		}
	}
	return out
}

// Shapes derives the rendered shapes in drawing order.
func (e *Editor) Shapes() []Shape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shapesLocked()
}

func (e *Editor) shapesLocked() []Shape {
	out := make([]Shape, 0, len(e.tables))
	for _, t := range e.tables {
		out = append(out, ShapeFor(t, len(t.Guests)))
	}
	return out
}

// HitTest returns the table under p.
func (e *Editor) HitTest(p Point) (uint64, bool) {
	shape, ok := HitTest(e.Shapes(), p)
	return shape.TableID, ok
}

// DragOver reports the highlight for a guest dragged over p. Nothing is committed.
func (e *Editor) DragOver(p Point) (uint64, Highlight) {
	shape, ok := HitTest(e.Shapes(), p)
	if !ok {
		return 0, HighlightNone
	}
	if shape.Full() {
		return shape.TableID, HighlightFull
	}
	return shape.TableID, HighlightAvailable
}

// AddTable creates a table and selects it.
func (e *Editor) AddTable(ctx context.Context) (*models.EventTable, error) {
	table, err := e.store.CreateTable(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	created := *table
	created.Guests = nil
	e.tables = append(e.tables, created)
	e.selected = created.ID
	return &created, nil
}

// UpdateTable applies patch locally, persists it and keeps the server's answer.
// On failure the table reverts to its state before the call.
func (e *Editor) UpdateTable(ctx context.Context, tableID uint64, patch TablePatch) error {
	e.mu.Lock()
	idx := e.indexOfTable(tableID)
	if idx < 0 {
		e.mu.Unlock()
		return domain.ErrNotFound
	}
	previous := e.tables[idx]
	e.tables[idx] = applyPatch(previous, patch)
	e.mu.Unlock()

	saved, err := e.store.UpdateTable(ctx, tableID, patch)

	e.mu.Lock()
	defer e.mu.Unlock()
	idx = e.indexOfTable(tableID)
	if idx < 0 {
		return err
	}
	if err != nil {
		log.WithError(err).WithField("table_id", tableID).Warn("seating: table update reverted")
		e.tables[idx] = previous
		return err
	}
	merged := *saved
	merged.Guests = e.tables[idx].Guests
	e.tables[idx] = merged
	return nil
}

// EndGesture records the final position and rotation of a drag or rotate gesture as one update.
func (e *Editor) EndGesture(ctx context.Context, tableID uint64, at Point, rotation float64) error {
	return e.UpdateTable(ctx, tableID, TablePatch{X: &at.X, Y: &at.Y, Rotation: &rotation})
}

// DeleteTable removes a table after confirmation. Its guests become unseated.
func (e *Editor) DeleteTable(ctx context.Context, tableID uint64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := e.store.DeleteTable(ctx, tableID); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexOfTable(tableID); idx >= 0 {
		e.tables = append(e.tables[:idx], e.tables[idx+1:]...)
	}
	for i := range e.guests {
		if e.guests[i].TableID != nil && *e.guests[i].TableID == tableID {
			e.guests[i].TableID = nil
		}
	}
	if e.selected == tableID {
		e.selected = 0
	}
	return nil
}

// AssignGuest seats a guest. Capacity is checked against the in-memory list the
// shapes are drawn from; a full table yields ErrTableFull without calling the store.
func (e *Editor) AssignGuest(ctx context.Context, guestID, tableID uint64) error {
	e.mu.Lock()
	tIdx := e.indexOfTable(tableID)
	gIdx := e.indexOfGuest(guestID)
	if tIdx < 0 || gIdx < 0 {
		e.mu.Unlock()
		return domain.ErrNotFound
	}
	if current := e.guests[gIdx].TableID; current != nil && *current == tableID {
		e.mu.Unlock()
		return nil
	}
	if len(e.tables[tIdx].Guests) >= e.tables[tIdx].Seats {
		e.mu.Unlock()
		return ErrTableFull
	}
	e.mu.Unlock()

	if err := e.store.AssignGuest(ctx, tableID, guestID); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	gIdx = e.indexOfGuest(guestID)
	if gIdx < 0 {
		return nil
	}
	id := tableID
	e.guests[gIdx].TableID = &id
	e.rebuildSeatLists()
	return nil
}

// Drop assigns a guest to the table under p.
func (e *Editor) Drop(ctx context.Context, guestID uint64, p Point) (uint64, error) {
	tableID, ok := e.HitTest(p)
	if !ok {
		return 0, domain.ErrNotFound
	}
	return tableID, e.AssignGuest(ctx, guestID, tableID)
}

// UnassignGuest clears a guest's seat on both sides of the model.
func (e *Editor) UnassignGuest(ctx context.Context, guestID uint64) error {
	if err := e.store.UnassignGuest(ctx, guestID); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if gIdx := e.indexOfGuest(guestID); gIdx >= 0 {
		e.guests[gIdx].TableID = nil
		e.rebuildSeatLists()
	}
	return nil
}

func applyPatch(t models.EventTable, patch TablePatch) models.EventTable {
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Shape != nil {
		t.Shape = *patch.Shape
	}
	if patch.Seats != nil {
		t.Seats = *patch.Seats
	}
	if patch.X != nil {
		t.X = *patch.X
	}
	if patch.Y != nil {
		t.Y = *patch.Y
	}
	if patch.Rotation != nil {
		t.Rotation = *patch.Rotation
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	return t
}
