package seating

import (
	"context"
	"errors"
	"testing"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/models"
)

type fakeStore struct {
	nextID    uint64
	updateErr error
	assigned  map[uint64]uint64
	updates   int
	assigns   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 100, assigned: map[uint64]uint64{}}
}

func (f *fakeStore) CreateTable(context.Context) (*models.EventTable, error) {
	f.nextID++
	return &models.EventTable{ID: f.nextID, Name: "Table", Shape: models.TableShapeRound, Seats: DefaultSeats, X: DefaultX, Y: DefaultY}, nil
}

func (f *fakeStore) UpdateTable(_ context.Context, tableID uint64, patch TablePatch) (*models.EventTable, error) {
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	t := applyPatch(models.EventTable{ID: tableID, Name: "Server", Shape: models.TableShapeRound, Seats: 8}, patch)
	return &t, nil
}

func (f *fakeStore) DeleteTable(context.Context, uint64) error { return nil }

func (f *fakeStore) AssignGuest(_ context.Context, tableID, guestID uint64) error {
	f.assigns++
	f.assigned[guestID] = tableID
	return nil
}

func (f *fakeStore) UnassignGuest(_ context.Context, guestID uint64) error {
	delete(f.assigned, guestID)
	return nil
}

func seatedAt(id uint64) *uint64 { return &id }

func fixture() ([]models.EventTable, []models.Guest) {
	tables := []models.EventTable{
		{ID: 1, Name: "Head", Shape: models.TableShapeRound, Seats: 2, X: 100, Y: 100},
		{ID: 2, Name: "Long", Shape: models.TableShapeRectangular, Seats: 10, X: 400, Y: 300},
	}
	guests := []models.Guest{
		{ID: 10, FullName: "A", TableID: seatedAt(1)},
		{ID: 11, FullName: "B", TableID: seatedAt(1)},
		{ID: 12, FullName: "C"},
	}
	return tables, guests
}

func TestEditorAssignToFullTableWritesNothing(t *testing.T) {
	store := newFakeStore()
	tables, guests := fixture()
	ed := NewEditor(store, tables, guests)

	if err := ed.AssignGuest(context.Background(), 12, 1); !errors.Is(err, ErrTableFull) {
		t.Fatalf("expected table full, got %v", err)
	}
	if store.assigns != 0 {
		t.Fatalf("expected no store call, got %d", store.assigns)
	}

	if err := ed.AssignGuest(context.Background(), 12, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}
	var long models.EventTable
	for _, tb := range ed.Tables() {
		if tb.ID == 2 {
			long = tb
		}
	}
	if len(long.Guests) != 1 || long.Guests[0].ID != 12 {
		t.Fatalf("expected guest on table side, got %+v", long.Guests)
	}
	if len(ed.Unseated()) != 0 {
		t.Fatalf("expected no unseated guests")
	}
}

func TestEditorMoveKeepsGuestInOneList(t *testing.T) {
	ed := NewEditor(newFakeStore(), nil, nil)
	tables, guests := fixture()
	ed.Reconcile(tables, guests)

	if err := ed.AssignGuest(context.Background(), 10, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}
	seen := 0
	for _, tb := range ed.Tables() {
		for _, g := range tb.Guests {
			if g.ID == 10 {
				seen++
			}
		}
	}
	if seen != 1 {
		t.Fatalf("expected guest in exactly one table list, got %d", seen)
	}

	if err := ed.UnassignGuest(context.Background(), 10); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	for _, tb := range ed.Tables() {
		for _, g := range tb.Guests {
			if g.ID == 10 {
				t.Fatalf("expected guest removed from table %d", tb.ID)
			}
		}
	}
}

func TestEditorDeleteTableRequiresConfirmation(t *testing.T) {
	tables, guests := fixture()
	ed := NewEditor(newFakeStore(), tables, guests)
	ed.Select(1)

	if err := ed.DeleteTable(context.Background(), 1, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if err := ed.DeleteTable(context.Background(), 1, true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ed.Selected() != 0 {
		t.Fatalf("expected selection cleared")
	}
	if len(ed.Tables()) != 1 || len(ed.Unseated()) != 3 {
		t.Fatalf("expected guests unseated, got tables=%d unseated=%d", len(ed.Tables()), len(ed.Unseated()))
	}
}

func TestEditorSelectionSurvivesReconcile(t *testing.T) {
	tables, guests := fixture()
	ed := NewEditor(newFakeStore(), tables, guests)
	ed.Select(2)

	ed.Reconcile(tables, guests)
	if ed.Selected() != 2 {
		t.Fatalf("expected selection kept, got %d", ed.Selected())
	}
	ed.Reconcile(tables[:1], guests)
	if ed.Selected() != 0 {
		t.Fatalf("expected selection dropped for removed table, got %d", ed.Selected())
	}
}

func TestEditorUpdateRevertsOnFailure(t *testing.T) {
	store := newFakeStore()
	tables, guests := fixture()
	ed := NewEditor(store, tables, guests)

	if err := ed.EndGesture(context.Background(), 1, Point{X: 300, Y: 200}, 45); err != nil {
		t.Fatalf("gesture: %v", err)
	}
	if store.updates != 1 {
		t.Fatalf("expected one update per gesture, got %d", store.updates)
	}
	got := ed.Tables()[0]
	if got.X != 300 || got.Y != 200 || got.Rotation != 45 || len(got.Guests) != 2 {
		t.Fatalf("expected server state with guests kept, got %+v", got)
	}

	store.updateErr = errors.New("offline")
	name := "Renamed"
	if err := ed.UpdateTable(context.Background(), 1, TablePatch{Name: &name}); err == nil {
		t.Fatalf("expected error")
	}
	if ed.Tables()[0].Name != "Server" {
		t.Fatalf("expected revert to last saved name, got %q", ed.Tables()[0].Name)
	}
	if err := ed.UpdateTable(context.Background(), 99, TablePatch{Name: &name}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEditorAddTableSelectsIt(t *testing.T) {
	ed := NewEditor(newFakeStore(), nil, nil)
	table, err := ed.AddTable(context.Background())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if ed.Selected() != table.ID {
		t.Fatalf("expected new table selected")
	}
}

func TestEditorDragOverAndDrop(t *testing.T) {
	store := newFakeStore()
	tables, guests := fixture()
	ed := NewEditor(store, tables, guests)

	if id, hl := ed.DragOver(Point{X: 110, Y: 95}); id != 1 || hl != HighlightFull {
		t.Fatalf("expected full highlight on table 1, got %d %s", id, hl)
	}
	if id, hl := ed.DragOver(Point{X: 450, Y: 330}); id != 2 || hl != HighlightAvailable {
		t.Fatalf("expected available highlight on table 2, got %d %s", id, hl)
	}
	if _, hl := ed.DragOver(Point{X: 700, Y: 50}); hl != HighlightNone {
		t.Fatalf("expected no highlight over empty canvas")
	}
	if store.assigns != 0 {
		t.Fatalf("drag-over must not commit")
	}

	tableID, err := ed.Drop(context.Background(), 12, Point{X: 400, Y: 300})
	if err != nil || tableID != 2 {
		t.Fatalf("expected drop on table 2, got %d err=%v", tableID, err)
	}
	if _, err = ed.Drop(context.Background(), 12, Point{X: 700, Y: 50}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}
}
