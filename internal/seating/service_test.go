package seating

import (
	"context"
	"errors"
	"testing"

	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	return NewService(conn, entitlement.NewResolver(conn)), conn
}

func TestCreateTableDefaults(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()

	first, err := svc.CreateTable(ctx, tenant.ID, event.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.CreateTable(ctx, tenant.ID, event.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == 0 || first.Name != "Table 1" || second.Name != "Table 2" {
		t.Fatalf("unexpected names %q %q", first.Name, second.Name)
	}
	if first.Shape != models.TableShapeRound || first.Seats != DefaultSeats || first.X != DefaultX || first.Y != DefaultY {
		t.Fatalf("unexpected defaults: %+v", first)
	}
}

func TestTablesRequireFeature(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	conn.Model(&models.SubscriptionPlan{}).Where("slug = ?", models.PlanSlugFree).Update("features", `{"tables":false}`)

	_, err := svc.CreateTable(context.Background(), tenant.ID, event.ID)
	if d, ok := entitlement.IsDenial(err); !ok || d.Feature != entitlement.FeatureTables {
		t.Fatalf("expected tables denial, got %v", err)
	}
}

func TestUpdateTableWritesOnlySuppliedFields(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()
	table, _ := svc.CreateTable(ctx, tenant.ID, event.ID)

	x, rot := 250.0, -90.0
	updated, err := svc.UpdateTable(ctx, tenant.ID, event.ID, table.ID, TablePatch{X: &x, Rotation: &rot})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.X != 250 || updated.Y != DefaultY || updated.Rotation != 270 || updated.Name != "Table 1" {
		t.Fatalf("unexpected table: %+v", updated)
	}

	zero := 0
	if _, err = svc.UpdateTable(ctx, tenant.ID, event.ID, table.ID, TablePatch{Seats: &zero}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected seats validation error, got %v", err)
	}
}

func TestAssignGuestToFullTable(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()
	table, _ := svc.CreateTable(ctx, tenant.ID, event.ID)
	two := 2
	if _, err := svc.UpdateTable(ctx, tenant.ID, event.ID, table.ID, TablePatch{Seats: &two}); err != nil {
		t.Fatalf("update: %v", err)
	}

	a := dbtest.Guest(t, conn, event.ID, "A", models.RSVPConfirmed)
	b := dbtest.Guest(t, conn, event.ID, "B", models.RSVPConfirmed)
	c := dbtest.Guest(t, conn, event.ID, "C", models.RSVPConfirmed)
	for _, g := range []models.Guest{a, b} {
		if _, err := svc.AssignGuest(ctx, tenant.ID, event.ID, table.ID, g.ID); err != nil {
			t.Fatalf("assign %s: %v", g.FullName, err)
		}
	}
	if _, err := svc.AssignGuest(ctx, tenant.ID, event.ID, table.ID, a.ID); err != nil {
		t.Fatalf("expected reassigning a seated guest to the same table to succeed, got %v", err)
	}

	_, err := svc.AssignGuest(ctx, tenant.ID, event.ID, table.ID, c.ID)
	if !errors.Is(err, ErrTableFull) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected table full, got %v", err)
	}
	if domain.Message(err) != "table full" {
		t.Fatalf("expected message %q, got %q", "table full", domain.Message(err))
	}
	var reloaded models.Guest
	conn.First(&reloaded, c.ID)
	if reloaded.TableID != nil {
		t.Fatalf("expected no write for rejected guest")
	}

	tables, err := svc.ListTables(ctx, tenant.ID, event.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tables) != 1 || len(tables[0].Guests) != 2 {
		t.Fatalf("expected 2 seated guests, got %+v", tables)
	}
}

func TestDeleteTableUnseatsGuests(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()
	table, _ := svc.CreateTable(ctx, tenant.ID, event.ID)
	guests := []models.Guest{
		dbtest.Guest(t, conn, event.ID, "A", models.RSVPConfirmed),
		dbtest.Guest(t, conn, event.ID, "B", models.RSVPConfirmed),
		dbtest.Guest(t, conn, event.ID, "C", models.RSVPConfirmed),
	}
	for _, g := range guests {
		if _, err := svc.AssignGuest(ctx, tenant.ID, event.ID, table.ID, g.ID); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}

	if err := svc.DeleteTable(ctx, tenant.ID, event.ID, table.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var unseated, total int64
	conn.Model(&models.Guest{}).Where("event_id = ? AND table_id IS NULL", event.ID).Count(&unseated)
	conn.Model(&models.Guest{}).Where("event_id = ?", event.ID).Count(&total)
	if unseated != 3 || total != 3 {
		t.Fatalf("expected 3 unseated guests kept, got unseated=%d total=%d", unseated, total)
	}
	if err := svc.DeleteTable(ctx, tenant.ID, event.ID, table.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUnassignGuest(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()
	table, _ := svc.CreateTable(ctx, tenant.ID, event.ID)
	g := dbtest.Guest(t, conn, event.ID, "A", models.RSVPConfirmed)
	if _, err := svc.AssignGuest(ctx, tenant.ID, event.ID, table.ID, g.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := svc.UnassignGuest(ctx, tenant.ID, event.ID, g.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	var reloaded models.Guest
	conn.First(&reloaded, g.ID)
	if reloaded.TableID != nil {
		t.Fatalf("expected guest unseated")
	}
	if err := svc.UnassignGuest(ctx, tenant.ID, event.ID, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
