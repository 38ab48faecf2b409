package guests

import (
	"context"
	"errors"
	"strings"
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

func countGuests(t *testing.T, conn *gorm.DB, eventID uint64) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&models.Guest{}).Where("event_id = ?", eventID).Count(&n).Error; err != nil {
		t.Fatalf("count guests: %v", err)
	}
	return n
}

func TestCreateAssignsUniqueToken(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()

	a, err := svc.Create(ctx, tenant.ID, event.ID, CreateInput{FirstName: "Ana", LastName: "Ruiz", Category: "family", CompanionLimit: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := svc.Create(ctx, tenant.ID, event.ID, CreateInput{FullName: "Luis Gomez"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.FullName != "Ana Ruiz" || a.GroupName != "family" || a.PlusOnesAllowed != 2 {
		t.Fatalf("unexpected guest: %+v", a)
	}
	if a.RSVPStatus != models.RSVPPending {
		t.Fatalf("expected pending, got %q", a.RSVPStatus)
	}
	if len(a.InvitationToken) < 32 || a.InvitationToken == b.InvitationToken {
		t.Fatalf("expected distinct long tokens, got %q and %q", a.InvitationToken, b.InvitationToken)
	}

	list, err := svc.List(ctx, tenant.ID, event.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")

	_, err := svc.Create(context.Background(), tenant.ID, event.ID, CreateInput{Email: "nope", CompanionLimit: -1})
	var fields domain.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected field errors, got %v", err)
	}
	for _, key := range []string{"full_name", "email", "companion_limit"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected %s in %v", key, fields)
		}
	}
}

func TestCreateOnForeignEventIsNotFound(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.Tenant(t, conn, models.PlanSlugPro)
	other := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, owner.ID, "Wedding")

	if _, err := svc.Create(context.Background(), other.ID, event.ID, CreateInput{FullName: "Intruder"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := countGuests(t, conn, event.ID); n != 0 {
		t.Fatalf("expected no guest written, got %d", n)
	}
}

func TestUpdateKeepsPlusOnesBound(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()
	guest, _ := svc.Create(ctx, tenant.ID, event.ID, CreateInput{FullName: "Ana", CompanionLimit: 2})

	three := 3
	if _, err := svc.Update(ctx, tenant.ID, event.ID, guest.ID, UpdateInput{PlusOnesConfirmed: &three}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	two := 2
	updated, err := svc.Update(ctx, tenant.ID, event.ID, guest.ID, UpdateInput{
		PlusOnesConfirmed: &two,
		PlusOnesNames:     &[]string{" Eva ", "", "Tom"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PlusOnesConfirmed != 2 || len(updated.PlusOnesNames) != 2 || updated.PlusOnesNames[0] != "Eva" {
		t.Fatalf("unexpected guest after update: %+v", updated)
	}
	one := 1
	if _, err = svc.Update(ctx, tenant.ID, event.ID, guest.ID, UpdateInput{PlusOnesAllowed: &one}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected lowering allowance below confirmed to fail, got %v", err)
	}
}

func TestDeleteSeatedGuestLeavesNoReference(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	table := models.EventTable{EventID: event.ID, Name: "Table 1", Seats: 8}
	conn.Create(&table)
	guest := dbtest.Guest(t, conn, event.ID, "Ana", models.RSVPConfirmed)
	conn.Model(&guest).Update("table_id", table.ID)

	if err := svc.Delete(context.Background(), tenant.ID, event.ID, guest.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var seated int64
	conn.Model(&models.Guest{}).Where("table_id = ?", table.ID).Count(&seated)
	if seated != 0 {
		t.Fatalf("expected no guest referencing the table, got %d", seated)
	}
}

func TestImportIsAllOrNothing(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()

	for i := 0; i < 48; i++ {
		dbtest.Guest(t, conn, event.ID, "guest", models.RSVPPending)
	}
	batch := []CreateInput{{FullName: "A"}, {FullName: "B"}, {FullName: "C"}}
	_, err := svc.Import(ctx, tenant.ID, event.ID, batch)
	denial, ok := entitlement.IsDenial(err)
	if !ok {
		t.Fatalf("expected quota denial, got %v", err)
	}
	if !strings.Contains(denial.Message, "50") {
		t.Fatalf("expected limit in message, got %q", denial.Message)
	}
	if n := countGuests(t, conn, event.ID); n != 48 {
		t.Fatalf("expected no partial import, got %d guests", n)
	}

	n, err := svc.Import(ctx, tenant.ID, event.ID, batch[:2])
	if err != nil || n != 2 {
		t.Fatalf("expected 2 imported, got n=%d err=%v", n, err)
	}
	if got := countGuests(t, conn, event.ID); got != 50 {
		t.Fatalf("expected 50 guests, got %d", got)
	}
}

func TestImportRejectsInvalidRow(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")

	_, err := svc.Import(context.Background(), tenant.ID, event.ID, []CreateInput{{FullName: "A"}, {Email: "b@example.com"}})
	var fields domain.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if _, ok := fields["guests[1].full_name"]; !ok {
		t.Fatalf("expected row index in field name, got %v", fields)
	}
	if n := countGuests(t, conn, event.ID); n != 0 {
		t.Fatalf("expected nothing imported, got %d", n)
	}
}

func TestParseCSV(t *testing.T) {
	body := "\ufefffirst_name,last_name,email,phone,category,companion_limit\n" +
		"Ana,Ruiz,ana@example.com,555,family,2\n" +
		",,,,,\n" +
		"Luis,Gomez,,,friends,\n"
	rows, err := ParseCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].name() != "Ana Ruiz" || rows[0].CompanionLimit != 2 || rows[0].Category != "family" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].CompanionLimit != 0 {
		t.Fatalf("expected empty companion_limit to be 0, got %d", rows[1].CompanionLimit)
	}

	if _, err = ParseCSV(strings.NewReader("name,mail\nAna,a@x\n")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected header validation error, got %v", err)
	}
	if _, err = ParseCSV(strings.NewReader("first_name,companion_limit\nAna,many\n")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected companion_limit validation error, got %v", err)
	}
}

func TestImportCSVRequiresFeature(t *testing.T) {
	svc, conn := newTestService(t)
	free := dbtest.Tenant(t, conn, models.PlanSlugFree)
	event := dbtest.Event(t, conn, free.ID, "Wedding")

	_, err := svc.ImportCSV(context.Background(), free.ID, event.ID, strings.NewReader("first_name\nAna\n"))
	denial, ok := entitlement.IsDenial(err)
	if !ok || denial.Feature != entitlement.FeatureCSVImport {
		t.Fatalf("expected csv_import denial, got %v", err)
	}
}

func TestRSVPByToken(t *testing.T) {
	svc, conn := newTestService(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	ctx := context.Background()
	guest, err := svc.Create(ctx, tenant.ID, event.ID, CreateInput{FullName: "Ana", CompanionLimit: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inv, err := svc.GetByToken(ctx, guest.InvitationToken)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if inv.Event.ID != event.ID || inv.Guest.InvitationOpenedAt == nil {
		t.Fatalf("expected event and opened stamp, got %+v", inv)
	}

	updated, err := svc.SubmitRSVP(ctx, guest.InvitationToken, RSVPInput{
		Status:              models.RSVPConfirmed,
		ConfirmedCompanions: 2,
		CompanionNames:      " Eva , ,Tom ",
		DietaryNotes:        "no nuts",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if updated.RSVPStatus != models.RSVPConfirmed || updated.PlusOnesConfirmed != 2 {
		t.Fatalf("unexpected guest: %+v", updated)
	}
	names := []string(updated.PlusOnesNames)
	if len(names) != 2 || names[0] != "Eva" || names[1] != "Tom" {
		t.Fatalf("expected trimmed names, got %v", names)
	}
	if updated.DietaryRestrictions.Data().OtherNotes != "no nuts" {
		t.Fatalf("expected dietary notes, got %+v", updated.DietaryRestrictions.Data())
	}
	if updated.RespondedAt == nil {
		t.Fatalf("expected responded_at to be stamped")
	}

	if _, err = svc.SubmitRSVP(ctx, guest.InvitationToken, RSVPInput{Status: models.RSVPConfirmed, ConfirmedCompanions: 3}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected companion bound violation, got %v", err)
	}
	if _, err = svc.SubmitRSVP(ctx, "unknown-token", RSVPInput{Status: models.RSVPDeclined}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown token, got %v", err)
	}

	declined, err := svc.SubmitRSVP(ctx, guest.InvitationToken, RSVPInput{Status: models.RSVPDeclined, ConfirmedCompanions: 2, CompanionNames: "Eva"})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.PlusOnesConfirmed != 0 || len(declined.PlusOnesNames) != 0 {
		t.Fatalf("expected declining to clear companions, got %+v", declined)
	}
	if declined.DietaryRestrictions.Data().OtherNotes != "no nuts" {
		t.Fatalf("expected earlier dietary notes kept, got %+v", declined.DietaryRestrictions.Data())
	}
}
