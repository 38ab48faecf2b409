package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gorm.io/gorm"
)

type fakeSender struct {
	sent   []Message
	failTo string
}

func (f *fakeSender) Send(_ context.Context, msg Message) (string, error) {
	if msg.To == f.failTo {
		return "", errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

func guestWithEmail(t *testing.T, conn *gorm.DB, eventID uint64, name, email string) models.Guest {
	t.Helper()
	guest := dbtest.Guest(t, conn, eventID, name, models.RSVPPending)
	if errUpdate := conn.Model(&guest).Update("email", email).Error; errUpdate != nil {
		t.Fatalf("set email: %v", errUpdate)
	}
	guest.Email = email
	return guest
}

func TestResendSenderPostsEmail(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Header.Get("Authorization") != "Bearer re_test" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	sender, err := NewResendSender("re_test", "EventHub <hello@example.com>").WithBaseURL(srv.URL)
	if err != nil {
		t.Fatalf("base url: %v", err)
	}
	id, err := sender.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi", HTML: "<p>Hi</p>"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "email_123" {
		t.Fatalf("expected provider id, got %q", id)
	}
	if got["subject"] != "Hi" || got["from"] != "EventHub <hello@example.com>" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestResendSenderReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	}))
	defer srv.Close()

	sender, _ := NewResendSender("re_test", "bad").WithBaseURL(srv.URL)
	if _, err := sender.Send(context.Background(), Message{To: "ana@example.com"}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := sender.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestRenderInvitationEscapesAndLinks(t *testing.T) {
	event := &models.Event{Name: "Ana & Luis", Date: time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC), LocationName: "Garden"}
	guest := &models.Guest{FullName: "<b>Eva</b>", InvitationToken: "tok123"}
	subject, body, err := RenderInvitation(NewInvitationData(event, guest, "https://app.example.com/", "EventHub"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Invitation: Ana & Luis" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "https://app.example.com/rsvp/tok123") {
		t.Fatalf("expected rsvp link in body")
	}
	if strings.Contains(body, "<b>Eva</b>") {
		t.Fatalf("expected guest name to be escaped")
	}
}

func TestSendInvitationRecordsCommunication(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	guest := guestWithEmail(t, conn, event.ID, "Ana", "ana@example.com")
	noEmail := dbtest.Guest(t, conn, event.ID, "Luis", models.RSVPPending)
	sender := &fakeSender{}
	svc := NewService(conn, entitlement.NewResolver(conn), sender, "https://app.example.com")
	ctx := context.Background()

	comm, err := svc.SendInvitation(ctx, tenant.ID, event.ID, guest.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if comm.Status != models.CommunicationSent || comm.RecipientsCount != 1 {
		t.Fatalf("unexpected communication: %+v", comm)
	}
	var reloaded models.Guest
	conn.First(&reloaded, guest.ID)
	if reloaded.InvitationSentAt == nil {
		t.Fatalf("expected invitation_sent_at to be stamped")
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].HTML, "/rsvp/"+guest.InvitationToken) {
		t.Fatalf("unexpected sent messages: %+v", sender.sent)
	}
	if _, err = svc.SendInvitation(ctx, tenant.ID, event.ID, noEmail.ID); err == nil {
		t.Fatalf("expected guest without email to be rejected")
	}
}

func TestSendBulkIsSequentialAndCollectsFailures(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugEnterprise)
	event := dbtest.Event(t, conn, tenant.ID, "Gala")
	guestWithEmail(t, conn, event.ID, "Ana", "ana@example.com")
	failing := guestWithEmail(t, conn, event.ID, "Bea", "bea@example.com")
	guestWithEmail(t, conn, event.ID, "Cai", "cai@example.com")
	dbtest.Guest(t, conn, event.ID, "No Mail", models.RSVPPending)

	sender := &fakeSender{failTo: "bea@example.com"}
	svc := NewService(conn, entitlement.NewResolver(conn), sender, "https://app.example.com")
	var pauses []time.Duration
	svc.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	result, err := svc.SendBulk(context.Background(), tenant.ID, event.ID, nil)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if result.Sent != 2 || result.Skipped != 1 || len(result.Failed) != 1 || result.Failed[0].GuestID != failing.ID {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(pauses) != 2 || pauses[0] != 600*time.Millisecond {
		t.Fatalf("expected two 600ms pauses, got %v", pauses)
	}
	var count int64
	conn.Model(&models.Communication{}).Where("event_id = ?", event.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 communications, got %d", count)
	}
}

func TestSendBulkRequiresFeature(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugPro)
	event := dbtest.Event(t, conn, tenant.ID, "Gala")
	svc := NewService(conn, entitlement.NewResolver(conn), &fakeSender{}, "https://app.example.com")

	_, err := svc.SendBulk(context.Background(), tenant.ID, event.ID, nil)
	if d, ok := entitlement.IsDenial(err); !ok || d.Feature != entitlement.FeatureMassCommunications {
		t.Fatalf("expected mass communications denial, got %v", err)
	}
}
