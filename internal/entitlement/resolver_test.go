package entitlement_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
)

func TestHasFeatureFollowsPlan(t *testing.T) {
	conn := dbtest.Open(t)
	free := dbtest.Tenant(t, conn, models.PlanSlugFree)
	pro := dbtest.Tenant(t, conn, models.PlanSlugPro)
	r := entitlement.NewResolver(conn)
	ctx := context.Background()

	ok, err := r.HasFeature(ctx, free.ID, entitlement.FeatureTimeline)
	if err != nil || ok {
		t.Fatalf("expected free plan without timeline, got ok=%v err=%v", ok, err)
	}
	ok, err = r.HasFeature(ctx, pro.ID, entitlement.FeatureTimeline)
	if err != nil || !ok {
		t.Fatalf("expected pro plan with timeline, got ok=%v err=%v", ok, err)
	}

	errDenied := r.RequireFeature(ctx, free.ID, entitlement.FeatureCSVImport)
	denial, isDenial := entitlement.IsDenial(errDenied)
	if !isDenial {
		t.Fatalf("expected denial, got %v", errDenied)
	}
	if !strings.Contains(denial.Message, "Free") {
		t.Fatalf("expected plan name in message, got %q", denial.Message)
	}
}

func TestMissingTenantAndPlan(t *testing.T) {
	conn := dbtest.Open(t)
	r := entitlement.NewResolver(conn)
	ctx := context.Background()

	if _, err := r.ResolvePlan(ctx, 999); !errors.Is(err, entitlement.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}

	orphan := models.Tenant{Name: "No plan"}
	if err := conn.Create(&orphan).Error; err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	ok, err := r.HasFeature(ctx, orphan.ID, entitlement.FeatureTables)
	if err != nil || ok {
		t.Fatalf("expected tenant without plan to be denied, got ok=%v err=%v", ok, err)
	}
	decision, err := r.CheckEventQuota(ctx, orphan.ID)
	if err != nil || decision.Allowed {
		t.Fatalf("expected event quota denial without plan, got %+v err=%v", decision, err)
	}
}

func TestEventQuotaIgnoresArchived(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	r := entitlement.NewResolver(conn)
	ctx := context.Background()

	decision, err := r.CheckEventQuota(ctx, tenant.ID)
	if err != nil || !decision.Allowed {
		t.Fatalf("expected first event allowed, got %+v err=%v", decision, err)
	}

	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	decision, err = r.CheckEventQuota(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected second event denied on free plan")
	}
	if !strings.Contains(decision.Message, "1 active event") {
		t.Fatalf("expected limit in message, got %q", decision.Message)
	}
	if _, ok := entitlement.IsDenial(decision.Err()); !ok {
		t.Fatalf("expected decision error to be a denial")
	}

	if err = conn.Model(&event).Update("status", models.EventStatusArchived).Error; err != nil {
		t.Fatalf("archive: %v", err)
	}
	decision, err = r.CheckEventQuota(ctx, tenant.ID)
	if err != nil || !decision.Allowed {
		t.Fatalf("expected archived events to be ignored, got %+v err=%v", decision, err)
	}
}

func TestGuestQuotaIsPerEvent(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	dbtest.SetPlanLimits(t, conn, models.PlanSlugFree, 5, 3, 500)
	a := dbtest.Event(t, conn, tenant.ID, "Event A")
	b := dbtest.Event(t, conn, tenant.ID, "Event B")
	for i := 0; i < 2; i++ {
		dbtest.Guest(t, conn, a.ID, "guest", models.RSVPPending)
	}
	r := entitlement.NewResolver(conn)
	ctx := context.Background()

	decision, _ := r.CheckGuestQuota(ctx, tenant.ID, a.ID, 1)
	if !decision.Allowed {
		t.Fatalf("expected 2+1 <= 3 allowed")
	}
	decision, _ = r.CheckGuestQuota(ctx, tenant.ID, a.ID, 2)
	if decision.Allowed {
		t.Fatalf("expected 2+2 > 3 denied")
	}
	if !strings.Contains(decision.Message, "up to 3 guests per event") {
		t.Fatalf("unexpected message %q", decision.Message)
	}
	decision, _ = r.CheckQuota(ctx, tenant.ID, entitlement.QuotaRequest{Resource: entitlement.ResourceGuests, EventID: b.ID, Delta: 3})
	if !decision.Allowed {
		t.Fatalf("expected other event to have its own allowance")
	}
}

func TestStorageQuota(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.Tenant(t, conn, models.PlanSlugFree)
	r := entitlement.NewResolver(conn)
	ctx := context.Background()

	if err := conn.Model(&tenant).Update("storage_used_mb", 499).Error; err != nil {
		t.Fatalf("update usage: %v", err)
	}
	decision, _ := r.CheckStorageQuota(ctx, tenant.ID, 1)
	if !decision.Allowed {
		t.Fatalf("expected 499+1 within 500 MB")
	}
	decision, _ = r.CheckStorageQuota(ctx, tenant.ID, 2)
	if decision.Allowed {
		t.Fatalf("expected 499+2 over 500 MB")
	}

	if err := conn.Model(&tenant).Update("storage_used_mb", 500).Error; err != nil {
		t.Fatalf("update usage: %v", err)
	}
	decision, _ = r.CheckStorageQuota(ctx, tenant.ID, 0)
	if decision.Allowed {
		t.Fatalf("expected full quota to deny")
	}
}

func TestFeatureSetClosed(t *testing.T) {
	fs := entitlement.DecodeFeatures([]byte(`{"tables":true,"teleport":true,"timeline":"yes"}`))
	if !fs.Has(entitlement.FeatureTables) {
		t.Fatalf("expected tables enabled")
	}
	if fs.Has(entitlement.Feature("teleport")) {
		t.Fatalf("expected unknown feature ignored")
	}
	if fs.Has(entitlement.FeatureTimeline) {
		t.Fatalf("expected non-boolean value ignored")
	}

	if _, err := entitlement.NormalizeFeatures(fs, map[string]bool{"teleport": true}); err == nil {
		t.Fatalf("expected unknown feature to be rejected")
	}
	updated, err := entitlement.NormalizeFeatures(fs, map[string]bool{"timeline": true})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !updated.Has(entitlement.FeatureTables) || !updated.Has(entitlement.FeatureTimeline) {
		t.Fatalf("expected merge to keep tables and enable timeline, got %v", updated.Enabled())
	}
}
