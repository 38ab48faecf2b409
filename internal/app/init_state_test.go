package app

import (
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eventhub-saas/eventhub/internal/config"
	"github.com/eventhub-saas/eventhub/internal/db"
	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/mail"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func dropFreePlan(t *testing.T, conn *gorm.DB) {
	t.Helper()
	if errDelete := conn.Unscoped().Where("slug = ?", models.PlanSlugFree).Delete(&models.SubscriptionPlan{}).Error; errDelete != nil {
		t.Fatalf("delete free plan: %v", errDelete)
	}
}

func TestLoadInitStateOnUnmigratedDatabase(t *testing.T) {
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close(conn)

	state, err := LoadInitState(conn)
	if err != nil {
		t.Fatalf("LoadInitState: %v", err)
	}
	if state != (InitState{}) {
		t.Fatalf("expected empty state, got %+v", state)
	}
	if state.Ready() {
		t.Fatalf("expected not ready before migrate")
	}
	if _, errNil := LoadInitState(nil); errNil == nil {
		t.Fatalf("expected error for nil connection")
	}
}

func TestInitializedNeedsAdminAndFreePlan(t *testing.T) {
	conn := dbtest.Open(t)

	state, err := LoadInitState(conn)
	if err != nil {
		t.Fatalf("LoadInitState: %v", err)
	}
	if !state.FreePlan || state.Plans != int64(len(db.DefaultPlans())) {
		t.Fatalf("expected seeded catalog after migrate, got %+v", state)
	}
	if state.Admins != 0 || state.Ready() {
		t.Fatalf("expected no admin yet, got %+v", state)
	}

	admin := models.Admin{Username: "root", Password: "hashed", Active: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	initialized, err := HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized: %v", err)
	}
	if !initialized {
		t.Fatalf("expected initialized with admin and free plan")
	}

	dropFreePlan(t, conn)
	initialized, err = HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized without free plan: %v", err)
	}
	if initialized {
		t.Fatalf("expected registration to be blocked without the free plan")
	}
}

func TestSetupReseedsMissingFreePlan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := dbtest.Open(t)
	dropFreePlan(t, conn)
	engine := NewEngine(EngineDeps{
		DB:       conn,
		DSN:      "file:eventhub.db",
		JWT:      config.JWTConfig{Secret: "init-state-test", Expiry: time.Hour},
		Verifier: rejectAll{},
		Sender:   mail.LogSender{},
		AppURL:   "http://localhost:3000",
	})

	rec := serve(engine, http.MethodPost, "/v0/init/setup", gin.H{"admin_username": "root", "admin_password": "correct-horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, errPlan := db.PlanBySlug(conn, models.PlanSlugFree); errPlan != nil {
		t.Fatalf("expected free plan restored, got %v", errPlan)
	}

	dropFreePlan(t, conn)
	rec = serve(engine, http.MethodPost, "/v0/init/setup", gin.H{"admin_username": "other", "admin_password": "correct-horse"})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "already initialized") {
		t.Fatalf("expected second setup rejected, got %d: %s", rec.Code, rec.Body.String())
	}
	initialized, err := HasAdminInitialized(conn)
	if err != nil {
		t.Fatalf("HasAdminInitialized: %v", err)
	}
	if !initialized {
		t.Fatalf("expected rejected setup to still restore the free plan")
	}
}
