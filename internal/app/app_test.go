package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eventhub-saas/eventhub/internal/config"
	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/http/middleware"
	"github.com/eventhub-saas/eventhub/internal/mail"
	"github.com/eventhub-saas/eventhub/internal/photos"
	"github.com/eventhub-saas/eventhub/internal/session"
	"github.com/gin-gonic/gin"
)

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (session.Identity, error) {
	return session.Identity{}, session.ErrUnauthenticated
}

func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := dbtest.Open(t)
	store, errStore := photos.NewDiskStore(t.TempDir(), MediaPrefix)
	if errStore != nil {
		t.Fatalf("disk store: %v", errStore)
	}
	return NewEngine(EngineDeps{
		DB:         conn,
		DSN:        "file:eventhub.db",
		JWT:        config.JWTConfig{Secret: "app-test", Expiry: time.Hour},
		Verifier:   rejectAll{},
		PhotoStore: store,
		Sender:     mail.LogSender{},
		AppURL:     "http://localhost:3000",
	})
}

func serve(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestSetupCreatesFirstAdminOnce(t *testing.T) {
	engine := newTestApp(t)

	rec := serve(engine, http.MethodGet, "/v0/init/status", nil)
	if !strings.Contains(rec.Body.String(), `"initialized":false`) {
		t.Fatalf("expected uninitialized, got %s", rec.Body.String())
	}

	setup := gin.H{"admin_username": "root", "admin_password": "correct-horse", "site_name": "Parties Inc"}
	rec = serve(engine, http.MethodPost, "/v0/init/setup", setup)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(engine, http.MethodGet, "/v0/init/status", nil)
	if !strings.Contains(rec.Body.String(), `"initialized":true`) {
		t.Fatalf("expected initialized, got %s", rec.Body.String())
	}
	rec = serve(engine, http.MethodPost, "/v0/init/setup", setup)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on second setup, got %d", rec.Code)
	}

	rec = serve(engine, http.MethodPost, "/v0/admin/login", gin.H{"username": "root", "password": "correct-horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admin login to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetupRejectsShortPassword(t *testing.T) {
	engine := newTestApp(t)
	rec := serve(engine, http.MethodPost, "/v0/init/setup", gin.H{"admin_username": "root", "admin_password": "short"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "admin_password") {
		t.Fatalf("expected field error for admin_password, got %s", rec.Body.String())
	}
}

func TestEngineMiddleware(t *testing.T) {
	engine := newTestApp(t)

	rec := serve(engine, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	rec = serve(engine, http.MethodGet, "/v1/events", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodOptions, "/v1/events", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight := httptest.NewRecorder()
	engine.ServeHTTP(preflight, req)
	if preflight.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS allow origin header, got %v", preflight.Header())
	}

	rec = serve(engine, http.MethodGet, "/v0/init/prefill", nil)
	if !strings.Contains(rec.Body.String(), `"database_type":"sqlite"`) {
		t.Fatalf("expected sqlite prefill, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"plans_seeded":true`) || !strings.Contains(rec.Body.String(), `"tenant_count":0`) {
		t.Fatalf("expected prefill to report seeded plans and no tenants, got %s", rec.Body.String())
	}
}

func TestInitEngineWritesConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	done := make(chan struct{})
	engine := NewInitEngine(configPath, 8080, done)

	rec := serve(engine, http.MethodPost, "/v0/init/setup", gin.H{
		"database_type":  "sqlite",
		"database_path":  filepath.Join(dir, "eventhub.db"),
		"admin_username": "root",
		"admin_password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !ConfigExists(configPath) {
		t.Fatalf("expected config file at %s", configPath)
	}
	dsn, errDSN := config.LoadDatabaseDSN(configPath)
	if errDSN != nil || !strings.Contains(dsn, "eventhub.db") {
		t.Fatalf("expected sqlite dsn in config, got %q (%v)", dsn, errDSN)
	}
	jwtCfg, _ := config.LoadJWTConfig(configPath)
	if jwtCfg.Secret == "" || jwtCfg.Expiry != 720*time.Hour {
		t.Fatalf("expected generated jwt settings, got %+v", jwtCfg)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected done to close after setup")
	}
}
