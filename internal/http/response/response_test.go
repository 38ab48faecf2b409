package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func perform(t *testing.T, handler gin.HandlerFunc) (int, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, env
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "not found", err: fmt.Errorf("load guest: %w", domain.ErrNotFound), status: http.StatusNotFound, message: "not found"},
		{name: "conflict", err: domain.Conflictf("table full"), status: http.StatusConflict, message: "table full"},
		{name: "fields", err: domain.Invalid("name", "is required"), status: http.StatusBadRequest, message: "validation failed"},
		{name: "denial", err: &entitlement.Denial{Message: "The Free plan allows up to 50 guests per event."}, status: http.StatusForbidden, message: "The Free plan allows up to 50 guests per event."},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError, message: "save failed, please try again"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := perform(t, func(c *gin.Context) { Error(c, tc.err, "save failed") })
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if env.Success {
				t.Fatalf("expected success=false")
			}
			if env.Error != tc.message {
				t.Fatalf("expected error %q, got %q", tc.message, env.Error)
			}
		})
	}
}

func TestDenialCarriesUpgradeURL(t *testing.T) {
	_, env := perform(t, func(c *gin.Context) { Error(c, &entitlement.Denial{Message: "denied"}, "x") })
	if env.UpgradeURL == "" {
		t.Fatalf("expected upgrade url on denial")
	}
}

func TestBindErrorReportsFields(t *testing.T) {
	RegisterJSONTagNames()
	type body struct {
		Name  string `json:"name" binding:"required,min=3"`
		Email string `json:"email" binding:"omitempty,email"`
	}
	errValidate := binding.Validator.ValidateStruct(&body{Name: "ab", Email: "nope"})
	if errValidate == nil {
		t.Fatalf("expected validation error")
	}

	status, env := perform(t, func(c *gin.Context) { BindError(c, errValidate) })
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if env.Fields["name"] == "" || env.Fields["email"] == "" {
		t.Fatalf("expected name and email field errors, got %v", env.Fields)
	}
}

func TestBindErrorMalformedJSON(t *testing.T) {
	_, env := perform(t, func(c *gin.Context) { BindError(c, errors.New("unexpected EOF")) })
	if env.Error != "invalid json" {
		t.Fatalf("expected invalid json, got %q", env.Error)
	}
}
