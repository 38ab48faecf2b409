package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/session"
	"github.com/gin-gonic/gin"
)

// ActiveEventHeader selects the active event when no event_id query is given.
const ActiveEventHeader = "X-Event-ID"

// ActiveEventCookie is the cookie fallback for the active event.
const ActiveEventCookie = "active_event_id"

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// eventScope returns the session tenant and the :id event path parameter.
func eventScope(c *gin.Context) (*session.Session, uint64, bool) {
	sess, ok := currentSession(c)
	if !ok {
		return nil, 0, false
	}
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, 0, false
	}
	return sess, eventID, true
}

func currentSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.FromContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return sess, true
}

// requestedEventID picks the active event from the query, header, or cookie.
// Zero means the latest event.
func requestedEventID(c *gin.Context) uint64 {
	candidates := []string{c.Query("event_id"), c.GetHeader(ActiveEventHeader)}
	if cookie, errCookie := c.Cookie(ActiveEventCookie); errCookie == nil {
		candidates = append(candidates, cookie)
	}
	for _, raw := range candidates {
		if id, errParse := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); errParse == nil && id > 0 {
			return id
		}
	}
	return 0
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return fallback
	}
	return v
}

func rawJSON(raw []byte, fallback string) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage(fallback)
	}
	return json.RawMessage(raw)
}
