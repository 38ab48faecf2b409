package handlers

import (
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/analytics"
	"github.com/eventhub-saas/eventhub/internal/checklist"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves reports and the dashboard.
type AnalyticsHandler struct {
	svc       *analytics.Service
	events    *events.Service
	checklist *checklist.Service
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(svc *analytics.Service, eventSvc *events.Service, tasks *checklist.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, events: eventSvc, checklist: tasks}
}

// Report returns KPIs, dietary buckets and the RSVP time series of an event.
func (h *AnalyticsHandler) Report(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	report, errReport := h.svc.Report(c.Request.Context(), sess.TenantID(), eventID)
	if errReport != nil {
		response.Error(c, errReport, "build report failed")
		return
	}
	response.OK(c, http.StatusOK, report)
}

// Dashboard summarizes the active event picked by query, header, or cookie.
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	dash, errDash := h.svc.Dashboard(c.Request.Context(), h.events, h.checklist, sess.TenantID(), requestedEventID(c))
	if errDash != nil {
		response.Error(c, errDash, "build dashboard failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"event":              eventView(dash.Event),
		"total_guests":       dash.TotalGuests,
		"confirmed":          dash.Confirmed,
		"declined":           dash.Declined,
		"pending":            dash.Pending,
		"days_left":          dash.DaysLeft,
		"recent_guests":      guestViews(dash.RecentGuests),
		"checklist_progress": dash.ChecklistProgress,
		"checklist":          checklistViews(dash.Checklist),
	})
}
