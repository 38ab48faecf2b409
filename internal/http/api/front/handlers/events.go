package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/gin-gonic/gin"
)

// EventHandler serves tenant event endpoints.
type EventHandler struct {
	svc *events.Service
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *events.Service) *EventHandler {
	return &EventHandler{svc: svc}
}

type createEventRequest struct {
	Name            string `json:"name" binding:"required,min=3"`
	EventType       string `json:"event_type"`
	Date            string `json:"date" binding:"required"`
	EndDate         string `json:"end_date"`
	LocationName    string `json:"location_name"`
	LocationAddress string `json:"location_address"`
	DressCode       string `json:"dress_code"`
	CustomMessage   string `json:"custom_message"`
	MaxGuests       int    `json:"max_guests" binding:"gte=0"`
}

type updateEventRequest struct {
	Name            *string `json:"name"`
	EventType       *string `json:"event_type"`
	Date            *string `json:"date"`
	EndDate         *string `json:"end_date"`
	LocationName    *string `json:"location_name"`
	LocationAddress *string `json:"location_address"`
	DressCode       *string `json:"dress_code"`
	CustomMessage   *string `json:"custom_message"`
	MaxGuests       *int    `json:"max_guests"`
	Status          *string `json:"status"`
}

// Create adds an event after the event quota check.
func (h *EventHandler) Create(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var body createEventRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	event, errCreate := h.svc.Create(c.Request.Context(), sess.TenantID(), sess.UserID(), events.CreateInput{
		Name:            body.Name,
		EventType:       body.EventType,
		Date:            body.Date,
		EndDate:         body.EndDate,
		LocationName:    body.LocationName,
		LocationAddress: body.LocationAddress,
		DressCode:       body.DressCode,
		CustomMessage:   body.CustomMessage,
		MaxGuests:       body.MaxGuests,
	})
	if errCreate != nil {
		response.Error(c, errCreate, "create event failed")
		return
	}
	response.OK(c, http.StatusCreated, eventView(event))
}

// List returns the tenant's events, newest first.
func (h *EventHandler) List(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	list, errList := h.svc.List(c.Request.Context(), sess.TenantID())
	if errList != nil {
		response.Error(c, errList, "list events failed")
		return
	}
	response.OK(c, http.StatusOK, eventViews(list))
}

// Get returns one event.
func (h *EventHandler) Get(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	event, errGet := h.svc.Get(c.Request.Context(), sess.TenantID(), eventID)
	if errGet != nil {
		response.Error(c, errGet, "get event failed")
		return
	}
	response.OK(c, http.StatusOK, eventView(event))
}

// Update applies a partial update.
func (h *EventHandler) Update(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body updateEventRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	event, errUpdate := h.svc.Update(c.Request.Context(), sess.TenantID(), eventID, events.UpdateInput{
		Name:            body.Name,
		EventType:       body.EventType,
		Date:            body.Date,
		EndDate:         body.EndDate,
		LocationName:    body.LocationName,
		LocationAddress: body.LocationAddress,
		DressCode:       body.DressCode,
		CustomMessage:   body.CustomMessage,
		MaxGuests:       body.MaxGuests,
		Status:          body.Status,
	})
	if errUpdate != nil {
		response.Error(c, errUpdate, "update event failed")
		return
	}
	response.OK(c, http.StatusOK, eventView(event))
}

// Delete removes an event and everything below it.
func (h *EventHandler) Delete(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), sess.TenantID(), eventID); errDelete != nil {
		response.Error(c, errDelete, "delete event failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": eventID})
}

// MergeSettings shallow-merges the body into the event settings.
func (h *EventHandler) MergeSettings(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var patch map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&patch); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	merged, errMerge := h.svc.MergeSettings(c.Request.Context(), sess.TenantID(), eventID, patch)
	if errMerge != nil {
		response.Error(c, errMerge, "update settings failed")
		return
	}
	response.OK(c, http.StatusOK, merged)
}

// InvitationDesign returns the stored design document, or null.
func (h *EventHandler) InvitationDesign(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	design, errGet := h.svc.InvitationDesign(c.Request.Context(), sess.TenantID(), eventID)
	if errGet != nil {
		response.Error(c, errGet, "load invitation design failed")
		return
	}
	response.OK(c, http.StatusOK, rawJSON(design, "null"))
}

// SaveInvitationDesign stores the body verbatim.
func (h *EventHandler) SaveInvitationDesign(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	raw, errRead := c.GetRawData()
	if errRead != nil || !json.Valid(raw) {
		response.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if errSave := h.svc.SaveInvitationDesign(c.Request.Context(), sess.TenantID(), eventID, raw); errSave != nil {
		response.Error(c, errSave, "save invitation design failed")
		return
	}
	response.OK(c, http.StatusOK, json.RawMessage(raw))
}
