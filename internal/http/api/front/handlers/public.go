package handlers

import (
	"net/http"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/guests"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/photos"
	"github.com/eventhub-saas/eventhub/internal/registration"
	"github.com/gin-gonic/gin"
)

// PublicHandler serves the unauthenticated RSVP, guest gallery and signup endpoints.
type PublicHandler struct {
	guests       *guests.Service
	photos       *photos.Service
	registration *registration.Service
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(guestSvc *guests.Service, photoSvc *photos.Service, reg *registration.Service) *PublicHandler {
	return &PublicHandler{guests: guestSvc, photos: photoSvc, registration: reg}
}

type rsvpRequest struct {
	Status              string                      `json:"status" binding:"required"`
	ConfirmedCompanions int                         `json:"confirmed_companions"`
	CompanionNames      string                      `json:"companion_names"`
	DietaryNotes        string                      `json:"dietary_notes"`
	Dietary             *models.DietaryRestrictions `json:"dietary_restrictions"`
	Notes               string                      `json:"notes"`
}

func publicGuestView(g *models.Guest) gin.H {
	names := []string(g.PlusOnesNames)
	if names == nil {
		names = []string{}
	}
	return gin.H{
		"full_name":            g.FullName,
		"rsvp_status":          g.RSVPStatus,
		"plus_ones_allowed":    g.PlusOnesAllowed,
		"plus_ones_confirmed":  g.PlusOnesConfirmed,
		"plus_ones_names":      names,
		"dietary_restrictions": g.DietaryRestrictions.Data(),
		"responded_at":         g.RespondedAt,
	}
}

func tokenParam(c *gin.Context) (string, bool) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" || len(token) > 64 {
		response.Fail(c, http.StatusNotFound, "invitation not found")
		return "", false
	}
	return token, true
}

// Invitation returns the guest, event and invitation design behind a token.
func (h *PublicHandler) Invitation(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	inv, errGet := h.guests.GetByToken(c.Request.Context(), token)
	if errGet != nil {
		response.Error(c, errGet, "load invitation failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"guest": publicGuestView(&inv.Guest),
		"event": gin.H{
			"name":             inv.Event.Name,
			"event_type":       inv.Event.EventType,
			"date":             inv.Event.Date,
			"end_date":         inv.Event.EndDate,
			"location_name":    inv.Event.LocationName,
			"location_address": inv.Event.LocationAddress,
			"dress_code":       inv.Event.DressCode,
			"custom_message":   inv.Event.CustomMessage,
		},
		"design": rawJSON(inv.Event.InvitationDesign, "null"),
	})
}

// SubmitRSVP records the guest's answer.
func (h *PublicHandler) SubmitRSVP(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	var body rsvpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	guest, errSubmit := h.guests.SubmitRSVP(c.Request.Context(), token, guests.RSVPInput{
		Status:              body.Status,
		ConfirmedCompanions: body.ConfirmedCompanions,
		CompanionNames:      body.CompanionNames,
		DietaryNotes:        body.DietaryNotes,
		Dietary:             body.Dietary,
		Notes:               body.Notes,
	})
	if errSubmit != nil {
		response.Error(c, errSubmit, "submit rsvp failed")
		return
	}
	response.OK(c, http.StatusOK, publicGuestView(guest))
}

// UploadPhoto stores a guest photo for the token's event.
func (h *PublicHandler) UploadPhoto(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	upload, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()
	view, errUpload := h.photos.UploadByToken(c.Request.Context(), token, upload)
	if errUpload != nil {
		response.Error(c, errUpload, "upload photo failed")
		return
	}
	response.OK(c, http.StatusCreated, gin.H{
		"id":                view.ID,
		"url":               view.URL,
		"caption":           view.Caption,
		"moderation_status": view.ModerationStatus,
	})
}

// Gallery lists approved photos of the token's event.
func (h *PublicHandler) Gallery(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	page, errList := h.photos.PublicGallery(c.Request.Context(), token, queryInt(c, "page", 1), queryInt(c, "limit", photos.DefaultPageSize))
	if errList != nil {
		response.Error(c, errList, "list photos failed")
		return
	}
	out := make([]gin.H, 0, len(page.Photos))
	for _, p := range page.Photos {
		out = append(out, gin.H{"id": p.ID, "url": p.URL, "caption": p.Caption, "uploaded_at": p.UploadedAt})
	}
	response.Paged(c, out, response.Meta{Page: page.Page, Limit: page.Limit, Total: page.Total})
}

// Register creates a tenant on the free plan and its owner.
func (h *PublicHandler) Register(c *gin.Context) {
	var body registration.Input
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	result, errRegister := h.registration.Register(c.Request.Context(), body)
	if errRegister != nil {
		response.Error(c, errRegister, "registration failed")
		return
	}
	response.OK(c, http.StatusCreated, gin.H{
		"tenant": gin.H{"id": result.Tenant.ID, "name": result.Tenant.Name, "plan_id": result.Tenant.PlanID},
		"user":   gin.H{"id": result.User.ID, "email": result.User.Email, "full_name": result.User.FullName, "role": result.User.Role},
	})
}
