package handlers

import (
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/mail"
	"github.com/gin-gonic/gin"
)

// CommunicationHandler serves invitation sends and the communication log.
type CommunicationHandler struct {
	svc *mail.Service
}

// NewCommunicationHandler constructs a CommunicationHandler.
func NewCommunicationHandler(svc *mail.Service) *CommunicationHandler {
	return &CommunicationHandler{svc: svc}
}

type bulkInvitationRequest struct {
	GuestIDs []uint64 `json:"guest_ids"`
}

// List returns the event's communications, newest first.
func (h *CommunicationHandler) List(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	list, errList := h.svc.List(c.Request.Context(), sess.TenantID(), eventID)
	if errList != nil {
		response.Error(c, errList, "list communications failed")
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, communicationView(&list[i]))
	}
	response.OK(c, http.StatusOK, out)
}

// SendOne emails the invitation of one guest.
func (h *CommunicationHandler) SendOne(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	guestID, ok := parseIDParam(c, "guest_id")
	if !ok {
		return
	}
	record, errSend := h.svc.SendInvitation(c.Request.Context(), sess.TenantID(), eventID, guestID)
	if errSend != nil {
		response.Error(c, errSend, "send invitation failed")
		return
	}
	response.OK(c, http.StatusOK, communicationView(record))
}

// SendBulk emails the listed guests, or every guest with an email when none are listed.
// Individual failures are reported, not fatal.
func (h *CommunicationHandler) SendBulk(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body bulkInvitationRequest
	if c.Request.ContentLength != 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			response.BindError(c, errBind)
			return
		}
	}
	result, errSend := h.svc.SendBulk(c.Request.Context(), sess.TenantID(), eventID, body.GuestIDs)
	if errSend != nil {
		response.Error(c, errSend, "send invitations failed")
		return
	}
	response.OK(c, http.StatusOK, result)
}
