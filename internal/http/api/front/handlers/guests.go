package handlers

import (
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/guests"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/gin-gonic/gin"
)

// MaxImportBytes bounds a CSV upload.
const MaxImportBytes = 2 << 20

// GuestHandler serves guest list endpoints.
type GuestHandler struct {
	svc *guests.Service
}

// NewGuestHandler constructs a GuestHandler.
func NewGuestHandler(svc *guests.Service) *GuestHandler {
	return &GuestHandler{svc: svc}
}

type guestRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	FullName       string `json:"full_name"`
	Email          string `json:"email" binding:"omitempty,email"`
	Phone          string `json:"phone"`
	Category       string `json:"category"`
	CompanionLimit int    `json:"companion_limit" binding:"gte=0"`
	Notes          string `json:"notes"`
}

func (r guestRequest) input() guests.CreateInput {
	return guests.CreateInput{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		FullName:       r.FullName,
		Email:          r.Email,
		Phone:          r.Phone,
		Category:       r.Category,
		CompanionLimit: r.CompanionLimit,
		Notes:          r.Notes,
	}
}

type importGuestsRequest struct {
	Guests []guestRequest `json:"guests" binding:"required,dive"`
}

type updateGuestRequest struct {
	FullName            *string                     `json:"full_name"`
	Email               *string                     `json:"email"`
	Phone               *string                     `json:"phone"`
	GroupName           *string                     `json:"group_name"`
	Notes               *string                     `json:"notes"`
	RSVPStatus          *string                     `json:"rsvp_status"`
	PlusOnesAllowed     *int                        `json:"plus_ones_allowed"`
	PlusOnesConfirmed   *int                        `json:"plus_ones_confirmed"`
	PlusOnesNames       *[]string                   `json:"plus_ones_names"`
	DietaryRestrictions *models.DietaryRestrictions `json:"dietary_restrictions"`
}

// Create adds one guest after the guest quota check.
func (h *GuestHandler) Create(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body guestRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	guest, errCreate := h.svc.Create(c.Request.Context(), sess.TenantID(), eventID, body.input())
	if errCreate != nil {
		response.Error(c, errCreate, "create guest failed")
		return
	}
	response.OK(c, http.StatusCreated, guestView(guest))
}

// List returns the event's guests, newest first.
func (h *GuestHandler) List(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	list, errList := h.svc.List(c.Request.Context(), sess.TenantID(), eventID)
	if errList != nil {
		response.Error(c, errList, "list guests failed")
		return
	}
	response.OK(c, http.StatusOK, guestViews(list))
}

// Update applies a partial guest update.
func (h *GuestHandler) Update(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	guestID, ok := parseIDParam(c, "guest_id")
	if !ok {
		return
	}
	var body updateGuestRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	guest, errUpdate := h.svc.Update(c.Request.Context(), sess.TenantID(), eventID, guestID, guests.UpdateInput{
		FullName:            body.FullName,
		Email:               body.Email,
		Phone:               body.Phone,
		GroupName:           body.GroupName,
		Notes:               body.Notes,
		RSVPStatus:          body.RSVPStatus,
		PlusOnesAllowed:     body.PlusOnesAllowed,
		PlusOnesConfirmed:   body.PlusOnesConfirmed,
		PlusOnesNames:       body.PlusOnesNames,
		DietaryRestrictions: body.DietaryRestrictions,
	})
	if errUpdate != nil {
		response.Error(c, errUpdate, "update guest failed")
		return
	}
	response.OK(c, http.StatusOK, guestView(guest))
}

// Delete removes a guest. A seated guest frees its seat.
func (h *GuestHandler) Delete(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	guestID, ok := parseIDParam(c, "guest_id")
	if !ok {
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), sess.TenantID(), eventID, guestID); errDelete != nil {
		response.Error(c, errDelete, "delete guest failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": guestID})
}

// Import adds a JSON batch of guests. A batch over quota is rejected as a whole.
func (h *GuestHandler) Import(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body importGuestsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	batch := make([]guests.CreateInput, 0, len(body.Guests))
	for _, g := range body.Guests {
		batch = append(batch, g.input())
	}
	imported, errImport := h.svc.Import(c.Request.Context(), sess.TenantID(), eventID, batch)
	if errImport != nil {
		response.Error(c, errImport, "import guests failed")
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"imported": imported})
}

// ImportCSV adds guests from the multipart "file" field.
func (h *GuestHandler) ImportCSV(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportBytes+(64<<10))
	header, errFile := c.FormFile("file")
	if errFile != nil {
		response.Fail(c, http.StatusBadRequest, "file is required")
		return
	}
	if header.Size > MaxImportBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	file, errOpen := header.Open()
	if errOpen != nil {
		response.Fail(c, http.StatusBadRequest, "read file failed")
		return
	}
	defer func() { _ = file.Close() }()

	imported, errImport := h.svc.ImportCSV(c.Request.Context(), sess.TenantID(), eventID, file)
	if errImport != nil {
		response.Error(c, errImport, "import guests failed")
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"imported": imported})
}
