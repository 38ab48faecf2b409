package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/seating"
	"github.com/gin-gonic/gin"
)

// SeatingHandler serves table and layout endpoints.
// Every request rebuilds an Editor from server state and mutates through it.
type SeatingHandler struct {
	svc *seating.Service
}

// NewSeatingHandler constructs a SeatingHandler.
func NewSeatingHandler(svc *seating.Service) *SeatingHandler {
	return &SeatingHandler{svc: svc}
}

type updateTableRequest struct {
	Name     *string  `json:"name"`
	Shape    *string  `json:"shape"`
	Seats    *int     `json:"seats"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Rotation *float64 `json:"rotation"`
	Notes    *string  `json:"notes"`
}

func (r updateTableRequest) gestureOnly() bool {
	return r.X != nil && r.Y != nil && r.Rotation != nil &&
		r.Name == nil && r.Shape == nil && r.Seats == nil && r.Notes == nil
}

type seatGuestRequest struct {
	GuestID uint64 `json:"guest_id" binding:"required"`
}

type dropRequest struct {
	GuestID uint64  `json:"guest_id" binding:"required"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (h *SeatingHandler) editor(ctx context.Context, tenantID, eventID uint64) (*seating.Editor, error) {
	tables, errTables := h.svc.ListTables(ctx, tenantID, eventID)
	if errTables != nil {
		return nil, errTables
	}
	list, errGuests := h.svc.ListGuests(ctx, tenantID, eventID)
	if errGuests != nil {
		return nil, errGuests
	}
	store := seating.EventStore{Service: h.svc, TenantID: tenantID, EventID: eventID}
	return seating.NewEditor(store, tables, list), nil
}

func (h *SeatingHandler) tableResult(c *gin.Context, editor *seating.Editor, tableID uint64, status int) {
	for _, t := range editor.Tables() {
		if t.ID == tableID {
			response.OK(c, status, tableView(&t))
			return
		}
	}
	response.Error(c, domain.ErrNotFound, "load table failed")
}

// ListTables returns the event's tables with their seated guest ids.
func (h *SeatingHandler) ListTables(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	tables, errList := h.svc.ListTables(c.Request.Context(), sess.TenantID(), eventID)
	if errList != nil {
		response.Error(c, errList, "list tables failed")
		return
	}
	response.OK(c, http.StatusOK, tableViews(tables))
}

// CreateTable adds a default round table and reports it as selected.
func (h *SeatingHandler) CreateTable(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	table, errCreate := editor.AddTable(c.Request.Context())
	if errCreate != nil {
		response.Error(c, errCreate, "create table failed")
		return
	}
	view := tableView(table)
	view["selected"] = editor.Selected() == table.ID
	response.OK(c, http.StatusCreated, view)
}

// UpdateTable persists only the supplied fields.
func (h *SeatingHandler) UpdateTable(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	var body updateTableRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	var errUpdate error
	if body.gestureOnly() {
		errUpdate = editor.EndGesture(c.Request.Context(), tableID, seating.Point{X: *body.X, Y: *body.Y}, *body.Rotation)
	} else {
		errUpdate = editor.UpdateTable(c.Request.Context(), tableID, seating.TablePatch{
			Name:     body.Name,
			Shape:    body.Shape,
			Seats:    body.Seats,
			X:        body.X,
			Y:        body.Y,
			Rotation: body.Rotation,
			Notes:    body.Notes,
		})
	}
	if errUpdate != nil {
		response.Error(c, errUpdate, "update table failed")
		return
	}
	h.tableResult(c, editor, tableID, http.StatusOK)
}

// DeleteTable removes a table once confirm=true is passed. Its guests become unseated.
func (h *SeatingHandler) DeleteTable(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	if errDelete := editor.DeleteTable(c.Request.Context(), tableID, confirmed); errDelete != nil {
		if errors.Is(errDelete, seating.ErrNotConfirmed) {
			response.Fail(c, http.StatusBadRequest, errDelete.Error())
			return
		}
		response.Error(c, errDelete, "delete table failed")
		return
	}
	response.OK(c, http.StatusOK, layoutView(editor))
}

// SeatGuest assigns a guest to the table in the path.
func (h *SeatingHandler) SeatGuest(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	var body seatGuestRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	if errAssign := editor.AssignGuest(c.Request.Context(), body.GuestID, tableID); errAssign != nil {
		response.Error(c, errAssign, "seat guest failed")
		return
	}
	h.tableResult(c, editor, tableID, http.StatusOK)
}

// UnseatGuest clears the seat of a guest sitting at the table in the path.
func (h *SeatingHandler) UnseatGuest(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	guestID, ok := parseIDParam(c, "guest_id")
	if !ok {
		return
	}
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	if !seatedAt(editor, tableID, guestID) {
		response.Error(c, domain.ErrNotFound, "unseat guest failed")
		return
	}
	if errUnassign := editor.UnassignGuest(c.Request.Context(), guestID); errUnassign != nil {
		response.Error(c, errUnassign, "unseat guest failed")
		return
	}
	h.tableResult(c, editor, tableID, http.StatusOK)
}

func seatedAt(editor *seating.Editor, tableID, guestID uint64) bool {
	for _, t := range editor.Tables() {
		if t.ID != tableID {
			continue
		}
		for _, g := range t.Guests {
			if g.ID == guestID {
				return true
			}
		}
	}
	return false
}

// Layout returns tables, their derived shapes and the unseated guests.
func (h *SeatingHandler) Layout(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	if selected, errParse := strconv.ParseUint(c.Query("selected"), 10, 64); errParse == nil {
		editor.Select(selected)
	}
	view := layoutView(editor)
	view["selected"] = editor.Selected()
	response.OK(c, http.StatusOK, view)
}

// Highlight reports which table a dragged guest hovers at x,y and whether it is full.
func (h *SeatingHandler) Highlight(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	y, errY := strconv.ParseFloat(c.Query("y"), 64)
	if errX != nil || errY != nil {
		response.Fail(c, http.StatusBadRequest, "x and y are required")
		return
	}
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	tableID, highlight := editor.DragOver(seating.Point{X: x, Y: y})
	response.OK(c, http.StatusOK, gin.H{"table_id": tableID, "highlight": highlight})
}

// Drop seats the guest at the table under the drop point.
func (h *SeatingHandler) Drop(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body dropRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	editor, errEditor := h.editor(c.Request.Context(), sess.TenantID(), eventID)
	if errEditor != nil {
		response.Error(c, errEditor, "load layout failed")
		return
	}
	tableID, errDrop := editor.Drop(c.Request.Context(), body.GuestID, seating.Point{X: body.X, Y: body.Y})
	if errDrop != nil {
		response.Error(c, errDrop, "drop guest failed")
		return
	}
	view := layoutView(editor)
	view["table_id"] = tableID
	response.OK(c, http.StatusOK, view)
}
