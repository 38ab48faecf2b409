package handlers

import (
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/checklist"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/gin-gonic/gin"
)

// ChecklistHandler serves planning task endpoints.
type ChecklistHandler struct {
	svc *checklist.Service
}

// NewChecklistHandler constructs a ChecklistHandler.
func NewChecklistHandler(svc *checklist.Service) *ChecklistHandler {
	return &ChecklistHandler{svc: svc}
}

type checklistItemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

type toggleRequest struct {
	Completed bool `json:"completed"`
}

// List returns the checklist, creating the default tasks on first access.
func (h *ChecklistHandler) List(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	items, errList := h.svc.List(c.Request.Context(), sess.TenantID(), eventID)
	if errList != nil {
		response.Error(c, errList, "list checklist failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"items":    checklistViews(items),
		"progress": checklist.Progress(items),
	})
}

// Create appends a task.
func (h *ChecklistHandler) Create(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body checklistItemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	item, errCreate := h.svc.Create(c.Request.Context(), sess.TenantID(), eventID, checklist.Input{
		Title:       body.Title,
		Description: body.Description,
		DueDate:     body.DueDate,
	})
	if errCreate != nil {
		response.Error(c, errCreate, "create checklist item failed")
		return
	}
	response.OK(c, http.StatusCreated, checklistView(item))
}

// Toggle sets the completion state. Repeating the same state changes nothing.
func (h *ChecklistHandler) Toggle(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}
	var body toggleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	item, errToggle := h.svc.SetCompleted(c.Request.Context(), sess.TenantID(), eventID, itemID, body.Completed)
	if errToggle != nil {
		response.Error(c, errToggle, "update checklist item failed")
		return
	}
	response.OK(c, http.StatusOK, checklistView(item))
}

// Delete removes a task.
func (h *ChecklistHandler) Delete(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), sess.TenantID(), eventID, itemID); errDelete != nil {
		response.Error(c, errDelete, "delete checklist item failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": itemID})
}
