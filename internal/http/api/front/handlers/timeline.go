package handlers

import (
	"context"
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/timeline"
	"github.com/gin-gonic/gin"
)

// TimelineHandler serves agenda endpoints.
type TimelineHandler struct {
	svc *timeline.Service
}

// NewTimelineHandler constructs a TimelineHandler.
func NewTimelineHandler(svc *timeline.Service) *TimelineHandler {
	return &TimelineHandler{svc: svc}
}

type timelineItemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time"`
	Icon        string `json:"icon"`
	Order       *int   `json:"order"`
}

type timelinePatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Icon        *string `json:"icon"`
	Order       *int    `json:"order"`
}

// reorderRequest carries either the full id order or a single move.
type reorderRequest struct {
	IDs  []uint64 `json:"ids"`
	From *int     `json:"from"`
	To   *int     `json:"to"`
}

// List returns the agenda ordered by order then start time.
func (h *TimelineHandler) List(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	items, errList := h.svc.List(c.Request.Context(), sess.TenantID(), eventID)
	if errList != nil {
		response.Error(c, errList, "list timeline failed")
		return
	}
	response.OK(c, http.StatusOK, timelineViews(items))
}

// Create adds an agenda item.
func (h *TimelineHandler) Create(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body timelineItemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	item, errCreate := h.svc.Create(c.Request.Context(), sess.TenantID(), eventID, timeline.ItemInput{
		Title:       body.Title,
		Description: body.Description,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		Icon:        body.Icon,
		Order:       body.Order,
	})
	if errCreate != nil {
		response.Error(c, errCreate, "create timeline item failed")
		return
	}
	response.OK(c, http.StatusCreated, timelineView(item))
}

// Update applies a partial item update.
func (h *TimelineHandler) Update(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}
	var body timelinePatchRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	item, errUpdate := h.svc.Update(c.Request.Context(), sess.TenantID(), eventID, itemID, timeline.ItemPatch{
		Title:       body.Title,
		Description: body.Description,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		Icon:        body.Icon,
		Order:       body.Order,
	})
	if errUpdate != nil {
		response.Error(c, errUpdate, "update timeline item failed")
		return
	}
	response.OK(c, http.StatusOK, timelineView(item))
}

// Delete removes an agenda item.
func (h *TimelineHandler) Delete(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), sess.TenantID(), eventID, itemID); errDelete != nil {
		response.Error(c, errDelete, "delete timeline item failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": itemID})
}

// Reorder persists a full id order, or moves one item from index to index.
func (h *TimelineHandler) Reorder(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	var body reorderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	ctx := c.Request.Context()
	tenantID := sess.TenantID()

	if len(body.IDs) > 0 {
		items, errReorder := h.svc.Reorder(ctx, tenantID, eventID, body.IDs)
		if errReorder != nil {
			response.Error(c, errReorder, "reorder timeline failed")
			return
		}
		response.OK(c, http.StatusOK, timelineViews(items))
		return
	}
	if body.From == nil || body.To == nil {
		response.Error(c, domain.Invalid("ids", "ids or from and to are required"), "reorder timeline failed")
		return
	}

	current, errList := h.svc.List(ctx, tenantID, eventID)
	if errList != nil {
		response.Error(c, errList, "list timeline failed")
		return
	}
	if *body.From < 0 || *body.From >= len(current) || *body.To < 0 || *body.To >= len(current) {
		response.Error(c, domain.Invalid("to", "position out of range"), "reorder timeline failed")
		return
	}
	agenda := timeline.NewAgenda(current, func(ctx context.Context, ids []uint64) ([]models.TimelineItem, error) {
		return h.svc.Reorder(ctx, tenantID, eventID, ids)
	})
	if errMove := agenda.Move(ctx, *body.From, *body.To); errMove != nil {
		response.Error(c, errMove, "reorder timeline failed")
		return
	}
	response.OK(c, http.StatusOK, timelineViews(agenda.Items()))
}
