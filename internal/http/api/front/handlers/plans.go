package handlers

import (
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PlanFrontHandler serves plan-related front endpoints.
type PlanFrontHandler struct {
	db *gorm.DB
}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler(db *gorm.DB) *PlanFrontHandler {
	return &PlanFrontHandler{db: db}
}

// List returns the active plans in display order.
func (h *PlanFrontHandler) List(c *gin.Context) {
	var plans []models.SubscriptionPlan
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("is_active = ?", true).
		Order("sort_order ASC").Order("price_usd ASC").
		Find(&plans).Error; errFind != nil {
		response.Error(c, errFind, "list plans failed")
		return
	}

	out := make([]gin.H, 0, len(plans))
	for i := range plans {
		out = append(out, planView(&plans[i]))
	}
	response.OK(c, http.StatusOK, out)
}
