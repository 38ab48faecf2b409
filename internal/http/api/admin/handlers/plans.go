package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/db"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanHandler manages admin endpoints for subscription plans.
type PlanHandler struct {
	db *gorm.DB // Database handle for plan records.
}

// NewPlanHandler constructs a plan handler.
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{db: db}
}

// createPlanRequest captures the payload for creating a plan.
type createPlanRequest struct {
	Name           string          `json:"name" binding:"required"`
	Slug           string          `json:"slug" binding:"required"`
	PriceUSD       float64         `json:"price_usd" binding:"gte=0"`
	MaxGuests      int             `json:"max_guests" binding:"gte=0"`
	MaxEvents      int             `json:"max_events" binding:"gte=0"`
	StorageQuotaMB int             `json:"storage_quota_mb" binding:"gte=0"`
	Features       map[string]bool `json:"features"`
	SortOrder      int             `json:"sort_order"`
	IsActive       *bool           `json:"is_active"`
}

// updatePlanRequest captures optional fields for plan updates.
type updatePlanRequest struct {
	Name           *string         `json:"name"`
	PriceUSD       *float64        `json:"price_usd"`
	MaxGuests      *int            `json:"max_guests"`
	MaxEvents      *int            `json:"max_events"`
	StorageQuotaMB *int            `json:"storage_quota_mb"`
	Features       map[string]bool `json:"features"`
	SortOrder      *int            `json:"sort_order"`
	IsActive       *bool           `json:"is_active"`
}

func encodeFeatures(fs entitlement.FeatureSet) (datatypes.JSON, error) {
	raw, errMarshal := json.Marshal(fs)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(raw), nil
}

// Create validates input and inserts a new plan.
func (h *PlanHandler) Create(c *gin.Context) {
	var body createPlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	features, errFeatures := entitlement.NormalizeFeatures(entitlement.NewFeatureSet(), body.Features)
	if errFeatures != nil {
		response.Fail(c, http.StatusBadRequest, errFeatures.Error())
		return
	}
	rawFeatures, errEncode := encodeFeatures(features)
	if errEncode != nil {
		response.Error(c, errEncode, "encode features failed")
		return
	}
	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	plan := models.SubscriptionPlan{
		Name:           strings.TrimSpace(body.Name),
		Slug:           strings.ToLower(strings.TrimSpace(body.Slug)),
		PriceUSD:       body.PriceUSD,
		MaxGuests:      body.MaxGuests,
		MaxEvents:      body.MaxEvents,
		StorageQuotaMB: body.StorageQuotaMB,
		Features:       rawFeatures,
		IsActive:       isActive,
		SortOrder:      body.SortOrder,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&plan).Error; errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			response.Fail(c, http.StatusConflict, "slug already exists")
			return
		}
		response.Error(c, errCreate, "create plan failed")
		return
	}
	response.OK(c, http.StatusCreated, formatPlan(&plan))
}

// List returns all plans, optionally filtered by the active flag.
func (h *PlanHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.SubscriptionPlan{})
	switch strings.TrimSpace(c.Query("is_active")) {
	case "true", "1":
		q = q.Where("is_active = ?", true)
	case "false", "0":
		q = q.Where("is_active = ?", false)
	}

	var rows []models.SubscriptionPlan
	if errFind := q.Order("sort_order ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		response.Error(c, errFind, "list plans failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatPlan(&rows[i]))
	}
	response.OK(c, http.StatusOK, out)
}

// Get fetches a plan by ID.
func (h *PlanHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		response.Fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	var plan models.SubscriptionPlan
	if errFind := h.db.WithContext(c.Request.Context()).First(&plan, id).Error; errFind != nil {
		response.Error(c, errFind, "query plan failed")
		return
	}
	response.OK(c, http.StatusOK, formatPlan(&plan))
}

// Update applies price, quota and feature changes. Feature keys outside the closed set are rejected.
func (h *PlanHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		response.Fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}

	ctx := c.Request.Context()
	var existing models.SubscriptionPlan
	if errFind := h.db.WithContext(ctx).First(&existing, id).Error; errFind != nil {
		response.Error(c, errFind, "query plan failed")
		return
	}

	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if body.Name != nil {
		n := strings.TrimSpace(*body.Name)
		if n == "" {
			response.Fail(c, http.StatusBadRequest, "name cannot be empty")
			return
		}
		updates["name"] = n
	}
	if body.PriceUSD != nil {
		if *body.PriceUSD < 0 {
			response.Fail(c, http.StatusBadRequest, "price_usd must not be negative")
			return
		}
		updates["price_usd"] = *body.PriceUSD
	}
	quotas := []struct {
		column string
		value  *int
	}{
		{"max_guests", body.MaxGuests},
		{"max_events", body.MaxEvents},
		{"storage_quota_mb", body.StorageQuotaMB},
	}
	for _, quota := range quotas {
		if quota.value == nil {
			continue
		}
		if *quota.value < 0 {
			response.Fail(c, http.StatusBadRequest, quota.column+" must not be negative")
			return
		}
		updates[quota.column] = *quota.value
	}
	if body.Features != nil {
		features, errFeatures := entitlement.NormalizeFeatures(entitlement.DecodeFeatures(existing.Features), body.Features)
		if errFeatures != nil {
			response.Fail(c, http.StatusBadRequest, errFeatures.Error())
			return
		}
		rawFeatures, errEncode := encodeFeatures(features)
		if errEncode != nil {
			response.Error(c, errEncode, "encode features failed")
			return
		}
		updates["features"] = rawFeatures
	}
	if body.SortOrder != nil {
		updates["sort_order"] = *body.SortOrder
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}

	if errUpdate := h.db.WithContext(ctx).Model(&existing).Updates(updates).Error; errUpdate != nil {
		response.Error(c, errUpdate, "update plan failed")
		return
	}
	if errReload := h.db.WithContext(ctx).First(&existing, id).Error; errReload != nil {
		response.Error(c, errReload, "query plan failed")
		return
	}
	response.OK(c, http.StatusOK, formatPlan(&existing))
}

func formatPlan(plan *models.SubscriptionPlan) gin.H {
	return gin.H{
		"id":               plan.ID,
		"name":             plan.Name,
		"slug":             plan.Slug,
		"price_usd":        plan.PriceUSD,
		"max_guests":       plan.MaxGuests,
		"max_events":       plan.MaxEvents,
		"storage_quota_mb": plan.StorageQuotaMB,
		"features":         entitlement.DecodeFeatures(plan.Features),
		"is_active":        plan.IsActive,
		"sort_order":       plan.SortOrder,
		"created_at":       plan.CreatedAt,
		"updated_at":       plan.UpdatedAt,
	}
}
