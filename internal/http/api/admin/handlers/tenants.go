package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/db"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultTenantPageSize = 20
	maxTenantPageSize     = 100
)

// TenantHandler lists tenants and moves them between plans.
type TenantHandler struct {
	db *gorm.DB
}

// NewTenantHandler constructs a tenant handler.
func NewTenantHandler(db *gorm.DB) *TenantHandler {
	return &TenantHandler{db: db}
}

type tenantRow struct {
	models.Tenant
	OwnerEmail string
	EventCount int64
}

func formatTenant(row *tenantRow) gin.H {
	var plan gin.H
	if row.Plan != nil {
		plan = gin.H{"id": row.Plan.ID, "name": row.Plan.Name, "slug": row.Plan.Slug}
	}
	return gin.H{
		"id":                  row.ID,
		"name":                row.Name,
		"plan":                plan,
		"subscription_status": row.SubscriptionStatus,
		"storage_used_mb":     row.StorageUsedMB,
		"owner_email":         row.OwnerEmail,
		"event_count":         row.EventCount,
		"created_at":          row.CreatedAt,
	}
}

func (h *TenantHandler) decorate(c *gin.Context, tenants []models.Tenant) []tenantRow {
	ctx := c.Request.Context()
	rows := make([]tenantRow, len(tenants))
	for i := range tenants {
		rows[i].Tenant = tenants[i]
		var owner models.User
		errOwner := h.db.WithContext(ctx).
			Where("tenant_id = ? AND role = ?", tenants[i].ID, models.RoleTenantOwner).
			Order("id ASC").Limit(1).Find(&owner).Error
		if errOwner != nil {
			log.WithError(errOwner).WithField("tenant_id", tenants[i].ID).Warn("load tenant owner failed")
		}
		rows[i].OwnerEmail = owner.Email
		if errCount := h.db.WithContext(ctx).Model(&models.Event{}).
			Where("tenant_id = ?", tenants[i].ID).
			Count(&rows[i].EventCount).Error; errCount != nil {
			log.WithError(errCount).WithField("tenant_id", tenants[i].ID).Warn("count tenant events failed")
		}
	}
	return rows
}

// List returns tenants newest first. q filters by tenant name or owner email.
func (h *TenantHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTenantPageSize)))
	if limit < 1 {
		limit = defaultTenantPageSize
	}
	if limit > maxTenantPageSize {
		limit = maxTenantPageSize
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Tenant{})
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		pattern := db.ContainsPattern(h.db, term)
		owners := h.db.Model(&models.User{}).Select("tenant_id").
			Where(db.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
		q = q.Where(h.db.Where(db.CaseInsensitiveLikeExpr(h.db, "name"), pattern).Or("id IN (?)", owners))
	}
	if planID := strings.TrimSpace(c.Query("plan_id")); planID != "" {
		q = q.Where("plan_id = ?", planID)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		response.Error(c, errCount, "count tenants failed")
		return
	}
	var tenants []models.Tenant
	if errFind := q.Preload("Plan").Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&tenants).Error; errFind != nil {
		response.Error(c, errFind, "list tenants failed")
		return
	}
	rows := h.decorate(c, tenants)
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatTenant(&rows[i]))
	}
	response.Paged(c, out, response.Meta{Page: page, Limit: limit, Total: total})
}

// Get returns one tenant.
func (h *TenantHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		response.Fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	var tenant models.Tenant
	if errFind := h.db.WithContext(c.Request.Context()).Preload("Plan").First(&tenant, id).Error; errFind != nil {
		response.Error(c, errFind, "query tenant failed")
		return
	}
	rows := h.decorate(c, []models.Tenant{tenant})
	response.OK(c, http.StatusOK, formatTenant(&rows[0]))
}

type changePlanRequest struct {
	PlanID             uint64 `json:"plan_id" binding:"required"`
	SubscriptionStatus string `json:"subscription_status" binding:"omitempty,oneof=active past_due canceled"`
}

// ChangePlan moves a tenant to another plan. Existing data above the new quotas is kept;
// only later creations are checked against the new limits.
func (h *TenantHandler) ChangePlan(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		response.Fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	var body changePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}

	ctx := c.Request.Context()
	var plan models.SubscriptionPlan
	if errPlan := h.db.WithContext(ctx).First(&plan, body.PlanID).Error; errPlan != nil {
		response.Error(c, errPlan, "query plan failed")
		return
	}
	var tenant models.Tenant
	if errFind := h.db.WithContext(ctx).First(&tenant, id).Error; errFind != nil {
		response.Error(c, errFind, "query tenant failed")
		return
	}

	updates := map[string]any{
		"plan_id":    plan.ID,
		"updated_at": time.Now().UTC(),
	}
	if body.SubscriptionStatus != "" {
		updates["subscription_status"] = body.SubscriptionStatus
	}
	if errUpdate := h.db.WithContext(ctx).Model(&tenant).Updates(updates).Error; errUpdate != nil {
		response.Error(c, errUpdate, "change plan failed")
		return
	}
	log.WithFields(log.Fields{
		"tenant_id": tenant.ID,
		"plan":      plan.Slug,
		"admin_id":  currentAdminID(c),
	}).Info("tenant plan changed")

	if errReload := h.db.WithContext(ctx).Preload("Plan").First(&tenant, id).Error; errReload != nil {
		response.Error(c, errReload, "query tenant failed")
		return
	}
	rows := h.decorate(c, []models.Tenant{tenant})
	response.OK(c, http.StatusOK, formatTenant(&rows[0]))
}
