package handlers

import (
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountHandler describes the caller, their organization and its plan usage.
type AccountHandler struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(db *gorm.DB, resolver *entitlement.Resolver) *AccountHandler {
	return &AccountHandler{db: db, resolver: resolver}
}

// Me returns the session user, tenant, plan, features and usage counters.
func (h *AccountHandler) Me(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	res, errResolve := h.resolver.ResolvePlan(ctx, sess.TenantID())
	if errResolve != nil {
		response.Error(c, errResolve, "load plan failed")
		return
	}
	var activeEvents int64
	if errCount := h.db.WithContext(ctx).Model(&models.Event{}).
		Where("tenant_id = ? AND status <> ?", sess.TenantID(), models.EventStatusArchived).
		Count(&activeEvents).Error; errCount != nil {
		response.Error(c, errCount, "count events failed")
		return
	}

	var plan any
	if res.Plan != nil {
		plan = planView(res.Plan)
	}
	response.OK(c, http.StatusOK, gin.H{
		"user": gin.H{
			"id":          sess.User.ID,
			"email":       sess.User.Email,
			"full_name":   sess.User.FullName,
			"role":        sess.User.Role,
			"permissions": sess.Permissions,
		},
		"tenant": gin.H{
			"id":                  res.Tenant.ID,
			"name":                res.Tenant.Name,
			"subscription_status": res.Tenant.SubscriptionStatus,
		},
		"plan":     plan,
		"features": res.Features,
		"usage": gin.H{
			"active_events":   activeEvents,
			"storage_used_mb": res.Tenant.StorageUsedMB,
		},
	})
}
