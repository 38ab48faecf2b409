package admin

import (
	"net/http"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/config"
	handlers "github.com/eventhub-saas/eventhub/internal/http/api/admin/handlers"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers the platform back office routes, middleware and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	adminHandler := handlers.NewAdminHandler(db)
	authed.GET("/me", adminHandler.Me)
	authed.GET("/admins", adminHandler.List)
	authed.POST("/admins", adminHandler.Create)
	authed.PUT("/admins/:id/active", adminHandler.SetActive)
	authed.POST("/mfa/totp/prepare", adminHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", adminHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", adminHandler.DisableTOTP)

	tenantHandler := handlers.NewTenantHandler(db)
	authed.GET("/tenants", tenantHandler.List)
	authed.GET("/tenants/:id", tenantHandler.Get)
	authed.PUT("/tenants/:id/plan", tenantHandler.ChangePlan)

	planHandler := handlers.NewPlanHandler(db)
	authed.POST("/plans", planHandler.Create)
	authed.GET("/plans", planHandler.List)
	authed.GET("/plans/:id", planHandler.Get)
	authed.PUT("/plans/:id", planHandler.Update)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			response.Fail(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, "empty token")
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			response.Fail(c, http.StatusUnauthorized, "invalid token")
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			response.Fail(c, http.StatusUnauthorized, "admin not found")
			return
		}
		if !admin.Active {
			response.Fail(c, http.StatusForbidden, "admin disabled")
			return
		}

		c.Set(handlers.ContextAdminID, admin.ID)
		c.Set(handlers.ContextAdminUsername, admin.Username)
		c.Set(handlers.ContextAdminIsSuperAdmin, admin.IsSuperAdmin)
		c.Next()
	}
}
