package handlers

import (
	"net/http"

	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz pings the database.
func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, errDB := h.db.DB()
	if errDB != nil {
		response.Fail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		response.Fail(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"status": "ok"})
}
