package handlers

import (
	"net/http"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/config"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Context keys set by the admin auth middleware.
const (
	ContextAdminID           = "adminID"
	ContextAdminUsername     = "adminUsername"
	ContextAdminIsSuperAdmin = "adminIsSuperAdmin"
)

// AuthHandler signs platform admins in.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code"`
}

// Login verifies credentials, and the TOTP code when MFA is enabled, then issues a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}

	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", strings.TrimSpace(body.Username)).
		First(&admin).Error
	if errFind != nil || !admin.Active || !security.CheckPassword(admin.Password, body.Password) {
		response.Fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if admin.TOTPSecret != "" {
		code := strings.TrimSpace(body.TOTPCode)
		if code == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Envelope{
				Error: "totp code required",
				Data:  gin.H{"totp_required": true},
			})
			return
		}
		if !security.ValidateTOTP(admin.TOTPSecret, code) {
			response.Fail(c, http.StatusUnauthorized, "invalid totp code")
			return
		}
	}

	token, expiresAt, errIssue := security.IssueAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errIssue != nil {
		log.WithError(errIssue).Error("issue admin token failed")
		response.Fail(c, http.StatusInternalServerError, "issue token failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"admin":      formatAdmin(&admin),
	})
}
