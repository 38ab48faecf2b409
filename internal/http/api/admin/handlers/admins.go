package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/db"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler manages platform admin accounts and their TOTP enrolment.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

func formatAdmin(a *models.Admin) gin.H {
	return gin.H{
		"id":             a.ID,
		"username":       a.Username,
		"active":         a.Active,
		"is_super_admin": a.IsSuperAdmin,
		"totp_enabled":   a.TOTPSecret != "",
		"created_at":     a.CreatedAt,
	}
}

func currentAdminID(c *gin.Context) uint64 {
	id, _ := c.Get(ContextAdminID)
	v, _ := id.(uint64)
	return v
}

func requireSuperAdmin(c *gin.Context) bool {
	if c.GetBool(ContextAdminIsSuperAdmin) {
		return true
	}
	response.Fail(c, http.StatusForbidden, "super admin required")
	return false
}

func (h *AdminHandler) current(c *gin.Context) (*models.Admin, bool) {
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, currentAdminID(c)).Error; errFind != nil {
		response.Error(c, errFind, "query admin failed")
		return nil, false
	}
	return &admin, true
}

// Me returns the signed-in admin.
func (h *AdminHandler) Me(c *gin.Context) {
	admin, ok := h.current(c)
	if !ok {
		return
	}
	response.OK(c, http.StatusOK, formatAdmin(admin))
}

// List returns every admin account.
func (h *AdminHandler) List(c *gin.Context) {
	var rows []models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&rows).Error; errFind != nil {
		response.Error(c, errFind, "list admins failed")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatAdmin(&rows[i]))
	}
	response.OK(c, http.StatusOK, out)
}

type createAdminRequest struct {
	Username     string `json:"username" binding:"required,min=3"`
	Password     string `json:"password" binding:"required,min=8"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// Create adds an admin account. Only super admins may call it.
func (h *AdminHandler) Create(c *gin.Context) {
	if !requireSuperAdmin(c) {
		return
	}
	var body createAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		response.Error(c, errHash, "hash password failed")
		return
	}
	admin := models.Admin{
		Username:     strings.TrimSpace(body.Username),
		Password:     hash,
		Active:       true,
		IsSuperAdmin: body.IsSuperAdmin,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			response.Fail(c, http.StatusConflict, "username already exists")
			return
		}
		response.Error(c, errCreate, "create admin failed")
		return
	}
	response.OK(c, http.StatusCreated, formatAdmin(&admin))
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive enables or disables another admin. Admins cannot disable themselves.
func (h *AdminHandler) SetActive(c *gin.Context) {
	if !requireSuperAdmin(c) {
		return
	}
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		response.Fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	var body setActiveRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	if id == currentAdminID(c) && !*body.Active {
		response.Fail(c, http.StatusBadRequest, "cannot disable yourself")
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("id = ?", id).
		Updates(map[string]any{"active": *body.Active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		response.Error(c, res.Error, "update admin failed")
		return
	}
	if res.RowsAffected == 0 {
		response.Fail(c, http.StatusNotFound, "not found")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": id, "active": *body.Active})
}

// PrepareTOTP generates a new secret for the signed-in admin. It only takes effect after ConfirmTOTP.
func (h *AdminHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.current(c)
	if !ok {
		return
	}
	if admin.TOTPSecret != "" {
		response.Fail(c, http.StatusConflict, "totp already enabled")
		return
	}
	key, errGenerate := security.GenerateTOTP(admin.Username)
	if errGenerate != nil {
		response.Error(c, errGenerate, "generate totp failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"secret": key.Secret(),
		"url":    key.URL(),
	})
}

type confirmTOTPRequest struct {
	Secret string `json:"secret" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// ConfirmTOTP stores the prepared secret once a code generated from it validates.
func (h *AdminHandler) ConfirmTOTP(c *gin.Context) {
	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	admin, ok := h.current(c)
	if !ok {
		return
	}
	if admin.TOTPSecret != "" {
		response.Fail(c, http.StatusConflict, "totp already enabled")
		return
	}
	secret := strings.TrimSpace(body.Secret)
	if !security.ValidateTOTP(secret, strings.TrimSpace(body.Code)) {
		response.Fail(c, http.StatusBadRequest, "invalid totp code")
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(admin).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		response.Error(c, errUpdate, "enable totp failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"totp_enabled": true})
}

type disableTOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// DisableTOTP clears the secret after checking a current code.
func (h *AdminHandler) DisableTOTP(c *gin.Context) {
	var body disableTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	admin, ok := h.current(c)
	if !ok {
		return
	}
	if admin.TOTPSecret == "" {
		response.OK(c, http.StatusOK, gin.H{"totp_enabled": false})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, strings.TrimSpace(body.Code)) {
		response.Fail(c, http.StatusBadRequest, "invalid totp code")
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(admin).
		Updates(map[string]any{"totp_secret": "", "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		response.Error(c, errUpdate, "disable totp failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"totp_enabled": false})
}
