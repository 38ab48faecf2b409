package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/permissions"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MemberHandler manages the tenant's members and their route permissions.
type MemberHandler struct {
	db *gorm.DB
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(db *gorm.DB) *MemberHandler {
	return &MemberHandler{db: db}
}

type updateMemberRequest struct {
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
}

func memberView(u *models.User) gin.H {
	return gin.H{
		"id":                  u.ID,
		"email":               u.Email,
		"full_name":           u.FullName,
		"role":                u.Role,
		"permissions":         permissions.ParsePermissions(u.Permissions),
		"default_permissions": permissions.RoleDefaults(u.Role),
		"created_at":          u.CreatedAt,
	}
}

// List returns the members of the caller's tenant.
func (h *MemberHandler) List(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var users []models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", sess.TenantID()).
		Order("created_at ASC").Order("id ASC").
		Find(&users).Error; errFind != nil {
		response.Error(c, errFind, "list members failed")
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, memberView(&users[i]))
	}
	response.OK(c, http.StatusOK, out)
}

// UpdatePermissions changes a member's role or extra grants. Owners cannot be edited.
func (h *MemberHandler) UpdatePermissions(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	memberID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body updateMemberRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if errFind := h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", memberID, sess.TenantID()).
		First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			response.Fail(c, http.StatusNotFound, "member not found")
			return
		}
		response.Error(c, errFind, "load member failed")
		return
	}
	if user.Role == models.RoleTenantOwner {
		response.Fail(c, http.StatusForbidden, "the organization owner cannot be edited")
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Role != nil {
		role := strings.TrimSpace(*body.Role)
		if !permissions.ValidRole(role) || role == models.RoleTenantOwner {
			response.Fail(c, http.StatusBadRequest, "invalid role")
			return
		}
		updates["role"] = role
	}
	if body.Permissions != nil {
		if errValidate := permissions.ValidatePermissions(*body.Permissions); errValidate != nil {
			response.Fail(c, http.StatusBadRequest, errValidate.Error())
			return
		}
		raw, errMarshal := permissions.MarshalPermissions(*body.Permissions)
		if errMarshal != nil {
			response.Fail(c, http.StatusBadRequest, "invalid permissions")
			return
		}
		updates["permissions"] = datatypes.JSON(raw)
	}
	if errUpdate := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; errUpdate != nil {
		response.Error(c, errUpdate, "update member failed")
		return
	}
	if errReload := h.db.WithContext(ctx).First(&user, user.ID).Error; errReload != nil {
		response.Error(c, errReload, "load member failed")
		return
	}
	response.OK(c, http.StatusOK, memberView(&user))
}

// Definitions lists every permission that can be granted.
func (h *MemberHandler) Definitions(c *gin.Context) {
	response.OK(c, http.StatusOK, permissions.Definitions())
}
