package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/permissions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrNoMembership is returned when a verified identity has no tenant user.
var ErrNoMembership = errors.New("user is not a member of any organization")

const contextKey = "session"

// Session is the authenticated tenant member of a request.
type Session struct {
	User        models.User
	Tenant      models.Tenant
	Permissions []string
}

// TenantID returns the tenant scope of the session.
func (s *Session) TenantID() uint64 { return s.Tenant.ID }

// UserID returns the member ID.
func (s *Session) UserID() uint64 { return s.User.ID }

// Can reports whether the member may call the permission key.
func (s *Session) Can(key string) bool {
	return permissions.Allowed(s.User.Role, s.Permissions, key)
}

// Load resolves the tenant member for a verified identity.
func Load(ctx context.Context, db *gorm.DB, identity Identity) (*Session, error) {
	var user models.User
	if errFind := db.WithContext(ctx).Preload("Tenant").
		Where("auth_id = ?", identity.AuthID).
		First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNoMembership
		}
		return nil, fmt.Errorf("session: load user: %w", errFind)
	}
	if user.Tenant == nil {
		return nil, ErrNoMembership
	}
	return &Session{
		User:        user,
		Tenant:      *user.Tenant,
		Permissions: permissions.ParsePermissions(user.Permissions),
	}, nil
}

// Middleware authenticates the bearer token and stores the Session in the gin context.
func Middleware(db *gorm.DB, verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing authorization header"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid authorization format"})
			return
		}

		identity, errVerify := verifier.Verify(c.Request.Context(), token)
		if errVerify != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		sess, errLoad := Load(c.Request.Context(), db, identity)
		if errLoad != nil {
			if errors.Is(errLoad, ErrNoMembership) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": errLoad.Error()})
				return
			}
			log.WithError(errLoad).Error("session: load failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "load session failed"})
			return
		}
		c.Set(contextKey, sess)
		c.Next()
	}
}

// FromContext returns the Session stored by Middleware.
func FromContext(c *gin.Context) (*Session, bool) {
	value, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*Session)
	return sess, ok && sess != nil
}

// Set stores sess in the gin context.
func Set(c *gin.Context, sess *Session) {
	c.Set(contextKey, sess)
}

// RequirePermission rejects members whose role and grants do not cover the matched route.
func RequirePermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthenticated"})
			return
		}
		key := permissions.Key(c.Request.Method, c.FullPath())
		if !sess.Can(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "permission denied"})
			return
		}
		c.Next()
	}
}
