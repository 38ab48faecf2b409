// Package middleware holds the gin middleware shared by every API surface.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/ratelimit"
	"github.com/eventhub-saas/eventhub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID reuses an inbound request id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger writes one structured line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(log.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": GetRequestID(c),
		})
		if sess, ok := session.FromContext(c); ok {
			entry = entry.WithField("tenant_id", sess.TenantID())
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	}
}

// Recovery converts panics into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithFields(log.Fields{
			"panic":      recovered,
			"path":       c.Request.URL.Path,
			"request_id": GetRequestID(c),
		}).Error("panic recovered")
		response.Fail(c, http.StatusInternalServerError, "internal error")
	})
}

// DecisionFunc resolves the rate limit of a request.
type DecisionFunc func(c *gin.Context, cfg ratelimit.SettingsConfig) ratelimit.Decision

// RateLimit rejects requests over the resolved limit with 429.
// Limiter failures let the request through.
func RateLimit(manager *ratelimit.Manager, resolve DecisionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			c.Next()
			return
		}
		decision := resolve(c, manager.Settings())
		if decision.Limit <= 0 {
			c.Next()
			return
		}
		result, errAllow := manager.Check(c.Request.Context(), decision)
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limit check failed")
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retry := time.Until(result.Reset)
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
			response.Fail(c, http.StatusTooManyRequests, "too many requests, please slow down")
			return
		}
		c.Next()
	}
}

// ByClientIP limits unauthenticated routes per client address.
func ByClientIP(c *gin.Context, cfg ratelimit.SettingsConfig) ratelimit.Decision {
	return ratelimit.ForClient(cfg, c.ClientIP())
}

// ByTenant limits authenticated routes per tenant. It must run after session.Middleware.
func ByTenant(c *gin.Context, cfg ratelimit.SettingsConfig) ratelimit.Decision {
	sess, ok := session.FromContext(c)
	if !ok {
		return ratelimit.Decision{}
	}
	return ratelimit.ForTenant(cfg, sess.TenantID())
}
