package ratelimit

import (
	"fmt"
	"strings"
)

// ForClient resolves the per-client limit applied to unauthenticated public routes.
func ForClient(cfg SettingsConfig, clientIP string) Decision {
	clientIP = strings.TrimSpace(clientIP)
	if cfg.PublicLimit <= 0 || clientIP == "" {
		return Decision{}
	}
	return Decision{Limit: cfg.PublicLimit, Scope: ScopeClient, ClientIP: clientIP}
}

// ForTenant resolves the per-tenant limit applied to authenticated routes.
func ForTenant(cfg SettingsConfig, tenantID uint64) Decision {
	if cfg.TenantLimit <= 0 || tenantID == 0 {
		return Decision{}
	}
	return Decision{Limit: cfg.TenantLimit, Scope: ScopeTenant, TenantID: tenantID}
}

// KeyForDecision builds a limiter key for the resolved scope.
func KeyForDecision(decision Decision) string {
	if decision.Limit <= 0 {
		return ""
	}
	switch decision.Scope {
	case ScopeClient:
		if decision.ClientIP == "" {
			return ""
		}
		return "ip:" + decision.ClientIP
	case ScopeTenant:
		if decision.TenantID == 0 {
			return ""
		}
		return fmt.Sprintf("t:%d", decision.TenantID)
	default:
		return ""
	}
}
