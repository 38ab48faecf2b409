package permissions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/models"
)

// Definition describes a tenant API permission.
type Definition struct {
	Key    string `json:"key"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Label  string `json:"label"`
	Module string `json:"module"`
}

// Key builds a permission key from method and path.
func Key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// NormalizePermissions trims, de-duplicates, and sorts permissions.
func NormalizePermissions(perms []string) []string {
	if len(perms) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, perm := range perms {
		trimmed := strings.TrimSpace(perm)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	sort.Strings(normalized)
	return normalized
}

// ValidatePermissions validates that all permissions exist in the definition set.
func ValidatePermissions(perms []string) error {
	for _, perm := range perms {
		trimmed := strings.TrimSpace(perm)
		if trimmed == "" {
			continue
		}
		if _, ok := definitionMap[trimmed]; !ok {
			return fmt.Errorf("invalid permission: %s", trimmed)
		}
	}
	return nil
}

// ParsePermissions parses and normalizes permissions from JSON.
func ParsePermissions(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return []string{}
	}
	return NormalizePermissions(perms)
}

// MarshalPermissions serializes normalized permissions to JSON.
func MarshalPermissions(perms []string) ([]byte, error) {
	return json.Marshal(NormalizePermissions(perms))
}

// HasPermission checks whether the key exists in the permission list.
func HasPermission(perms []string, key string) bool {
	if key == "" {
		return false
	}
	for _, perm := range perms {
		if perm == key {
			return true
		}
	}
	return false
}

// Allowed reports whether a member with role and extra grants may call key.
// Owners may call everything; unknown keys are allowed so unlisted routes stay reachable.
func Allowed(role string, extra []string, key string) bool {
	if role == models.RoleTenantOwner {
		return true
	}
	if _, known := definitionMap[key]; !known {
		return true
	}
	if HasPermission(extra, key) {
		return true
	}
	return HasPermission(RoleDefaults(role), key)
}

// RoleDefaults returns the permissions a role has without extra grants.
func RoleDefaults(role string) []string {
	switch role {
	case models.RoleTenantOwner:
		return allKeys()
	case models.RoleOrganizer:
		out := make([]string, 0, len(definitions))
		for _, def := range definitions {
			if _, ownerOnly := ownerOnlyKeys[def.Key]; ownerOnly {
				continue
			}
			out = append(out, def.Key)
		}
		return out
	case models.RoleCollaborator:
		out := make([]string, 0, len(definitions))
		for _, def := range definitions {
			if def.Method == "GET" {
				out = append(out, def.Key)
				continue
			}
			if _, ok := collaboratorWrites[def.Key]; ok {
				out = append(out, def.Key)
			}
		}
		return out
	default:
		return []string{}
	}
}

// ValidRole reports whether role is a known member role.
func ValidRole(role string) bool {
	switch role {
	case models.RoleTenantOwner, models.RoleOrganizer, models.RoleCollaborator:
		return true
	default:
		return false
	}
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func allKeys() []string {
	out := make([]string, 0, len(definitions))
	for _, def := range definitions {
		out = append(out, def.Key)
	}
	return out
}

// newDefinition builds a Definition with a normalized key.
func newDefinition(method, path, label, module string) Definition {
	upperMethod := strings.ToUpper(method)
	return Definition{
		Key:    Key(upperMethod, path),
		Method: upperMethod,
		Path:   path,
		Label:  label,
		Module: module,
	}
}

// definitions is the ordered list of tenant API permissions.
var definitions = []Definition{
	newDefinition("GET", "/v1/dashboard", "View Dashboard", "Dashboard"),

	newDefinition("POST", "/v1/events", "Create Event", "Events"),
	newDefinition("GET", "/v1/events", "List Events", "Events"),
	newDefinition("GET", "/v1/events/:id", "Get Event", "Events"),
	newDefinition("PUT", "/v1/events/:id", "Update Event", "Events"),
	newDefinition("DELETE", "/v1/events/:id", "Delete Event", "Events"),
	newDefinition("PATCH", "/v1/events/:id/settings", "Update Event Settings", "Events"),
	newDefinition("GET", "/v1/events/:id/invitation-design", "Get Invitation Design", "Invitations"),
	newDefinition("PUT", "/v1/events/:id/invitation-design", "Save Invitation Design", "Invitations"),

	newDefinition("POST", "/v1/events/:id/guests", "Create Guest", "Guests"),
	newDefinition("GET", "/v1/events/:id/guests", "List Guests", "Guests"),
	newDefinition("POST", "/v1/events/:id/guests/import", "Import Guests", "Guests"),
	newDefinition("POST", "/v1/events/:id/guests/import/csv", "Import Guests From CSV", "Guests"),
	newDefinition("PUT", "/v1/events/:id/guests/:guest_id", "Update Guest", "Guests"),
	newDefinition("DELETE", "/v1/events/:id/guests/:guest_id", "Delete Guest", "Guests"),

	newDefinition("GET", "/v1/events/:id/tables", "List Tables", "Tables"),
	newDefinition("POST", "/v1/events/:id/tables", "Create Table", "Tables"),
	newDefinition("PUT", "/v1/events/:id/tables/:table_id", "Update Table", "Tables"),
	newDefinition("DELETE", "/v1/events/:id/tables/:table_id", "Delete Table", "Tables"),
	newDefinition("POST", "/v1/events/:id/tables/:table_id/guests", "Seat Guest", "Tables"),
	newDefinition("DELETE", "/v1/events/:id/tables/:table_id/guests/:guest_id", "Unseat Guest", "Tables"),
	newDefinition("GET", "/v1/events/:id/seating/layout", "Seating Layout", "Tables"),
	newDefinition("GET", "/v1/events/:id/seating/highlight", "Seating Drag Highlight", "Tables"),
	newDefinition("POST", "/v1/events/:id/seating/drop", "Drop Guest On Layout", "Tables"),

	newDefinition("GET", "/v1/events/:id/timeline", "List Timeline", "Timeline"),
	newDefinition("POST", "/v1/events/:id/timeline", "Create Timeline Item", "Timeline"),
	newDefinition("PUT", "/v1/events/:id/timeline/:item_id", "Update Timeline Item", "Timeline"),
	newDefinition("DELETE", "/v1/events/:id/timeline/:item_id", "Delete Timeline Item", "Timeline"),
	newDefinition("POST", "/v1/events/:id/timeline/reorder", "Reorder Timeline", "Timeline"),

	newDefinition("GET", "/v1/events/:id/photos", "List Photos", "Photos"),
	newDefinition("POST", "/v1/events/:id/photos", "Upload Photo", "Photos"),
	newDefinition("GET", "/v1/events/:id/photos/archive", "Download Photo Archive", "Photos"),
	newDefinition("PUT", "/v1/events/:id/photos/:photo_id/status", "Moderate Photo", "Photos"),
	newDefinition("DELETE", "/v1/events/:id/photos/:photo_id", "Delete Photo", "Photos"),

	newDefinition("GET", "/v1/events/:id/analytics", "View Analytics", "Analytics"),

	newDefinition("GET", "/v1/events/:id/checklist", "List Checklist", "Checklist"),
	newDefinition("POST", "/v1/events/:id/checklist", "Create Checklist Item", "Checklist"),
	newDefinition("POST", "/v1/events/:id/checklist/:item_id/toggle", "Toggle Checklist Item", "Checklist"),
	newDefinition("DELETE", "/v1/events/:id/checklist/:item_id", "Delete Checklist Item", "Checklist"),

	newDefinition("GET", "/v1/events/:id/communications", "List Communications", "Communications"),
	newDefinition("POST", "/v1/events/:id/invitations", "Send Bulk Invitations", "Communications"),
	newDefinition("POST", "/v1/events/:id/invitations/:guest_id", "Send Invitation", "Communications"),

	newDefinition("GET", "/v1/members", "List Members", "Members"),
	newDefinition("PUT", "/v1/members/:id/permissions", "Update Member Permissions", "Members"),
	newDefinition("GET", "/v1/permissions", "List Permission Definitions", "Members"),
}

// ownerOnlyKeys are withheld from organizers.
var ownerOnlyKeys = map[string]struct{}{
	Key("DELETE", "/v1/events/:id"):           {},
	Key("PUT", "/v1/members/:id/permissions"): {},
}

// collaboratorWrites are the non-GET routes collaborators may call.
var collaboratorWrites = map[string]struct{}{
	Key("POST", "/v1/events/:id/guests"):                    {},
	Key("PUT", "/v1/events/:id/guests/:guest_id"):           {},
	Key("POST", "/v1/events/:id/checklist/:item_id/toggle"): {},
	Key("POST", "/v1/events/:id/photos"):                    {},
}

// definitionMap provides fast lookup for permission definitions.
var definitionMap = func() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}()
