package entitlement

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Feature is a gate-able plan capability.
type Feature string

// Plan features. The set is closed; plans may only toggle these keys.
const (
	FeatureTables             Feature = "tables"
	FeatureAISuggestions      Feature = "ai_suggestions"
	FeatureCustomBranding     Feature = "custom_branding"
	FeatureCSVImport          Feature = "csv_import"
	FeatureMassCommunications Feature = "mass_communications"
	FeatureAdvancedReports    Feature = "advanced_reports"
	FeaturePhotoModeration    Feature = "photo_moderation"
	FeatureCustomDomain       Feature = "custom_domain"
	FeatureSMSNotifications   Feature = "sms_notifications"
	FeatureTimeline           Feature = "timeline"
)

var allFeatures = []Feature{
	FeatureTables,
	FeatureAISuggestions,
	FeatureCustomBranding,
	FeatureCSVImport,
	FeatureMassCommunications,
	FeatureAdvancedReports,
	FeaturePhotoModeration,
	FeatureCustomDomain,
	FeatureSMSNotifications,
	FeatureTimeline,
}

var featureLabels = map[Feature]string{
	FeatureTables:             "Table seating",
	FeatureAISuggestions:      "AI suggestions",
	FeatureCustomBranding:     "Custom branding",
	FeatureCSVImport:          "CSV import",
	FeatureMassCommunications: "Mass communications",
	FeatureAdvancedReports:    "Advanced reports",
	FeaturePhotoModeration:    "Photo moderation",
	FeatureCustomDomain:       "Custom domain",
	FeatureSMSNotifications:   "SMS notifications",
	FeatureTimeline:           "Timeline",
}

// AllFeatures returns every known feature in display order.
func AllFeatures() []Feature {
	out := make([]Feature, len(allFeatures))
	copy(out, allFeatures)
	return out
}

// Valid reports whether f belongs to the closed feature set.
func (f Feature) Valid() bool {
	_, ok := featureLabels[f]
	return ok
}

// Label returns a human readable name for f.
func (f Feature) Label() string {
	if label, ok := featureLabels[f]; ok {
		return label
	}
	return string(f)
}

// ParseFeature converts a raw key into a Feature.
func ParseFeature(raw string) (Feature, bool) {
	f := Feature(strings.TrimSpace(strings.ToLower(raw)))
	return f, f.Valid()
}

// FeatureSet maps every known feature to its enabled state.
type FeatureSet map[Feature]bool

// NewFeatureSet returns a set with the given features enabled and all others disabled.
func NewFeatureSet(enabled ...Feature) FeatureSet {
	fs := make(FeatureSet, len(allFeatures))
	for _, f := range allFeatures {
		fs[f] = false
	}
	for _, f := range enabled {
		if f.Valid() {
			fs[f] = true
		}
	}
	return fs
}

// Has reports whether f is enabled. Absent keys deny.
func (fs FeatureSet) Has(f Feature) bool {
	if fs == nil {
		return false
	}
	return fs[f]
}

// Enabled lists the enabled features in display order.
func (fs FeatureSet) Enabled() []Feature {
	out := make([]Feature, 0, len(fs))
	for _, f := range allFeatures {
		if fs[f] {
			out = append(out, f)
		}
	}
	return out
}

// MarshalJSON always emits the full closed key set.
func (fs FeatureSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]bool, len(allFeatures))
	for _, f := range allFeatures {
		out[string(f)] = fs.Has(f)
	}
	return json.Marshal(out)
}

// DecodeFeatures parses a stored feature map. Unknown keys and non-boolean values are ignored.
func DecodeFeatures(raw []byte) FeatureSet {
	fs := NewFeatureSet()
	if len(raw) == 0 {
		return fs
	}
	var values map[string]any
	if errUnmarshal := json.Unmarshal(raw, &values); errUnmarshal != nil {
		return fs
	}
	for key, value := range values {
		f, ok := ParseFeature(key)
		if !ok {
			continue
		}
		if enabled, isBool := value.(bool); isBool {
			fs[f] = enabled
		}
	}
	return fs
}

// NormalizeFeatures validates a feature update against the closed set.
// Keys not present in values keep their state from base.
func NormalizeFeatures(base FeatureSet, values map[string]bool) (FeatureSet, error) {
	out := NewFeatureSet()
	for f, enabled := range base {
		if f.Valid() {
			out[f] = enabled
		}
	}
	var unknown []string
	for key, enabled := range values {
		f, ok := ParseFeature(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		out[f] = enabled
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown features: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
