// Package plansync reconciles subscription plans with a remote YAML catalog.
package plansync

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

type catalogPayload struct {
	Plans []planPayload `yaml:"plans"`
}

type planPayload struct {
	Slug           string          `yaml:"slug"`
	Name           string          `yaml:"name"`
	PriceUSD       float64         `yaml:"price-usd"`
	MaxGuests      *int            `yaml:"max-guests"`
	MaxEvents      *int            `yaml:"max-events"`
	StorageQuotaMB *int            `yaml:"storage-quota-mb"`
	Features       map[string]bool `yaml:"features"`
	Active         *bool           `yaml:"active"`
	SortOrder      int             `yaml:"sort-order"`
}

// ParseCatalog decodes a YAML plan catalog. Every plan needs a slug, a name and
// the three quotas; feature keys must belong to the known feature set.
func ParseCatalog(body []byte) ([]models.SubscriptionPlan, error) {
	var payload catalogPayload
	if errUnmarshal := yaml.Unmarshal(body, &payload); errUnmarshal != nil {
		return nil, fmt.Errorf("plan catalog: decode: %w", errUnmarshal)
	}

	seen := make(map[string]struct{}, len(payload.Plans))
	out := make([]models.SubscriptionPlan, 0, len(payload.Plans))
	for i, p := range payload.Plans {
		slug := strings.ToLower(strings.TrimSpace(p.Slug))
		if slug == "" {
			return nil, fmt.Errorf("plan catalog: plan %d: missing slug", i)
		}
		if _, dup := seen[slug]; dup {
			return nil, fmt.Errorf("plan catalog: duplicate slug %q", slug)
		}
		seen[slug] = struct{}{}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("plan catalog: %s: missing name", slug)
		}
		if p.MaxGuests == nil || p.MaxEvents == nil || p.StorageQuotaMB == nil {
			return nil, fmt.Errorf("plan catalog: %s: quotas are required", slug)
		}
		if *p.MaxGuests < 0 || *p.MaxEvents < 0 || *p.StorageQuotaMB < 0 || p.PriceUSD < 0 {
			return nil, fmt.Errorf("plan catalog: %s: negative value", slug)
		}

		features, errFeatures := entitlement.NormalizeFeatures(entitlement.NewFeatureSet(), p.Features)
		if errFeatures != nil {
			return nil, fmt.Errorf("plan catalog: %s: %w", slug, errFeatures)
		}
		rawFeatures, errMarshal := json.Marshal(features)
		if errMarshal != nil {
			return nil, fmt.Errorf("plan catalog: %s: encode features: %w", slug, errMarshal)
		}

		active := true
		if p.Active != nil {
			active = *p.Active
		}
		out = append(out, models.SubscriptionPlan{
			Name:           name,
			Slug:           slug,
			PriceUSD:       p.PriceUSD,
			MaxGuests:      *p.MaxGuests,
			MaxEvents:      *p.MaxEvents,
			StorageQuotaMB: *p.StorageQuotaMB,
			Features:       datatypes.JSON(rawFeatures),
			IsActive:       active,
			SortOrder:      p.SortOrder,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}
