package plansync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventhub-saas/eventhub/internal/config"
	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/models"
)

const catalog = `
plans:
  - slug: free
    name: Starter
    max-guests: 80
    max-events: 2
    storage-quota-mb: 750
    features:
      tables: true
      timeline: true
    sort-order: 1
  - slug: studio
    name: Studio
    price-usd: 49
    max-guests: 500
    max-events: 10
    storage-quota-mb: 10240
    features:
      tables: true
      mass_communications: true
    sort-order: 2
`

func TestSyncOnceUpsertsBySlug(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(catalog))
	}))
	defer server.Close()

	conn := dbtest.Open(t)
	now := time.Now().UTC().Truncate(time.Second)
	syncer := &Syncer{db: conn, url: server.URL, interval: time.Minute, client: server.Client(), now: func() time.Time { return now }}

	if errSync := syncer.SyncOnce(context.Background()); errSync != nil {
		t.Fatalf("sync once: %v", errSync)
	}

	var free models.SubscriptionPlan
	if errFind := conn.Where("slug = ?", models.PlanSlugFree).First(&free).Error; errFind != nil {
		t.Fatalf("find free: %v", errFind)
	}
	if free.Name != "Starter" || free.MaxGuests != 80 || free.MaxEvents != 2 || free.StorageQuotaMB != 750 {
		t.Fatalf("unexpected free plan: %+v", free)
	}
	if fs := entitlement.DecodeFeatures(free.Features); !fs.Has(entitlement.FeatureTimeline) || fs.Has(entitlement.FeatureCSVImport) {
		t.Fatalf("unexpected features: %s", free.Features)
	}

	var studio models.SubscriptionPlan
	if errFind := conn.Where("slug = ?", "studio").First(&studio).Error; errFind != nil {
		t.Fatalf("find studio: %v", errFind)
	}
	if !studio.IsActive || studio.PriceUSD != 49 {
		t.Fatalf("unexpected studio plan: %+v", studio)
	}

	var pro models.SubscriptionPlan
	if errFind := conn.Where("slug = ?", models.PlanSlugPro).First(&pro).Error; errFind != nil {
		t.Fatalf("pro plan must be kept: %v", errFind)
	}
	if pro.IsActive {
		t.Fatalf("expected plan missing from catalog to be deactivated")
	}
}

func TestParseCatalogRejectsUnknownFeature(t *testing.T) {
	_, err := ParseCatalog([]byte(`
plans:
  - slug: odd
    name: Odd
    max-guests: 1
    max-events: 1
    storage-quota-mb: 1
    features:
      teleportation: true
`))
	if err == nil {
		t.Fatalf("expected unknown feature to be rejected")
	}
}

func TestParseCatalogRequiresQuotas(t *testing.T) {
	if _, err := ParseCatalog([]byte("plans:\n  - slug: a\n    name: A\n")); err == nil {
		t.Fatalf("expected missing quotas to be rejected")
	}
	if _, err := ParseCatalog([]byte("plans:\n  - slug: a\n    name: A\n    max-guests: 1\n    max-events: 1\n    storage-quota-mb: 1\n  - slug: A\n    name: B\n    max-guests: 1\n    max-events: 1\n    storage-quota-mb: 1\n")); err == nil {
		t.Fatalf("expected duplicate slug to be rejected")
	}
}

func TestNewSyncerDisabledWithoutURL(t *testing.T) {
	if s := NewSyncer(dbtest.Open(t), config.PlansConfig{}); s != nil {
		t.Fatalf("expected nil syncer")
	}
}
