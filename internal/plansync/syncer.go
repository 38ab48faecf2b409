package plansync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/config"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultSyncInterval   = time.Hour
	defaultRequestTimeout = 15 * time.Second
	maxCatalogBytes       = 1 << 20
)

// Syncer keeps the plan table in line with the configured catalog.
type Syncer struct {
	db       *gorm.DB
	url      string
	interval time.Duration
	client   *http.Client
	now      func() time.Time
}

// NewSyncer constructs a plan syncer. It returns nil when no catalog URL is configured.
func NewSyncer(db *gorm.DB, cfg config.PlansConfig) *Syncer {
	if db == nil || strings.TrimSpace(cfg.CatalogURL) == "" {
		return nil
	}
	return &Syncer{
		db:       db,
		url:      strings.TrimSpace(cfg.CatalogURL),
		interval: cfg.SyncInterval,
		client:   &http.Client{Timeout: defaultRequestTimeout},
		now:      time.Now,
	}
}

// Start runs the sync loop in the background.
func (s *Syncer) Start(ctx context.Context) {
	if s == nil {
		return
	}
	go s.run(ctx)
	log.Infof("plan catalog syncer started (interval=%s)", s.interval)
}

func (s *Syncer) run(ctx context.Context) {
	interval := s.interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	if err := s.SyncOnce(ctx); err != nil {
		log.WithError(err).Warn("plan syncer: initial sync failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				log.WithError(err).Warn("plan syncer: sync failed")
			}
		}
	}
}

// SyncOnce fetches the catalog and stores it.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("plan syncer: nil db")
	}
	client := s.client
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	clock := s.now
	if clock == nil {
		clock = time.Now
	}

	requestCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("plan syncer: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("plan syncer: request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("plan syncer: close response body failed")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("plan syncer: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return fmt.Errorf("plan syncer: read response: %w", err)
	}

	plans, err := ParseCatalog(body)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return fmt.Errorf("plan syncer: empty catalog")
	}
	if err = StorePlans(ctx, s.db, plans, clock()); err != nil {
		return err
	}
	log.WithField("plans", len(plans)).Debug("plan syncer: catalog stored")
	return nil
}
