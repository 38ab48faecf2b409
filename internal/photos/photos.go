// Package photos runs the event photo pipeline: intake, moderation, listing, deletion and archives.
package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxUploadBytes bounds a single photo upload.
const MaxUploadBytes = 5 << 20

// Listing defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ModerationSettingKey is the event setting that holds new uploads for review.
const ModerationSettingKey = "moderation_enabled"

var allowedExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "heic": {},
}

var validStatuses = map[string]struct{}{
	models.PhotoPending:  {},
	models.PhotoApproved: {},
	models.PhotoRejected: {},
}

// Upload is one incoming photo.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Caption     string
	GuestID     *uint64
}

// View is a photo with its public URL.
type View struct {
	models.Photo
	URL string `json:"url"`
}

// ListQuery selects a page of photos. An empty status lists every status.
type ListQuery struct {
	Status string
	Page   int
	Limit  int
}

// Page is one page of photos.
type Page struct {
	Photos []View
	Page   int
	Limit  int
	Total  int64
}

// Service runs the photo pipeline.
type Service struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
	store    Store
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(db *gorm.DB, resolver *entitlement.Resolver, store Store) *Service {
	return &Service{db: db, resolver: resolver, store: store, now: time.Now}
}

// Store returns the object store.
func (s *Service) Store() Store { return s.store }

// Extension returns the lowercased extension of name without the dot.
func Extension(name string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	return strings.TrimPrefix(ext, ".")
}

// ValidateFile checks the extension allow-list and the image MIME prefix.
func ValidateFile(fileName, contentType string) (string, error) {
	ext := Extension(fileName)
	if _, ok := allowedExtensions[ext]; !ok {
		return "", domain.Invalid("file", "file type not allowed, only JPG, PNG, WEBP and HEIC are accepted")
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return "", domain.Invalid("file", "file must be an image")
	}
	return ext, nil
}

// Upload stores a photo for an owned event.
func (s *Service) Upload(ctx context.Context, tenantID, eventID uint64, in Upload) (*View, error) {
	event, errOwned := events.Owned(ctx, s.db, tenantID, eventID)
	if errOwned != nil {
		return nil, errOwned
	}
	return s.intake(ctx, event, in)
}

// UploadByToken stores a photo sent by a guest from the public RSVP page.
func (s *Service) UploadByToken(ctx context.Context, token string, in Upload) (*View, error) {
	var guest models.Guest
	if errFind := s.db.WithContext(ctx).Where("invitation_token = ?", strings.TrimSpace(token)).First(&guest).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("photos: load guest: %w", errFind)
	}
	var event models.Event
	if errFind := s.db.WithContext(ctx).First(&event, guest.EventID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("photos: load event: %w", errFind)
	}
	in.GuestID = &guest.ID
	return s.intake(ctx, &event, in)
}

func (s *Service) intake(ctx context.Context, event *models.Event, in Upload) (*View, error) {
	if in.Body == nil {
		return nil, domain.Invalid("file", "is required")
	}
	ext, errValidate := ValidateFile(in.FileName, in.ContentType)
	if errValidate != nil {
		return nil, errValidate
	}
	data, errRead := io.ReadAll(io.LimitReader(in.Body, MaxUploadBytes+1))
	if errRead != nil {
		return nil, fmt.Errorf("photos: read upload: %w", errRead)
	}
	if len(data) == 0 {
		return nil, domain.Invalid("file", "is empty")
	}
	if len(data) > MaxUploadBytes {
		return nil, domain.Invalid("file", fmt.Sprintf("must not exceed %d MB", MaxUploadBytes>>20))
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, domain.Invalid("file", "file must be an image")
	}

	sizeMB := events.BytesToMB(int64(len(data)))
	decision, errQuota := s.resolver.CheckStorageQuota(ctx, event.TenantID, sizeMB)
	if errQuota != nil {
		return nil, errQuota
	}
	if errDenied := decision.Err(); errDenied != nil {
		return nil, errDenied
	}

	status := models.PhotoApproved
	if events.SettingBool(event, ModerationSettingKey) {
		status = models.PhotoPending
	}
	objectPath := fmt.Sprintf("%d/%s.%s", event.ID, uuid.NewString(), ext)
	if errPut := s.store.Put(ctx, objectPath, detected.String(), bytes.NewReader(data)); errPut != nil {
		log.WithError(errPut).WithField("event_id", event.ID).Error("photos: store upload failed")
		return nil, fmt.Errorf("photos: store upload: %w", errPut)
	}

	meta, _ := json.Marshal(map[string]any{
		"original_name": strings.TrimSpace(in.FileName),
		"mime_type":     detected.String(),
	})
	photo := models.Photo{
		EventID:           event.ID,
		UploadedByGuestID: in.GuestID,
		FilePath:          objectPath,
		Caption:           strings.TrimSpace(in.Caption),
		FileSizeBytes:     int64(len(data)),
		ModerationStatus:  status,
		Metadata:          datatypes.JSON(meta),
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&photo).Error; errCreate != nil {
			return errCreate
		}
		return events.AccrueStorage(tx, event.TenantID, sizeMB)
	})
	if errTx != nil {
		if errRemove := s.store.RemoveObjects(context.WithoutCancel(ctx), []string{objectPath}); errRemove != nil {
			log.WithError(errRemove).WithField("path", objectPath).Warn("photos: remove orphaned object failed")
		}
		return nil, fmt.Errorf("photos: save photo: %w", errTx)
	}
	return &View{Photo: photo, URL: s.store.PublicURL(photo.FilePath)}, nil
}

func (s *Service) query(ctx context.Context, eventID uint64, status string) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.Photo{}).Where("event_id = ?", eventID)
	status = strings.TrimSpace(status)
	if status != "" && status != "all" {
		if _, ok := validStatuses[status]; !ok {
			return nil, domain.Invalid("status", "must be one of pending approved rejected all")
		}
		q = q.Where("moderation_status = ?", status)
	}
	return q, nil
}

// List returns a page of an owned event's photos, newest first.
func (s *Service) List(ctx context.Context, tenantID, eventID uint64, lq ListQuery) (*Page, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	return s.list(ctx, eventID, lq)
}

// PublicGallery lists approved photos of the event a guest token belongs to.
func (s *Service) PublicGallery(ctx context.Context, token string, page, limit int) (*Page, error) {
	var guest models.Guest
	if errFind := s.db.WithContext(ctx).Select("id", "event_id").
		Where("invitation_token = ?", strings.TrimSpace(token)).First(&guest).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("photos: load guest: %w", errFind)
	}
	return s.list(ctx, guest.EventID, ListQuery{Status: models.PhotoApproved, Page: page, Limit: limit})
}

func (s *Service) list(ctx context.Context, eventID uint64, lq ListQuery) (*Page, error) {
	page, limit := lq.Page, lq.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	q, errQuery := s.query(ctx, eventID, lq.Status)
	if errQuery != nil {
		return nil, errQuery
	}
	var total int64
	if errCount := q.Session(&gorm.Session{}).Count(&total).Error; errCount != nil {
		return nil, fmt.Errorf("photos: count: %w", errCount)
	}
	var rows []models.Photo
	if errFind := q.Session(&gorm.Session{}).
		Order("uploaded_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("photos: list: %w", errFind)
	}
	views := make([]View, 0, len(rows))
	for _, p := range rows {
		views = append(views, View{Photo: p, URL: s.store.PublicURL(p.FilePath)})
	}
	return &Page{Photos: views, Page: page, Limit: limit, Total: total}, nil
}

func (s *Service) find(ctx context.Context, eventID, photoID uint64) (*models.Photo, error) {
	var photo models.Photo
	if errFind := s.db.WithContext(ctx).Where("id = ? AND event_id = ?", photoID, eventID).First(&photo).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("photos: load: %w", errFind)
	}
	return &photo, nil
}

// SetStatus moves a photo between moderation states. Requires photo_moderation.
func (s *Service) SetStatus(ctx context.Context, tenantID, eventID, photoID uint64, status string) (*View, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return nil, errOwned
	}
	if errFeature := s.resolver.RequireFeature(ctx, tenantID, entitlement.FeaturePhotoModeration); errFeature != nil {
		return nil, errFeature
	}
	status = strings.TrimSpace(status)
	if _, ok := validStatuses[status]; !ok {
		return nil, domain.Invalid("status", "must be one of pending approved rejected")
	}
	photo, errFind := s.find(ctx, eventID, photoID)
	if errFind != nil {
		return nil, errFind
	}
	if errUpdate := s.db.WithContext(ctx).Model(photo).Update("moderation_status", status).Error; errUpdate != nil {
		return nil, fmt.Errorf("photos: set status: %w", errUpdate)
	}
	photo.ModerationStatus = status
	return &View{Photo: *photo, URL: s.store.PublicURL(photo.FilePath)}, nil
}

// Delete removes the photo record, then its stored object best effort.
func (s *Service) Delete(ctx context.Context, tenantID, eventID, photoID uint64) error {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return errOwned
	}
	photo, errFind := s.find(ctx, eventID, photoID)
	if errFind != nil {
		return errFind
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelete := tx.Delete(&models.Photo{}, photo.ID).Error; errDelete != nil {
			return errDelete
		}
		return events.ReleaseStorage(tx, tenantID, events.BytesToMB(photo.FileSizeBytes))
	})
	if errTx != nil {
		return fmt.Errorf("photos: delete: %w", errTx)
	}
	if errRemove := s.store.RemoveObjects(ctx, []string{photo.FilePath}); errRemove != nil {
		log.WithError(errRemove).WithField("path", photo.FilePath).Warn("photos: remove object failed")
	}
	return nil
}
