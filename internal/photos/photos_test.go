package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/eventhub-saas/eventhub/internal/dbtest"
	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/klauspost/compress/zip"
	"gorm.io/gorm"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// flakyStore fails reads for the listed paths.
type flakyStore struct {
	Store
	failGets map[string]bool
}

func (f *flakyStore) Get(ctx context.Context, path string) ([]byte, error) {
	if f.failGets[path] {
		return nil, errors.New("object unavailable")
	}
	return f.Store.Get(ctx, path)
}

func setup(t *testing.T, planSlug string) (*Service, *gorm.DB, models.Tenant, models.Event) {
	t.Helper()
	conn := dbtest.Open(t)
	tenant := dbtest.Tenant(t, conn, planSlug)
	event := dbtest.Event(t, conn, tenant.ID, "Wedding")
	store, err := NewDiskStore(t.TempDir(), "/media/photos")
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}
	return NewService(conn, entitlement.NewResolver(conn), store), conn, tenant, event
}

func pngUpload(name string) Upload {
	return Upload{FileName: name, ContentType: "image/png", Body: bytes.NewReader(pngHeader)}
}

func TestValidateFile(t *testing.T) {
	cases := []struct {
		name, mime string
		ok         bool
	}{
		{"party.JPG", "image/jpeg", true},
		{"party.heic", "image/heic", true},
		{"party.gif", "image/gif", false},
		{"party", "image/png", false},
		{"party.png", "application/pdf", false},
	}
	for _, tc := range cases {
		_, err := ValidateFile(tc.name, tc.mime)
		if (err == nil) != tc.ok {
			t.Fatalf("ValidateFile(%q, %q): expected ok=%v, got %v", tc.name, tc.mime, tc.ok, err)
		}
	}
}

func TestUploadAutoApprovesWithoutModeration(t *testing.T) {
	svc, conn, tenant, event := setup(t, models.PlanSlugPro)
	ctx := context.Background()

	view, err := svc.Upload(ctx, tenant.ID, event.ID, pngUpload("a.png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if view.ModerationStatus != models.PhotoApproved {
		t.Fatalf("expected approved, got %q", view.ModerationStatus)
	}
	if !strings.HasPrefix(view.FilePath, fmt.Sprintf("%d/", event.ID)) || !strings.HasSuffix(view.FilePath, ".png") {
		t.Fatalf("expected event scoped path, got %q", view.FilePath)
	}
	if !strings.HasPrefix(view.URL, "/media/photos/") {
		t.Fatalf("unexpected url %q", view.URL)
	}
	var reloaded models.Tenant
	conn.First(&reloaded, tenant.ID)
	if reloaded.StorageUsedMB != 1 {
		t.Fatalf("expected 1 MB accrued, got %d", reloaded.StorageUsedMB)
	}

	conn.Model(&event).Update("settings", `{"moderation_enabled":true}`)
	view, err = svc.Upload(ctx, tenant.ID, event.ID, pngUpload("b.png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if view.ModerationStatus != models.PhotoPending {
		t.Fatalf("expected pending with moderation on, got %q", view.ModerationStatus)
	}
}

func TestUploadRejectsNonImageContent(t *testing.T) {
	svc, _, tenant, event := setup(t, models.PlanSlugPro)
	_, err := svc.Upload(context.Background(), tenant.ID, event.ID, Upload{
		FileName:    "a.png",
		ContentType: "image/png",
		Body:        strings.NewReader("#!/bin/sh\necho hi\n"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadDeniedWhenStorageFull(t *testing.T) {
	svc, conn, tenant, event := setup(t, models.PlanSlugFree)
	conn.Model(&tenant).Update("storage_used_mb", 500)

	_, err := svc.Upload(context.Background(), tenant.ID, event.ID, pngUpload("a.png"))
	if d, ok := entitlement.IsDenial(err); !ok || d.Resource != entitlement.ResourceStorage {
		t.Fatalf("expected storage denial, got %v", err)
	}
	var count int64
	conn.Model(&models.Photo{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected nothing stored, got %d photos", count)
	}
}

func TestListPagesAndFilters(t *testing.T) {
	svc, conn, tenant, event := setup(t, models.PlanSlugPro)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Upload(ctx, tenant.ID, event.ID, pngUpload("a.png")); err != nil {
			t.Fatalf("upload: %v", err)
		}
	}
	conn.Model(&models.Photo{}).Where("id = ?", 1).Update("moderation_status", models.PhotoRejected)

	page, err := svc.List(ctx, tenant.ID, event.ID, ListQuery{Status: models.PhotoApproved, Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Photos) != 1 || page.Limit != 1 {
		t.Fatalf("unexpected page: total=%d len=%d limit=%d", page.Total, len(page.Photos), page.Limit)
	}
	all, _ := svc.List(ctx, tenant.ID, event.ID, ListQuery{})
	if all.Total != 3 || all.Limit != DefaultPageSize {
		t.Fatalf("expected all photos with default limit, got total=%d limit=%d", all.Total, all.Limit)
	}
	if _, err = svc.List(ctx, tenant.ID, event.ID, ListQuery{Status: "hidden"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestGuestUploadAndPublicGallery(t *testing.T) {
	svc, conn, _, event := setup(t, models.PlanSlugPro)
	ctx := context.Background()
	conn.Model(&event).Update("settings", `{"moderation_enabled":true}`)
	guest := dbtest.Guest(t, conn, event.ID, "Ana", models.RSVPConfirmed)

	view, err := svc.UploadByToken(ctx, guest.InvitationToken, pngUpload("selfie.png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if view.UploadedByGuestID == nil || *view.UploadedByGuestID != guest.ID {
		t.Fatalf("expected uploader recorded")
	}
	gallery, err := svc.PublicGallery(ctx, guest.InvitationToken, 1, 20)
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	if gallery.Total != 0 {
		t.Fatalf("expected pending photo hidden from gallery")
	}
	if _, err = svc.UploadByToken(ctx, "nope", pngUpload("x.png")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetStatusRequiresModerationFeature(t *testing.T) {
	svc, _, tenant, event := setup(t, models.PlanSlugFree)
	view, err := svc.Upload(context.Background(), tenant.ID, event.ID, pngUpload("a.png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	_, err = svc.SetStatus(context.Background(), tenant.ID, event.ID, view.ID, models.PhotoRejected)
	if d, ok := entitlement.IsDenial(err); !ok || d.Feature != entitlement.FeaturePhotoModeration {
		t.Fatalf("expected photo_moderation denial, got %v", err)
	}
}

func TestSetStatusIsReEditable(t *testing.T) {
	svc, _, tenant, event := setup(t, models.PlanSlugPro)
	ctx := context.Background()
	view, _ := svc.Upload(ctx, tenant.ID, event.ID, pngUpload("a.png"))

	for _, status := range []string{models.PhotoRejected, models.PhotoApproved, models.PhotoPending} {
		got, err := svc.SetStatus(ctx, tenant.ID, event.ID, view.ID, status)
		if err != nil {
			t.Fatalf("set %s: %v", status, err)
		}
		if got.ModerationStatus != status {
			t.Fatalf("expected %s, got %s", status, got.ModerationStatus)
		}
	}
}

func TestDeleteReleasesStorageAndObject(t *testing.T) {
	svc, conn, tenant, event := setup(t, models.PlanSlugPro)
	ctx := context.Background()
	view, _ := svc.Upload(ctx, tenant.ID, event.ID, pngUpload("a.png"))

	if err := svc.Delete(ctx, tenant.ID, event.ID, view.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Store().Get(ctx, view.FilePath); err == nil {
		t.Fatalf("expected object removed")
	}
	var reloaded models.Tenant
	conn.First(&reloaded, tenant.ID)
	if reloaded.StorageUsedMB != 0 {
		t.Fatalf("expected storage released, got %d", reloaded.StorageUsedMB)
	}
	if err := svc.Delete(ctx, tenant.ID, event.ID, view.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventDeleteReleasesEveryPhotoUpload(t *testing.T) {
	svc, conn, tenant, event := setup(t, models.PlanSlugPro)
	ctx := context.Background()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if _, err := svc.Upload(ctx, tenant.ID, event.ID, pngUpload(name)); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}
	var reloaded models.Tenant
	conn.First(&reloaded, tenant.ID)
	if reloaded.StorageUsedMB != 3 {
		t.Fatalf("expected 3 MB accrued for three uploads, got %d", reloaded.StorageUsedMB)
	}

	if err := events.NewService(conn, entitlement.NewResolver(conn), svc.Store()).Delete(ctx, tenant.ID, event.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	conn.First(&reloaded, tenant.ID)
	if reloaded.StorageUsedMB != 0 {
		t.Fatalf("expected storage fully released, got %d MB", reloaded.StorageUsedMB)
	}
}

func TestArchiveSkipsFailedFetches(t *testing.T) {
	svc, _, tenant, event := setup(t, models.PlanSlugPro)
	ctx := context.Background()
	var paths []string
	for i := 0; i < 3; i++ {
		view, err := svc.Upload(ctx, tenant.ID, event.ID, pngUpload("a.png"))
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		paths = append(paths, view.FilePath)
	}
	svc.store = &flakyStore{Store: svc.store, failGets: map[string]bool{paths[1]: true}}

	var buf bytes.Buffer
	result, err := svc.WriteArchive(ctx, tenant.ID, event.ID, "", &buf)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if result.Added != 2 || result.Skipped != 1 {
		t.Fatalf("expected 2 added and 1 skipped, got %+v", result)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
}
