package photos

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
)

// ArchiveResult counts the photos written to and skipped from an archive.
type ArchiveResult struct {
	Added   int
	Skipped int
}

// ArchiveName is the download file name for an event archive.
func ArchiveName(event *models.Event) string {
	return fmt.Sprintf("event-%d-photos.zip", event.ID)
}

// WriteArchive streams every photo of the filtered view into one zip. Photos that cannot be
// fetched are skipped.
func (s *Service) WriteArchive(ctx context.Context, tenantID, eventID uint64, status string, w io.Writer) (ArchiveResult, error) {
	var result ArchiveResult
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return result, errOwned
	}
	q, errQuery := s.query(ctx, eventID, status)
	if errQuery != nil {
		return result, errQuery
	}
	var rows []models.Photo
	if errFind := q.Order("uploaded_at ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		return result, fmt.Errorf("photos: archive list: %w", errFind)
	}

	zw := zip.NewWriter(w)
	for i, p := range rows {
		if errCtx := ctx.Err(); errCtx != nil {
			_ = zw.Close()
			return result, errCtx
		}
		data, errGet := s.store.Get(ctx, p.FilePath)
		if errGet != nil {
			result.Skipped++
			log.WithError(errGet).WithField("photo_id", p.ID).Warn("photos: archive fetch failed, skipping")
			continue
		}
		name := fmt.Sprintf("%03d-%s", i+1, strings.ReplaceAll(p.FilePath, "/", "-"))
		entry, errCreate := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: p.UploadedAt,
		})
		if errCreate != nil {
			_ = zw.Close()
			return result, fmt.Errorf("photos: archive entry: %w", errCreate)
		}
		if _, errWrite := entry.Write(data); errWrite != nil {
			_ = zw.Close()
			return result, fmt.Errorf("photos: archive write: %w", errWrite)
		}
		result.Added++
	}
	if errClose := zw.Close(); errClose != nil {
		return result, fmt.Errorf("photos: archive close: %w", errClose)
	}
	return result, nil
}
