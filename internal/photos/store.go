package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/config"
	log "github.com/sirupsen/logrus"
	storage_go "github.com/supabase-community/storage-go"
)

// Store holds photo objects.
type Store interface {
	Put(ctx context.Context, path, contentType string, body io.Reader) error
	Get(ctx context.Context, path string) ([]byte, error)
	RemoveObjects(ctx context.Context, paths []string) error
	PublicURL(path string) string
}

// NewStore returns a Supabase store when credentials are configured, otherwise a disk store
// whose public URLs are served under localPrefix.
func NewStore(cfg config.StorageConfig, localPrefix string) (Store, error) {
	if strings.TrimSpace(cfg.SupabaseURL) != "" && strings.TrimSpace(cfg.ServiceKey) != "" {
		log.WithField("bucket", cfg.Bucket).Info("photos: using supabase storage")
		return NewSupabaseStore(cfg.SupabaseURL, cfg.ServiceKey, cfg.Bucket), nil
	}
	log.WithField("dir", cfg.LocalDir).Info("photos: using local disk storage")
	return NewDiskStore(cfg.LocalDir, localPrefix)
}

// SupabaseStore keeps objects in a Supabase Storage bucket.
type SupabaseStore struct {
	client  *storage_go.Client
	baseURL string
	bucket  string
}

// NewSupabaseStore builds a store for bucket on the project at projectURL.
func NewSupabaseStore(projectURL, serviceKey, bucket string) *SupabaseStore {
	base := strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if !strings.HasSuffix(base, "/storage/v1") {
		base += "/storage/v1"
	}
	return &SupabaseStore{
		client:  storage_go.NewClient(base, serviceKey, nil),
		baseURL: base,
		bucket:  bucket,
	}
}

// Put uploads body to path.
func (s *SupabaseStore) Put(ctx context.Context, path, contentType string, body io.Reader) error {
	if errCtx := ctx.Err(); errCtx != nil {
		return errCtx
	}
	upsert := false
	if _, errUpload := s.client.UploadFile(s.bucket, path, body, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); errUpload != nil {
		return fmt.Errorf("supabase upload %s: %w", path, errUpload)
	}
	return nil
}

// Get downloads the object at path.
func (s *SupabaseStore) Get(ctx context.Context, path string) ([]byte, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return nil, errCtx
	}
	data, errDownload := s.client.DownloadFile(s.bucket, path)
	if errDownload != nil {
		return nil, fmt.Errorf("supabase download %s: %w", path, errDownload)
	}
	return data, nil
}

// RemoveObjects deletes objects at paths.
func (s *SupabaseStore) RemoveObjects(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if errCtx := ctx.Err(); errCtx != nil {
		return errCtx
	}
	if _, errRemove := s.client.RemoveFile(s.bucket, paths); errRemove != nil {
		return fmt.Errorf("supabase remove: %w", errRemove)
	}
	return nil
}

// PublicURL returns the public object URL of path.
func (s *SupabaseStore) PublicURL(path string) string {
	return s.client.GetPublicUrl(s.bucket, path).SignedURL
}

// DiskStore keeps objects under a local directory.
type DiskStore struct {
	dir    string
	prefix string
}

// NewDiskStore creates dir when missing. prefix is the URL path the directory is served under.
func NewDiskStore(dir, prefix string) (*DiskStore, error) {
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("create photo dir: %w", errMkdir)
	}
	return &DiskStore{dir: dir, prefix: strings.TrimRight(prefix, "/")}, nil
}

// Dir returns the root directory.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", errors.New("empty object path")
	}
	return filepath.Join(s.dir, clean), nil
}

// Put writes body to path.
func (s *DiskStore) Put(_ context.Context, path, _ string, body io.Reader) error {
	full, errResolve := s.resolve(path)
	if errResolve != nil {
		return errResolve
	}
	if errMkdir := os.MkdirAll(filepath.Dir(full), 0o755); errMkdir != nil {
		return errMkdir
	}
	f, errCreate := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errCreate != nil {
		return errCreate
	}
	if _, errCopy := io.Copy(f, body); errCopy != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return errCopy
	}
	return f.Close()
}

// Get reads the object at path.
func (s *DiskStore) Get(_ context.Context, path string) ([]byte, error) {
	full, errResolve := s.resolve(path)
	if errResolve != nil {
		return nil, errResolve
	}
	return os.ReadFile(full)
}

// RemoveObjects deletes objects at paths. Missing files are ignored.
func (s *DiskStore) RemoveObjects(_ context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		full, errResolve := s.resolve(p)
		if errResolve != nil {
			errs = append(errs, errResolve)
			continue
		}
		if errRemove := os.Remove(full); errRemove != nil && !errors.Is(errRemove, os.ErrNotExist) {
			errs = append(errs, errRemove)
		}
	}
	return errors.Join(errs...)
}

// PublicURL returns the served URL of path.
func (s *DiskStore) PublicURL(path string) string {
	return s.prefix + "/" + strings.TrimLeft(path, "/")
}
