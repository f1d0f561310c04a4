// Package storage abstracts object storage for message attachments and
// their thumbnails. LocalStorage serves development, R2Storage serves
// production on Cloudflare R2.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Storage is the backend interface. All methods honor context
// cancellation.
type Storage interface {
	// Put stores data at key. Fails with ErrKeyExists when the key is
	// occupied and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object's data and metadata. The caller must close
	// the reader. Fails with ErrNotFound for missing keys.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns an access URL. Public objects get a permanent URL,
	// private ones a presigned URL valid for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures a Put.
type PutOptions struct {
	// ContentType is the object's MIME type. Auto-detected when empty.
	ContentType string

	// MaxSize caps the object size in bytes. Zero means unlimited.
	// Oversized writes fail with ErrTooLarge.
	MaxSize int64

	// Overwrite permits replacing an existing object at the key.
	Overwrite bool

	// Public marks the object world-readable. On R2 this sets the
	// public-read ACL; local storage serves everything publicly anyway.
	Public bool
}

// ObjectInfo is the metadata returned alongside a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string // empty on backends without ETags
}

// LocalConfig configures filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory for stored files.
	BasePath string

	// BaseURL is the public prefix files are served under, for example
	// "http://localhost:8080/files".
	BaseURL string
}

// R2Config configures Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is a custom domain fronting the bucket, for example
	// "https://files.kairos.chat". When empty every URL is presigned.
	PublicURL string

	// Region defaults to "auto", which is what R2 expects.
	Region string
}

// Provider names accepted in configuration.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// AttachmentKey builds the storage key for an uploaded attachment:
// tenants/{tenantID}/attachments/{uuid}.{ext}. Keys are namespaced per
// tenant so cross-tenant access never shares a prefix.
func AttachmentKey(tenantID uuid.UUID, filename string) string {
	return fmt.Sprintf("tenants/%s/attachments/%s%s", tenantID, uuid.New(), filepath.Ext(filename))
}

// ThumbnailKey builds the storage key for an attachment thumbnail:
// tenants/{tenantID}/thumbnails/{uuid}.{ext}.
func ThumbnailKey(tenantID uuid.UUID, filename string) string {
	return fmt.Sprintf("tenants/%s/thumbnails/%s%s", tenantID, uuid.New(), filepath.Ext(filename))
}
