package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/ssrf"
	"github.com/kairoshq/kairos/internal/storage"
)

// attachmentURLTTL is how long presigned attachment URLs stay valid.
const attachmentURLTTL = 24 * time.Hour

// fetchTimeout bounds a remote image download.
const fetchTimeout = 30 * time.Second

// =============================================================================
// Interface Definition
// =============================================================================

// AttachmentService stores message image attachments: the original plus a
// generated thumbnail. Stored URLs go into the message's ImageURL field.
type AttachmentService interface {
	// Upload stores an uploaded image and its thumbnail under the tenant.
	// Returns domain.EINVALID for oversized or non-image content.
	Upload(ctx context.Context, tenantID uuid.UUID, filename string, size int64, data io.Reader) (*domain.Attachment, error)

	// Fetch downloads an image from a validated external URL and stores
	// it like an upload. The URL passes SSRF validation before any
	// network access.
	Fetch(ctx context.Context, tenantID uuid.UUID, imageURL string) (*domain.Attachment, error)
}

// =============================================================================
// Implementation
// =============================================================================

type attachmentService struct {
	storage    storage.Storage
	thumbnails ThumbnailProcessor
	client     *http.Client
	logger     *slog.Logger
}

// NewAttachmentService creates a new AttachmentService.
func NewAttachmentService(store storage.Storage, thumbnails ThumbnailProcessor, logger *slog.Logger) AttachmentService {
	return &attachmentService{
		storage:    store,
		thumbnails: thumbnails,
		client:     &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// Upload stores an uploaded image and its thumbnail under the tenant.
func (s *attachmentService) Upload(ctx context.Context, tenantID uuid.UUID, filename string, size int64, data io.Reader) (*domain.Attachment, error) {
	const op = "AttachmentService.Upload"

	if err := domain.ValidateImageSize(size); err != nil {
		return nil, err
	}

	// Buffer the image so it can be sniffed, thumbnailed, and stored.
	// The size cap keeps this bounded.
	buf, err := io.ReadAll(io.LimitReader(data, domain.MaxImageSizeBytes+1))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to read image")
	}
	if int64(len(buf)) > domain.MaxImageSizeBytes {
		return nil, domain.Invalid(op, "Image must be 10MB or smaller")
	}

	return s.store(ctx, tenantID, filename, buf)
}

// Fetch downloads an image from a validated external URL and stores it.
func (s *attachmentService) Fetch(ctx context.Context, tenantID uuid.UUID, imageURL string) (*domain.Attachment, error) {
	const op = "AttachmentService.Fetch"

	if err := ssrf.ValidateURL(imageURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, domain.Invalid(op, "Invalid image URL")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.Errorf(domain.EPROVIDER, op, "Failed to fetch image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Errorf(domain.EPROVIDER, op, "Image fetch returned status %d", resp.StatusCode)
	}
	if resp.ContentLength > domain.MaxImageSizeBytes {
		return nil, domain.Invalid(op, "Image must be 10MB or smaller")
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, domain.MaxImageSizeBytes+1))
	if err != nil {
		return nil, domain.Errorf(domain.EPROVIDER, op, "Failed to fetch image")
	}
	if int64(len(buf)) > domain.MaxImageSizeBytes {
		return nil, domain.Invalid(op, "Image must be 10MB or smaller")
	}

	return s.store(ctx, tenantID, imageURL, buf)
}

// store validates content, generates the thumbnail, and writes both objects.
func (s *attachmentService) store(ctx context.Context, tenantID uuid.UUID, filename string, data []byte) (*domain.Attachment, error) {
	const op = "AttachmentService.store"

	contentType := storage.DetectContentType("", "", bytes.NewReader(data))
	if !storage.IsAllowedImageType(contentType) {
		return nil, domain.Invalid(op, fmt.Sprintf("Unsupported image type %q", contentType))
	}

	thumb, width, height, err := s.thumbnails.GenerateThumbnail(
		bytes.NewReader(data), domain.ThumbnailMaxWidth, domain.ThumbnailMaxHeight)
	if err != nil {
		return nil, domain.Invalid(op, "Image could not be decoded")
	}

	originalKey := storage.AttachmentKey(tenantID, filename)
	if err := s.storage.Put(ctx, originalKey, bytes.NewReader(data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     domain.MaxImageSizeBytes,
	}); err != nil {
		return nil, domain.Internal(err, op, "Failed to store image")
	}

	thumbnailKey := storage.ThumbnailKey(tenantID, filename+".jpg")
	if err := s.storage.Put(ctx, thumbnailKey, bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
	}); err != nil {
		// Roll back the original so storage never holds a half-stored
		// attachment.
		if delErr := s.storage.Delete(ctx, originalKey); delErr != nil {
			s.logger.Error("failed to clean up attachment after thumbnail failure",
				slog.String("key", originalKey),
				slog.String("error", delErr.Error()))
		}
		return nil, domain.Internal(err, op, "Failed to store thumbnail")
	}

	originalURL, err := s.storage.URL(ctx, originalKey, attachmentURLTTL)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to resolve attachment URL")
	}
	thumbnailURL, err := s.storage.URL(ctx, thumbnailKey, attachmentURLTTL)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to resolve attachment URL")
	}

	s.logger.Info("attachment stored",
		slog.String("tenant_id", tenantID.String()),
		slog.String("key", originalKey),
		slog.Int("size", len(data)))

	return &domain.Attachment{
		URL:          originalURL,
		ThumbnailURL: thumbnailURL,
		Width:        width,
		Height:       height,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}, nil
}

var _ AttachmentService = (*attachmentService)(nil)
