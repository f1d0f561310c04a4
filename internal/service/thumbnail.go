package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/kairoshq/kairos/internal/domain"
)

// ThumbnailProcessor generates thumbnails for image attachments.
type ThumbnailProcessor interface {
	// GenerateThumbnail decodes data and returns a JPEG thumbnail that
	// fits within maxWidth x maxHeight, plus the original dimensions.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

type imagingProcessor struct{}

// NewImagingProcessor returns a ThumbnailProcessor backed by the
// imaging library.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, _, err := image.Decode(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()

	// Fit preserves aspect ratio; Lanczos trades speed for quality,
	// which is fine for an async path.
	thumbnail := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG, imaging.JPEGQuality(domain.ThumbnailJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
