package domain

// Image attachment bounds.
const (
	// MaxImageSizeBytes caps uploaded and fetched attachment images.
	MaxImageSizeBytes = 10 * 1024 * 1024

	// Thumbnail bounding box; aspect ratio is preserved inside it.
	ThumbnailMaxWidth  = 320
	ThumbnailMaxHeight = 320

	// ThumbnailJPEGQuality is the JPEG quality for generated thumbnails.
	ThumbnailJPEGQuality = 85
)

// Attachment is a stored message image: the original plus a thumbnail.
type Attachment struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
}

// ValidateImageSize rejects images over the attachment size cap.
func ValidateImageSize(size int64) error {
	const op = "attachment.validate"

	if size <= 0 {
		return Invalid(op, "Image is empty")
	}
	if size > MaxImageSizeBytes {
		return Invalid(op, "Image must be 10MB or smaller")
	}
	return nil
}
