package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// AllowedImageTypes lists the MIME types accepted for image attachments.
// HEIC and HEIF cover photos taken on iPhones.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// DetectContentType resolves a MIME type for an object. An explicitly
// provided type wins, then the filename extension, then sniffing the
// first 512 bytes of data. Falls back to application/octet-stream.
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		// http.DetectContentType considers at most 512 bytes.
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// IsAllowedImageType reports whether contentType is an accepted image
// upload format. Parameters such as charset are stripped before lookup.
func IsAllowedImageType(contentType string) bool {
	baseType := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	return AllowedImageTypes[baseType]
}
