package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"time"
)

// ErrInvalidPath is returned for paths that escape the storage root
var ErrInvalidPath = errors.New("invalid storage path")

// Storage persists uploaded files (cheque scans, vehicle photos, customer
// attachments). Paths returned by Upload are relative and opaque to callers.
type Storage interface {
	Upload(ctx context.Context, r io.Reader, size int64, filename, contentType, subDir string) (string, error)
	UploadFromBytes(ctx context.Context, data []byte, filename, contentType, subDir string) (string, error)
	Download(ctx context.Context, relativePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, relativePath string) error
	Exists(ctx context.Context, relativePath string) bool
}

// objectName builds "<subDir>/<yyyy>/<mm>/<random><ext>"
func objectName(subDir, filename string) string {
	return path.Join(subDir, time.Now().Format("2006/01"), generateID()+path.Ext(filename))
}

// generateID creates a unique identifier for filenames
func generateID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// ValidContentTypes returns allowed MIME types for uploads
func ValidContentTypes() map[string]bool {
	return map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/jpg":       true,
		"image/png":       true,
		"image/webp":      true,
	}
}

// IsImageContentType returns true for uploads that can be thumbnailed
func IsImageContentType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	}
	return false
}

// MaxFileSize returns the maximum allowed file size (10MB)
func MaxFileSize() int64 {
	return 10 * 1024 * 1024 // 10 MB
}

// IsValidContentType checks if the content type is allowed
func IsValidContentType(contentType string) bool {
	return ValidContentTypes()[contentType]
}
