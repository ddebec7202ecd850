package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

// ThumbnailSize is the bounding box of generated thumbnails
const ThumbnailSize = 320

// ImageService creates thumbnails for cheque scans and vehicle photos
type ImageService struct {
	size int
}

func NewImageService() *ImageService {
	return &ImageService{size: ThumbnailSize}
}

// Thumbnail decodes an image and returns a scaled-down copy in the same
// format. The aspect ratio is kept so the cheque stays readable.
func (s *ImageService) Thumbnail(data []byte) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, s.size, s.size, imaging.Lanczos)

	var buf bytes.Buffer
	contentType := "image/jpeg"
	if format == "png" {
		contentType = "image/png"
		err = png.Encode(&buf, thumb)
	} else {
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), contentType, nil
}
