package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	MaxImageSize  = 10 << 20 // 10 MB
	MaxPostImages = 5
)

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ValidateImage checks size and extension of an uploaded image and returns
// its normalised extension and content type.
func ValidateImage(filename string, size int64) (ext, contentType string, err error) {
	if size > MaxImageSize {
		return "", "", BadRequest(fmt.Sprintf("Image %s exceeds maximum size of %d MB", filename, MaxImageSize/(1<<20)))
	}

	ext = strings.ToLower(filepath.Ext(filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return "", "", BadRequest(fmt.Sprintf("Invalid image type: %s", ext))
	}
	return ext, contentType, nil
}
