package storage

import (
	"fmt"
	"strings"

	"labor_pipeline_backend/platform/apperr"
)

// AllowedContentTypes lists the MIME types accepted as evidence.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/webp":         true,
	"image/heic":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// NormalizeContentType drops parameters such as charset.
func NormalizeContentType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}

func ValidateContentType(contentType string) error {
	if !AllowedContentTypes[NormalizeContentType(contentType)] {
		return apperr.Validationf("content type %q is not allowed", contentType)
	}
	return nil
}

func ValidateFileSize(sizeBytes, maxFileSize int64) error {
	if sizeBytes <= 0 {
		return apperr.Validation("file size must be greater than 0")
	}
	if maxFileSize > 0 && sizeBytes > maxFileSize {
		return apperr.Validation(fmt.Sprintf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, maxFileSize))
	}
	return nil
}
