// Package storage wraps S3-compatible object storage for uploaded evidence
// files such as certificates, medical reports and signed contracts.
package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// PresignedURL is a time-limited download link for a stored object.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}

// ObjectKey builds a collision-free key under folder. The base name is
// reduced to a safe character set.
func ObjectKey(folder, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(fileName, "\\", "/")), path.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		}
		return -1
	}, base)
	if base == "" {
		base = "file"
	}
	if len(base) > 80 {
		base = base[:80]
	}
	return path.Join(strings.Trim(folder, "/"), fmt.Sprintf("%s_%s%s", base, uuid.New().String()[:8], ext))
}
