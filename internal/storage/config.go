package storage

import (
	"path/filepath"
	"strings"
)

// Policy limits what may be uploaded as evidence
type Policy struct {
	MaxBytes            int64
	AllowedContentTypes []string
}

// Allows reports whether contentType is on the allow list. Parameters such
// as "; charset=utf-8" are ignored.
func (p Policy) Allows(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	for _, t := range p.AllowedContentTypes {
		if strings.EqualFold(t, base) {
			return true
		}
	}
	return false
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"application/pdf": ".pdf",
	"video/mp4":       ".mp4",
}

// Extension picks the file suffix for a stored object. The content type
// wins over the client supplied name.
func Extension(contentType, fileName string) string {
	base, _, _ := strings.Cut(contentType, ";")
	if ext, ok := extensions[strings.ToLower(strings.TrimSpace(base))]; ok {
		return ext
	}
	return strings.ToLower(filepath.Ext(fileName))
}
