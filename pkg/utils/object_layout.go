package utils

import (
	"path"
	"strings"
)

// StoragePath is a logical partition of the object store.
type StoragePath string

const (
	PathUnknown StoragePath = ""
	PathRaw     StoragePath = "raw"
	PathCropped StoragePath = "cropped"
	PathSwapped StoragePath = "swapped"
	PathResult  StoragePath = "result"
)

// ObjectLayout maps logical storage paths to key prefixes in the bucket
type ObjectLayout struct {
	prefixes map[StoragePath]string
}

// NewObjectLayout creates a layout. Prefixes are normalised to end in "/".
func NewObjectLayout(raw, cropped, swapped, result string) *ObjectLayout {
	return &ObjectLayout{
		prefixes: map[StoragePath]string{
			PathRaw:     normalisePrefix(raw),
			PathCropped: normalisePrefix(cropped),
			PathSwapped: normalisePrefix(swapped),
			PathResult:  normalisePrefix(result),
		},
	}
}

func normalisePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Prefix returns the key prefix for a logical path
func (l *ObjectLayout) Prefix(p StoragePath) string {
	return l.prefixes[p]
}

// Key generates the full object key for a file under a logical path
func (l *ObjectLayout) Key(p StoragePath, fileName string) string {
	// Clean the filename to remove any path separators
	return l.prefixes[p] + path.Base(fileName)
}

// PathOf reports which logical path a key was written under. The longest
// matching prefix wins so nested prefixes stay distinguishable.
func (l *ObjectLayout) PathOf(key string) StoragePath {
	best := PathUnknown
	bestLen := -1
	for p, prefix := range l.prefixes {
		if prefix == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		if len(prefix) > bestLen {
			best, bestLen = p, len(prefix)
		}
	}
	return best
}

// ContentType determines the image content type based on extension
func ContentType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Extension is the inverse of ContentType for upload names. Unknown types
// fall back to ".jpeg".
func Extension(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpeg"
	}
}
