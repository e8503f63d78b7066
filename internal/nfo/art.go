package nfo

import (
	"os"
	"path/filepath"
)

// Art resolution works independently for poster, fanart and thumbnail.
// A document-supplied local reference is tried first (absolute, or relative
// to the sidecar's directory) and accepted only when the file exists; then
// an ordered list of conventional filenames in the same directory, with
// code-prefixed variants before generic ones. Order is fixed so resolution
// is deterministic across runs.

func posterFallbackNames(code string) []string {
	return []string{
		code + "-poster.jpg",
		code + "-poster.png",
		code + "-thumb.jpg",
		code + "-thumb.png",
		"poster.jpg",
		"poster.png",
		"poster.jpeg",
		"poster.webp",
		code + ".jpg",
		code + ".png",
		"thumb.jpg",
		"folder.jpg",
	}
}

func fanartFallbackNames(code string) []string {
	return []string{
		code + "-fanart.jpg",
		code + "-fanart.png",
		"fanart.jpg",
		"fanart.png",
		"fanart.jpeg",
	}
}

func thumbFallbackNames(code string) []string {
	return []string{
		code + "-thumb.jpg",
		code + "-thumb.png",
		code + "-poster.jpg",
		code + "-poster.png",
		"thumb.jpg",
		"poster.jpg",
		"folder.jpg",
	}
}

// resolveArt tries the document candidate, then the fallback names.
// Returns "" when nothing exists.
func resolveArt(dir, candidate string, fallbackNames []string) string {
	if candidate != "" {
		p := candidate
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if fileExists(p) {
			return p
		}
	}
	for _, name := range fallbackNames {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// PosterPath resolves the poster image for a sidecar document.
// The generic thumbnail reference is an explicit fallback candidate here,
// not copied into the metadata itself.
func PosterPath(sidecarPath, code string, meta VideoMetadata) string {
	dir := filepath.Dir(sidecarPath)
	candidate := meta.PosterRef
	if candidate == "" {
		candidate = meta.ThumbRef
	}
	return resolveArt(dir, candidate, posterFallbackNames(code))
}

// FanartPath resolves the fanart image for a sidecar document.
func FanartPath(sidecarPath, code string, meta VideoMetadata) string {
	dir := filepath.Dir(sidecarPath)
	return resolveArt(dir, meta.FanartRef, fanartFallbackNames(code))
}

// ThumbPath resolves the generic thumbnail for a sidecar document, falling
// back to the poster reference when no thumbnail reference exists.
func ThumbPath(sidecarPath, code string, meta VideoMetadata) string {
	dir := filepath.Dir(sidecarPath)
	candidate := meta.ThumbRef
	if candidate == "" {
		candidate = meta.PosterRef
	}
	return resolveArt(dir, candidate, thumbFallbackNames(code))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
