package mediatypes

import (
	"path/filepath"
	"strings"
)

// SidecarExtension is the extension of sidecar metadata documents.
const SidecarExtension = ".nfo"

// VideoExtensionPriority is the fixed order in which co-located media files
// are searched for a catalog code. The first existing candidate wins, so the
// order must stay stable across runs.
var VideoExtensionPriority = []string{".mp4", ".ts"}

// TransportStreamExtension is the only container the byte-range playlist
// planner can address, because its fixed 188-byte packet framing is what
// makes packet-aligned byte ranges possible.
const TransportStreamExtension = ".ts"

// MimeTypes maps media file extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4": "video/mp4",
	".ts":  "video/mp2t",

	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g. ".ts").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsSidecar reports whether name is a sidecar metadata document.
// The comparison is case-insensitive to match files authored on Windows.
func IsSidecar(name string) bool {
	return strings.EqualFold(filepath.Ext(name), SidecarExtension)
}

// IsTransportStream reports whether path points at a transport-stream file.
func IsTransportStream(path string) bool {
	return strings.EqualFold(filepath.Ext(path), TransportStreamExtension)
}

// CodeFromSidecar derives the catalog business key from a sidecar document
// path: the base filename without its extension.
func CodeFromSidecar(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
