// Package handlers provides HTTP request handlers for the media catalog API.
//
// It includes handlers for:
//   - Item listing, search, and detail
//   - Artwork delivery with cached grid-size resizing
//   - Video streaming and byte-range HLS playlists
//   - Genre and tag management with sidecar write-back
//   - User authentication and sessions
//   - Favorites, library scans, health checks, and build info
package handlers
