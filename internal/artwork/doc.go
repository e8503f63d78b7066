// Package artwork caches resized copies of item posters and fanart for
// grid views. Originals are always served straight from the library; only
// the resized JPEG derivatives live in the cache directory.
package artwork
