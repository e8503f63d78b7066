package artwork

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// GridThumbSize is the bounding box for resized grid artwork.
	GridThumbSize = 400

	thumbQuality = 80
)

// Cache serves resized poster/fanart images, keeping the resized output on
// disk keyed by source path and mtime so edited artwork invalidates itself.
type Cache struct {
	cacheDir string
	mu       sync.Mutex
}

// NewCache creates an artwork cache rooted at cacheDir.
func NewCache(cacheDir string) *Cache {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		logging.Warn("artwork: failed to create cache dir %s: %v", cacheDir, err)
	}
	return &Cache{cacheDir: cacheDir}
}

// GetResized returns the source image fitted into a GridThumbSize bounding
// box as JPEG bytes, generating and caching on first use.
func (c *Cache) GetResized(srcPath string) ([]byte, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("artwork not accessible: %w", err)
	}

	cachePath := c.cachePath(srcPath, info.Size(), info.ModTime())

	if data, err := os.ReadFile(cachePath); err == nil {
		logging.Debug("Artwork cache hit: %s", srcPath)
		metrics.ArtworkCacheHits.Inc()
		return data, nil
	}
	metrics.ArtworkCacheMisses.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another request may have generated it while we waited for the lock.
	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	data, err := c.resize(srcPath)
	if err != nil {
		metrics.ArtworkResizeErrors.Inc()
		return nil, err
	}

	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		logging.Warn("Failed to cache artwork %s: %v", cachePath, err)
	}
	return data, nil
}

func (c *Cache) resize(srcPath string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.ArtworkResizeDuration.Observe(time.Since(start).Seconds())
	}()

	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open artwork: %w", err)
	}

	thumb := imaging.Fit(img, GridThumbSize, GridThumbSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode artwork thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// cachePath derives the on-disk cache file for a source image. Size and
// mtime are part of the key so a replaced poster gets a fresh entry.
func (c *Cache) cachePath(srcPath string, size int64, modTime time.Time) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s%d%d", srcPath, size, modTime.Unix())))
	return filepath.Join(c.cacheDir, fmt.Sprintf("%x.jpg", hash))
}
