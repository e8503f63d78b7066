package handlers

import (
	"time"

	"media-catalog/internal/artwork"
	"media-catalog/internal/catalog"
	"media-catalog/internal/probe"
	"media-catalog/internal/startup"
	"media-catalog/internal/sync"
)

type Handlers struct {
	store        *catalog.Store
	sync         *sync.Synchronizer
	prober       *probe.Prober
	artCache     *artwork.Cache
	segmentBytes int64
	startTime    time.Time
}

func New(store *catalog.Store, syncer *sync.Synchronizer, prober *probe.Prober, config *startup.Config) *Handlers {
	var cache *artwork.Cache
	if config.ArtworkCacheEnabled {
		cache = artwork.NewCache(config.ArtworkCacheDir)
	}
	return &Handlers{
		store:        store,
		sync:         syncer,
		prober:       prober,
		artCache:     cache,
		segmentBytes: config.SegmentBytes,
		startTime:    time.Now(),
	}
}
