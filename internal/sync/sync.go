package sync

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
	"media-catalog/internal/nfo"
)

// ErrSyncInProgress is returned when a run is requested while another run
// holds the advisory lock.
var ErrSyncInProgress = errors.New("synchronization already in progress")

// templateNames are sidecar stems that mark a file as a template or sample
// rather than a real library entry. Compared case-insensitively.
var templateNames = map[string]struct{}{
	"movie":    {},
	"template": {},
	"sample":   {},
	"example":  {},
	"test":     {},
	"default":  {},
	"blank":    {},
}

// Synchronizer reconciles sidecar metadata under the configured library
// roots into the catalog store. Runs are serialized by an advisory lock;
// each run writes through a single transaction.
type Synchronizer struct {
	store *catalog.Store
	roots []string

	runMu        gosync.Mutex
	isRunning    bool
	lastSyncTime time.Time
}

// RunResult summarizes one completed synchronization run.
type RunResult struct {
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"-"`
}

// New creates a Synchronizer over the given library roots.
func New(store *catalog.Store, roots []string) *Synchronizer {
	return &Synchronizer{
		store: store,
		roots: roots,
	}
}

// IsRunning reports whether a run currently holds the advisory lock.
func (s *Synchronizer) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.isRunning
}

// LastSyncTime returns the completion time of the last successful run.
func (s *Synchronizer) LastSyncTime() time.Time {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.lastSyncTime
}

// tryStartRun attempts to acquire the advisory run lock.
func (s *Synchronizer) tryStartRun() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.isRunning {
		return false
	}
	s.isRunning = true
	return true
}

// finishRun releases the advisory run lock.
func (s *Synchronizer) finishRun(completed bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.isRunning = false
	if completed {
		s.lastSyncTime = time.Now()
	}
}

// Run performs one full synchronization over every configured root and
// returns the number of items written. A missing root is a warning, not a
// failure. All catalog writes happen in one transaction committed at the
// end of the run; per-item problems are logged and skipped.
func (s *Synchronizer) Run() (*RunResult, error) {
	if !s.tryStartRun() {
		logging.Info("Synchronization already in progress, rejecting run")
		return nil, ErrSyncInProgress
	}

	metrics.SyncRunning.Set(1)
	defer metrics.SyncRunning.Set(0)
	metrics.SyncRunsTotal.Inc()

	startTime := time.Now()
	logging.Info("Starting library synchronization over %d root(s)", len(s.roots))

	tx, err := s.store.BeginRun()
	if err != nil {
		s.finishRun(false)
		metrics.SyncErrors.Inc()
		return nil, fmt.Errorf("failed to begin run transaction: %w", err)
	}

	// The first-wins set spans all roots: a code claimed under one root
	// shadows every later occurrence anywhere in the run.
	seen := make(map[string]struct{})
	result := &RunResult{}

	for _, root := range s.roots {
		if _, statErr := os.Stat(root); statErr != nil {
			logging.Warn("Library root unavailable, skipping: %s (%v)", root, statErr)
			metrics.SyncRootsMissing.Inc()
			continue
		}
		s.walkRoot(tx, root, seen, result)
	}

	if err := s.store.EndRun(tx, nil); err != nil {
		s.finishRun(false)
		metrics.SyncErrors.Inc()
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	s.finishRun(true)
	s.finalize(startTime, result)
	return result, nil
}

// walkRoot processes every sidecar under one root. The walk is lexical, so
// first-wins resolution is deterministic for a given tree.
func (s *Synchronizer) walkRoot(tx *sql.Tx, root string, seen map[string]struct{}, result *RunResult) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !mediatypes.IsSidecar(d.Name()) {
			return nil
		}

		s.processSidecar(tx, path, seen, result)
		return nil
	})
	if err != nil {
		logging.Error("Walk error under %s: %v", root, err)
		metrics.SyncErrors.Inc()
	}
}

// processSidecar turns one sidecar document into a catalog upsert.
func (s *Synchronizer) processSidecar(tx *sql.Tx, path string, seen map[string]struct{}, result *RunResult) {
	code := mediatypes.CodeFromSidecar(filepath.Base(path))
	if code == "" {
		return
	}

	if _, isTemplate := templateNames[strings.ToLower(code)]; isTemplate {
		logging.Debug("Skipping template sidecar: %s", path)
		metrics.SyncItemsSkipped.WithLabelValues("template").Inc()
		result.Skipped++
		return
	}

	if _, dup := seen[code]; dup {
		logging.Debug("Skipping duplicate code %s at %s", code, path)
		metrics.SyncItemsSkipped.WithLabelValues("duplicate").Inc()
		result.Skipped++
		return
	}
	seen[code] = struct{}{}

	item, err := s.buildItem(code, path)
	if err != nil {
		logging.Warn("Failed to build item for %s: %v", path, err)
		metrics.SyncErrors.Inc()
		return
	}

	if err := s.writeItem(tx, item); err != nil {
		logging.Warn("Failed to write item %s: %v", code, err)
		metrics.SyncErrors.Inc()
		return
	}

	metrics.SyncItemsProcessed.Inc()
	result.Processed++
}

// buildItem assembles the full-refresh record for one code: parsed sidecar
// fields, the co-located media file by extension priority, and the change
// detection stat from the media file when present, else the sidecar.
func (s *Synchronizer) buildItem(code, nfoPath string) (*syncItem, error) {
	meta := nfo.Parse(nfoPath)

	dir := filepath.Dir(nfoPath)
	videoPath, videoType := findVideo(dir, code)

	statPath := videoPath
	if statPath == "" {
		statPath = nfoPath
	}
	info, err := os.Stat(statPath)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", statPath, err)
	}

	title := meta.Title
	if title == "" {
		title = code
	}

	var actorsJSON string
	if len(meta.Actors) > 0 {
		if b, err := json.Marshal(meta.Actors); err == nil {
			actorsJSON = string(b)
		}
	}

	return &syncItem{
		record: catalog.MediaItem{
			Code:        code,
			Title:       title,
			Description: meta.Plot,
			NFOPath:     nfoPath,
			VideoPath:   videoPath,
			VideoType:   videoType,
			FileSize:    info.Size(),
			FileMTime:   info.ModTime(),
			Rating:      meta.Rating,
			Year:        meta.Year,
			Runtime:     meta.Runtime,
			Studio:      meta.Studio,
			ActorsJSON:  actorsJSON,
		},
		genres: meta.Genres,
		tags:   meta.Tags,
	}, nil
}

// syncItem pairs the item record with its vocabulary for one upsert.
type syncItem struct {
	record catalog.MediaItem
	genres []string
	tags   []string
}

// writeItem applies one item's full refresh inside the run transaction:
// record upsert, then clear-and-rebuild of both vocabulary link sets.
func (s *Synchronizer) writeItem(tx *sql.Tx, item *syncItem) error {
	if err := s.store.UpsertItem(tx, &item.record); err != nil {
		return err
	}
	if err := s.store.ReplaceItemGenres(tx, item.record.ID, item.genres); err != nil {
		return err
	}
	return s.store.ReplaceItemTags(tx, item.record.ID, item.tags)
}

// findVideo returns the first co-located media file matching the code, in
// fixed extension priority order.
func findVideo(dir, code string) (path, ext string) {
	for _, candidate := range mediatypes.VideoExtensionPriority {
		p := filepath.Join(dir, code+candidate)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, candidate
		}
	}
	return "", ""
}

// finalize records run statistics and metrics after a committed run.
func (s *Synchronizer) finalize(startTime time.Time, result *RunResult) {
	result.Duration = time.Since(startTime)

	metrics.SyncLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.SyncLastRunDuration.Set(result.Duration.Seconds())

	s.store.UpdateStats(catalog.SyncStats{
		Processed:    result.Processed,
		Skipped:      result.Skipped,
		LastSynced:   time.Now(),
		SyncDuration: result.Duration.String(),
	})

	logging.Info("Synchronization complete: %d items, %d skipped in %v",
		result.Processed, result.Skipped, result.Duration)
}
