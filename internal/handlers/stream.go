package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"media-catalog/internal/catalog"
	"media-catalog/internal/hls"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"

	"github.com/gorilla/mux"
)

// StreamVideo serves an item's video file with byte-range support.
func (h *Handlers) StreamVideo(w http.ResponseWriter, r *http.Request) {
	item, ok := h.streamItem(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(item.VideoPath)))
	http.ServeFile(w, r, item.VideoPath)
}

// GetPlaylist renders a byte-range HLS playlist for a transport-stream
// item. Every segment addresses a packet-aligned range of the single
// source file served by StreamVideo.
func (h *Handlers) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	item, ok := h.streamItem(w, r)
	if !ok {
		return
	}

	if !mediatypes.IsTransportStream(item.VideoPath) {
		http.Error(w, "Playlists are only available for transport streams", http.StatusBadRequest)
		return
	}

	info, err := os.Stat(item.VideoPath)
	if err != nil {
		logging.Error("playlist stat failed for %s: %v", item.VideoPath, err)
		http.Error(w, "Video file not accessible", http.StatusInternalServerError)
		return
	}

	plan, err := hls.PlanSegments(info.Size(), hls.TSPacketSize, h.segmentBytes)
	if err != nil {
		logging.Error("playlist planning failed for %s: %v", item.Code, err)
		http.Error(w, "Failed to build playlist", http.StatusInternalServerError)
		return
	}

	opts := hls.PlaylistOptions{
		SegmentURL: h.segmentURL(r, item.Code),
	}

	// A probed duration spreads real timing across the segments; without
	// it the playlist falls back to nominal per-segment durations. The
	// analyzer is only consulted at all when its startup self-check passed.
	if h.prober.Available() && len(plan.Segments) > 0 {
		if duration, ok := h.prober.Duration(r.Context(), item.VideoPath); ok {
			opts.SegmentDuration = duration / float64(len(plan.Segments))
			opts.TargetDuration = int(math.Ceil(opts.SegmentDuration))
		}
	}

	metrics.PlaylistBuildsTotal.Inc()
	metrics.PlaylistSegments.Observe(float64(len(plan.Segments)))
	if plan.Remainder > 0 {
		logging.Debug("playlist for %s drops %d trailing bytes below packet alignment", item.Code, plan.Remainder)
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := fmt.Fprint(w, hls.RenderPlaylist(plan, opts)); err != nil {
		logging.Debug("playlist write failed: %v", err)
	}
}

// streamItem resolves the requested item and verifies it has a video file.
func (h *Handlers) streamItem(w http.ResponseWriter, r *http.Request) (*catalog.MediaItem, bool) {
	vars := mux.Vars(r)
	code := vars["code"]

	item, err := h.store.GetItemByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return nil, false
		}
		logging.Error("stream lookup failed for %s: %v", code, err)
		http.Error(w, "Failed to get item", http.StatusInternalServerError)
		return nil, false
	}

	if !item.HasVideo() {
		http.Error(w, "No video file for item", http.StatusNotFound)
		return nil, false
	}

	return item, true
}

// segmentURL builds the absolute stream URL the playlist points at. The
// session token is carried as a query parameter because HLS players do
// not send cookies or headers for segment fetches.
func (h *Handlers) segmentURL(r *http.Request, code string) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   r.Host,
		Path:   "/api/stream/" + code,
	}
	if token := sessionToken(r); token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	return u.String()
}
