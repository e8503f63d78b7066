package handlers

import (
	"errors"
	"net/http"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/nfo"

	"github.com/gorilla/mux"
)

// artResolver maps an item's sidecar metadata to one artwork file on disk.
type artResolver func(sidecarPath, code string, meta nfo.VideoMetadata) string

// GetPoster serves the item's poster image.
func (h *Handlers) GetPoster(w http.ResponseWriter, r *http.Request) {
	h.serveArtwork(w, r, nfo.PosterPath)
}

// GetFanart serves the item's fanart image.
func (h *Handlers) GetFanart(w http.ResponseWriter, r *http.Request) {
	h.serveArtwork(w, r, nfo.FanartPath)
}

// GetThumb serves the item's thumbnail image.
func (h *Handlers) GetThumb(w http.ResponseWriter, r *http.Request) {
	h.serveArtwork(w, r, nfo.ThumbPath)
}

func (h *Handlers) serveArtwork(w http.ResponseWriter, r *http.Request, resolve artResolver) {
	vars := mux.Vars(r)
	code := vars["code"]

	item, err := h.store.GetItemByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		logging.Error("artwork lookup failed for %s: %v", code, err)
		http.Error(w, "Failed to get item", http.StatusInternalServerError)
		return
	}

	meta := nfo.Parse(item.NFOPath)
	artPath := resolve(item.NFOPath, item.Code, meta)
	if artPath == "" {
		http.Error(w, "Artwork not found", http.StatusNotFound)
		return
	}

	// Grid requests get a cached, downscaled JPEG when the cache is
	// available; everything else serves the original file.
	if r.URL.Query().Get("size") == "grid" && h.artCache != nil {
		data, err := h.artCache.GetResized(artPath)
		if err != nil {
			logging.Error("artwork resize failed for %s: %v", artPath, err)
			http.Error(w, "Failed to resize artwork", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if _, err := w.Write(data); err != nil {
			logging.Debug("artwork write failed: %v", err)
		}
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, artPath)
}
