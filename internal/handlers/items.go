package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/nfo"

	"github.com/gorilla/mux"
)

// ItemDetail is the full item response, including actor credits decoded
// from the stored sidecar metadata.
type ItemDetail struct {
	catalog.MediaItem
	Actors []nfo.ActorInfo `json:"actors,omitempty"`
}

// ListItems returns a page of cataloged items, optionally filtered by a
// search query, genre, or tag.
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	opts := catalog.ListOptions{
		Query: r.URL.Query().Get("q"),
		Genre: r.URL.Query().Get("genre"),
		Tag:   r.URL.Query().Get("tag"),
		Page:  1,
	}

	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && pageSize > 0 {
		opts.PageSize = pageSize
	}

	result, err := h.store.ListItems(r.Context(), opts)
	if err != nil {
		logging.Error("ListItems failed: %v", err)
		http.Error(w, "Failed to list items", http.StatusInternalServerError)
		return
	}

	if result.Items == nil {
		result.Items = []catalog.MediaItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// GetItem returns the full detail for one item by code.
func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	item, err := h.store.GetItemByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		logging.Error("GetItem failed for %s: %v", code, err)
		http.Error(w, "Failed to get item", http.StatusInternalServerError)
		return
	}

	detail := ItemDetail{MediaItem: *item}
	if item.ActorsJSON != "" {
		if err := json.Unmarshal([]byte(item.ActorsJSON), &detail.Actors); err != nil {
			logging.Warn("invalid stored actor credits for %s: %v", code, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, detail)
}
