package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/nfo"

	"github.com/gorilla/mux"
)

// VocabularyRequest is the full replacement set for an item's genres and tags.
type VocabularyRequest struct {
	Genres []string `json:"genres"`
	Tags   []string `json:"tags"`
}

// VocabularyResponse is an item's current genres and tags.
type VocabularyResponse struct {
	Code   string   `json:"code"`
	Genres []string `json:"genres"`
	Tags   []string `json:"tags"`
}

// GetItemVocabulary returns the genres and tags of one item.
func (h *Handlers) GetItemVocabulary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	item, err := h.store.GetItemByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		logging.Error("vocabulary lookup failed for %s: %v", code, err)
		http.Error(w, "Failed to get item", http.StatusInternalServerError)
		return
	}

	resp := VocabularyResponse{
		Code:   item.Code,
		Genres: item.Genres,
		Tags:   item.Tags,
	}
	if resp.Genres == nil {
		resp.Genres = []string{}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// SetItemVocabulary replaces an item's genres and tags, writes the new
// sets back into the sidecar document, and drops vocabulary entries no
// longer referenced by any item.
func (h *Handlers) SetItemVocabulary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]

	var req VocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.store.GetItemByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		logging.Error("vocabulary update lookup failed for %s: %v", code, err)
		http.Error(w, "Failed to get item", http.StatusInternalServerError)
		return
	}

	if err := h.store.SetItemVocabulary(r.Context(), code, req.Genres, req.Tags); err != nil {
		logging.Error("Failed to set vocabulary for %s: %v", code, err)
		http.Error(w, "Failed to set genres and tags", http.StatusInternalServerError)
		return
	}

	// Sidecar write-back keeps the document authoritative for the next
	// scan. A failed write is surfaced but does not roll the catalog back.
	if err := nfo.WriteVocabulary(item.NFOPath, req.Genres, req.Tags); err != nil {
		logging.Error("Failed to write vocabulary to sidecar %s: %v", item.NFOPath, err)
		http.Error(w, "Catalog updated but sidecar write failed", http.StatusInternalServerError)
		return
	}

	if pruned, err := h.store.PruneUnreferencedVocabulary(r.Context()); err != nil {
		logging.Warn("vocabulary prune failed: %v", err)
	} else if pruned > 0 {
		logging.Debug("pruned %d unreferenced vocabulary entries", pruned)
	}

	writeJSONStatus(w, "ok")
}

// ListGenres returns every genre with usage counts.
func (h *Handlers) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.store.ListGenres(r.Context())
	if err != nil {
		http.Error(w, "Failed to get genres", http.StatusInternalServerError)
		return
	}

	if genres == nil {
		genres = []catalog.VocabularyEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, genres)
}

// ListTags returns every tag with usage counts.
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		http.Error(w, "Failed to get tags", http.StatusInternalServerError)
		return
	}

	if tags == nil {
		tags = []catalog.VocabularyEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, tags)
}
