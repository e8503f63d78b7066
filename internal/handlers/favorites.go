package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-catalog/internal/catalog"
)

type FavoriteRequest struct {
	Code string `json:"code"`
}

func (h *Handlers) GetFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.store.GetFavorites(r.Context())
	if err != nil {
		http.Error(w, "Failed to get favorites", http.StatusInternalServerError)
		return
	}

	if favorites == nil {
		favorites = []catalog.MediaItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, favorites)
}

func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Code == "" {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}

	if err := h.store.AddFavorite(r.Context(), req.Code); err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to add favorite", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "ok")
}

func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Code == "" {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}

	if err := h.store.RemoveFavorite(r.Context(), req.Code); err != nil {
		http.Error(w, "Failed to remove favorite", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "ok")
}

func (h *Handlers) CheckFavorite(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}

	isFavorite := h.store.IsFavorite(r.Context(), code)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{"isFavorite": isFavorite})
}
