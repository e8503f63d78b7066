package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-catalog/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Scanning   bool   `json:"scanning"`
	LastSynced string `json:"lastSynced,omitempty"`

	// Last scan summary
	ItemsProcessed int `json:"itemsProcessed"`
	ItemsSkipped   int `json:"itemsSkipped"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Catalog summary
	TotalItems     int  `json:"totalItems"`
	TotalFavorites int  `json:"totalFavorites"`
	ProbeAvailable bool `json:"probeAvailable"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.store.GetStats()

	response := HealthResponse{
		Status:         statusHealthy,
		Ready:          true,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Scanning:       h.sync.IsRunning(),
		ItemsProcessed: stats.Processed,
		ItemsSkipped:   stats.Skipped,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
		TotalItems:     h.store.GetItemCount(r.Context()),
		TotalFavorites: h.store.GetFavoriteCount(r.Context()),
		ProbeAvailable: h.prober.Available(),
	}

	if !stats.LastSynced.IsZero() {
		response.LastSynced = stats.LastSynced.Format(time.RFC3339)
	} else if h.sync.IsRunning() {
		response.Status = statusStarting
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the catalog can answer queries
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.store != nil {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
