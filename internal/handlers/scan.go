package handlers

import (
	"errors"
	"net/http"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/sync"
)

// ScanResponse summarizes a completed library scan.
type ScanResponse struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Duration  string `json:"duration"`
}

// TriggerScan runs a full library synchronization. Only one scan may run
// at a time; concurrent requests are rejected with 409.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.Run()
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			writeJSONError(w, "Scan is already in progress", http.StatusConflict)
			return
		}
		logging.Error("Library scan failed: %v", err)
		http.Error(w, "Scan failed", http.StatusInternalServerError)
		return
	}

	if err := h.store.SetLastSyncRun(r.Context(), time.Now()); err != nil {
		logging.Warn("failed to record scan completion time: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ScanResponse{
		Status:    "completed",
		Processed: result.Processed,
		Skipped:   result.Skipped,
		Duration:  result.Duration.String(),
	})
}

// GetScanStatus reports whether a scan is currently running.
func (h *Handlers) GetScanStatus(w http.ResponseWriter, _ *http.Request) {
	stats := h.store.GetStats()

	status := map[string]interface{}{
		"running":   h.sync.IsRunning(),
		"processed": stats.Processed,
		"skipped":   stats.Skipped,
	}
	// The synchronizer owns the run lifecycle, so its completion time is
	// authoritative for this process.
	if last := h.sync.LastSyncTime(); !last.IsZero() {
		status["lastSynced"] = last.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, status)
}
