// Command media-catalog serves a library of NFO-described videos: it scans
// configured media roots into a SQLite catalog and exposes an authenticated
// HTTP API for browsing, artwork, tag editing, streaming, and byte-range
// HLS playlists.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/handlers"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/probe"
	"media-catalog/internal/startup"
	"media-catalog/internal/sync"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// Initialize catalog store
	dbStart := time.Now()
	store, err := catalog.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize catalog database: %v", err)
	}
	defer store.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Clean up expired sessions periodically
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := store.CleanExpiredSessions(); err != nil {
				logging.Warn("Session cleanup failed: %v", err)
			}
		}
	}()

	// Keep database pool metrics current
	if config.MetricsEnabled {
		go func() {
			ticker := time.NewTicker(1 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				store.UpdateDBMetrics()
			}
		}()
	}

	// Initialize media prober
	prober := probe.New(config.FFProbePath)
	startup.LogProberInit(config.FFProbePath, prober.Available())

	// Initialize library scanner
	startup.LogScannerInit(config.MediaDirs, config.ScanOnStartup)
	syncer := sync.New(store, config.MediaDirs)

	if config.ScanOnStartup {
		go func() {
			result, err := syncer.Run()
			if err != nil {
				logging.Error("Startup scan failed: %v", err)
				return
			}
			if err := store.SetLastSyncRun(context.Background(), time.Now()); err != nil {
				logging.Warn("failed to record scan completion time: %v", err)
			}
			logging.Info("Startup scan complete: %d processed, %d skipped in %v",
				result.Processed, result.Skipped, result.Duration)
		}()
	}

	// Initialize handlers
	h := handlers.New(store, syncer, prober, config)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply authentication middleware
	handler := h.AuthMiddleware(router)

	// Apply request metrics middleware
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Apply access log middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	// Apply compression middleware
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, store)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	if config.MetricsEnabled {
		r.Handle("/metrics", h.MetricsHandler())
	}

	// Auth routes
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/setup-required", h.CheckSetupRequired).Methods("GET")
	auth.HandleFunc("/setup", h.Setup).Methods("POST")
	auth.HandleFunc("/login", h.Login).Methods("POST")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")
	auth.HandleFunc("/check", h.CheckAuth).Methods("GET")
	auth.HandleFunc("/password", h.ChangePassword).Methods("PUT")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/items/{code}", h.GetItem).Methods("GET")
	api.HandleFunc("/items/{code}/poster", h.GetPoster).Methods("GET")
	api.HandleFunc("/items/{code}/fanart", h.GetFanart).Methods("GET")
	api.HandleFunc("/items/{code}/thumb", h.GetThumb).Methods("GET")
	api.HandleFunc("/items/{code}/tags", h.GetItemVocabulary).Methods("GET")
	api.HandleFunc("/items/{code}/tags", h.SetItemVocabulary).Methods("PUT")

	// Vocabulary
	api.HandleFunc("/genres", h.ListGenres).Methods("GET")
	api.HandleFunc("/tags", h.ListTags).Methods("GET")

	// Favorites
	api.HandleFunc("/favorites", h.GetFavorites).Methods("GET")
	api.HandleFunc("/favorites", h.AddFavorite).Methods("POST")
	api.HandleFunc("/favorites", h.RemoveFavorite).Methods("DELETE")
	api.HandleFunc("/favorites/check", h.CheckFavorite).Methods("GET")

	// Library scans
	api.HandleFunc("/scan", h.TriggerScan).Methods("POST")
	api.HandleFunc("/scan", h.GetScanStatus).Methods("GET")

	// Streaming
	api.HandleFunc("/stream/{code}", h.StreamVideo).Methods("GET", "HEAD")
	api.HandleFunc("/stream/{code}/playlist.m3u8", h.GetPlaylist).Methods("GET")

	return r
}

func handleShutdown(srv *http.Server, store *catalog.Store) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if err := store.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
