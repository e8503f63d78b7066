package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/hls"
	"media-catalog/internal/probe"
	"media-catalog/internal/startup"
	"media-catalog/internal/sync"

	"github.com/gorilla/mux"
)

// setupTestHandlers creates a real test environment backed by a temporary
// database and media root.
func setupTestHandlers(t *testing.T) (*Handlers, string) {
	t.Helper()

	tmpDir := t.TempDir()
	mediaDir := filepath.Join(tmpDir, "media")
	cacheDir := filepath.Join(tmpDir, "cache")

	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatalf("Failed to create media dir: %v", err)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		t.Fatalf("Failed to create cache dir: %v", err)
	}

	store, err := catalog.New(context.Background(), filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	syncer := sync.New(store, []string{mediaDir})
	prober := probe.New(filepath.Join(tmpDir, "missing-ffprobe")) // Unavailable in tests

	config := &startup.Config{
		MediaDirs:           []string{mediaDir},
		CacheDir:            cacheDir,
		SegmentBytes:        2 * hls.TSPacketSize,
		ArtworkCacheDir:     filepath.Join(cacheDir, "artwork"),
		ArtworkCacheEnabled: true,
	}

	return New(store, syncer, prober, config), mediaDir
}

// seedItem writes a sidecar and optional video file under mediaDir and
// runs a scan so the item lands in the catalog.
func seedItem(t *testing.T, h *Handlers, mediaDir, code, title, videoName string, videoSize int, genres, tags []string) {
	t.Helper()

	dir := filepath.Join(mediaDir, code)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create item dir: %v", err)
	}

	body := "<movie>\n    <title>" + title + "</title>\n"
	for _, g := range genres {
		body += "    <genre>" + g + "</genre>\n"
	}
	for _, tag := range tags {
		body += "    <tag>" + tag + "</tag>\n"
	}
	body += "    <actor>\n        <name>Sam Example</name>\n        <role>Lead</role>\n    </actor>\n"
	body += "</movie>\n"

	if err := os.WriteFile(filepath.Join(dir, code+".nfo"), []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}

	if videoName != "" {
		if err := os.WriteFile(filepath.Join(dir, videoName), make([]byte, videoSize), 0o644); err != nil {
			t.Fatalf("Failed to write video: %v", err)
		}
	}

	if _, err := h.sync.Run(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
}

func writeTestPoster(t *testing.T, dir, name string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 600, 900))
	for y := 0; y < 900; y++ {
		for x := 0; x < 600; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}
}

// =============================================================================
// Auth Tests
// =============================================================================

func TestSetupFlow(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/setup-required", http.NoBody)
	w := httptest.NewRecorder()
	h.CheckSetupRequired(w, req)

	var check map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&check); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !check["needsSetup"] {
		t.Error("Expected needsSetup=true for fresh database")
	}

	// Short passwords are rejected
	body, _ := json.Marshal(SetupRequest{Password: "abc"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/setup", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.Setup(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for short password, got %d", w.Code)
	}

	body, _ = json.Marshal(SetupRequest{Password: "testpassword123"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/setup", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.Setup(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for setup, got %d", w.Code)
	}

	// Second setup is forbidden
	req = httptest.NewRequest(http.MethodPost, "/api/auth/setup", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.Setup(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for repeat setup, got %d", w.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	h, _ := setupTestHandlers(t)

	if err := h.store.CreateUser("testpassword123"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	// Wrong password
	body, _ := json.Marshal(LoginRequest{Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", w.Code)
	}

	// Correct password sets a session cookie
	body, _ = json.Marshal(LoginRequest{Password: "testpassword123"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for login, got %d", w.Code)
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("Expected session cookie after login")
	}

	// CheckAuth accepts the cookie
	req = httptest.NewRequest(http.MethodGet, "/api/auth/check", http.NoBody)
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	h.CheckAuth(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for valid session, got %d", w.Code)
	}

	// Logout invalidates the session
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", http.NoBody)
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	h.Logout(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for logout, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/check", http.NoBody)
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	h.CheckAuth(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	h, _ := setupTestHandlers(t)

	if err := h.store.CreateUser("testpassword123"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	user, err := h.store.ValidatePassword("testpassword123")
	if err != nil {
		t.Fatalf("Failed to validate password: %v", err)
	}
	session, err := h.store.CreateSession(user.ID)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := h.AuthMiddleware(next)

	tests := []struct {
		name       string
		path       string
		token      string
		viaQuery   bool
		wantStatus int
	}{
		{name: "Health is public", path: "/health", wantStatus: http.StatusOK},
		{name: "Auth endpoints are public", path: "/api/auth/login", wantStatus: http.StatusOK},
		{name: "API requires session", path: "/api/items", wantStatus: http.StatusUnauthorized},
		{name: "Bearer token accepted", path: "/api/items", token: session.Token, wantStatus: http.StatusOK},
		{name: "Query token accepted", path: "/api/stream/ABC-123", token: session.Token, viaQuery: true, wantStatus: http.StatusOK},
		{name: "Invalid token rejected", path: "/api/items", token: "deadbeef", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.path
			if tt.viaQuery && tt.token != "" {
				target += "?token=" + tt.token
			}
			req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
			if !tt.viaQuery && tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

// =============================================================================
// Item Tests
// =============================================================================

func TestListItemsAndSearch(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, []string{"Drama"}, nil)
	seedItem(t, h, mediaDir, "XYZ-777", "Second Movie", "XYZ-777.ts", 4096, []string{"Action"}, []string{"favorite"})

	req := httptest.NewRequest(http.MethodGet, "/api/items", http.NoBody)
	w := httptest.NewRecorder()
	h.ListItems(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var result catalog.ListResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", result.TotalItems)
	}

	// Search narrows by code
	req = httptest.NewRequest(http.MethodGet, "/api/items?q=XYZ", http.NoBody)
	w = httptest.NewRecorder()
	h.ListItems(w, req)
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.TotalItems != 1 || len(result.Items) != 1 || result.Items[0].Code != "XYZ-777" {
		t.Errorf("Search result = %+v, want only XYZ-777", result)
	}

	// Genre filter
	req = httptest.NewRequest(http.MethodGet, "/api/items?genre=Drama", http.NoBody)
	w = httptest.NewRecorder()
	h.ListItems(w, req)
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.TotalItems != 1 || result.Items[0].Code != "ABC-123" {
		t.Errorf("Genre filter returned %+v, want only ABC-123", result)
	}
}

func TestGetItemDetail(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, []string{"Drama"}, []string{"favorite"})

	req := httptest.NewRequest(http.MethodGet, "/api/items/ABC-123", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.GetItem(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var detail ItemDetail
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if detail.Code != "ABC-123" || detail.Title != "First Movie" {
		t.Errorf("Detail = %+v, want ABC-123 / First Movie", detail.MediaItem)
	}
	if len(detail.Actors) != 1 || detail.Actors[0].Name != "Sam Example" {
		t.Errorf("Actors = %+v, want Sam Example", detail.Actors)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/items/NOPE-000", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "NOPE-000"})
	w = httptest.NewRecorder()
	h.GetItem(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown code, got %d", w.Code)
	}
}

// =============================================================================
// Artwork Tests
// =============================================================================

func TestGetPoster(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, nil, nil)
	writeTestPoster(t, filepath.Join(mediaDir, "ABC-123"), "ABC-123-poster.png")

	req := httptest.NewRequest(http.MethodGet, "/api/items/ABC-123/poster", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.GetPoster(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("Expected image bytes in response")
	}

	// Grid size returns a resized JPEG
	req = httptest.NewRequest(http.MethodGet, "/api/items/ABC-123/poster?size=grid", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w = httptest.NewRecorder()
	h.GetPoster(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for grid poster, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", got)
	}
}

func TestGetPosterMissing(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/items/ABC-123/poster", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.GetPoster(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing artwork, got %d", w.Code)
	}
}

// =============================================================================
// Vocabulary Tests
// =============================================================================

func TestSetItemVocabularyWritesSidecar(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, []string{"Drama"}, []string{"old-tag"})

	body, _ := json.Marshal(VocabularyRequest{
		Genres: []string{"Action", "Thriller"},
		Tags:   []string{"new-tag"},
	})
	req := httptest.NewRequest(http.MethodPut, "/api/items/ABC-123/tags", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.SetItemVocabulary(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	item, err := h.store.GetItemByCode(context.Background(), "ABC-123")
	if err != nil {
		t.Fatalf("Failed to get item: %v", err)
	}
	if len(item.Genres) != 2 || item.Genres[0] != "Action" || item.Genres[1] != "Thriller" {
		t.Errorf("Genres = %v, want [Action Thriller]", item.Genres)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "new-tag" {
		t.Errorf("Tags = %v, want [new-tag]", item.Tags)
	}

	// Sidecar document now carries the replacement sets
	doc, err := os.ReadFile(item.NFOPath)
	if err != nil {
		t.Fatalf("Failed to read sidecar: %v", err)
	}
	if !strings.Contains(string(doc), "Thriller") || strings.Contains(string(doc), "old-tag") {
		t.Errorf("Sidecar not rewritten correctly:\n%s", doc)
	}

	// The orphaned Drama genre and old-tag were pruned
	genres, err := h.store.ListGenres(context.Background())
	if err != nil {
		t.Fatalf("Failed to list genres: %v", err)
	}
	for _, g := range genres {
		if g.Name == "Drama" {
			t.Error("Expected Drama to be pruned after replacement")
		}
	}
}

func TestListGenresAndTags(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "", 0, []string{"Drama", "Action"}, []string{"favorite"})

	req := httptest.NewRequest(http.MethodGet, "/api/genres", http.NoBody)
	w := httptest.NewRecorder()
	h.ListGenres(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var genres []catalog.VocabularyEntry
	if err := json.NewDecoder(w.Body).Decode(&genres); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(genres) != 2 {
		t.Errorf("Genres = %v, want 2 entries", genres)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tags", http.NoBody)
	w = httptest.NewRecorder()
	h.ListTags(w, req)

	var tags []catalog.VocabularyEntry
	if err := json.NewDecoder(w.Body).Decode(&tags); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "favorite" || tags[0].Count != 1 {
		t.Errorf("Tags = %v, want favorite with count 1", tags)
	}
}

// =============================================================================
// Favorites Tests
// =============================================================================

func TestFavoritesEndpoints(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, nil, nil)

	body, _ := json.Marshal(FavoriteRequest{Code: "ABC-123"})
	req := httptest.NewRequest(http.MethodPost, "/api/favorites", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.AddFavorite(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/favorites/check?code=ABC-123", http.NoBody)
	w = httptest.NewRecorder()
	h.CheckFavorite(w, req)

	var check map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&check); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !check["isFavorite"] {
		t.Error("Expected isFavorite=true after add")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/favorites", http.NoBody)
	w = httptest.NewRecorder()
	h.GetFavorites(w, req)

	var favorites []catalog.MediaItem
	if err := json.NewDecoder(w.Body).Decode(&favorites); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(favorites) != 1 || favorites[0].Code != "ABC-123" {
		t.Errorf("Favorites = %+v, want ABC-123", favorites)
	}

	body, _ = json.Marshal(FavoriteRequest{Code: "ABC-123"})
	req = httptest.NewRequest(http.MethodDelete, "/api/favorites", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.RemoveFavorite(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	// Unknown codes are rejected
	body, _ = json.Marshal(FavoriteRequest{Code: "NOPE-000"})
	req = httptest.NewRequest(http.MethodPost, "/api/favorites", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.AddFavorite(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown code, got %d", w.Code)
	}
}

// =============================================================================
// Scan Tests
// =============================================================================

func TestTriggerScan(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)

	dir := filepath.Join(mediaDir, "ABC-123")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ABC-123.nfo"), []byte("<movie><title>A</title></movie>"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scan", http.NoBody)
	w := httptest.NewRecorder()
	h.TriggerScan(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ScanResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "completed" || resp.Processed != 1 {
		t.Errorf("Scan response = %+v, want completed with 1 processed", resp)
	}

	// Completion time was recorded
	lastRun, err := h.store.GetLastSyncRun(context.Background())
	if err != nil {
		t.Fatalf("Failed to get last sync run: %v", err)
	}
	if lastRun.IsZero() {
		t.Error("Expected last sync run timestamp to be set")
	}
}

func TestGetScanStatus(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scan", http.NoBody)
	w := httptest.NewRecorder()
	h.GetScanStatus(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if running, ok := status["running"].(bool); !ok || running {
		t.Errorf("Expected running=false, got %v", status["running"])
	}
	if _, present := status["lastSynced"]; present {
		t.Errorf("Expected no lastSynced before any run, got %v", status["lastSynced"])
	}

	// After a run the synchronizer's completion time is reported.
	if _, err := h.sync.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	w = httptest.NewRecorder()
	h.GetScanStatus(w, req)
	status = map[string]interface{}{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	lastSynced, ok := status["lastSynced"].(string)
	if !ok {
		t.Fatalf("Expected lastSynced after a run, got %v", status["lastSynced"])
	}
	if _, err := time.Parse(time.RFC3339, lastSynced); err != nil {
		t.Errorf("lastSynced is not RFC3339: %v", err)
	}
}

// =============================================================================
// Stream and Playlist Tests
// =============================================================================

func TestStreamVideo(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/ABC-123", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.StreamVideo(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if w.Body.Len() != 4096 {
		t.Errorf("Body length = %d, want 4096", w.Body.Len())
	}
}

func TestStreamVideoRangeRequest(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.ts", 4096, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/ABC-123", http.NoBody)
	req.Header.Set("Range", "bytes=188-375")
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.StreamVideo(w, req)
	if w.Code != http.StatusPartialContent {
		t.Fatalf("Expected 206, got %d", w.Code)
	}
	if w.Body.Len() != 188 {
		t.Errorf("Range body length = %d, want 188", w.Body.Len())
	}
}

func TestStreamVideoMissing(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "No Video", "", 0, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/ABC-123", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.StreamVideo(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for item without video, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stream/NOPE-000", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "NOPE-000"})
	w = httptest.NewRecorder()
	h.StreamVideo(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown item, got %d", w.Code)
	}
}

func TestGetPlaylist(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)

	// 3 full 2-packet segments plus a partial trailing packet that no
	// segment may address.
	size := 3*2*hls.TSPacketSize + 50
	seedItem(t, h, mediaDir, "ABC-123", "TS Movie", "ABC-123.ts", size, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/ABC-123/playlist.m3u8?token=sekret", http.NoBody)
	req.Host = "catalog.example.com"
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.GetPlaylist(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "application/vnd.apple.mpegurl" {
		t.Errorf("Content-Type = %q, want application/vnd.apple.mpegurl", got)
	}

	playlist := w.Body.String()
	if !strings.HasPrefix(playlist, "#EXTM3U") {
		t.Errorf("Playlist missing header:\n%s", playlist)
	}
	if !strings.Contains(playlist, "#EXT-X-ENDLIST") {
		t.Errorf("Playlist missing end marker:\n%s", playlist)
	}
	if got := strings.Count(playlist, "#EXT-X-BYTERANGE:"); got != 3 {
		t.Errorf("Byte-range count = %d, want 3:\n%s", got, playlist)
	}
	if !strings.Contains(playlist, "http://catalog.example.com/api/stream/ABC-123?token=sekret") {
		t.Errorf("Playlist segment URL missing host or token:\n%s", playlist)
	}
	// The 50 trailing bytes never appear in any range
	if strings.Contains(playlist, "50@") {
		t.Errorf("Partial packet leaked into playlist:\n%s", playlist)
	}
}

func TestGetPlaylistRejectsNonTransportStream(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "MP4 Movie", "ABC-123.mp4", 4096, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/ABC-123/playlist.m3u8", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.GetPlaylist(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non transport stream, got %d", w.Code)
	}
}

// writeFakeAnalyzer writes an executable stand-in for ffprobe. versionExit
// controls the self-check result; duration queries always answer 60.0 and
// record their invocation in markerFile.
func writeFakeAnalyzer(t *testing.T, versionExit int, markerFile string) string {
	t.Helper()
	script := fmt.Sprintf("#!/bin/sh\nif [ \"$1\" = \"-version\" ]; then exit %d; fi\ntouch %q\necho 60.0\n", versionExit, markerFile)
	path := filepath.Join(t.TempDir(), "fake-ffprobe")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write fake analyzer: %v", err)
	}
	return path
}

func TestGetPlaylistUnavailableAnalyzer(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)

	// The analyzer fails its self-check but would happily answer duration
	// queries; the playlist must stay nominal and never consult it.
	marker := filepath.Join(t.TempDir(), "invoked")
	h.prober = probe.New(writeFakeAnalyzer(t, 1, marker))
	if h.prober.Available() {
		t.Fatal("Fake analyzer unexpectedly passed its self-check")
	}

	size := 3 * 2 * hls.TSPacketSize
	seedItem(t, h, mediaDir, "ABC-123", "TS Movie", "ABC-123.ts", size, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/ABC-123/playlist.m3u8", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.GetPlaylist(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	playlist := w.Body.String()
	if !strings.Contains(playlist, "#EXT-X-TARGETDURATION:5\n") {
		t.Errorf("Expected nominal target duration:\n%s", playlist)
	}
	if !strings.Contains(playlist, "#EXTINF:4.0,\n") {
		t.Errorf("Expected nominal segment durations:\n%s", playlist)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("Analyzer was queried despite failing its self-check")
	}
}

func TestGetPlaylistProbedDuration(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)

	marker := filepath.Join(t.TempDir(), "invoked")
	h.prober = probe.New(writeFakeAnalyzer(t, 0, marker))
	if !h.prober.Available() {
		t.Fatal("Fake analyzer failed its self-check")
	}

	// 60 probed seconds spread over 3 segments
	size := 3 * 2 * hls.TSPacketSize
	seedItem(t, h, mediaDir, "ABC-123", "TS Movie", "ABC-123.ts", size, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/ABC-123/playlist.m3u8", http.NoBody)
	req = mux.SetURLVars(req, map[string]string{"code": "ABC-123"})
	w := httptest.NewRecorder()
	h.GetPlaylist(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	playlist := w.Body.String()
	if !strings.Contains(playlist, "#EXTINF:20.0,\n") {
		t.Errorf("Expected probed duration spread across segments:\n%s", playlist)
	}
	if !strings.Contains(playlist, "#EXT-X-TARGETDURATION:20\n") {
		t.Errorf("Expected target duration raised to match segments:\n%s", playlist)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("Expected analyzer to be queried: %v", err)
	}
}

// =============================================================================
// Health and Version Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	h, mediaDir := setupTestHandlers(t)
	seedItem(t, h, mediaDir, "ABC-123", "First Movie", "ABC-123.mp4", 4096, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()
	h.HealthCheck(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != statusHealthy || !resp.Ready {
		t.Errorf("Health = %+v, want healthy and ready", resp)
	}
	if resp.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", resp.TotalItems)
	}
	if resp.ProbeAvailable {
		t.Error("Expected probe to be unavailable in tests")
	}
}

func TestLivenessAndReadiness(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", http.NoBody)
	w := httptest.NewRecorder()
	h.LivenessCheck(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Liveness status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodHead, "/livez", http.NoBody)
	w = httptest.NewRecorder()
	h.LivenessCheck(w, req)
	if w.Body.Len() != 0 {
		t.Error("Expected empty body for HEAD liveness request")
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	w = httptest.NewRecorder()
	h.ReadinessCheck(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Readiness status = %d, want 200", w.Code)
	}
}

func TestGetVersion(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/version", http.NoBody)
	w := httptest.NewRecorder()
	h.GetVersion(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var info startup.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info.Version == "" || info.GoVersion == "" {
		t.Errorf("BuildInfo = %+v, want populated version fields", info)
	}
}
