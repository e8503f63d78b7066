package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"media-catalog/internal/catalog"
)

func setupTestStore(t testing.TB) *catalog.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := catalog.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// writeSidecar writes a minimal sidecar document for code under dir.
func writeSidecar(t testing.TB, dir, code, title string, genres, tags []string) string {
	t.Helper()

	body := "<movie>\n"
	if title != "" {
		body += "    <title>" + title + "</title>\n"
	}
	for _, g := range genres {
		body += "    <genre>" + g + "</genre>\n"
	}
	for _, tag := range tags {
		body += "    <tag>" + tag + "</tag>\n"
	}
	body += "</movie>\n"

	path := filepath.Join(dir, code+".nfo")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}
	return path
}

func writeVideo(t testing.TB, dir, name string, size int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write video file: %v", err)
	}
	return path
}

func TestRunCatalogsItemWithVideo(t *testing.T) {
	store := setupTestStore(t)
	root := t.TempDir()

	dir := filepath.Join(root, "a")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSidecar(t, dir, "ABC-123", "A Movie", []string{"Drama", "Action"}, []string{"favorite"})
	videoPath := writeVideo(t, dir, "ABC-123.mp4", 4096)

	s := New(store, []string{root})
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 1 processed, 0 skipped", result)
	}

	item, err := store.GetItemByCode(context.Background(), "ABC-123")
	if err != nil {
		t.Fatalf("GetItemByCode failed: %v", err)
	}
	if item.Title != "A Movie" {
		t.Errorf("Title = %q, want %q", item.Title, "A Movie")
	}
	if item.VideoPath != videoPath || item.VideoType != ".mp4" {
		t.Errorf("video = %q (%q), want %q (.mp4)", item.VideoPath, item.VideoType, videoPath)
	}
	if item.FileSize != 4096 {
		t.Errorf("FileSize = %d, want 4096 (stat from video, not sidecar)", item.FileSize)
	}
	if len(item.Genres) != 2 || item.Genres[0] != "Drama" {
		t.Errorf("Genres = %v", item.Genres)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "favorite" {
		t.Errorf("Tags = %v", item.Tags)
	}
}

func TestRunSkipsTemplateStems(t *testing.T) {
	store := setupTestStore(t)
	root := t.TempDir()

	for _, stem := range []string{"movie", "Template", "SAMPLE", "example", "test", "default", "Blank"} {
		writeSidecar(t, root, stem, "Should Skip", nil, nil)
	}
	writeSidecar(t, root, "REAL-001", "Real", nil, nil)

	s := New(store, []string{root})
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Processed != 1 {
		t.Errorf("Processed = %d, want 1", result.Processed)
	}
	if result.Skipped != 7 {
		t.Errorf("Skipped = %d, want 7", result.Skipped)
	}
	if n := store.GetItemCount(context.Background()); n != 1 {
		t.Errorf("catalog has %d items, want 1", n)
	}
}

func TestRunFirstWinsAcrossDirectoriesAndRoots(t *testing.T) {
	store := setupTestStore(t)
	root1 := t.TempDir()
	root2 := t.TempDir()

	for i, root := range []string{root1, root2} {
		for _, sub := range []string{"a", "b"} {
			dir := filepath.Join(root, sub)
			if err := os.Mkdir(dir, 0o755); err != nil {
				t.Fatal(err)
			}
			writeSidecar(t, dir, "DUP-001", fmt.Sprintf("Root %d %s", i+1, sub), nil, nil)
		}
	}

	s := New(store, []string{root1, root2})
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 3 {
		t.Errorf("result = %+v, want 1 processed, 3 skipped", result)
	}

	// Lexical walk order: root1/a wins over root1/b and everything in root2.
	item, err := store.GetItemByCode(context.Background(), "DUP-001")
	if err != nil {
		t.Fatalf("GetItemByCode failed: %v", err)
	}
	if item.Title != "Root 1 a" {
		t.Errorf("first-wins picked %q, want %q", item.Title, "Root 1 a")
	}
}

func TestFindVideoExtensionPriority(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, dir, "X.ts", 10)
	writeVideo(t, dir, "X.mp4", 10)

	path, ext := findVideo(dir, "X")
	if ext != ".mp4" || path != filepath.Join(dir, "X.mp4") {
		t.Errorf("findVideo with both = %q (%q), want the .mp4", path, ext)
	}

	dir2 := t.TempDir()
	writeVideo(t, dir2, "Y.ts", 10)
	path, ext = findVideo(dir2, "Y")
	if ext != ".ts" || path != filepath.Join(dir2, "Y.ts") {
		t.Errorf("findVideo with only .ts = %q (%q)", path, ext)
	}

	if path, ext = findVideo(dir2, "Z"); path != "" || ext != "" {
		t.Errorf("findVideo with no media = %q (%q), want empty", path, ext)
	}
}

func TestRunStatsFallBackToSidecar(t *testing.T) {
	store := setupTestStore(t)
	root := t.TempDir()

	nfoPath := writeSidecar(t, root, "NOVID-1", "No Video", nil, nil)
	info, err := os.Stat(nfoPath)
	if err != nil {
		t.Fatal(err)
	}

	s := New(store, []string{root})
	if _, err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	item, err := store.GetItemByCode(context.Background(), "NOVID-1")
	if err != nil {
		t.Fatalf("GetItemByCode failed: %v", err)
	}
	if item.HasVideo() {
		t.Errorf("VideoPath = %q, want empty", item.VideoPath)
	}
	if item.FileSize != info.Size() {
		t.Errorf("FileSize = %d, want sidecar size %d", item.FileSize, info.Size())
	}
}

func TestRunMissingRootIsWarningNotFailure(t *testing.T) {
	store := setupTestStore(t)
	root := t.TempDir()
	writeSidecar(t, root, "OK-001", "Ok", nil, nil)

	missing := filepath.Join(t.TempDir(), "does-not-exist")

	s := New(store, []string{missing, root})
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run with missing root failed: %v", err)
	}
	if result.Processed != 1 {
		t.Errorf("Processed = %d, want 1", result.Processed)
	}
}

func TestRunTitleFallsBackToCode(t *testing.T) {
	store := setupTestStore(t)
	root := t.TempDir()
	writeSidecar(t, root, "NOTITLE-1", "", nil, nil)

	s := New(store, []string{root})
	if _, err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	item, err := store.GetItemByCode(context.Background(), "NOTITLE-1")
	if err != nil {
		t.Fatalf("GetItemByCode failed: %v", err)
	}
	if item.Title != "NOTITLE-1" {
		t.Errorf("Title = %q, want the code", item.Title)
	}
}

func TestRunRefreshReplacesVocabulary(t *testing.T) {
	store := setupTestStore(t)
	root := t.TempDir()

	writeSidecar(t, root, "REF-1", "v1", []string{"Drama"}, []string{"old"})
	s := New(store, []string{root})
	if _, err := s.Run(); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	writeSidecar(t, root, "REF-1", "v2", []string{"Comedy"}, []string{"new"})
	if _, err := s.Run(); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	item, err := store.GetItemByCode(context.Background(), "REF-1")
	if err != nil {
		t.Fatalf("GetItemByCode failed: %v", err)
	}
	if item.Title != "v2" {
		t.Errorf("Title = %q, want v2", item.Title)
	}
	if len(item.Genres) != 1 || item.Genres[0] != "Comedy" {
		t.Errorf("Genres = %v, want [Comedy]", item.Genres)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "new" {
		t.Errorf("Tags = %v, want [new]", item.Tags)
	}
}

func TestRunRejectedWhileInProgress(t *testing.T) {
	store := setupTestStore(t)
	s := New(store, nil)

	if !s.tryStartRun() {
		t.Fatal("tryStartRun should succeed on idle synchronizer")
	}
	defer s.finishRun(false)

	if !s.IsRunning() {
		t.Error("IsRunning should report true while lock is held")
	}

	_, err := s.Run()
	if !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("Run while locked = %v, want ErrSyncInProgress", err)
	}
}
