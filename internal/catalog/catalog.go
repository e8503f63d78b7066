package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for store operations
const defaultTimeout = 5 * time.Second

// Store manages the relational catalog behind the synchronizer and the API.
type Store struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	stats   SyncStats
	statsMu sync.RWMutex
	txStart time.Time // Track run transaction start time for metrics
}

// New opens (or creates) the catalog database at dbPath and ensures the
// schema exists. dbPath must be the full path to the database file; the
// parent directory must already exist and be writable (startup.LoadConfig
// validates this).
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Catalog database path: %s", dbPath)

	// WAL mode and busy_timeout prevent "database is locked" errors when a
	// sync run transaction overlaps API reads. Foreign keys must be enabled
	// per connection for the ON DELETE CASCADE links to fire.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	// Allow multiple readers while a sync run holds its write transaction
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Info("Catalog database initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	-- Cataloged items, one row per library code
	CREATE TABLE IF NOT EXISTS media_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		nfo_path TEXT NOT NULL,
		video_path TEXT NOT NULL DEFAULT '',
		video_type TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		file_mtime INTEGER NOT NULL DEFAULT 0,
		rating REAL NOT NULL DEFAULT 0,
		year INTEGER NOT NULL DEFAULT 0,
		runtime INTEGER NOT NULL DEFAULT 0,
		studio TEXT NOT NULL DEFAULT '',
		actors_json TEXT NOT NULL DEFAULT '',
		last_synced_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_media_items_code ON media_items(code);
	CREATE INDEX IF NOT EXISTS idx_media_items_title ON media_items(title COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_media_items_mtime ON media_items(file_mtime);

	-- Shared vocabulary, uniqueness enforced by the engine
	CREATE TABLE IF NOT EXISTS genres (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS item_genres (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL,
		genre_id INTEGER NOT NULL,
		FOREIGN KEY (item_id) REFERENCES media_items(id) ON DELETE CASCADE,
		FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE,
		UNIQUE(item_id, genre_id)
	);

	CREATE INDEX IF NOT EXISTS idx_item_genres_item ON item_genres(item_id);
	CREATE INDEX IF NOT EXISTS idx_item_genres_genre ON item_genres(genre_id);

	CREATE TABLE IF NOT EXISTS item_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		FOREIGN KEY (item_id) REFERENCES media_items(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE,
		UNIQUE(item_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS idx_item_tags_item ON item_tags(item_id);
	CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag_id);

	-- Favorites table
	CREATE TABLE IF NOT EXISTS favorites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL UNIQUE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (item_id) REFERENCES media_items(id) ON DELETE CASCADE
	);

	-- Users table (single user, password only)
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Sessions table
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	-- Metadata table
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun starts the single write transaction covering one synchronization
// run. All item upserts and vocabulary rebuilds of the run go through the
// returned transaction; EndRun commits or rolls back the whole run at once.
func (s *Store) BeginRun() (*sql.Tx, error) {
	s.mu.Lock()
	txStart := time.Now()

	// Background context: the transaction's lifetime is managed by EndRun,
	// not a timeout. A context with defer cancel() here would abort the
	// transaction as soon as this function returned.
	tx, err := s.db.BeginTx(context.Background(), nil)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	s.txStart = txStart
	return tx, nil
}

// EndRun commits the run transaction, or rolls it back when err is non-nil.
func (s *Store) EndRun(tx *sql.Tx, err error) error {
	duration := time.Since(s.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// UpdateStats updates the cached synchronization statistics.
func (s *Store) UpdateStats(stats SyncStats) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats = stats
}

// GetStats returns the most recent synchronization statistics.
func (s *Store) GetStats() SyncStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// Vacuum optimizes the database.
func (s *Store) Vacuum() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = s.db.ExecContext(ctx, "VACUUM")
	return err
}

// recordQuery records store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// observeQuery starts a query timer; call the returned func with the final
// error to record the observation.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) { recordQuery(operation, start, err) }
}

// UpdateDBMetrics updates database connection metrics
func (s *Store) UpdateDBMetrics() {
	stats := s.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}
