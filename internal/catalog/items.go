package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-catalog/internal/logging"
)

// ErrItemNotFound is returned when no item exists for a given code.
var ErrItemNotFound = errors.New("item not found")

// UpsertItem inserts or fully refreshes an item record within the run
// transaction, keyed by code. Every descriptive field is overwritten from
// the current sidecar state; the transaction controls the operation's
// lifecycle. On return item.ID holds the row id.
func (s *Store) UpsertItem(tx *sql.Tx, item *MediaItem) error {
	query := `
	INSERT INTO media_items (
		code, title, description, nfo_path, video_path, video_type,
		file_size, file_mtime, rating, year, runtime, studio, actors_json,
		last_synced_at, updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'), strftime('%s', 'now'))
	ON CONFLICT(code) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		nfo_path = excluded.nfo_path,
		video_path = excluded.video_path,
		video_type = excluded.video_type,
		file_size = excluded.file_size,
		file_mtime = excluded.file_mtime,
		rating = excluded.rating,
		year = excluded.year,
		runtime = excluded.runtime,
		studio = excluded.studio,
		actors_json = excluded.actors_json,
		last_synced_at = strftime('%s', 'now'),
		updated_at = strftime('%s', 'now')
	`

	// Background context: the run transaction owns the lifecycle.
	_, err := tx.ExecContext(context.Background(), query,
		item.Code,
		item.Title,
		item.Description,
		item.NFOPath,
		item.VideoPath,
		item.VideoType,
		item.FileSize,
		item.FileMTime.Unix(),
		item.Rating,
		item.Year,
		item.Runtime,
		item.Studio,
		item.ActorsJSON,
	)
	if err != nil {
		return err
	}

	return tx.QueryRowContext(context.Background(),
		"SELECT id FROM media_items WHERE code = ?", item.Code,
	).Scan(&item.ID)
}

// GetItemByCode retrieves a single item with its vocabulary and favorite
// flag. Returns ErrItemNotFound when the code is unknown.
func (s *Store) GetItemByCode(ctx context.Context, code string) (*MediaItem, error) {
	done := observeQuery("get_item_by_code")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT id, code, title, description, nfo_path, video_path, video_type,
	       file_size, file_mtime, rating, year, runtime, studio, actors_json,
	       last_synced_at, created_at, updated_at
	FROM media_items WHERE code = ?
	`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrItemNotFound
		}
		done(err)
		return nil, err
	}

	item.Genres, _ = s.itemVocabularyUnlocked(ctx, "genres", "item_genres", "genre_id", item.ID)
	item.Tags, _ = s.itemVocabularyUnlocked(ctx, "tags", "item_tags", "tag_id", item.ID)
	item.IsFavorite = s.isFavoriteUnlocked(ctx, item.ID)

	done(nil)
	return item, nil
}

// ListItems returns one page of items, optionally filtered by a substring
// search over code and title or by an exact genre/tag name.
func (s *Store) ListItems(ctx context.Context, opts ListOptions) (*ListResult, error) {
	done := observeQuery("list_items")

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.PageSize > 200 {
		opts.PageSize = 200
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	where, args := buildItemFilter(opts)

	var totalItems int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT m.id) FROM media_items m"+where, args...,
	).Scan(&totalItems)
	if err != nil {
		done(err)
		return nil, err
	}

	totalPages := (totalItems + opts.PageSize - 1) / opts.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	offset := (opts.Page - 1) * opts.PageSize

	query := `
	SELECT DISTINCT m.id, m.code, m.title, m.description, m.nfo_path, m.video_path,
	       m.video_type, m.file_size, m.file_mtime, m.rating, m.year, m.runtime,
	       m.studio, m.actors_json, m.last_synced_at, m.created_at, m.updated_at
	FROM media_items m` + where + `
	ORDER BY m.code
	LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, append(args, opts.PageSize, offset)...)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var items []MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			continue
		}

		item.Genres, _ = s.itemVocabularyUnlocked(ctx, "genres", "item_genres", "genre_id", item.ID)
		item.Tags, _ = s.itemVocabularyUnlocked(ctx, "tags", "item_tags", "tag_id", item.ID)
		item.IsFavorite = s.isFavoriteUnlocked(ctx, item.ID)

		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return &ListResult{
		Items:      items,
		Query:      opts.Query,
		TotalItems: totalItems,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetItemCount returns the total number of cataloged items.
func (s *Store) GetItemCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_items").Scan(&count); err != nil {
		return 0
	}
	return count
}

// buildItemFilter assembles the WHERE clause for ListItems.
func buildItemFilter(opts ListOptions) (string, []any) {
	var clauses []string
	var args []any
	joins := ""

	if opts.Query != "" {
		clauses = append(clauses, "(m.code LIKE ? COLLATE NOCASE OR m.title LIKE ? COLLATE NOCASE)")
		pattern := "%" + opts.Query + "%"
		args = append(args, pattern, pattern)
	}
	if opts.Genre != "" {
		joins += " INNER JOIN item_genres ig ON ig.item_id = m.id INNER JOIN genres g ON g.id = ig.genre_id"
		clauses = append(clauses, "g.name = ?")
		args = append(args, opts.Genre)
	}
	if opts.Tag != "" {
		joins += " INNER JOIN item_tags it ON it.item_id = m.id INNER JOIN tags t ON t.id = it.tag_id"
		clauses = append(clauses, "t.name = ?")
		args = append(args, opts.Tag)
	}

	if len(clauses) == 0 {
		return joins, args
	}
	where := joins + " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*MediaItem, error) {
	var item MediaItem
	var fileMTime, lastSynced, createdAt, updatedAt int64

	err := row.Scan(
		&item.ID, &item.Code, &item.Title, &item.Description,
		&item.NFOPath, &item.VideoPath, &item.VideoType,
		&item.FileSize, &fileMTime, &item.Rating, &item.Year,
		&item.Runtime, &item.Studio, &item.ActorsJSON,
		&lastSynced, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.FileMTime = time.Unix(fileMTime, 0)
	item.LastSyncedAt = time.Unix(lastSynced, 0)
	item.CreatedAt = time.Unix(createdAt, 0)
	item.UpdatedAt = time.Unix(updatedAt, 0)
	return &item, nil
}

// itemVocabularyUnlocked returns the ordered vocabulary names linked to an
// item. Caller must hold at least a read lock.
func (s *Store) itemVocabularyUnlocked(ctx context.Context, vocabTable, linkTable, fkColumn string, itemID int64) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT v.name
		FROM %s v
		INNER JOIN %s l ON v.id = l.%s
		WHERE l.item_id = ?
		ORDER BY l.id
	`, vocabTable, linkTable, fkColumn)

	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			names = append(names, name)
		}
	}
	return names, rows.Err()
}
