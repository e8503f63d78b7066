package catalog

import (
	"context"
	"database/sql"
	"errors"

	"media-catalog/internal/logging"
)

// AddFavorite marks an item as a favorite by code.
func (s *Store) AddFavorite(ctx context.Context, code string) error {
	done := observeQuery("add_favorite")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	itemID, err := s.itemIDByCodeUnlocked(ctx, code)
	if err != nil {
		done(err)
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO favorites (item_id) VALUES (?)
		ON CONFLICT(item_id) DO NOTHING
	`, itemID)
	done(err)
	return err
}

// RemoveFavorite clears an item's favorite mark by code.
func (s *Store) RemoveFavorite(ctx context.Context, code string) error {
	done := observeQuery("remove_favorite")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE item_id = (SELECT id FROM media_items WHERE code = ?)
	`, code)
	done(err)
	return err
}

// IsFavorite reports whether the item with the given code is favorited.
func (s *Store) IsFavorite(ctx context.Context, code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM favorites f
		INNER JOIN media_items m ON f.item_id = m.id
		WHERE m.code = ?
	`, code).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// GetFavorites returns all favorited items, most recently favorited first.
func (s *Store) GetFavorites(ctx context.Context) ([]MediaItem, error) {
	done := observeQuery("get_favorites")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT m.id, m.code, m.title, m.description, m.nfo_path, m.video_path,
	       m.video_type, m.file_size, m.file_mtime, m.rating, m.year, m.runtime,
	       m.studio, m.actors_json, m.last_synced_at, m.created_at, m.updated_at
	FROM favorites f
	INNER JOIN media_items m ON f.item_id = m.id
	ORDER BY f.created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var favorites []MediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			continue
		}

		item.IsFavorite = true
		item.Genres, _ = s.itemVocabularyUnlocked(ctx, "genres", "item_genres", "genre_id", item.ID)
		item.Tags, _ = s.itemVocabularyUnlocked(ctx, "tags", "item_tags", "tag_id", item.ID)

		favorites = append(favorites, *item)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return favorites, nil
}

// GetFavoriteCount returns the number of favorited items.
func (s *Store) GetFavoriteCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites").Scan(&count); err != nil {
		return 0
	}
	return count
}

// itemIDByCodeUnlocked resolves a code to a row id. Caller must hold a lock.
func (s *Store) itemIDByCodeUnlocked(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM media_items WHERE code = ?", code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrItemNotFound
	}
	return id, err
}

// isFavoriteUnlocked checks the favorite mark by item id without locking.
// Caller must hold at least a read lock.
func (s *Store) isFavoriteUnlocked(ctx context.Context, itemID int64) bool {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE item_id = ?", itemID,
	).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}
