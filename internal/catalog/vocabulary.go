package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-catalog/internal/logging"
)

// getOrCreateVocab resolves a vocabulary name to its row id inside the given
// transaction, creating the row when absent. Uniqueness is the engine's job:
// insert-or-ignore under the UNIQUE constraint, then select. Never an
// app-level check-then-insert.
func getOrCreateVocab(tx *sql.Tx, table, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("vocabulary name cannot be empty")
	}

	ctx := context.Background()

	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (name) VALUES (?) ON CONFLICT(name) DO NOTHING", table),
		name,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s entry: %w", table, err)
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table),
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s entry: %w", table, err)
	}
	return id, nil
}

// GetOrCreateGenre resolves a genre name to its id within the run transaction.
func (s *Store) GetOrCreateGenre(tx *sql.Tx, name string) (int64, error) {
	return getOrCreateVocab(tx, "genres", name)
}

// GetOrCreateTag resolves a tag name to its id within the run transaction.
func (s *Store) GetOrCreateTag(tx *sql.Tx, name string) (int64, error) {
	return getOrCreateVocab(tx, "tags", name)
}

// replaceItemLinks clears an item's link rows and rebuilds them from the
// ordered name list. Duplicate names collapse onto the UNIQUE pair.
func replaceItemLinks(tx *sql.Tx, vocabTable, linkTable, fkColumn string, itemID int64, names []string) error {
	ctx := context.Background()

	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE item_id = ?", linkTable), itemID,
	)
	if err != nil {
		return err
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		id, err := getOrCreateVocab(tx, vocabTable, name)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			fmt.Sprintf("INSERT OR IGNORE INTO %s (item_id, %s) VALUES (?, ?)", linkTable, fkColumn),
			itemID, id,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReplaceItemGenres rebuilds an item's genre links within the run transaction.
func (s *Store) ReplaceItemGenres(tx *sql.Tx, itemID int64, names []string) error {
	return replaceItemLinks(tx, "genres", "item_genres", "genre_id", itemID, names)
}

// ReplaceItemTags rebuilds an item's tag links within the run transaction.
func (s *Store) ReplaceItemTags(tx *sql.Tx, itemID int64, names []string) error {
	return replaceItemLinks(tx, "tags", "item_tags", "tag_id", itemID, names)
}

// SetItemVocabulary replaces an item's genres and tags in one transaction.
// This is the interactive editing path; the synchronizer goes through the
// run transaction instead.
func (s *Store) SetItemVocabulary(ctx context.Context, code string, genres, tags []string) error {
	done := observeQuery("set_item_vocabulary")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("rollback failed: %v", rbErr)
			}
		}
	}()

	var itemID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM media_items WHERE code = ?", code).Scan(&itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrItemNotFound
		}
		done(err)
		return err
	}

	if err = replaceItemLinks(tx, "genres", "item_genres", "genre_id", itemID, genres); err != nil {
		done(err)
		return err
	}
	if err = replaceItemLinks(tx, "tags", "item_tags", "tag_id", itemID, tags); err != nil {
		done(err)
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		done(commitErr)
		return commitErr
	}
	committed = true
	done(nil)
	return nil
}

// PruneUnreferencedVocabulary deletes genre and tag rows no item links to.
// Only the interactive editing path calls this; synchronization runs never
// prune, so vocabulary shrinks only through deliberate edits.
func (s *Store) PruneUnreferencedVocabulary(ctx context.Context) (int64, error) {
	done := observeQuery("prune_vocabulary")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var pruned int64
	for _, q := range []string{
		"DELETE FROM genres WHERE id NOT IN (SELECT DISTINCT genre_id FROM item_genres)",
		"DELETE FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM item_tags)",
	} {
		result, err := s.db.ExecContext(ctx, q)
		if err != nil {
			done(err)
			return pruned, err
		}
		if rows, err := result.RowsAffected(); err == nil {
			pruned += rows
		}
	}

	done(nil)
	return pruned, nil
}

// listVocabulary returns all names in a vocabulary table with usage counts.
func (s *Store) listVocabulary(ctx context.Context, operation, vocabTable, linkTable, fkColumn string) ([]VocabularyEntry, error) {
	done := observeQuery(operation)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT v.name, COUNT(l.id) as count
		FROM %s v
		LEFT JOIN %s l ON v.id = l.%s
		GROUP BY v.id, v.name
		ORDER BY count DESC, v.name COLLATE NOCASE
	`, vocabTable, linkTable, fkColumn)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []VocabularyEntry
	for rows.Next() {
		var entry VocabularyEntry
		if err := rows.Scan(&entry.Name, &entry.Count); err != nil {
			done(err)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return entries, nil
}

// ListGenres returns all genres with item counts.
func (s *Store) ListGenres(ctx context.Context) ([]VocabularyEntry, error) {
	return s.listVocabulary(ctx, "list_genres", "genres", "item_genres", "genre_id")
}

// ListTags returns all tags with item counts.
func (s *Store) ListTags(ctx context.Context) ([]VocabularyEntry, error) {
	return s.listVocabulary(ctx, "list_tags", "tags", "item_tags", "tag_id")
}
