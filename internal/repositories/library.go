package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/shared"
)

// LibraryRepository stores library tracks received from the server.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a new LibraryRepository with the given database connection
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// ApplyRemote upserts the library delta in one transaction, removing entries the server marked deleted.
func (r *LibraryRepository) ApplyRemote(ctx context.Context, entries []models.LibraryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, e := range entries {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
			}

			if e.Deleted {
				if _, err := tx.ExecContext(ctx, `DELETE FROM library_entries WHERE id = ?`, e.ID); err != nil {
					return fmt.Errorf("failed to delete library entry %d: %w", e.ID, err)
				}
				continue
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO library_entries (id, title, artist, album, duration, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					title = excluded.title,
					artist = excluded.artist,
					album = excluded.album,
					duration = excluded.duration,
					updated_at = excluded.updated_at
			`, e.ID, e.Title, e.Artist, e.Album, e.Duration, now)
			if err != nil {
				return fmt.Errorf("failed to upsert library entry %d: %w", e.ID, err)
			}
		}
		return nil
	})
}

// Get retrieves a library entry by its server ID
func (r *LibraryRepository) Get(ctx context.Context, id int64) (*models.LibraryEntry, error) {
	var e models.LibraryEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, artist, album, duration FROM library_entries WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.Artist, &e.Album, &e.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrLibraryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query library entry: %w", err)
	}
	return &e, nil
}

// List returns library entries ordered by artist and title, optionally filtered by a case-insensitive search term.
func (r *LibraryRepository) List(ctx context.Context, search string) ([]models.LibraryEntry, error) {
	query := `SELECT id, title, artist, album, duration FROM library_entries`
	args := []any{}

	if search != "" {
		query += ` WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY artist ASC, title ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query library entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LibraryEntry
	for rows.Next() {
		var e models.LibraryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Artist, &e.Album, &e.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan library entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
