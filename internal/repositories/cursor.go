package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/udj/internal/shared"
)

// CursorRepository tracks the last fully successful sync per account.
type CursorRepository struct {
	db *sql.DB
}

// NewCursorRepository creates a new CursorRepository with the given database connection
func NewCursorRepository(db *sql.DB) *CursorRepository {
	return &CursorRepository{db: db}
}

// Get returns the account's cursor, or nil before the first successful sync.
func (r *CursorRepository) Get(ctx context.Context, account string) (*time.Time, error) {
	var at time.Time
	err := r.db.QueryRowContext(ctx, `SELECT last_synced_at FROM sync_cursors WHERE account = ?`, account).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync cursor: %w", err)
	}

	at = at.UTC()
	return &at, nil
}

// Advance moves the account's cursor to at and returns the stored value.
//
// The cursor never moves backwards: an earlier at leaves the stored value in place.
func (r *CursorRepository) Advance(ctx context.Context, account string, at time.Time) (time.Time, error) {
	at = at.UTC()
	stored := at

	err := shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current time.Time
		err := tx.QueryRowContext(ctx, `SELECT last_synced_at FROM sync_cursors WHERE account = ?`, account).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `INSERT INTO sync_cursors (account, last_synced_at) VALUES (?, ?)`, account, at)
		case err != nil:
			return fmt.Errorf("failed to query sync cursor: %w", err)
		case !at.After(current):
			stored = current.UTC()
			return nil
		default:
			_, err = tx.ExecContext(ctx, `UPDATE sync_cursors SET last_synced_at = ? WHERE account = ?`, at, account)
		}
		if err != nil {
			return fmt.Errorf("failed to store sync cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	return stored, nil
}

// Reset forgets the account's cursor so the next cycle performs a full sync.
func (r *CursorRepository) Reset(ctx context.Context, account string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_cursors WHERE account = ?`, account); err != nil {
		return fmt.Errorf("failed to reset sync cursor: %w", err)
	}
	return nil
}
