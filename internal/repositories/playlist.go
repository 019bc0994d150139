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

// DefaultBatchSize is the number of rows marked in flight per UPDATE statement.
const DefaultBatchSize = 50

const playlistColumns = `id, sequence, library_id, sync_state, pending_state, up_votes, down_votes, position, created_at, updated_at`

// PlaylistRepository persists playlist entries and selects the local delta for a sync cycle.
//
// Every account has its own playlist; all operations are scoped to the account they are given.
type PlaylistRepository struct {
	db        *sql.DB
	batchSize int
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db, batchSize: DefaultBatchSize}
}

// WithBatchSize overrides [DefaultBatchSize]; values below one are ignored.
func (r *PlaylistRepository) WithBatchSize(n int) *PlaylistRepository {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// Insert queues libraryID on account's playlist in the needs_insert state.
func (r *PlaylistRepository) Insert(ctx context.Context, account string, libraryID int64) (*models.PlaylistEntry, error) {
	now := time.Now().UTC()
	entry := models.PlaylistEntry{
		ID:        shared.GenerateID(),
		LibraryID: libraryID,
		State:     models.StateNeedsInsert,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	err := shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, account, entry)
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *PlaylistRepository) insert(ctx context.Context, tx *sql.Tx, account string, e models.PlaylistEntry) error {
	sequence, err := nextSequence(ctx, tx, "playlist_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO playlist_entries (account, id, sequence, library_id, sync_state, pending_state, up_votes, down_votes, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		account, e.ID, sequence, e.LibraryID, string(e.State), e.UpVotes, e.DownVotes, e.Position, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist entry: %w", err)
	}
	return nil
}

// Get retrieves an entry of account's playlist by ID
func (r *PlaylistRepository) Get(ctx context.Context, account, id string) (*models.PlaylistEntry, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlist_entries WHERE account = ? AND id = ?`

	entry, err := scanPlaylistEntry(r.db.QueryRowContext(ctx, query, account, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns account's entries in playlist order: server position first, then local insertion order.
func (r *PlaylistRepository) List(ctx context.Context, account string) ([]models.PlaylistEntry, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlist_entries WHERE account = ? ORDER BY position ASC, sequence ASC`
	return r.query(ctx, query, account)
}

// Vote records an up or down vote for a clean or in-flight entry.
//
// Entries that have not reached the server yet (needs_insert, inserting) cannot be voted on.
func (r *PlaylistRepository) Vote(ctx context.Context, account, id string, up bool) error {
	state := models.StateNeedsDownVote
	if up {
		state = models.StateNeedsUpVote
	}

	return shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := currentState(ctx, tx, account, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to query playlist entry: %w", err)
		}

		switch current {
		case models.StateNeedsInsert, models.StateInserting:
			return fmt.Errorf("%w: %s has not been inserted on the server yet", shared.ErrPendingEntry, id)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE playlist_entries SET sync_state = ?, pending_state = NULL, updated_at = ? WHERE account = ? AND id = ?`,
			string(state), time.Now().UTC(), account, id,
		)
		if err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}
		return nil
	})
}

// Delete removes a clean entry. Entries with unsynced changes are kept until the server acknowledges them.
func (r *PlaylistRepository) Delete(ctx context.Context, account, id string) error {
	return shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := currentState(ctx, tx, account, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to query playlist entry: %w", err)
		}
		if current != models.StateClean {
			return fmt.Errorf("%w: %s is %s", shared.ErrPendingEntry, id, current)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entries WHERE account = ? AND id = ?`, account, id); err != nil {
			return fmt.Errorf("failed to delete playlist entry: %w", err)
		}
		return nil
	})
}

// SelectPending returns account's entries in needs_up_vote, needs_down_vote or needs_insert, oldest first.
//
// The result is a single query, so it reflects one consistent snapshot of the table.
func (r *PlaylistRepository) SelectPending(ctx context.Context, account string) ([]models.PlaylistEntry, error) {
	return r.query(ctx, selectPendingQuery, pendingArgs(account)...)
}

// SelectAndMarkPending selects the pending entries and moves them in flight in one transaction.
//
// needs_insert rows become inserting and vote rows become updating, remembering the original state in pending_state.
// Rows are updated in batches of the configured batch size. The returned entries keep their pending state,
// which is what the server needs to see.
func (r *PlaylistRepository) SelectAndMarkPending(ctx context.Context, account string) ([]models.PlaylistEntry, error) {
	var selected []models.PlaylistEntry

	err := shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectPendingQuery, pendingArgs(account)...)
		if err != nil {
			return fmt.Errorf("failed to query pending entries: %w", err)
		}
		selected, err = collect(rows)
		if err != nil {
			return err
		}

		byState := map[models.SyncState][]string{}
		for _, e := range selected {
			byState[e.State] = append(byState[e.State], e.ID)
		}

		now := time.Now().UTC()
		for _, state := range models.PendingStates {
			for _, ids := range chunk(byState[state], r.batchSize) {
				query := fmt.Sprintf(
					`UPDATE playlist_entries SET sync_state = ?, pending_state = ?, updated_at = ?
					 WHERE account = ? AND sync_state = ? AND id IN (%s)`,
					placeholders(len(ids)),
				)
				args := toArgs([]any{string(state.InFlightState()), string(state), now, account, string(state)}, ids)
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return fmt.Errorf("failed to mark entries in flight: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return selected, nil
}

// AcknowledgeInFlight marks account's in-flight entries from ids clean after the server confirmed the exchange.
//
// Entries that picked up a new pending change while in flight are left alone.
func (r *PlaylistRepository) AcknowledgeInFlight(ctx context.Context, account string, ids []string) error {
	return shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.updateInFlight(ctx, tx, account, ids, acknowledgeSet)
	})
}

// RestoreInFlight returns account's in-flight entries from ids to the pending state they had before selection.
func (r *PlaylistRepository) RestoreInFlight(ctx context.Context, account string, ids []string) error {
	return shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.updateInFlight(ctx, tx, account, ids, restoreSet)
	})
}

const (
	acknowledgeSet = `sync_state = 'clean', pending_state = NULL`
	restoreSet     = `sync_state = pending_state, pending_state = NULL`
)

func (r *PlaylistRepository) updateInFlight(ctx context.Context, tx *sql.Tx, account string, ids []string, set string) error {
	now := time.Now().UTC()
	for _, batch := range chunk(ids, r.batchSize) {
		query := fmt.Sprintf(
			`UPDATE playlist_entries SET %s, updated_at = ?
			 WHERE account = ? AND sync_state IN ('inserting', 'updating') AND pending_state IS NOT NULL AND id IN (%s)`,
			set, placeholders(len(batch)),
		)
		if _, err := tx.ExecContext(ctx, query, toArgs([]any{now, account}, batch)...); err != nil {
			return fmt.Errorf("failed to update in-flight entries: %w", err)
		}
	}
	return nil
}

// RecoverInFlight restores account's in-flight entries to their pending state and returns how many were restored.
//
// Only one cycle runs per account, so in-flight rows of account seen at the start of its cycle belong to an
// interrupted one. Other accounts' rows are never touched.
func (r *PlaylistRepository) RecoverInFlight(ctx context.Context, account string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE playlist_entries SET sync_state = pending_state, pending_state = NULL, updated_at = ?
		WHERE account = ? AND sync_state IN ('inserting', 'updating') AND pending_state IS NOT NULL
	`, time.Now().UTC(), account)
	if err != nil {
		return 0, fmt.Errorf("failed to recover in-flight entries: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// ApplyRemote writes the server's playlist delta for account in one transaction.
//
// Known entries take the server's votes and position; in-flight entries become clean while entries with a newer
// pending change keep it. Unknown entries are inserted clean. Deleted entries are removed unless they still carry a
// pending change.
func (r *PlaylistRepository) ApplyRemote(ctx context.Context, account string, entries []models.PlaylistEntry) error {
	return r.ApplyExchange(ctx, account, nil, entries)
}

// ApplyExchange completes a confirmed exchange in one transaction: the in-flight entries in sent are acknowledged
// and the server's delta is applied as by [PlaylistRepository.ApplyRemote].
func (r *PlaylistRepository) ApplyExchange(ctx context.Context, account string, sent []string, entries []models.PlaylistEntry) error {
	if len(sent) == 0 && len(entries) == 0 {
		return nil
	}

	return shared.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.updateInFlight(ctx, tx, account, sent, acknowledgeSet); err != nil {
			return err
		}
		return r.applyRemote(ctx, tx, account, entries)
	})
}

func (r *PlaylistRepository) applyRemote(ctx context.Context, tx *sql.Tx, account string, entries []models.PlaylistEntry) error {
	now := time.Now().UTC()
	for _, e := range entries {
		current, err := currentState(ctx, tx, account, e.ID)
		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to query playlist entry %s: %w", e.ID, err)
		}

		switch {
		case e.Deleted && !exists:
			continue
		case e.Deleted && current.Pending():
			continue
		case e.Deleted:
			if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entries WHERE account = ? AND id = ?`, account, e.ID); err != nil {
				return fmt.Errorf("failed to delete playlist entry %s: %w", e.ID, err)
			}
		case exists:
			next := current
			if current.InFlight() || current == models.StateClean {
				next = models.StateClean
			}
			_, err := tx.ExecContext(ctx, `
				UPDATE playlist_entries
				SET library_id = ?, up_votes = ?, down_votes = ?, position = ?, sync_state = ?,
				    pending_state = CASE WHEN ? = 'clean' THEN NULL ELSE pending_state END, updated_at = ?
				WHERE account = ? AND id = ?
			`, e.LibraryID, e.UpVotes, e.DownVotes, e.Position, string(next), string(next), now, account, e.ID)
			if err != nil {
				return fmt.Errorf("failed to update playlist entry %s: %w", e.ID, err)
			}
		default:
			e.State = models.StateClean
			e.CreatedAt, e.UpdatedAt = now, now
			if err := e.Validate(); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
			}
			if err := r.insert(ctx, tx, account, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Counts returns the number of account's entries per sync state.
func (r *PlaylistRepository) Counts(ctx context.Context, account string) (map[models.SyncState]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sync_state, COUNT(*) FROM playlist_entries WHERE account = ? GROUP BY sync_state`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to count playlist entries: %w", err)
	}
	defer rows.Close()

	counts := map[models.SyncState]int{}
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.SyncState(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

func (r *PlaylistRepository) query(ctx context.Context, query string, args ...any) ([]models.PlaylistEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist entries: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]models.PlaylistEntry, error) {
	defer rows.Close()

	var entries []models.PlaylistEntry
	for rows.Next() {
		entry, err := scanPlaylistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

const selectPendingQuery = `SELECT ` + playlistColumns + ` FROM playlist_entries
	WHERE account = ? AND sync_state IN (?, ?, ?) ORDER BY sequence ASC`

func pendingArgs(account string) []any {
	args := make([]any, 0, len(models.PendingStates)+1)
	args = append(args, account)
	for _, s := range models.PendingStates {
		args = append(args, string(s))
	}
	return args
}

func currentState(ctx context.Context, tx *sql.Tx, account, id string) (models.SyncState, error) {
	var state string
	err := tx.QueryRowContext(ctx, `SELECT sync_state FROM playlist_entries WHERE account = ? AND id = ?`, account, id).Scan(&state)
	return models.SyncState(state), err
}

// scanPlaylistEntry scans a single row into a [models.PlaylistEntry]
func scanPlaylistEntry(row rowScanner) (*models.PlaylistEntry, error) {
	var (
		e        models.PlaylistEntry
		sequence int
		state    string
		pending  sql.NullString
	)

	err := row.Scan(&e.ID, &sequence, &e.LibraryID, &state, &pending, &e.UpVotes, &e.DownVotes, &e.Position, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist entry: %w", err)
	}

	if e.State, err = models.ParseSyncState(state); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
	}
	if pending.Valid {
		if e.PendingState, err = models.ParseSyncState(pending.String); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
		}
	}

	return &e, nil
}
