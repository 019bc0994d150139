package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

const (
	acct  = "kurtis"
	other = "alice"
)

// setupPlaylistDB is [setupTestDB] with the accounts that own test playlists.
func setupPlaylistDB(t *testing.T) *sql.DB {
	t.Helper()
	db := setupTestDB(t)
	for _, name := range []string{acct, other} {
		if err := NewAccountRepository(db).Create(models.NewAccount(name, "org.udj", "pw")); err != nil {
			t.Fatalf("failed to create account %s: %v", name, err)
		}
	}
	return db
}

func mustInsert(t *testing.T, repo *PlaylistRepository, libraryID int64) *models.PlaylistEntry {
	t.Helper()
	return mustInsertFor(t, repo, acct, libraryID)
}

func mustInsertFor(t *testing.T, repo *PlaylistRepository, account string, libraryID int64) *models.PlaylistEntry {
	t.Helper()
	entry, err := repo.Insert(context.Background(), account, libraryID)
	if err != nil {
		t.Fatalf("failed to insert entry: %v", err)
	}
	return entry
}

// setState forces a row into state, bypassing the repository's transition rules.
func setState(t *testing.T, db *sql.DB, id string, state models.SyncState) {
	t.Helper()
	if _, err := db.Exec(`UPDATE playlist_entries SET sync_state = ?, pending_state = NULL WHERE id = ?`, string(state), id); err != nil {
		t.Fatalf("failed to set state: %v", err)
	}
}

func ids(entries []models.PlaylistEntry) map[string]models.PlaylistEntry {
	out := map[string]models.PlaylistEntry{}
	for _, e := range entries {
		out[e.ID] = e
	}
	return out
}

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Insert", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		entry := mustInsert(t, repo, 42)

		if _, err := uuid.Parse(entry.ID); err != nil {
			t.Errorf("expected generated uuid, got %q", entry.ID)
		}
		if entry.State != models.StateNeedsInsert {
			t.Errorf("expected needs_insert, got %s", entry.State)
		}

		got, err := repo.Get(ctx, acct, entry.ID)
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if got.LibraryID != 42 || got.State != models.StateNeedsInsert {
			t.Errorf("unexpected stored entry %+v", got)
		}
	})

	t.Run("Insert rejects invalid library id", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		if _, err := repo.Insert(ctx, acct, 0); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get not found", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		if _, err := repo.Get(ctx, acct, "missing"); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected ErrEntryNotFound, got %v", err)
		}
	})

	t.Run("SelectPending includes only pending states", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)

		states := []models.SyncState{
			models.StateClean,
			models.StateNeedsUpVote,
			models.StateNeedsDownVote,
			models.StateNeedsInsert,
			models.StateInserting,
			models.StateUpdating,
		}
		byState := map[models.SyncState]string{}
		for i, state := range states {
			e := mustInsert(t, repo, int64(i+1))
			setState(t, db, e.ID, state)
			byState[state] = e.ID
		}

		pending, err := repo.SelectPending(ctx, acct)
		if err != nil {
			t.Fatalf("SelectPending failed: %v", err)
		}

		got := ids(pending)
		for _, state := range states {
			_, included := got[byState[state]]
			if included != state.Pending() {
				t.Errorf("state %s: included = %v, want %v", state, included, state.Pending())
			}
		}
		if len(pending) != 3 {
			t.Errorf("expected 3 pending entries, got %d", len(pending))
		}

		// Selection alone does not change state.
		e, _ := repo.Get(ctx, acct, byState[models.StateNeedsInsert])
		if e.State != models.StateNeedsInsert {
			t.Errorf("SelectPending mutated state to %s", e.State)
		}
	})

	t.Run("SelectPending preserves insertion order", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		first := mustInsert(t, repo, 1)
		second := mustInsert(t, repo, 2)
		third := mustInsert(t, repo, 3)

		pending, err := repo.SelectPending(ctx, acct)
		if err != nil {
			t.Fatalf("SelectPending failed: %v", err)
		}
		if len(pending) != 3 || pending[0].ID != first.ID || pending[1].ID != second.ID || pending[2].ID != third.ID {
			t.Errorf("unexpected order: %+v", pending)
		}
	})

	t.Run("SelectAndMarkPending", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db).WithBatchSize(2)

		insert := mustInsert(t, repo, 1)
		up := mustInsert(t, repo, 2)
		down := mustInsert(t, repo, 3)
		clean := mustInsert(t, repo, 4)
		extra := mustInsert(t, repo, 5)
		setState(t, db, up.ID, models.StateNeedsUpVote)
		setState(t, db, down.ID, models.StateNeedsDownVote)
		setState(t, db, clean.ID, models.StateClean)

		selected, err := repo.SelectAndMarkPending(ctx, acct)
		if err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}
		if len(selected) != 4 {
			t.Fatalf("expected 4 selected entries, got %d", len(selected))
		}
		if ids(selected)[up.ID].State != models.StateNeedsUpVote {
			t.Errorf("selected entries should keep their pending state")
		}

		want := map[string]struct{ state, pending models.SyncState }{
			insert.ID: {models.StateInserting, models.StateNeedsInsert},
			extra.ID:  {models.StateInserting, models.StateNeedsInsert},
			up.ID:     {models.StateUpdating, models.StateNeedsUpVote},
			down.ID:   {models.StateUpdating, models.StateNeedsDownVote},
			clean.ID:  {models.StateClean, ""},
		}
		for id, w := range want {
			e, err := repo.Get(ctx, acct, id)
			if err != nil {
				t.Fatalf("failed to get %s: %v", id, err)
			}
			if e.State != w.state || e.PendingState != w.pending {
				t.Errorf("entry %s: got (%s, %s), want (%s, %s)", id, e.State, e.PendingState, w.state, w.pending)
			}
		}

		again, err := repo.SelectAndMarkPending(ctx, acct)
		if err != nil {
			t.Fatalf("second SelectAndMarkPending failed: %v", err)
		}
		if len(again) != 0 {
			t.Errorf("in-flight entries must not be selected twice, got %d", len(again))
		}
	})

	t.Run("AcknowledgeInFlight", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)
		a := mustInsert(t, repo, 1)
		b := mustInsert(t, repo, 2)

		if _, err := repo.SelectAndMarkPending(ctx, acct); err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}

		setState(t, db, b.ID, models.StateClean)
		if err := repo.Vote(ctx, acct, b.ID, true); err != nil {
			t.Fatalf("Vote failed: %v", err)
		}

		if err := repo.AcknowledgeInFlight(ctx, acct, []string{a.ID, b.ID}); err != nil {
			t.Fatalf("AcknowledgeInFlight failed: %v", err)
		}

		got, _ := repo.Get(ctx, acct, a.ID)
		if got.State != models.StateClean || got.PendingState != "" {
			t.Errorf("expected a clean, got (%s, %s)", got.State, got.PendingState)
		}
		got, _ = repo.Get(ctx, acct, b.ID)
		if got.State != models.StateNeedsUpVote {
			t.Errorf("newer pending change must survive acknowledgement, got %s", got.State)
		}
	})

	t.Run("RestoreInFlight", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)
		insert := mustInsert(t, repo, 1)
		down := mustInsert(t, repo, 2)
		setState(t, db, down.ID, models.StateNeedsDownVote)

		selected, err := repo.SelectAndMarkPending(ctx, acct)
		if err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}

		var batch []string
		for _, e := range selected {
			batch = append(batch, e.ID)
		}
		if err := repo.RestoreInFlight(ctx, acct, batch); err != nil {
			t.Fatalf("RestoreInFlight failed: %v", err)
		}

		got, _ := repo.Get(ctx, acct, insert.ID)
		if got.State != models.StateNeedsInsert {
			t.Errorf("expected needs_insert, got %s", got.State)
		}
		got, _ = repo.Get(ctx, acct, down.ID)
		if got.State != models.StateNeedsDownVote {
			t.Errorf("expected needs_down_vote, got %s", got.State)
		}

		pending, _ := repo.SelectPending(ctx, acct)
		if len(pending) != 2 {
			t.Errorf("restored entries should be selectable again, got %d", len(pending))
		}
	})

	t.Run("RecoverInFlight", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		mustInsert(t, repo, 1)
		mustInsert(t, repo, 2)

		if _, err := repo.SelectAndMarkPending(ctx, acct); err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}

		n, err := repo.RecoverInFlight(ctx, acct)
		if err != nil {
			t.Fatalf("RecoverInFlight failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 recovered entries, got %d", n)
		}

		n, _ = repo.RecoverInFlight(ctx, acct)
		if n != 0 {
			t.Errorf("expected nothing left to recover, got %d", n)
		}
	})

	t.Run("Vote", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)
		e := mustInsert(t, repo, 1)

		if err := repo.Vote(ctx, acct, e.ID, true); !errors.Is(err, shared.ErrPendingEntry) {
			t.Errorf("voting on an uninserted entry should fail with ErrPendingEntry, got %v", err)
		}

		setState(t, db, e.ID, models.StateClean)
		if err := repo.Vote(ctx, acct, e.ID, false); err != nil {
			t.Fatalf("Vote failed: %v", err)
		}
		got, _ := repo.Get(ctx, acct, e.ID)
		if got.State != models.StateNeedsDownVote {
			t.Errorf("expected needs_down_vote, got %s", got.State)
		}

		if err := repo.Vote(ctx, acct, "missing", true); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected ErrEntryNotFound, got %v", err)
		}
	})

	t.Run("Delete keeps unsynced entries", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)
		e := mustInsert(t, repo, 1)

		for _, state := range []models.SyncState{models.StateNeedsInsert, models.StateInserting, models.StateUpdating, models.StateNeedsUpVote} {
			setState(t, db, e.ID, state)
			if err := repo.Delete(ctx, acct, e.ID); !errors.Is(err, shared.ErrPendingEntry) {
				t.Errorf("state %s: expected ErrPendingEntry, got %v", state, err)
			}
		}

		setState(t, db, e.ID, models.StateClean)
		if err := repo.Delete(ctx, acct, e.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Get(ctx, acct, e.ID); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected deleted entry to be gone, got %v", err)
		}
	})

	t.Run("ApplyRemote", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)

		inflight := mustInsert(t, repo, 1)
		if _, err := repo.SelectAndMarkPending(ctx, acct); err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}
		pending := mustInsert(t, repo, 2)
		cleanGone := mustInsert(t, repo, 3)
		setState(t, db, cleanGone.ID, models.StateClean)

		remote := []models.PlaylistEntry{
			{ID: inflight.ID, LibraryID: 1, UpVotes: 3, DownVotes: 1, Position: 2},
			{ID: "11111111-1111-1111-1111-111111111111", LibraryID: 9, UpVotes: 1, Position: 1},
			{ID: pending.ID, Deleted: true},
			{ID: cleanGone.ID, Deleted: true},
			{ID: "22222222-2222-2222-2222-222222222222", Deleted: true},
		}
		if err := repo.ApplyRemote(ctx, acct, remote); err != nil {
			t.Fatalf("ApplyRemote failed: %v", err)
		}

		got, _ := repo.Get(ctx, acct, inflight.ID)
		if got.State != models.StateClean || got.UpVotes != 3 || got.DownVotes != 1 || got.Position != 2 {
			t.Errorf("unexpected applied entry %+v", got)
		}

		got, err := repo.Get(ctx, acct, "11111111-1111-1111-1111-111111111111")
		if err != nil {
			t.Fatalf("remote entry should be inserted: %v", err)
		}
		if got.State != models.StateClean || got.LibraryID != 9 {
			t.Errorf("unexpected inserted entry %+v", got)
		}

		if _, err := repo.Get(ctx, acct, pending.ID); err != nil {
			t.Errorf("pending entry must not be deleted by remote delta: %v", err)
		}
		if _, err := repo.Get(ctx, acct, cleanGone.ID); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("clean entry should be deleted by remote delta, got %v", err)
		}

		list, err := repo.List(ctx, acct)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(list))
		}
		if list[0].ID != pending.ID || list[1].Position != 1 || list[2].Position != 2 {
			t.Errorf("List should order by position then sequence, got %+v", list)
		}
	})

	t.Run("ApplyRemote is atomic", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))

		err := repo.ApplyRemote(ctx, acct, []models.PlaylistEntry{
			{ID: "33333333-3333-3333-3333-333333333333", LibraryID: 4},
			{ID: "44444444-4444-4444-4444-444444444444", LibraryID: 0},
		})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}

		list, _ := repo.List(ctx, acct)
		if len(list) != 0 {
			t.Errorf("failed apply must not leave partial rows, got %d", len(list))
		}
	})

	t.Run("Counts", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)
		mustInsert(t, repo, 1)
		e := mustInsert(t, repo, 2)
		setState(t, db, e.ID, models.StateClean)

		counts, err := repo.Counts(ctx, acct)
		if err != nil {
			t.Fatalf("Counts failed: %v", err)
		}
		if counts[models.StateNeedsInsert] != 1 || counts[models.StateClean] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})

	t.Run("ApplyExchange acknowledges sent entries and applies the delta together", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		sent := mustInsert(t, repo, 1)
		if _, err := repo.SelectAndMarkPending(ctx, acct); err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}

		remote := []models.PlaylistEntry{{ID: "55555555-5555-5555-5555-555555555555", LibraryID: 7, Position: 1}}
		if err := repo.ApplyExchange(ctx, acct, []string{sent.ID}, remote); err != nil {
			t.Fatalf("ApplyExchange failed: %v", err)
		}

		got, _ := repo.Get(ctx, acct, sent.ID)
		if got.State != models.StateClean || got.PendingState != "" {
			t.Errorf("sent entry should be acknowledged, got (%s, %s)", got.State, got.PendingState)
		}
		if _, err := repo.Get(ctx, acct, remote[0].ID); err != nil {
			t.Errorf("remote entry should be applied: %v", err)
		}
	})

	t.Run("ApplyExchange rolls back the acknowledgement on failure", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		sent := mustInsert(t, repo, 1)
		if _, err := repo.SelectAndMarkPending(ctx, acct); err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}

		err := repo.ApplyExchange(ctx, acct, []string{sent.ID}, []models.PlaylistEntry{{ID: "bad", LibraryID: 0}})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		got, _ := repo.Get(ctx, acct, sent.ID)
		if got.State != models.StateInserting {
			t.Errorf("failed exchange apply must leave the entry in flight, got %s", got.State)
		}
	})

	t.Run("Accounts are isolated", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)
		mine := mustInsert(t, repo, 1)
		theirs := mustInsertFor(t, repo, other, 2)

		if _, err := repo.SelectAndMarkPending(ctx, acct); err != nil {
			t.Fatalf("SelectAndMarkPending failed: %v", err)
		}

		pending, err := repo.SelectPending(ctx, other)
		if err != nil {
			t.Fatalf("SelectPending failed: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != theirs.ID {
			t.Errorf("expected only %s's entry, got %+v", other, pending)
		}

		n, err := repo.RecoverInFlight(ctx, other)
		if err != nil {
			t.Fatalf("RecoverInFlight failed: %v", err)
		}
		if n != 0 {
			t.Errorf("recovering %s must not touch %s's in-flight rows, recovered %d", other, acct, n)
		}
		if got, _ := repo.Get(ctx, acct, mine.ID); got.State != models.StateInserting {
			t.Errorf("expected %s's entry to stay in flight, got %s", acct, got.State)
		}

		if err := repo.RestoreInFlight(ctx, other, []string{mine.ID}); err != nil {
			t.Fatalf("RestoreInFlight failed: %v", err)
		}
		if got, _ := repo.Get(ctx, acct, mine.ID); got.State != models.StateInserting {
			t.Errorf("restore scoped to %s must not touch %s's entry, got %s", other, acct, got.State)
		}

		if _, err := repo.Get(ctx, other, mine.ID); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("entries must not be visible across accounts, got %v", err)
		}

		common := models.PlaylistEntry{ID: "66666666-6666-6666-6666-666666666666", LibraryID: 3}
		for _, account := range []string{acct, other} {
			if err := repo.ApplyRemote(ctx, account, []models.PlaylistEntry{common}); err != nil {
				t.Fatalf("ApplyRemote for %s failed: %v", account, err)
			}
		}
		if err := repo.ApplyRemote(ctx, other, []models.PlaylistEntry{{ID: common.ID, Deleted: true}}); err != nil {
			t.Fatalf("ApplyRemote delete failed: %v", err)
		}
		if _, err := repo.Get(ctx, acct, common.ID); err != nil {
			t.Errorf("a remote delete for %s must keep %s's copy: %v", other, acct, err)
		}
	})

	t.Run("Removing an account drops its playlist", func(t *testing.T) {
		db := setupPlaylistDB(t)
		repo := NewPlaylistRepository(db)
		mustInsertFor(t, repo, other, 1)

		accounts := NewAccountRepository(db)
		account, err := accounts.GetByName(ctx, other)
		if err != nil {
			t.Fatalf("GetByName failed: %v", err)
		}
		if err := accounts.Delete(account.ID()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		list, err := repo.List(ctx, other)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected playlist to be removed with the account, got %d entries", len(list))
		}
	})

	t.Run("Canceled context", func(t *testing.T) {
		repo := NewPlaylistRepository(setupPlaylistDB(t))
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := repo.SelectAndMarkPending(cctx, acct); err == nil {
			t.Error("expected error for canceled context")
		}
	})
}

func TestLibraryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("ApplyRemote upserts and deletes", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))

		err := repo.ApplyRemote(ctx, []models.LibraryEntry{
			{ID: 1, Title: "Roygbiv", Artist: "Boards of Canada", Album: "Music Has the Right to Children", Duration: 151},
			{ID: 2, Title: "Windowlicker", Artist: "Aphex Twin", Duration: 367},
		})
		if err != nil {
			t.Fatalf("ApplyRemote failed: %v", err)
		}

		err = repo.ApplyRemote(ctx, []models.LibraryEntry{
			{ID: 1, Title: "Roygbiv (Remastered)", Artist: "Boards of Canada", Duration: 151},
			{ID: 2, Deleted: true},
		})
		if err != nil {
			t.Fatalf("second ApplyRemote failed: %v", err)
		}

		got, err := repo.Get(ctx, 1)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title != "Roygbiv (Remastered)" || got.Album != "" {
			t.Errorf("expected update to replace metadata, got %+v", got)
		}

		if _, err := repo.Get(ctx, 2); !errors.Is(err, shared.ErrLibraryNotFound) {
			t.Errorf("expected ErrLibraryNotFound, got %v", err)
		}
	})

	t.Run("List with search", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))
		_ = repo.ApplyRemote(ctx, []models.LibraryEntry{
			{ID: 1, Title: "Roygbiv", Artist: "Boards of Canada"},
			{ID: 2, Title: "Windowlicker", Artist: "Aphex Twin"},
			{ID: 3, Title: "Xtal", Artist: "Aphex Twin"},
		})

		all, err := repo.List(ctx, "")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 3 || all[0].Artist != "Aphex Twin" {
			t.Errorf("unexpected list %+v", all)
		}

		found, _ := repo.List(ctx, "aphex")
		if len(found) != 2 {
			t.Errorf("expected 2 matches, got %d", len(found))
		}
	})

	t.Run("ApplyRemote rejects invalid ids", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))
		if err := repo.ApplyRemote(ctx, []models.LibraryEntry{{ID: 0}}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		account := models.NewAccount("kurtis", "org.udj", "secret")

		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		if account.ID() == "" {
			t.Error("account ID should be set after creation")
		}

		got, err := repo.Get(account.ID())
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if got.Name() != "kurtis" || got.Password() != "secret" || got.Token() != nil {
			t.Errorf("unexpected account %+v", got)
		}
	})

	t.Run("Duplicate name", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		if err := repo.Create(models.NewAccount("kurtis", "org.udj", "a")); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		if err := repo.Create(models.NewAccount("kurtis", "org.udj", "b")); err == nil {
			t.Error("expected error for duplicate name")
		}
	})

	t.Run("Validation", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		if err := repo.Create(models.NewAccount("kurtis", "org.udj", "")); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Token round trip and ClearToken", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		account := models.NewAccount("kurtis", "org.udj", "secret")
		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		twin := models.NewAccount("alice", "org.udj", "secret")
		if err := repo.Create(twin); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		for _, a := range []*models.Account{account, twin} {
			a.SetToken(&oauth2.Token{AccessToken: "tok-1", Expiry: expiry})
			a.SetTokenType("udj_auth_token")
			if err := repo.UpdateContext(ctx, a); err != nil {
				t.Fatalf("failed to update account: %v", err)
			}
		}

		got, err := repo.GetByName(ctx, "kurtis")
		if err != nil {
			t.Fatalf("GetByName failed: %v", err)
		}
		if got.Token() == nil || got.Token().AccessToken != "tok-1" || !got.Token().Expiry.Equal(expiry) {
			t.Errorf("unexpected token %+v", got.Token())
		}
		if got.TokenType() != "udj_auth_token" {
			t.Errorf("unexpected token type %q", got.TokenType())
		}

		n, err := repo.ClearToken(ctx, "kurtis", "tok-stale")
		if err != nil || n != 0 {
			t.Errorf("ClearToken with a replaced token = %d, %v", n, err)
		}

		n, err = repo.ClearToken(ctx, "kurtis", "tok-1")
		if err != nil || n != 1 {
			t.Errorf("ClearToken = %d, %v", n, err)
		}

		got, _ = repo.GetByName(ctx, "kurtis")
		if got.Token() != nil {
			t.Error("token should be cleared")
		}
		got, _ = repo.GetByName(ctx, "alice")
		if got.Token() == nil {
			t.Error("an account caching the same token must keep it")
		}
	})

	t.Run("GetByName not found", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		if _, err := repo.GetByName(ctx, "ghost"); !errors.Is(err, shared.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("List and Delete", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		a := models.NewAccount("alice", "org.udj", "a")
		b := models.NewAccount("bob", "org.udj", "b")
		_ = repo.Create(a)
		_ = repo.Create(b)

		list, err := repo.List(map[string]any{"account_type": "org.udj"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 || list[0].Name() != "alice" {
			t.Errorf("unexpected list %+v", list)
		}

		if err := repo.Delete(a.ID()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := repo.Delete(a.ID()); !errors.Is(err, shared.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound on second delete, got %v", err)
		}

		list, _ = repo.List(nil)
		if len(list) != 1 {
			t.Errorf("expected one account left, got %d", len(list))
		}
	})

	t.Run("Update missing account", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		account := models.NewAccount("ghost", "org.udj", "pw")
		account.SetID("missing")
		if err := repo.Update(account); !errors.Is(err, shared.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestCursorRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *CursorRepository {
		db := setupTestDB(t)
		if err := NewAccountRepository(db).Create(models.NewAccount("kurtis", "org.udj", "pw")); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		return NewCursorRepository(db)
	}

	t.Run("nil before first sync", func(t *testing.T) {
		repo := setup(t)
		cursor, err := repo.Get(ctx, "kurtis")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if cursor != nil {
			t.Errorf("expected nil cursor, got %v", cursor)
		}
	})

	t.Run("Advance never moves backwards", func(t *testing.T) {
		repo := setup(t)
		t0 := time.Date(2011, 11, 5, 14, 0, 0, 0, time.UTC)

		stored, err := repo.Advance(ctx, "kurtis", t0)
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if !stored.Equal(t0) {
			t.Errorf("expected %v, got %v", t0, stored)
		}

		stored, err = repo.Advance(ctx, "kurtis", t0.Add(-time.Hour))
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if !stored.Equal(t0) {
			t.Errorf("cursor moved backwards to %v", stored)
		}

		t1 := t0.Add(time.Minute)
		if _, err := repo.Advance(ctx, "kurtis", t1); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}

		cursor, _ := repo.Get(ctx, "kurtis")
		if cursor == nil || !cursor.Equal(t1) {
			t.Errorf("expected %v, got %v", t1, cursor)
		}
		if cursor.Location() != time.UTC {
			t.Errorf("cursor should be UTC, got %v", cursor.Location())
		}
	})

	t.Run("Reset", func(t *testing.T) {
		repo := setup(t)
		_, _ = repo.Advance(ctx, "kurtis", time.Now())
		if err := repo.Reset(ctx, "kurtis"); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		cursor, _ := repo.Get(ctx, "kurtis")
		if cursor != nil {
			t.Errorf("expected nil cursor after reset, got %v", cursor)
		}
	})
}

func TestHelpers(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("placeholders(0) = %q", got)
	}

	chunks := chunk([]string{"a", "b", "c", "d", "e"}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 {
		t.Errorf("unexpected chunks %v", chunks)
	}
	if len(chunk(nil, 50)) != 0 {
		t.Error("chunk(nil) should be empty")
	}
}
