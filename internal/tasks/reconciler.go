package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/services"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
)

// TokenProvider is the credential store as seen by a sync cycle.
type TokenProvider interface {
	TokenSource(ctx context.Context, account string) oauth2.TokenSource
	InvalidateAuthToken(ctx context.Context, account, token string) error
}

// PlaylistStore is the local playlist storage a cycle selects from and applies to. Every call is scoped to the
// account being synced.
type PlaylistStore interface {
	RecoverInFlight(ctx context.Context, account string) (int, error)
	SelectAndMarkPending(ctx context.Context, account string) ([]models.PlaylistEntry, error)
	AcknowledgeInFlight(ctx context.Context, account string, ids []string) error
	RestoreInFlight(ctx context.Context, account string, ids []string) error
	ApplyExchange(ctx context.Context, account string, sent []string, entries []models.PlaylistEntry) error
}

// LibraryStore receives library deltas.
type LibraryStore interface {
	ApplyRemote(ctx context.Context, entries []models.LibraryEntry) error
}

// CursorStore holds the last successful sync instant per account.
type CursorStore interface {
	Get(ctx context.Context, account string) (*time.Time, error)
	Advance(ctx context.Context, account string, at time.Time) (time.Time, error)
}

// SyncFlags select optional steps of a cycle.
type SyncFlags struct {
	Library bool // Fetch and apply the library delta before the playlist exchange
}

// CycleOutcome is the result of one sync cycle. It never carries a panic or an unclassified error.
type CycleOutcome struct {
	Account         string
	Result          models.SyncResult  // Failure counters, at most one non-zero
	Kind            shared.FailureKind // FailureNone on success
	Err             error              // *shared.SyncError naming the failed step
	Sent            int                // Local entries selected for upload
	Received        int                // Remote playlist entries applied
	LibraryReceived int                // Remote library entries applied
	Recovered       int                // Entries restored from an interrupted cycle
	Cursor          *time.Time         // Cursor after the cycle; unchanged on failure
	StartedAt       time.Time
	FinishedAt      time.Time
}

// OK reports whether every step succeeded.
func (o CycleOutcome) OK() bool {
	return o.Kind == shared.FailureNone
}

// ReconcilerOpts configures a [Reconciler]. Zero values fall back to defaults.
type ReconcilerOpts struct {
	Clock  clockwork.Clock // Defaults to the real clock
	Logger *log.Logger     // Defaults to a discarding logger
}

// Reconciler runs sync cycles. It holds no per-cycle state, so one value can serve many accounts,
// provided the caller never runs two cycles for the same account at once (see [Scheduler]).
type Reconciler struct {
	tokens   TokenProvider
	remote   services.RemoteClient
	playlist PlaylistStore
	library  LibraryStore
	cursors  CursorStore
	clock    clockwork.Clock
	logger   *log.Logger
}

// NewReconciler wires a [Reconciler] from its collaborators.
func NewReconciler(
	tokens TokenProvider,
	remote services.RemoteClient,
	playlist PlaylistStore,
	library LibraryStore,
	cursors CursorStore,
	opts ReconcilerOpts,
) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Reconciler{
		tokens:   tokens,
		remote:   remote,
		playlist: playlist,
		library:  library,
		cursors:  cursors,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// cycle is the state threaded through the steps of one RunSyncCycle call.
type cycle struct {
	account  string
	flags    SyncFlags
	progress chan<- ProgressUpdate
	logger   *log.Logger
	step     int
	total    int
	token    *oauth2.Token
	inFlight []string
	outcome  CycleOutcome
}

func (c *cycle) next() int {
	c.step++
	return c.step
}

// RunSyncCycle performs one sync for account:
//
//	AcquireToken → [LibrarySync] → RecoverInFlight → CollectDelta → RemoteExchange → ApplyDelta → AdvanceCursor
//
// The first failing step ends the cycle. Entries marked in flight are restored unless the server already confirmed
// the exchange, the cursor stays where it was and exactly one failure counter is incremented, except for
// cancellation which counts nothing. An auth failure also invalidates the token that was used. Errors never escape:
// the outcome carries them.
func (r *Reconciler) RunSyncCycle(ctx context.Context, account string, flags SyncFlags, progress chan<- ProgressUpdate) (outcome CycleOutcome) {
	c := &cycle{
		account:  account,
		flags:    flags,
		progress: progress,
		logger:   shared.WithLogger(r.logger, "account", account),
		total:    stepTotal(flags),
		outcome:  CycleOutcome{Account: account, StartedAt: r.clock.Now()},
	}

	defer func() {
		if p := recover(); p != nil {
			r.fail(ctx, c, shared.NewSyncError("sync", fmt.Errorf("%w: panic: %v", shared.ErrTransport, p)))
		}
		c.outcome.FinishedAt = r.clock.Now()
		if c.outcome.OK() {
			sendProgress(progress, doneUpdate(c.outcome))
		} else {
			sendProgress(progress, failedUpdate(c.outcome))
		}
		outcome = c.outcome
	}()

	if err := r.run(ctx, c); err != nil {
		r.fail(ctx, c, err)
		return
	}

	c.logger.Info("sync complete",
		"sent", c.outcome.Sent,
		"received", c.outcome.Received,
		"library", c.outcome.LibraryReceived,
		"elapsed", r.clock.Since(c.outcome.StartedAt),
	)
	return
}

func (r *Reconciler) run(ctx context.Context, c *cycle) error {
	sendProgress(c.progress, acquireTokenUpdate(c.account, c.next(), c.total))
	token, err := r.tokens.TokenSource(ctx, c.account).Token()
	if err == nil && (token == nil || token.AccessToken == "") {
		err = fmt.Errorf("%w: credential store returned no token", shared.ErrAuthFailed)
	}
	if err != nil {
		return shared.NewSyncError(AcquireToken.String(), err)
	}
	c.token = token

	since, err := r.cursors.Get(ctx, c.account)
	if err != nil {
		return shared.NewSyncError("read_cursor", storageError(err))
	}
	c.outcome.Cursor = since

	if c.flags.Library {
		sendProgress(c.progress, librarySyncUpdate(c.account, c.next(), c.total))
		entries, err := r.remote.FetchLibraryDelta(ctx, c.account, token.AccessToken, since)
		if err != nil {
			return shared.NewSyncError(LibrarySync.String(), err)
		}
		if err := r.library.ApplyRemote(ctx, entries); err != nil {
			return shared.NewSyncError(LibrarySync.String(), storageError(err))
		}
		c.outcome.LibraryReceived = len(entries)
	}

	step := c.next()
	recovered, err := r.playlist.RecoverInFlight(ctx, c.account)
	if err != nil {
		return shared.NewSyncError(RecoverInFlight.String(), storageError(err))
	}
	if recovered > 0 {
		c.outcome.Recovered = recovered
		c.logger.Warn("recovered entries from an interrupted sync", "entries", recovered)
		sendProgress(c.progress, recoveredUpdate(c.account, step, c.total, recovered))
	}

	local, err := r.playlist.SelectAndMarkPending(ctx, c.account)
	if err != nil {
		return shared.NewSyncError(CollectDelta.String(), storageError(err))
	}
	c.inFlight = entryIDs(local)
	c.outcome.Sent = len(local)
	sendProgress(c.progress, collectDeltaUpdate(c.account, step, c.total, len(local)))

	sendProgress(c.progress, remoteExchangeUpdate(c.account, c.next(), c.total))
	exchangedAt := r.clock.Now()
	remote, err := r.remote.ExchangePlaylistDelta(ctx, c.account, token.AccessToken, local, since)
	if err != nil {
		return shared.NewSyncError(RemoteExchange.String(), err)
	}

	// The server has counted what was sent; from here on the entries are acknowledged, never restored.
	sent := c.inFlight
	c.inFlight = nil

	sendProgress(c.progress, applyDeltaUpdate(c.account, c.next(), c.total, len(remote)))
	if err := r.playlist.ApplyExchange(ctx, c.account, sent, remote); err != nil {
		if aerr := r.playlist.AcknowledgeInFlight(context.WithoutCancel(ctx), c.account, sent); aerr != nil {
			c.logger.Error("failed to acknowledge sent entries", "entries", len(sent), "error", aerr)
		}
		return shared.NewSyncError(ApplyDelta.String(), storageError(err))
	}
	c.outcome.Received = len(remote)

	sendProgress(c.progress, advanceCursorUpdate(c.account, c.next(), c.total))
	cursor, err := r.cursors.Advance(ctx, c.account, exchangedAt)
	if err != nil {
		return shared.NewSyncError(AdvanceCursor.String(), storageError(err))
	}
	c.outcome.Cursor = &cursor

	return nil
}

// fail records err on the outcome and undoes the cycle's in-flight marks.
func (r *Reconciler) fail(ctx context.Context, c *cycle, err error) {
	var se *shared.SyncError
	if !errors.As(err, &se) {
		se = shared.NewSyncError("sync", err)
	}

	c.outcome.Kind = se.Kind
	c.outcome.Err = se

	// Cleanup must run even when ctx is what ended the cycle.
	cleanup := context.WithoutCancel(ctx)

	if len(c.inFlight) > 0 {
		if rerr := r.playlist.RestoreInFlight(cleanup, c.account, c.inFlight); rerr != nil {
			c.logger.Error("failed to restore in-flight entries; they will be recovered next cycle", "entries", len(c.inFlight), "error", rerr)
		}
		c.inFlight = nil
	}

	switch se.Kind {
	case shared.FailureAuth:
		c.outcome.Result.AuthFailures++
		if c.token != nil {
			if ierr := r.tokens.InvalidateAuthToken(cleanup, c.account, c.token.AccessToken); ierr != nil {
				c.logger.Error("failed to invalidate auth token", "error", ierr)
			}
		}
		c.logger.Warn("sync failed", "step", se.Step, "kind", se.Kind, "error", se.Err)
	case shared.FailureParse:
		c.outcome.Result.ParseFailures++
		c.logger.Warn("sync failed", "step", se.Step, "kind", se.Kind, "error", se.Err)
	case shared.FailureCanceled:
		c.logger.Info("sync canceled", "step", se.Step)
	default:
		c.outcome.Kind = shared.FailureIO
		c.outcome.Result.IoFailures++
		c.logger.Warn("sync failed", "step", se.Step, "kind", shared.FailureIO, "error", se.Err)
	}
}

// storageError marks err as a failure of local storage for [shared.Classify].
func storageError(err error) error {
	return fmt.Errorf("%w: %w", shared.ErrStorage, err)
}

func entryIDs(entries []models.PlaylistEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
