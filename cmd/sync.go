package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/udj/internal/formatter"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/desertthunder/udj/internal/tasks"
	"github.com/urfave/cli/v3"
)

// outcomeReport is the JSON form of a [tasks.CycleOutcome].
type outcomeReport struct {
	Account         string `json:"account"`
	OK              bool   `json:"ok"`
	Kind            string `json:"kind"`
	Error           string `json:"error,omitempty"`
	AuthFailures    int    `json:"auth_failures"`
	IoFailures      int    `json:"io_failures"`
	ParseFailures   int    `json:"parse_failures"`
	Sent            int    `json:"sent"`
	Received        int    `json:"received"`
	LibraryReceived int    `json:"library_received"`
	Recovered       int    `json:"recovered"`
	Cursor          string `json:"cursor,omitempty"`
}

func newOutcomeReport(o tasks.CycleOutcome) outcomeReport {
	report := outcomeReport{
		Account:         o.Account,
		OK:              o.OK(),
		Kind:            o.Kind.String(),
		AuthFailures:    o.Result.AuthFailures,
		IoFailures:      o.Result.IoFailures,
		ParseFailures:   o.Result.ParseFailures,
		Sent:            o.Sent,
		Received:        o.Received,
		LibraryReceived: o.LibraryReceived,
		Recovered:       o.Recovered,
	}
	if o.Err != nil {
		report.Error = o.Err.Error()
	}
	if o.Cursor != nil {
		report.Cursor = shared.FormatServerTimestamp(*o.Cursor)
	}
	return report
}

// logProgress drains progress updates into the logger until the channel is closed.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate, wg *sync.WaitGroup) {
	defer wg.Done()
	for u := range progress {
		r.logger.Debug(u.Message, "account", u.Account, "phase", u.Phase, "step", u.Step, "total", u.Total)
	}
}

// SyncRun runs one sync cycle and reports its outcome. A failed cycle returns its error so the exit status is
// non-zero.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	account, err := r.account(cmd)
	if err != nil {
		return err
	}
	flags := tasks.SyncFlags{Library: cmd.Bool("library") || r.config.Sync.Library}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go r.logProgress(progress, &wg)

	outcome := d.reconciler.RunSyncCycle(ctx, account, flags, progress)
	close(progress)
	wg.Wait()

	if cmd.Bool("json") {
		if err := r.writeJSON(newOutcomeReport(outcome), true); err != nil {
			return err
		}
	} else if err := r.writePlain("%s", formatter.Styles.Outcome(outcome)); err != nil {
		return err
	}

	if !outcome.OK() {
		return outcome.Err
	}
	return nil
}

// SyncWatch syncs the selected accounts every interval until the context is canceled.
//
// Accounts come from --account, else sync.account, else every stored account.
func (r *Runner) SyncWatch(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	names := cmd.StringSlice("account")
	if len(names) == 0 && r.config.Sync.Account != "" {
		names = []string{r.config.Sync.Account}
	}
	if len(names) == 0 {
		stored, err := d.accounts.List()
		if err != nil {
			return err
		}
		for _, a := range stored {
			names = append(names, a.Name())
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no accounts to sync; run 'udj account add'", shared.ErrMissingArgument)
	}

	interval := cmd.Duration("interval")
	if interval == 0 {
		interval = r.config.Sync.Interval()
	}
	flags := tasks.SyncFlags{Library: cmd.Bool("library") || r.config.Sync.Library}

	scheduler := tasks.NewScheduler(d.reconciler, interval, r.clock, shared.WithLogger(r.logger, "component", "scheduler"))
	scheduler.OnOutcome = r.outcomeReporter()

	r.logger.Info("watching", "accounts", names, "interval", interval, "library", flags.Library)
	return scheduler.Run(ctx, names, flags, nil)
}

// outcomeReporter prints each cycle outcome as it arrives. Outcomes of concurrent accounts are written one at a time.
func (r *Runner) outcomeReporter() func(tasks.CycleOutcome) {
	var mu sync.Mutex
	return func(o tasks.CycleOutcome) {
		mu.Lock()
		defer mu.Unlock()
		if err := r.writePlain("%s", formatter.Styles.Outcome(o)); err != nil {
			r.logger.Error("failed to write outcome", "account", o.Account, "error", err)
		}
	}
}

// SyncReset clears the account's cursor so the next cycle performs a full fetch.
func (r *Runner) SyncReset(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	account, err := r.account(cmd)
	if err != nil {
		return err
	}
	if err := d.cursors.Reset(ctx, account); err != nil {
		return err
	}
	return r.writePlain("%s cursor reset for %s\n", formatter.Styles.OK("✓"), account)
}
