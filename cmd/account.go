package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/udj/internal/formatter"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/urfave/cli/v3"
)

// AccountAdd verifies the credentials against the server and stores them with a cached token.
func (r *Runner) AccountAdd(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	name := cmd.String("name")
	r.logger.Info("adding account", "name", name, "remote", r.config.Remote.URL)

	account, err := d.accounts.Add(ctx, name, cmd.String("password"))
	if err != nil {
		return err
	}

	return r.writePlain("%s account %s added\n", formatter.Styles.OK("✓"), account.Name())
}

// AccountList prints every stored account of the configured type.
func (r *Runner) AccountList(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	list, err := d.accounts.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return r.writePlain("%s\n", formatter.Styles.Help("no accounts; run 'udj account add'"))
	}

	for _, a := range list {
		token := formatter.Styles.Warn("no token")
		if a.HasValidToken() {
			token = formatter.Styles.OK("token cached")
		}
		r.writePlain("%s  %s\n", a.Name(), token)
	}
	return nil
}

// AccountStatus prints the token, cursor and per-state entry counts for an account.
func (r *Runner) AccountStatus(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	name, err := r.account(cmd)
	if err != nil {
		return err
	}

	account, err := d.accounts.Get(ctx, name)
	if err != nil {
		return err
	}
	cursor, err := d.cursors.Get(ctx, name)
	if err != nil {
		return err
	}
	counts, err := d.playlist.Counts(ctx, name)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", formatter.Styles.Title(account.Name()))
	r.writePlain("  type     %s\n", account.AccountType())
	if account.HasValidToken() {
		r.writePlain("  token    %s (%s)\n", formatter.Styles.OK("cached"), account.TokenType())
	} else {
		r.writePlain("  token    %s\n", formatter.Styles.Warn("none"))
	}
	if cursor != nil {
		r.writePlain("  cursor   %s UTC\n", shared.FormatServerTimestamp(*cursor))
	} else {
		r.writePlain("  cursor   %s\n", formatter.Styles.Help("never synced"))
	}
	return r.writePlain("  entries  %s\n", formatter.Styles.Counts(counts))
}

// AccountLogout clears the cached token.
func (r *Runner) AccountLogout(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	name, err := r.account(cmd)
	if err != nil {
		return err
	}
	if err := d.accounts.Logout(ctx, name); err != nil {
		return err
	}

	return r.writePlain("%s logged out %s\n", formatter.Styles.OK("✓"), name)
}

// AccountRemove deletes the account and its cursor.
func (r *Runner) AccountRemove(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	name, err := r.account(cmd)
	if err != nil {
		return err
	}
	if err := d.accounts.Remove(ctx, name); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	return r.writePlain("%s removed %s\n", formatter.Styles.OK("✓"), name)
}
