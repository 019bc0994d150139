package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/udj/internal/formatter"
	"github.com/desertthunder/udj/internal/repositories"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes config.toml from the template when it is missing, migrates the database it names and reports
// the accounts already stored there with their pending entries.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.setupConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	accounts, err := repositories.NewAccountRepository(db).List(nil)
	if err != nil {
		return err
	}
	playlist := repositories.NewPlaylistRepository(db)

	var b strings.Builder
	fmt.Fprintf(&b, "%s Database ready at %s\n", formatter.Styles.OK("✓"), config.Database.Path)
	if len(accounts) == 0 {
		fmt.Fprintf(&b, "  no accounts yet; run 'udj account add --name <user>'\n")
	}
	for _, account := range accounts {
		pending, err := playlist.SelectPending(ctx, account.Name())
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "  %s: %d pending\n", account.Name(), len(pending))
	}
	r.logger.Info("setup complete", "path", config.Database.Path, "accounts", len(accounts))

	return r.writePlain("%s", b.String())
}

// setupConfig loads path, creating it from the template first when it does not exist. A template that cannot be
// written or read back falls back to the defaults; an existing file that does not parse is an error.
func (r *Runner) setupConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return config, nil
	}

	r.logger.Info("config file not found, creating from template", "path", path)
	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Warn("failed to create config file, using defaults", "error", err)
		return shared.DefaultConfig(), nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load created config, using defaults", "error", err)
		return shared.DefaultConfig(), nil
	}
	return config, nil
}
