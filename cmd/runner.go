package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/udj/internal/accounts"
	"github.com/desertthunder/udj/internal/repositories"
	"github.com/desertthunder/udj/internal/services"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/desertthunder/udj/internal/tasks"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the components built on it are opened on first use so commands that never touch storage
// (serve, --help) work without a writable database path.
type Runner struct {
	config     *shared.Config
	configPath string
	remote     services.RemoteClient
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *log.Logger
	output     io.Writer

	once    sync.Once
	openErr error
	db      *sql.DB
	deps    *deps
}

// deps are the storage-backed components shared by the account, playlist and sync actions.
type deps struct {
	accounts   *accounts.Manager
	playlist   *repositories.PlaylistRepository
	library    *repositories.LibraryRepository
	cursors    *repositories.CursorRepository
	reconciler *tasks.Reconciler
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Remote     services.RemoteClient // Defaults to a UDJService for Config.Remote
	HTTPClient *http.Client
	DB         *sql.DB // Opened from Config.Database when nil
	Clock      clockwork.Clock
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = services.NewHTTPClient(opts.Config.Remote.Timeout())
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Remote == nil {
		opts.Remote = services.NewUDJService(
			opts.Config.Remote.URL,
			opts.HTTPClient,
			shared.WithLogger(opts.Logger, "component", "remote"),
		)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		remote:     opts.Remote,
		httpClient: opts.HTTPClient,
		clock:      opts.Clock,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, accountCommand, playlistCommand, libraryCommand, syncCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open builds the storage-backed components once, running migrations on the database first.
func (r *Runner) open(ctx context.Context) (*deps, error) {
	r.once.Do(func() {
		if r.db == nil {
			db, err := shared.NewDatabase(r.config.Database.Path)
			if err != nil {
				r.openErr = err
				return
			}
			shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
			r.db = db
		}

		if err := shared.RunMigrations(ctx, r.db); err != nil {
			r.openErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}

		manager := accounts.NewManager(
			repositories.NewAccountRepository(r.db),
			r.remote,
			r.config.Remote.AccountType,
			r.config.Remote.TokenType,
			shared.WithLogger(r.logger, "component", "accounts"),
		)
		playlist := repositories.NewPlaylistRepository(r.db).WithBatchSize(r.config.Sync.BatchSize)
		library := repositories.NewLibraryRepository(r.db)
		cursors := repositories.NewCursorRepository(r.db)

		r.deps = &deps{
			accounts: manager,
			playlist: playlist,
			library:  library,
			cursors:  cursors,
			reconciler: tasks.NewReconciler(manager, r.remote, playlist, library, cursors, tasks.ReconcilerOpts{
				Clock:  r.clock,
				Logger: shared.WithLogger(r.logger, "component", "reconciler"),
			}),
		}
	})

	return r.deps, r.openErr
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// account resolves the account an action applies to: the flag value, else the configured default.
func (r *Runner) account(cmd *cli.Command) (string, error) {
	if name := cmd.String("account"); name != "" {
		return name, nil
	}
	if r.config.Sync.Account != "" {
		return r.config.Sync.Account, nil
	}
	return "", fmt.Errorf("%w: --account or sync.account in config is required", shared.ErrMissingArgument)
}

// playlistAccount resolves the account whose playlist an action edits and checks that it is stored.
func (r *Runner) playlistAccount(ctx context.Context, cmd *cli.Command, d *deps) (string, error) {
	name, err := r.account(cmd)
	if err != nil {
		return "", err
	}
	if _, err := d.accounts.Get(ctx, name); err != nil {
		return "", fmt.Errorf("%w; run 'udj account add --name %s'", err, name)
	}
	return name, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
