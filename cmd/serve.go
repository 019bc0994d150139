package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/desertthunder/udj/internal/server"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the in-memory development server with the users from [shared.ServerConfig] until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if len(cfg.Users) == 0 {
		return fmt.Errorf("%w: server.users is empty; no client could authenticate", shared.ErrInvalidConfig)
	}

	host := cfg.Host
	if h := cmd.String("host"); h != "" {
		host = h
	}
	port := cfg.Port
	if p := cmd.Int("port"); p != 0 {
		port = int(p)
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	store := server.NewStore(cfg.Users, r.clock)

	if path := cmd.String("library"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open library seed: %w", err)
		}
		defer f.Close()

		tracks, err := server.ReadLibrary(f)
		if err != nil {
			return fmt.Errorf("failed to read library seed %s: %w", path, err)
		}
		store.PutLibrary(tracks...)
		logger.Info("library seeded", "tracks", len(tracks), "path", path)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return server.ListenAndServe(ctx, addr, server.New(store, cfg, logger), logger)
}
