package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/udj/internal/formatter"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistAdd queues a library track. The entry reaches the server on the next sync.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}
	account, err := r.playlistAccount(ctx, cmd, d)
	if err != nil {
		return err
	}

	libraryID := int64(cmd.Int("library-id"))
	tracks := formatter.Tracks{}
	if track, err := d.library.Get(ctx, libraryID); err == nil {
		tracks[libraryID] = *track
	} else if errors.Is(err, shared.ErrLibraryNotFound) {
		r.logger.Warn("track is not in the local library; run 'udj sync run --library' to refresh it", "library_id", libraryID)
	} else {
		return err
	}

	entry, err := d.playlist.Insert(ctx, account, libraryID)
	if err != nil {
		return err
	}

	r.writePlain("%s queued %s\n", formatter.Styles.OK("✓"), tracks.Label(libraryID))
	return r.writePlain("  %s %s\n", entry.ID, formatter.Styles.State(entry.State))
}

// PlaylistVote records an up or down vote for an entry.
func (r *Runner) PlaylistVote(ctx context.Context, cmd *cli.Command) error {
	up, down := cmd.Bool("up"), cmd.Bool("down")
	if up == down {
		return fmt.Errorf("%w: exactly one of --up or --down is required", shared.ErrInvalidArgument)
	}

	d, err := r.open(ctx)
	if err != nil {
		return err
	}
	account, err := r.playlistAccount(ctx, cmd, d)
	if err != nil {
		return err
	}

	id := cmd.String("id")
	if err := d.playlist.Vote(ctx, account, id, up); err != nil {
		return err
	}

	direction := "down"
	if up {
		direction = "up"
	}
	return r.writePlain("%s voted %s on %s\n", formatter.Styles.OK("✓"), direction, id)
}

// PlaylistList prints an account's local playlist in the requested format.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}
	account, err := r.playlistAccount(ctx, cmd, d)
	if err != nil {
		return err
	}

	entries, err := d.playlist.List(ctx, account)
	if err != nil {
		return err
	}
	tracks, err := d.library.List(ctx, "")
	if err != nil {
		return err
	}

	data, err := formatter.Playlist(entries, formatter.NewTracks(tracks), cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return r.writeBytes(data)
}

// PlaylistRemove deletes a synced entry locally. Entries with unsynced changes are refused.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}
	account, err := r.playlistAccount(ctx, cmd, d)
	if err != nil {
		return err
	}

	id := cmd.String("id")
	if err := d.playlist.Delete(ctx, account, id); err != nil {
		return err
	}
	return r.writePlain("%s removed %s\n", formatter.Styles.OK("✓"), id)
}

// LibraryList prints library tracks, optionally filtered.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	d, err := r.open(ctx)
	if err != nil {
		return err
	}

	tracks, err := d.library.List(ctx, cmd.String("search"))
	if err != nil {
		return err
	}

	data, err := formatter.Library(tracks, cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return r.writeBytes(data)
}
