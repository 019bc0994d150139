package services

import (
	"context"
	"time"

	"github.com/desertthunder/udj/internal/models"
)

// RemoteClient is the network side of a sync cycle.
type RemoteClient interface {
	// Authenticate checks credentials against the server.
	// It returns false with a nil error only when the server rejected them.
	Authenticate(ctx context.Context, username, password string) (bool, error)

	// ExchangePlaylistDelta uploads local pending entries and returns the server's changes since the given instant.
	// A nil since requests the full playlist.
	ExchangePlaylistDelta(ctx context.Context, identity, token string, local []models.PlaylistEntry, since *time.Time) ([]models.PlaylistEntry, error)

	// FetchLibraryDelta returns library entries changed since the given instant.
	FetchLibraryDelta(ctx context.Context, identity, token string, since *time.Time) ([]models.LibraryEntry, error)
}

// AuthResult is delivered by [UDJService.AttemptAuth].
type AuthResult struct {
	OK  bool
	Err error
}
