package models

import (
	"fmt"
	"time"
)

// SyncState is the vote/sync state of a local playlist entry.
type SyncState string

const (
	StateClean         SyncState = "clean"
	StateNeedsUpVote   SyncState = "needs_up_vote"
	StateNeedsDownVote SyncState = "needs_down_vote"
	StateNeedsInsert   SyncState = "needs_insert"
	StateInserting     SyncState = "inserting"
	StateUpdating      SyncState = "updating"
)

// PendingStates lists the states selected for upload, in selection order.
var PendingStates = []SyncState{StateNeedsUpVote, StateNeedsDownVote, StateNeedsInsert}

// ParseSyncState converts a stored state column back into a [SyncState].
func ParseSyncState(s string) (SyncState, error) {
	switch st := SyncState(s); st {
	case StateClean, StateNeedsUpVote, StateNeedsDownVote, StateNeedsInsert, StateInserting, StateUpdating:
		return st, nil
	default:
		return "", fmt.Errorf("unknown sync state %q", s)
	}
}

// Pending reports whether the state carries a change the server has not seen.
func (s SyncState) Pending() bool {
	return s == StateNeedsUpVote || s == StateNeedsDownVote || s == StateNeedsInsert
}

// InFlight reports whether the state marks an entry currently being transmitted.
func (s SyncState) InFlight() bool {
	return s == StateInserting || s == StateUpdating
}

// InFlightState is the state a pending entry takes while it is transmitted.
// Non-pending states are returned unchanged.
func (s SyncState) InFlightState() SyncState {
	switch s {
	case StateNeedsInsert:
		return StateInserting
	case StateNeedsUpVote, StateNeedsDownVote:
		return StateUpdating
	default:
		return s
	}
}

// PlaylistEntry is a track queued on the party playlist.
type PlaylistEntry struct {
	ID           string    // Client-generated identifier, stable across client and server
	LibraryID    int64     // Library track reference
	State        SyncState // Vote/sync state
	PendingState SyncState // Original pending state while State is in flight
	UpVotes      int
	DownVotes    int
	Position     int  // Server-assigned order
	Deleted      bool // Set on remote deltas that remove the entry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the fields required to store or transmit an entry.
func (e PlaylistEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("playlist entry id is required")
	}
	if e.LibraryID <= 0 {
		return fmt.Errorf("playlist entry %s: library id must be positive", e.ID)
	}
	if _, err := ParseSyncState(string(e.State)); err != nil {
		return fmt.Errorf("playlist entry %s: %w", e.ID, err)
	}
	return nil
}

// Score is the net vote count used to rank entries.
func (e PlaylistEntry) Score() int {
	return e.UpVotes - e.DownVotes
}
