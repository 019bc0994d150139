package models

import "fmt"

// LibraryEntry is a track available to the party. Metadata is opaque to the sync core.
type LibraryEntry struct {
	ID       int64
	Title    string
	Artist   string
	Album    string
	Duration int  // Duration in seconds
	Deleted  bool // Set on remote deltas that remove the track
}

// Validate checks that the entry can be stored.
func (e LibraryEntry) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("library entry id must be positive, got %d", e.ID)
	}
	return nil
}

// SyncResult holds the failure counters of a single sync cycle.
type SyncResult struct {
	AuthFailures  int
	IoFailures    int
	ParseFailures int
}

// HasErrors reports whether any counter is non-zero.
func (r SyncResult) HasErrors() bool {
	return r.AuthFailures+r.IoFailures+r.ParseFailures > 0
}
