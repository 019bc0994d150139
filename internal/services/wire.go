package services

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/shared"
)

// Actions carried in the update array.
const (
	ActionUpVote   = "up_vote"
	ActionDownVote = "down_vote"
	ActionInsert   = "insert"
)

// WireEntry is a playlist entry as it appears in requests and responses.
type WireEntry struct {
	ID        string `json:"id"`
	LibraryID int64  `json:"lib_id,omitempty"`
	Action    string `json:"action,omitempty"`
	UpVotes   int    `json:"up_votes"`
	DownVotes int    `json:"down_votes"`
	Position  *int   `json:"position,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// WireLibraryEntry is a library track as it appears in responses.
type WireLibraryEntry struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// ActionFor maps a pending state to its wire action. In-flight entries use the state they were selected in.
func ActionFor(e models.PlaylistEntry) (string, error) {
	state := e.State
	if state.InFlight() && e.PendingState != "" {
		state = e.PendingState
	}

	switch state {
	case models.StateNeedsUpVote:
		return ActionUpVote, nil
	case models.StateNeedsDownVote:
		return ActionDownVote, nil
	case models.StateNeedsInsert:
		return ActionInsert, nil
	default:
		return "", fmt.Errorf("%w: entry %s has no pending change (%s)", shared.ErrInvalidState, e.ID, e.State)
	}
}

// EncodeUpdateArray serializes pending entries into the JSON array sent as updatearray.
// An empty input encodes as "[]".
func EncodeUpdateArray(entries []models.PlaylistEntry) (string, error) {
	wire := make([]WireEntry, 0, len(entries))
	for _, e := range entries {
		action, err := ActionFor(e)
		if err != nil {
			return "", err
		}
		wire = append(wire, WireEntry{
			ID:        e.ID,
			LibraryID: e.LibraryID,
			Action:    action,
			UpVotes:   e.UpVotes,
			DownVotes: e.DownVotes,
		})
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to encode update array: %w", err)
	}
	return string(data), nil
}

// DecodeUpdateArray parses an updatearray field. The server side uses it.
func DecodeUpdateArray(data []byte) ([]WireEntry, error) {
	var wire []WireEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: update array: %v", shared.ErrParse, err)
	}
	for i, w := range wire {
		if w.ID == "" {
			return nil, fmt.Errorf("%w: update %d has no id", shared.ErrParse, i)
		}
		switch w.Action {
		case ActionUpVote, ActionDownVote, ActionInsert:
		default:
			return nil, fmt.Errorf("%w: update %s has unknown action %q", shared.ErrParse, w.ID, w.Action)
		}
	}
	return wire, nil
}

// DecodePlaylistEntries parses a playlist response body, keeping the server's order.
//
// Entries without an explicit position take their index in the array. Non-deleted entries must carry a library id.
func DecodePlaylistEntries(data []byte) ([]models.PlaylistEntry, error) {
	var wire []WireEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: playlist response: %v", shared.ErrParse, err)
	}

	entries := make([]models.PlaylistEntry, 0, len(wire))
	for i, w := range wire {
		if w.ID == "" {
			return nil, fmt.Errorf("%w: playlist entry %d has no id", shared.ErrParse, i)
		}
		if !w.Deleted && w.LibraryID <= 0 {
			return nil, fmt.Errorf("%w: playlist entry %s has no library id", shared.ErrParse, w.ID)
		}

		position := i
		if w.Position != nil {
			position = *w.Position
		}

		entries = append(entries, models.PlaylistEntry{
			ID:        w.ID,
			LibraryID: w.LibraryID,
			State:     models.StateClean,
			UpVotes:   w.UpVotes,
			DownVotes: w.DownVotes,
			Position:  position,
			Deleted:   w.Deleted,
		})
	}
	return entries, nil
}

// EncodePlaylistEntries serializes entries in response form. The server side uses it.
func EncodePlaylistEntries(entries []models.PlaylistEntry) ([]byte, error) {
	wire := make([]WireEntry, 0, len(entries))
	for _, e := range entries {
		position := e.Position
		wire = append(wire, WireEntry{
			ID:        e.ID,
			LibraryID: e.LibraryID,
			UpVotes:   e.UpVotes,
			DownVotes: e.DownVotes,
			Position:  &position,
			Deleted:   e.Deleted,
		})
	}
	return json.Marshal(wire)
}

// DecodeLibraryEntries parses a library response body.
func DecodeLibraryEntries(data []byte) ([]models.LibraryEntry, error) {
	var wire []WireLibraryEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: library response: %v", shared.ErrParse, err)
	}

	entries := make([]models.LibraryEntry, 0, len(wire))
	for i, w := range wire {
		if w.ID <= 0 {
			return nil, fmt.Errorf("%w: library entry %d has no id", shared.ErrParse, i)
		}
		entries = append(entries, models.LibraryEntry{
			ID:       w.ID,
			Title:    w.Title,
			Artist:   w.Artist,
			Album:    w.Album,
			Duration: w.Duration,
			Deleted:  w.Deleted,
		})
	}
	return entries, nil
}

// EncodeLibraryEntries serializes library entries in response form. The server side uses it.
func EncodeLibraryEntries(entries []models.LibraryEntry) ([]byte, error) {
	wire := make([]WireLibraryEntry, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, WireLibraryEntry(e))
	}
	return json.Marshal(wire)
}
