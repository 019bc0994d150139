package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/desertthunder/udj/internal/tasks"
)

var (
	library = []models.LibraryEntry{
		{ID: 10, Title: "Xtal", Artist: "Aphex Twin", Album: "Selected Ambient Works 85-92", Duration: 291},
		{ID: 11, Title: "Avril 14th", Artist: "Aphex Twin", Duration: 125},
	}
	entries = []models.PlaylistEntry{
		{ID: "entry-1", LibraryID: 10, State: models.StateClean, UpVotes: 3, DownVotes: 1, Position: 0},
		{ID: "entry-2", LibraryID: 99, State: models.StateNeedsUpVote, Position: 1},
	}
)

func TestPlaylistFormats(t *testing.T) {
	tracks := NewTracks(library)

	t.Run("CSV", func(t *testing.T) {
		data, err := PlaylistToCSV(entries, tracks)
		if err != nil {
			t.Fatalf("PlaylistToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Position,ID,Library ID,Title,Artist,Up,Down,State\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "0,entry-1,10,Xtal,Aphex Twin,3,1,clean") {
			t.Errorf("CSV missing first entry, got: %s", output)
		}
		if !strings.Contains(output, "1,entry-2,99,,,0,0,needs_up_vote") {
			t.Errorf("CSV should leave unknown track columns empty, got: %s", output)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := PlaylistToJSON(entries, tracks)
		if err != nil {
			t.Fatalf("PlaylistToJSON failed: %v", err)
		}

		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(rows) != 2 || rows[0]["title"] != "Xtal" || rows[1]["state"] != "needs_up_vote" {
			t.Errorf("unexpected rows %v", rows)
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, err := PlaylistToText(entries, tracks)
		if err != nil {
			t.Fatalf("PlaylistToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Entries: 2") {
			t.Errorf("text missing count, got: %s", output)
		}
		if !strings.Contains(output, "1. Aphex Twin - Xtal [+3/-1]\n") {
			t.Errorf("text missing first entry, got: %s", output)
		}
		if !strings.Contains(output, "2. library #99 [+0/-0] (needs_up_vote)") {
			t.Errorf("text should mark pending entries, got: %s", output)
		}
	})

	t.Run("Dispatch", func(t *testing.T) {
		if _, err := Playlist(entries, tracks, "xml"); err == nil {
			t.Error("expected unsupported format error")
		}
		data, err := Playlist(entries, tracks, "")
		if err != nil || !strings.HasPrefix(string(data), "Entries:") {
			t.Errorf("empty format should render text, got %q, %v", data, err)
		}
	})
}

func TestLibraryFormats(t *testing.T) {
	t.Run("CSV", func(t *testing.T) {
		data, err := Library(library, FormatCSV)
		if err != nil {
			t.Fatalf("Library failed: %v", err)
		}
		if !strings.Contains(string(data), "10,Xtal,Aphex Twin,Selected Ambient Works 85-92,291") {
			t.Errorf("CSV missing track, got: %s", data)
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, err := Library(library, FormatText)
		if err != nil {
			t.Fatalf("Library failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Aphex Twin - Xtal (Selected Ambient Works 85-92) [4:51]") {
			t.Errorf("text missing first track, got: %s", output)
		}
		if !strings.Contains(output, "Aphex Twin - Avril 14th [2:05]") {
			t.Errorf("text missing track without album, got: %s", output)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := Library(library, FormatJSON)
		if err != nil {
			t.Fatalf("Library failed: %v", err)
		}
		var got []models.LibraryEntry
		if err := json.Unmarshal(data, &got); err != nil || len(got) != 2 {
			t.Errorf("unexpected JSON %s: %v", data, err)
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{180, "3:00"},
		{3725, "62:05"},
		{-5, "0:00"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestPalette(t *testing.T) {
	started := time.Date(2011, 11, 5, 20, 30, 15, 0, time.UTC)

	t.Run("Successful outcome", func(t *testing.T) {
		cursor := started
		out := Styles.Outcome(tasks.CycleOutcome{
			Account:    "kurtis",
			Sent:       1,
			Received:   2,
			Cursor:     &cursor,
			StartedAt:  started,
			FinishedAt: started.Add(1500 * time.Millisecond),
		})

		for _, want := range []string{"kurtis", "ok", "sent 1, received 2", "cursor 2011-11-05 20:30:15 UTC", "took 1.5s"} {
			if !strings.Contains(out, want) {
				t.Errorf("outcome missing %q, got: %s", want, out)
			}
		}
	})

	t.Run("Failed outcome", func(t *testing.T) {
		out := Styles.Outcome(tasks.CycleOutcome{
			Account:    "kurtis",
			Kind:       shared.FailureAuth,
			Err:        shared.NewSyncError("remote_exchange", shared.ErrAuthFailed),
			Result:     models.SyncResult{AuthFailures: 1},
			Recovered:  2,
			StartedAt:  started,
			FinishedAt: started,
		})

		for _, want := range []string{"failed (auth)", "recovered 2", "cursor", "unset", "remote_exchange"} {
			if !strings.Contains(out, want) {
				t.Errorf("outcome missing %q, got: %s", want, out)
			}
		}
	})

	t.Run("Counts", func(t *testing.T) {
		out := Styles.Counts(map[models.SyncState]int{models.StateClean: 4, models.StateUpdating: 1})
		if !strings.Contains(out, "clean") || !strings.Contains(out, "4") || !strings.Contains(out, "updating") {
			t.Errorf("unexpected counts %q", out)
		}
		if Styles.Counts(nil) == "" {
			t.Error("empty counts should render a placeholder")
		}
	})
}
