// package formatter renders playlist entries, library tracks and sync outcomes (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/desertthunder/udj/internal/models"
)

// Format names accepted by [Playlist] and [Library].
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Tracks indexes library entries by id so playlist rows can show titles.
type Tracks map[int64]models.LibraryEntry

// NewTracks builds a [Tracks] index.
func NewTracks(entries []models.LibraryEntry) Tracks {
	tracks := make(Tracks, len(entries))
	for _, e := range entries {
		tracks[e.ID] = e
	}
	return tracks
}

// Label returns "Artist - Title" for id, or a placeholder when the track is unknown locally.
func (t Tracks) Label(id int64) string {
	track, ok := t[id]
	if !ok {
		return fmt.Sprintf("library #%d", id)
	}
	if track.Artist == "" {
		return track.Title
	}
	return track.Artist + " - " + track.Title
}

// playlistRow is the JSON shape of a rendered playlist entry.
type playlistRow struct {
	ID        string `json:"id"`
	LibraryID int64  `json:"lib_id"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	UpVotes   int    `json:"up_votes"`
	DownVotes int    `json:"down_votes"`
	Position  int    `json:"position"`
	State     string `json:"state"`
}

// Playlist renders entries in format.
func Playlist(entries []models.PlaylistEntry, tracks Tracks, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return PlaylistToCSV(entries, tracks)
	case FormatJSON:
		return PlaylistToJSON(entries, tracks)
	case FormatText, "":
		return PlaylistToText(entries, tracks)
	default:
		return nil, fmt.Errorf("unsupported format %q (use text, csv or json)", format)
	}
}

// PlaylistToCSV converts entries to CSV with columns: Position, ID, Library ID, Title, Artist, Up, Down, State
func PlaylistToCSV(entries []models.PlaylistEntry, tracks Tracks) ([]byte, error) {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		track := tracks[e.LibraryID]
		records = append(records, []string{
			strconv.Itoa(e.Position),
			e.ID,
			strconv.FormatInt(e.LibraryID, 10),
			track.Title,
			track.Artist,
			strconv.Itoa(e.UpVotes),
			strconv.Itoa(e.DownVotes),
			string(e.State),
		})
	}
	return writeCSV([]string{"Position", "ID", "Library ID", "Title", "Artist", "Up", "Down", "State"}, records)
}

// PlaylistToJSON converts entries to an indented JSON array.
func PlaylistToJSON(entries []models.PlaylistEntry, tracks Tracks) ([]byte, error) {
	rows := make([]playlistRow, 0, len(entries))
	for _, e := range entries {
		track := tracks[e.LibraryID]
		rows = append(rows, playlistRow{
			ID:        e.ID,
			LibraryID: e.LibraryID,
			Title:     track.Title,
			Artist:    track.Artist,
			UpVotes:   e.UpVotes,
			DownVotes: e.DownVotes,
			Position:  e.Position,
			State:     string(e.State),
		})
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode playlist: %w", err)
	}
	return append(data, '\n'), nil
}

// PlaylistToText converts entries to numbered plain text lines.
func PlaylistToText(entries []models.PlaylistEntry, tracks Tracks) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Entries: %d\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s [+%d/-%d]", i+1, tracks.Label(e.LibraryID), e.UpVotes, e.DownVotes)
		if e.State != models.StateClean {
			fmt.Fprintf(&buf, " (%s)", e.State)
		}
		fmt.Fprintf(&buf, "\n   %s\n", e.ID)
	}

	return buf.Bytes(), nil
}

// Library renders library entries in format.
func Library(entries []models.LibraryEntry, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return LibraryToCSV(entries)
	case FormatJSON:
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode library: %w", err)
		}
		return append(data, '\n'), nil
	case FormatText, "":
		return LibraryToText(entries)
	default:
		return nil, fmt.Errorf("unsupported format %q (use text, csv or json)", format)
	}
}

// LibraryToCSV converts library entries to CSV with columns: ID, Title, Artist, Album, Duration
func LibraryToCSV(entries []models.LibraryEntry) ([]byte, error) {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			strconv.FormatInt(e.ID, 10),
			e.Title,
			e.Artist,
			e.Album,
			strconv.Itoa(e.Duration),
		})
	}
	return writeCSV([]string{"ID", "Title", "Artist", "Album", "Duration"}, records)
}

// LibraryToText converts library entries to plain text lines.
func LibraryToText(entries []models.LibraryEntry) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(entries))
	for _, e := range entries {
		albumPart := ""
		if e.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", e.Album)
		}
		fmt.Fprintf(&buf, "%6d  %s - %s%s [%s]\n", e.ID, e.Artist, e.Title, albumPart, FormatDuration(e.Duration))
	}

	return buf.Bytes(), nil
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
