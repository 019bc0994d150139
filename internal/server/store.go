package server

import (
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/services"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/jonboulle/clockwork"
)

type playlistRecord struct {
	entry    models.PlaylistEntry
	modified time.Time
}

type libraryRecord struct {
	entry    models.LibraryEntry
	modified time.Time
}

// Store is the in-memory state of the development server. Removed entries stay behind as tombstones so deltas
// can report them.
type Store struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	users    map[string]string
	playlist map[string]*playlistRecord
	library  map[int64]*libraryRecord
	next     int
}

// NewStore creates an empty [Store] accepting users. A nil clock uses the real clock.
func NewStore(users []shared.ServerUser, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Store{
		clock:    clock,
		users:    make(map[string]string, len(users)),
		playlist: map[string]*playlistRecord{},
		library:  map[int64]*libraryRecord{},
	}
	for _, u := range users {
		s.users[u.Username] = u.Password
	}
	return s
}

// Authenticate reports whether password belongs to username.
func (s *Store) Authenticate(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.users[username]
	return ok && password != "" && want == password
}

// PutLibrary adds or replaces library entries. Entries marked deleted become tombstones.
func (s *Store) PutLibrary(entries ...models.LibraryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, e := range entries {
		s.library[e.ID] = &libraryRecord{entry: e, modified: now}
	}
}

// RemoveEntry tombstones a playlist entry and reports whether it was live.
func (s *Store) RemoveEntry(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.playlist[id]
	if !ok || rec.entry.Deleted {
		return false
	}
	rec.entry.Deleted = true
	rec.modified = s.clock.Now()
	return true
}

// ApplyUpdates applies an uploaded update array and returns how many updates changed state.
//
// Inserts of known ids are ignored so a retransmitted batch is harmless. Votes for unknown or removed entries are
// dropped.
func (s *Store) ApplyUpdates(updates []services.WireEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	applied := 0
	for _, u := range updates {
		rec, exists := s.playlist[u.ID]

		switch u.Action {
		case services.ActionInsert:
			if exists || u.LibraryID <= 0 {
				continue
			}
			s.playlist[u.ID] = &playlistRecord{
				entry:    models.PlaylistEntry{ID: u.ID, LibraryID: u.LibraryID, Position: s.next},
				modified: now,
			}
			s.next++
		case services.ActionUpVote, services.ActionDownVote:
			if !exists || rec.entry.Deleted {
				continue
			}
			if u.Action == services.ActionUpVote {
				rec.entry.UpVotes++
			} else {
				rec.entry.DownVotes++
			}
			rec.modified = now
		default:
			continue
		}
		applied++
	}
	return applied
}

// PlaylistSince returns entries modified at or after since, in playlist order. A nil since returns every live entry.
func (s *Store) PlaylistSince(since *time.Time) []models.PlaylistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := []models.PlaylistEntry{}
	for _, rec := range s.playlist {
		if since == nil {
			if !rec.entry.Deleted {
				entries = append(entries, rec.entry)
			}
			continue
		}
		if !rec.modified.Before(*since) {
			entries = append(entries, rec.entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	return entries
}

// LibrarySince returns library entries modified at or after since, ordered by id.
func (s *Store) LibrarySince(since *time.Time) []models.LibraryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := []models.LibraryEntry{}
	for _, rec := range s.library {
		switch {
		case since == nil && !rec.entry.Deleted:
			entries = append(entries, rec.entry)
		case since != nil && !rec.modified.Before(*since):
			entries = append(entries, rec.entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}
