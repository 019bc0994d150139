// Package repositories implements SQLite persistence for the sync client.
//
// Key Implementations:
//   - [PlaylistRepository] : Playlist entries and the local delta selector (pending selection, in-flight marking, remote apply)
//   - [LibraryRepository] : Library tracks written from remote library deltas
//   - [AccountRepository] : Credential store records with cached auth tokens
//   - [CursorRepository] : Per-account sync cursor, advanced only forward
//
// Each account owns its own playlist. Every [PlaylistRepository] method is scoped to one account, so a sync cycle
// never selects, recovers or acknowledges another account's entries.
//
// Playlist entries carry a sequence number that gives them a stable local insertion order independent of the server-assigned position.
// The [nextSequence] helper increments the per-table counter inside the caller's transaction.
//
// Every method takes a [context.Context] so a canceled sync cycle stops touching storage.
package repositories
