// Package models defines the domain entities of the UDJ playlist sync client.
//
// The package contains two categories of types:
//
// 1. Sync records: plain structs exchanged between storage, the remote client and the reconciler
//   - [PlaylistEntry] : A queued track with its vote/sync state
//   - [LibraryEntry] : Library track metadata, written only from a remote library delta
//   - [SyncResult] : Per-cycle failure counters reported to the caller
//
// 2. Persistent entities: database-backed models with lifecycle management
//   - [Account] : Credential store record holding the password and cached auth token
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
//
// # Sync States
//
// A [PlaylistEntry] starts in a pending [SyncState] on user action (needs_insert, needs_up_vote, needs_down_vote),
// moves to an in-flight state (inserting, updating) while a sync cycle transmits it and returns to clean once the server acknowledges it.
package models
