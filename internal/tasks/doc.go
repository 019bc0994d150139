// Package tasks runs UDJ sync cycles.
//
// # Reconciler
//
// [Reconciler.RunSyncCycle] drives one cycle for one account through strictly ordered steps:
//
//  1. AcquireToken: blocking token acquisition from the credential store
//  2. LibrarySync: optional library delta fetch and apply
//  3. RecoverInFlight: the account's entries left in flight by an interrupted cycle return to their pending state
//  4. CollectDelta: pending entries are selected and marked in flight in one transaction
//  5. RemoteExchange: one POST carrying the local delta and the previous cursor
//  6. ApplyDelta: the sent entries are acknowledged and remote entries applied in one transaction
//  7. AdvanceCursor: the cursor moves to the instant of the exchange
//
// Any failure ends the cycle. Entries in flight go back to pending unless the server already answered the exchange.
// Local storage and credential store failures wrap [shared.ErrStorage] and count as parse failures. Failures are classified once with [shared.Classify] into auth, io, parse or canceled and
// counted in the outcome's [models.SyncResult]. Cancellation counts nothing. There is no retry inside a cycle.
//
// # Progress Reporting
//
// Steps report through a [ProgressUpdate] channel. Sends never block: a full channel drops the update.
//
// # Scheduling
//
// [Scheduler] re-runs cycles on an interval driven by a [clockwork.Clock] and keeps a per-account lock so cycles for
// the same account never overlap. Different accounts run concurrently; each cycle only touches its own account's
// playlist rows.
package tasks
