package tasks

import (
	"fmt"

	"github.com/desertthunder/udj/internal/shared"
)

// ProgressUpdate represents a progress event during a sync cycle.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Account string // Account the cycle runs for
	Phase   Phase  // Cycle step
	Step    int    // Current step number
	Total   int    // Total steps in this cycle
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase is a step of a sync cycle.
type Phase int

const (
	AcquireToken Phase = iota
	LibrarySync
	RecoverInFlight
	CollectDelta
	RemoteExchange
	ApplyDelta
	AdvanceCursor
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case AcquireToken:
		return "acquire_token"
	case LibrarySync:
		return "library_sync"
	case RecoverInFlight:
		return "recover_in_flight"
	case CollectDelta:
		return "collect_delta"
	case RemoteExchange:
		return "remote_exchange"
	case ApplyDelta:
		return "apply_delta"
	case AdvanceCursor:
		return "advance_cursor"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func stepTotal(flags SyncFlags) int {
	if flags.Library {
		return 6
	}
	return 5
}

func acquireTokenUpdate(account string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Account: account,
		Phase:   AcquireToken,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Acquiring auth token for %s...", account),
	}
}

func librarySyncUpdate(account string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Account: account,
		Phase:   LibrarySync,
		Step:    step,
		Total:   total,
		Message: "Fetching library changes...",
	}
}

func recoveredUpdate(account string, step, total, n int) ProgressUpdate {
	return ProgressUpdate{
		Account: account,
		Phase:   RecoverInFlight,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Recovered %d entries from an interrupted sync", n),
		Data:    n,
	}
}

func collectDeltaUpdate(account string, step, total, n int) ProgressUpdate {
	return ProgressUpdate{
		Account: account,
		Phase:   CollectDelta,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Collected %d pending playlist entries", n),
		Data:    n,
	}
}

func remoteExchangeUpdate(account string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Account: account,
		Phase:   RemoteExchange,
		Step:    step,
		Total:   total,
		Message: "Exchanging playlist changes with the server...",
	}
}

func applyDeltaUpdate(account string, step, total, n int) ProgressUpdate {
	return ProgressUpdate{
		Account: account,
		Phase:   ApplyDelta,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Applying %d remote changes...", n),
		Data:    n,
	}
}

func advanceCursorUpdate(account string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Account: account,
		Phase:   AdvanceCursor,
		Step:    step,
		Total:   total,
		Message: "Recording sync time...",
	}
}

func doneUpdate(outcome CycleOutcome) ProgressUpdate {
	return ProgressUpdate{
		Account: outcome.Account,
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Sync complete: sent %d, received %d", outcome.Sent, outcome.Received),
		Data:    outcome,
	}
}

func failedUpdate(outcome CycleOutcome) ProgressUpdate {
	msg := fmt.Sprintf("✗ Sync failed: %v", outcome.Err)
	if outcome.Kind == shared.FailureCanceled {
		msg = "Sync canceled"
	}
	return ProgressUpdate{
		Account: outcome.Account,
		Phase:   Failed,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    outcome,
	}
}
