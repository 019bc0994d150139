package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/jonboulle/clockwork"
)

// CycleRunner runs one sync cycle. [Reconciler] implements it.
type CycleRunner interface {
	RunSyncCycle(ctx context.Context, account string, flags SyncFlags, progress chan<- ProgressUpdate) CycleOutcome
}

// Scheduler re-runs sync cycles on an interval and guarantees at most one cycle per account at a time.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	clock    clockwork.Clock
	logger   *log.Logger

	// OnOutcome, when set, receives every finished cycle. Calls may come from several goroutines.
	OnOutcome func(CycleOutcome)

	mu      sync.Mutex
	running map[string]bool
}

// NewScheduler creates a [Scheduler]. A nil clock uses the real clock.
func NewScheduler(runner CycleRunner, interval time.Duration, clock clockwork.Clock, logger *log.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		clock:    clock,
		logger:   logger,
		running:  map[string]bool{},
	}
}

// TryRun runs one cycle for account unless one is already running, in which case it returns false immediately.
func (s *Scheduler) TryRun(ctx context.Context, account string, flags SyncFlags, progress chan<- ProgressUpdate) (CycleOutcome, bool) {
	if !s.acquire(account) {
		s.logger.Warn("skipping sync, previous cycle still running", "account", account)
		return CycleOutcome{}, false
	}
	defer s.release(account)

	outcome := s.runner.RunSyncCycle(ctx, account, flags, progress)
	if s.OnOutcome != nil {
		s.OnOutcome(outcome)
	}
	return outcome, true
}

// Run syncs every account immediately and then once per interval until ctx ends.
//
// Accounts run concurrently with each other; their cycles share no playlist rows. A tick that finds an account's previous cycle still running skips it.
// Run waits for in-progress cycles before returning.
func (s *Scheduler) Run(ctx context.Context, accounts []string, flags SyncFlags, progress chan<- ProgressUpdate) error {
	if len(accounts) == 0 {
		return fmt.Errorf("%w: no accounts to sync", shared.ErrMissingArgument)
	}
	if s.interval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive", shared.ErrInvalidConfig)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	dispatch := func() {
		for _, account := range accounts {
			wg.Add(1)
			go func(account string) {
				defer wg.Done()
				s.TryRun(ctx, account, flags, progress)
			}(account)
		}
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "accounts", len(accounts), "interval", s.interval)
	dispatch()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.Chan():
			dispatch()
		}
	}
}

// Running reports whether a cycle for account is in progress.
func (s *Scheduler) Running(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[account]
}

func (s *Scheduler) acquire(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[account] {
		return false
	}
	s.running[account] = true
	return true
}

func (s *Scheduler) release(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, account)
}
