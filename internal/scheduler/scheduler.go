// Package scheduler keeps one recurring timer per tracked target and runs
// named maintenance jobs alongside them.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const maintenancePrefix = "maintenance:"

// RunFunc executes one firing for a target. It must tolerate the target
// having been removed from the registry since the timer was installed.
type RunFunc func(ctx context.Context, targetID string)

// JobFunc is a maintenance job body.
type JobFunc func(ctx context.Context) error

// Observer receives scheduling events.
type Observer interface {
	IncSkippedFiring()
	SetScheduledTargets(n int)
}

// TargetLister yields every persisted target.
type TargetLister interface {
	ListTargets(ctx context.Context) ([]*models.Target, error)
}

type entry struct {
	key           string
	interval      time.Duration
	nightMode     bool
	maintenance   bool
	maxConcurrent int64
	run           func(ctx context.Context)
	cancel        context.CancelFunc
}

// Scheduler owns the timer table. Installing a timer for a key that already
// has one replaces it, so each key has at most one live timer.
type Scheduler struct {
	cfg      config.SchedulerConfig
	run      RunFunc
	window   ActiveWindow
	observer Observer
	now      func() time.Time
	logger   zerolog.Logger

	mu        sync.Mutex
	entries   map[string]*entry
	slots     map[string]*semaphore.Weighted
	runCtx    context.Context
	runCancel context.CancelFunc
	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	isStopped bool
	stopOnce  sync.Once
}

// NewScheduler creates a scheduler that calls run for every target firing.
func NewScheduler(cfg config.SchedulerConfig, run RunFunc, logger zerolog.Logger) (*Scheduler, error) {
	if run == nil {
		return nil, NewError("run function is required")
	}
	if cfg.MaxConcurrentPerTarget <= 0 {
		cfg.MaxConcurrentPerTarget = config.DefaultSchedulerMaxConcurrent
	}

	window, err := NewActiveWindow(cfg)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cfg:      cfg,
		run:      run,
		window:   window,
		now:      time.Now,
		logger:   logger.With().Str("module", "Scheduler").Logger(),
		entries:  make(map[string]*entry),
		slots:    make(map[string]*semaphore.Weighted),
		stopChan: make(chan struct{}),
	}, nil
}

// WithObserver sets the event observer.
func (s *Scheduler) WithObserver(observer Observer) *Scheduler {
	s.observer = observer
	return s
}

// WithClock overrides the clock used for the night-mode window.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// Start arms every installed timer. Timers installed later are armed immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStopped {
		return NewError("scheduler already stopped")
	}
	if s.isRunning {
		return nil
	}

	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.isRunning = true
	for _, e := range s.entries {
		s.arm(e)
	}

	s.logger.Info().Int("timers", len(s.entries)).Msg("Scheduler started")
	return nil
}

// Stop cancels all timers and in-flight firings, then waits for them to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.isRunning = false
		s.isStopped = true
		close(s.stopChan)
		if s.runCancel != nil {
			s.runCancel()
		}
		s.mu.Unlock()

		s.wg.Wait()
		s.logger.Info().Msg("Scheduler stopped")
	})
}

// IsRunning reports whether Start was called and Stop was not.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Schedule installs the timer for a persisted target, replacing any existing one.
func (s *Scheduler) Schedule(target *models.Target) error {
	if target == nil || target.ID == "" {
		return NewError("target id is required")
	}
	return s.ScheduleEvery(target.ID, target.Interval(), target.NightMode)
}

// ScheduleEvery installs a timer for targetID with an explicit period.
func (s *Scheduler) ScheduleEvery(targetID string, interval time.Duration, nightMode bool) error {
	if interval <= 0 {
		return WrapError(ErrInvalidInterval, fmt.Sprintf("cannot schedule %s", targetID))
	}

	id := targetID
	s.install(&entry{
		key:           id,
		interval:      interval,
		nightMode:     nightMode,
		maxConcurrent: int64(s.cfg.MaxConcurrentPerTarget),
		run:           func(ctx context.Context) { s.run(ctx, id) },
	})
	return nil
}

// AddJob installs a named maintenance job. Runs of one job never overlap
// and ignore the night-mode window.
func (s *Scheduler) AddJob(name string, interval time.Duration, job JobFunc) error {
	if interval <= 0 {
		return WrapError(ErrInvalidInterval, fmt.Sprintf("cannot add job %s", name))
	}
	if job == nil {
		return NewError("job function is required")
	}

	logger := s.logger.With().Str("job", name).Logger()
	s.install(&entry{
		key:           maintenancePrefix + name,
		interval:      interval,
		maintenance:   true,
		maxConcurrent: 1,
		run: func(ctx context.Context) {
			start := time.Now()
			if err := job(ctx); err != nil {
				logger.Error().Err(err).Msg("Maintenance job failed")
				return
			}
			logger.Debug().Dur("duration", time.Since(start)).Msg("Maintenance job completed")
		},
	})
	return nil
}

func (s *Scheduler) install(e *entry) {
	s.mu.Lock()
	old, replaced := s.entries[e.key]
	if replaced && old.cancel != nil {
		old.cancel()
	}
	s.entries[e.key] = e
	if s.isRunning {
		s.arm(e)
	}
	count := s.countTargetsLocked()
	s.mu.Unlock()

	s.reportCount(count)
	s.logger.Debug().
		Str("key", e.key).
		Dur("interval", e.interval).
		Bool("night_mode", e.nightMode).
		Bool("replaced", replaced).
		Msg("Timer installed")
}

// Cancel removes the timer for targetID. In-flight firings run to completion.
func (s *Scheduler) Cancel(targetID string) bool {
	s.mu.Lock()
	e, ok := s.entries[targetID]
	if ok {
		if e.cancel != nil {
			e.cancel()
		}
		delete(s.entries, targetID)
		delete(s.slots, targetID)
	}
	count := s.countTargetsLocked()
	s.mu.Unlock()

	if ok {
		s.reportCount(count)
		s.logger.Debug().Str("key", targetID).Msg("Timer cancelled")
	}
	return ok
}

// Rehydrate installs one timer per persisted target. Targets that cannot be
// scheduled are logged and skipped.
func (s *Scheduler) Rehydrate(ctx context.Context, lister TargetLister) (int, error) {
	targets, err := lister.ListTargets(ctx)
	if err != nil {
		return 0, WrapError(err, "failed to list targets for rehydration")
	}

	restored := 0
	for _, target := range targets {
		if err := s.Schedule(target); err != nil {
			s.logger.Warn().Err(err).Str("target_id", target.ID).Msg("Skipping target during rehydration")
			continue
		}
		restored++
	}

	s.logger.Info().Int("restored", restored).Int("total", len(targets)).Msg("Scheduler rehydrated from registry")
	return restored, nil
}

// RunNow dispatches one firing for an installed target outside its timer,
// subject to the same concurrency cap. It reports whether the firing started.
func (s *Scheduler) RunNow(targetID string) bool {
	s.mu.Lock()
	e, ok := s.entries[targetID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return s.dispatch(e)
}

// Scheduled returns the target ids that currently own a timer.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for key := range s.entries {
		if !strings.HasPrefix(key, maintenancePrefix) {
			ids = append(ids, key)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of target timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countTargetsLocked()
}

func (s *Scheduler) countTargetsLocked() int {
	n := 0
	for _, e := range s.entries {
		if !e.maintenance {
			n++
		}
	}
	return n
}

func (s *Scheduler) reportCount(n int) {
	if s.observer != nil {
		s.observer.SetScheduledTargets(n)
	}
}

// arm starts the ticker goroutine for e. Caller holds s.mu.
func (s *Scheduler) arm(e *entry) {
	ctx, cancel := context.WithCancel(s.runCtx)
	e.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx, e)
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.nightMode && !s.window.Allows(s.now()) {
				s.logger.Debug().Str("key", e.key).Msg("Firing suppressed outside active hours")
				continue
			}
			s.dispatch(e)
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		}
	}
}

// dispatch starts one firing in its own goroutine unless the entry was
// replaced, the scheduler stopped, or the entry's concurrency cap is full.
func (s *Scheduler) dispatch(e *entry) bool {
	s.mu.Lock()
	if !s.isRunning || s.entries[e.key] != e {
		s.mu.Unlock()
		return false
	}

	slot, ok := s.slots[e.key]
	if !ok {
		slot = semaphore.NewWeighted(e.maxConcurrent)
		s.slots[e.key] = slot
	}
	if !slot.TryAcquire(1) {
		s.mu.Unlock()
		s.logger.Warn().
			Str("key", e.key).
			Int64("max_concurrent", e.maxConcurrent).
			Msg("Skipping firing, previous runs still in flight")
		if s.observer != nil && !e.maintenance {
			s.observer.IncSkippedFiring()
		}
		return false
	}

	s.wg.Add(1)
	ctx := s.runCtx
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer slot.Release(1)
		defer s.recoverFiring(e.key)
		e.run(ctx)
	}()
	return true
}

func (s *Scheduler) recoverFiring(key string) {
	if r := recover(); r != nil {
		s.logger.Error().
			Str("key", key).
			Interface("panic", r).
			Str("stack", string(debug.Stack())).
			Msg("Firing panicked, timer kept")
	}
}
