package rasterizer

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// MemoryGate blocks until the host has room for a heavy job.
type MemoryGate interface {
	WaitForMemory(ctx context.Context) error
}

// Throttle serializes render jobs process-wide. One instance is created at
// startup and handed to every rasterizer.
type Throttle struct {
	sem   *semaphore.Weighted
	delay time.Duration
	gate  MemoryGate
}

// NewThrottle creates a weight-1 throttle. The slot is held for delay after each job.
// gate may be nil.
func NewThrottle(delay time.Duration, gate MemoryGate) *Throttle {
	return &Throttle{
		sem:   semaphore.NewWeighted(1),
		delay: delay,
		gate:  gate,
	}
}

// Do runs job while holding the single render slot.
func (t *Throttle) Do(ctx context.Context, job func(ctx context.Context) error) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.sem.Release(1)

	if t.gate != nil {
		if err := t.gate.WaitForMemory(ctx); err != nil {
			return err
		}
	}

	err := job(ctx)
	t.pause(ctx)
	return err
}

func (t *Throttle) pause(ctx context.Context) {
	if t.delay <= 0 {
		return
	}
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
