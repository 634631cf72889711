// Package mtime holds time helpers that respect context cancellation.
package mtime

import (
	"context"
	"sync"
	"time"
)

// Clock tells time and waits. Production code uses RealClock; tests can
// substitute a FakeClock so that waits finish at once.
type Clock interface {
	Now() time.Time

	// Sleep waits for d or until ctx is done, whichever comes first. It
	// returns ctx’s error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

var _ Clock = RealClock{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// FakeClock is a Clock whose time moves only when something sleeps on it.
type FakeClock struct {
	mutex sync.Mutex
	now   time.Time
	slept time.Duration
}

var _ Clock = &FakeClock{}

// NewFakeClock returns a FakeClock that starts at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (fc *FakeClock) Now() time.Time {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	return fc.now
}

// Sleep advances the clock by d, unless ctx is already done.
func (fc *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	fc.now = fc.now.Add(d)
	fc.slept += d

	return nil
}

// Slept returns the total time spent in Sleep.
func (fc *FakeClock) Slept() time.Duration {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	return fc.slept
}
