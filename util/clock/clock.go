// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package clock abstracts the time operations used by timers and retry loops
// so tests can drive them deterministically.
package clock

import (
	"context"
	"time"
)

// Clock is implemented by Real and by *FakeClock.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that receives the current time once d has elapsed.
	// If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
	// AfterFunc calls f in its own goroutine (real) or synchronously during
	// Advance (fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a scheduled AfterFunc call.
type Timer struct {
	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop prevents the Timer from firing. It returns false if the timer already fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset reschedules the timer to fire after d. It returns true if the timer was still pending.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }

// Sleep waits for d on the given clock, returning early with the context error if ctx is done first.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	select {
	case <-c.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{stopFunc: timer.Stop, resetFunc: timer.Reset}
}
