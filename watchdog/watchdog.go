// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package watchdog implements a feed-or-reset liveness timer.
//
// A Watchdog must be fed before its timeout runs out. If it starves, the
// reset handler is called with the last food it got and the countdown starts
// again with that food.
package watchdog

import (
	"sync"
	"time"

	"github.com/wechaty/puppet-wechat/util/clock"
	wxLog "github.com/wechaty/puppet-wechat/util/log"
)

// Food is one heartbeat given to a Watchdog. A non-zero Timeout overrides the
// default timeout for the countdown started by this feed.
type Food[T any] struct {
	Data    T
	Type    string
	Timeout time.Duration
}

// ResetHandler is called when the watchdog starves.
type ResetHandler[T any] func(food Food[T], elapsed time.Duration)

// Option configures a Watchdog.
type Option func(*options)

type options struct {
	clock clock.Clock
	log   wxLog.Logger
}

// WithClock sets the clock used for the countdown. Defaults to clock.Real().
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. Defaults to wxLog.Noop.
func WithLogger(log wxLog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Watchdog is safe for concurrent use.
type Watchdog[T any] struct {
	Name string

	timeout time.Duration
	clock   clock.Clock
	log     wxLog.Logger

	lock     sync.Mutex
	timer    *clock.Timer
	gen      uint64
	asleep   bool
	lastFood Food[T]
	lastFeed time.Time
	onReset  ResetHandler[T]
}

// New creates a watchdog with the given default timeout. It is armed, but the
// countdown only starts with the first Feed.
func New[T any](timeout time.Duration, name string, opts ...Option) *Watchdog[T] {
	o := options{clock: clock.Real(), log: wxLog.Noop}
	for _, opt := range opts {
		opt(&o)
	}
	return &Watchdog[T]{
		Name:    name,
		timeout: timeout,
		clock:   o.clock,
		log:     o.log,
	}
}

// OnReset sets the handler called on starvation. Only one handler is kept.
func (w *Watchdog[T]) OnReset(handler ResetHandler[T]) {
	w.lock.Lock()
	w.onReset = handler
	w.lock.Unlock()
}

// Feed restarts the countdown and records food as the last known state.
// It returns the previous food. Feeding a sleeping watchdog does nothing.
func (w *Watchdog[T]) Feed(food Food[T]) (previous Food[T]) {
	w.lock.Lock()
	defer w.lock.Unlock()
	previous = w.lastFood
	if w.asleep {
		w.log.Debugf("%s: ignoring %q food while asleep", w.Name, food.Type)
		return
	}
	w.lastFood = food
	w.startLocked()
	return
}

// Sleep stops the countdown. Food is ignored until Wake is called.
func (w *Watchdog[T]) Sleep() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.asleep = true
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Wake makes a sleeping watchdog accept food again. It does not start a countdown by itself.
func (w *Watchdog[T]) Wake() {
	w.lock.Lock()
	w.asleep = false
	w.lock.Unlock()
}

// Asleep reports whether Sleep was called without a following Wake.
func (w *Watchdog[T]) Asleep() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.asleep
}

// LastFood returns the most recent food the watchdog accepted.
func (w *Watchdog[T]) LastFood() Food[T] {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.lastFood
}

func (w *Watchdog[T]) startLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	timeout := w.lastFood.Timeout
	if timeout <= 0 {
		timeout = w.timeout
	}
	w.lastFeed = w.clock.Now()
	w.timer = w.clock.AfterFunc(timeout, func() { w.fire(gen) })
}

func (w *Watchdog[T]) fire(gen uint64) {
	w.lock.Lock()
	if w.asleep || gen != w.gen {
		w.lock.Unlock()
		return
	}
	food := w.lastFood
	elapsed := w.clock.Now().Sub(w.lastFeed)
	handler := w.onReset
	w.lock.Unlock()

	w.log.Warnf("%s: starved for %s after %q food", w.Name, elapsed, food.Type)
	if handler != nil {
		handler(food, elapsed)
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	// The handler may have fed or put us to sleep, either way the countdown is already settled.
	if !w.asleep && gen == w.gen {
		w.startLocked()
	}
}
