// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package puppetwechat implements a puppet for bridging a WeChat account through the WeChat Web page.
package puppetwechat

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/util/exsync"
	"go.mau.fi/util/ptr"
	"golang.org/x/time/rate"

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/store"
	"github.com/wechaty/puppet-wechat/types"
	"github.com/wechaty/puppet-wechat/types/events"
	"github.com/wechaty/puppet-wechat/util/clock"
	wxLog "github.com/wechaty/puppet-wechat/util/log"
	"github.com/wechaty/puppet-wechat/watchdog"
)

// EventHandler is a function that can handle events from the puppet.
type EventHandler func(evt any)
type bridgeHandler func(ctx context.Context, evt bridge.Event)

var nextHandlerID uint32

type wrappedEventHandler struct {
	fn EventHandler
	id uint32
}

// SessionState is the lifecycle state of a Puppet.
type SessionState int32

const (
	StateInactive SessionState = iota
	StatePendingActive
	StateActive
	StatePendingInactive
)

func (s SessionState) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StatePendingActive:
		return "pending-active"
	case StateActive:
		return "active"
	case StatePendingInactive:
		return "pending-inactive"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

const handlerQueueSize = 256

// initTimeout is the heartbeat countdown right after startup, which has to cover the first login.
const initTimeout = 2 * time.Minute

// Tunables contains the timeouts and retry budgets of the puppet.
type Tunables struct {
	ScanTimeout        time.Duration
	HeartbeatTimeout   time.Duration
	ReadyTimeout       time.Duration
	DingTimeout        time.Duration
	CookieSaveInterval time.Duration

	LoginRetryAttempts int
	LoginRetryInterval time.Duration

	StablePollInterval time.Duration
	StableRounds       int

	RoomJoinRetryAttempts int
	RoomJoinRetryInterval time.Duration
	RoomLeaveRefreshDelay time.Duration

	RoomPayloadAttempts int
	RoomPayloadInterval time.Duration
}

// DefaultTunables returns the values used when WithTunables isn't passed to NewPuppet.
func DefaultTunables() Tunables {
	return Tunables{
		ScanTimeout:        2 * time.Minute,
		HeartbeatTimeout:   60 * time.Second,
		ReadyTimeout:       2 * time.Minute,
		DingTimeout:        30 * time.Second,
		CookieSaveInterval: 5 * time.Minute,

		LoginRetryAttempts: 30,
		LoginRetryInterval: 1 * time.Second,

		StablePollInterval: 1 * time.Second,
		StableRounds:       3,

		RoomJoinRetryAttempts: 60,
		RoomJoinRetryInterval: 1 * time.Second,
		RoomLeaveRefreshDelay: 10 * time.Second,

		RoomPayloadAttempts: 7,
		RoomPayloadInterval: 1 * time.Second,
	}
}

// PuppetOption configures a Puppet in NewPuppet.
type PuppetOption func(*Puppet)

// WithLogger sets the logger. The default is wxLog.Noop.
func WithLogger(log wxLog.Logger) PuppetOption {
	return func(p *Puppet) {
		if log != nil {
			p.Log = log
		}
	}
}

// WithClock replaces the clock used for every timer and retry loop.
func WithClock(c clock.Clock) PuppetOption {
	return func(p *Puppet) { p.clock = c }
}

// WithCookieStore sets where the session cookies are saved between restarts.
// The default is an in-memory store.
func WithCookieStore(s store.CookieStore) PuppetOption {
	return func(p *Puppet) { p.store = s }
}

// WithTunables overrides the default timeouts and retry budgets.
func WithTunables(t Tunables) PuppetOption {
	return func(p *Puppet) { p.tunables = t }
}

type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan bridge.Event
}

// Puppet contains everything necessary to drive one WeChat Web account.
type Puppet struct {
	Log      wxLog.Logger
	firerLog wxLog.Logger

	transport Transport
	store     store.CookieStore
	clock     clock.Clock
	tunables  Tunables

	stateLock sync.Mutex
	state     SessionState
	settled   *exsync.Event
	session   *session

	selfLock    sync.RWMutex
	selfID      string
	scanPayload *types.ScanPayload

	heartbeatDog *watchdog.Watchdog[string]
	scanDog      *watchdog.Watchdog[string]
	cookieSave   *rate.Sometimes

	waiterLock     sync.Mutex
	readyWaiter    chan struct{}
	dingWaiter     chan string
	startErrWaiter chan error
	blocked        atomic.Bool

	bridgeHandlers    map[string]bridgeHandler
	roomMessageChecks []messageCheck

	contacts *payloadCache[types.RawContact]
	rooms    *payloadCache[types.RawContact]
	messages *payloadCache[types.RawMessage]

	eventHandlers     []wrappedEventHandler
	eventHandlersLock sync.RWMutex
}

// NewPuppet initializes a new puppet on top of the given transport.
// The puppet registers itself as the only event handler of the transport.
func NewPuppet(transport Transport, opts ...PuppetOption) *Puppet {
	p := &Puppet{
		Log:      wxLog.Noop,
		store:    store.NewMemoryCookieStore(),
		clock:    clock.Real(),
		tunables: DefaultTunables(),

		transport: transport,
		settled:   exsync.NewEvent(),

		contacts: newPayloadCache[types.RawContact](),
		rooms:    newPayloadCache[types.RawContact](),
		messages: newPayloadCache[types.RawMessage](),

		eventHandlers: make([]wrappedEventHandler, 0, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.settled.Set()
	p.firerLog = p.Log.Sub("Firer")
	p.cookieSave = &rate.Sometimes{Interval: p.tunables.CookieSaveInterval}
	p.heartbeatDog = watchdog.New[string](p.tunables.HeartbeatTimeout, "Heartbeat",
		watchdog.WithClock(p.clock), watchdog.WithLogger(p.Log.Sub("Watchdog")))
	p.scanDog = watchdog.New[string](p.tunables.ScanTimeout, "Scan",
		watchdog.WithClock(p.clock), watchdog.WithLogger(p.Log.Sub("Watchdog")))
	p.heartbeatDog.OnReset(p.onWatchdogReset)
	p.scanDog.OnReset(p.onWatchdogReset)
	p.bridgeHandlers = map[string]bridgeHandler{
		"scan":      p.handleScan,
		"login":     p.handleLogin,
		"logout":    p.handleLogout,
		"message":   p.handleMessage,
		"ding":      p.handleDing,
		"heartbeat": p.handleHeartbeat,
		"ready":     p.handleReady,
		"error":     p.handleError,
	}
	p.roomMessageChecks = []messageCheck{
		{"room-join", p.checkRoomJoin},
		{"room-leave", p.checkRoomLeave},
		{"room-topic", p.checkRoomTopic},
	}
	if transport != nil {
		transport.AddEventHandler(p.enqueueBridgeEvent)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Puppet) State() SessionState {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	return p.state
}

func (p *Puppet) setStateLocked(state SessionState) {
	p.Log.Debugf("Session state %s -> %s", p.state, state)
	p.state = state
	if state == StateActive || state == StateInactive {
		p.settled.Set()
	} else {
		p.settled.Clear()
	}
}

// IsLoggedIn returns true after the page has confirmed a login and the user name was resolved.
func (p *Puppet) IsLoggedIn() bool {
	return p != nil && p.SelfID() != ""
}

// SelfID returns the user name of the logged in account, or an empty string.
func (p *Puppet) SelfID() string {
	p.selfLock.RLock()
	defer p.selfLock.RUnlock()
	return p.selfID
}

// ScanPayload returns a copy of the latest login QR code, or nil if there isn't one.
func (p *Puppet) ScanPayload() *types.ScanPayload {
	p.selfLock.RLock()
	defer p.selfLock.RUnlock()
	return ptr.Clone(p.scanPayload)
}

// Start opens the transport session and waits until the page script answers a ding.
//
// Calling Start on an active puppet does nothing. If another Start or Stop is in progress,
// this waits for it to finish first.
func (p *Puppet) Start(ctx context.Context) error {
	if p == nil || p.transport == nil {
		return ErrTransportIsNil
	}
	for {
		p.stateLock.Lock()
		state := p.state
		switch state {
		case StateActive:
			p.stateLock.Unlock()
			p.Log.Debugf("Start called on an active puppet")
			return nil
		case StateInactive:
			sess := p.newSessionLocked()
			p.setStateLocked(StatePendingActive)
			p.stateLock.Unlock()
			return p.start(ctx, sess)
		}
		settled := p.settled.GetChan()
		p.stateLock.Unlock()
		p.Log.Debugf("Start called while %s, waiting for the transition to finish", state)
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
		if state == StatePendingActive && p.State() != StateActive {
			return ErrNotActive
		}
	}
}

// Stop tears down the transport session. Stopping an inactive puppet does nothing.
func (p *Puppet) Stop(ctx context.Context) error {
	if p == nil || p.transport == nil {
		return ErrTransportIsNil
	}
	for {
		p.stateLock.Lock()
		state := p.state
		switch state {
		case StateInactive:
			p.stateLock.Unlock()
			p.Log.Debugf("Stop called on an inactive puppet")
			return nil
		case StateActive:
			p.setStateLocked(StatePendingInactive)
			p.stateLock.Unlock()
			return p.stop(ctx)
		case StatePendingActive:
			// The pending start notices the cancelled session and cleans up after itself
			p.setStateLocked(StatePendingInactive)
			if p.session != nil {
				p.session.cancel()
			}
			state = StatePendingInactive
		}
		settled := p.settled.GetChan()
		p.stateLock.Unlock()
		p.Log.Debugf("Stop called while %s, waiting for the transition to finish", state)
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
		if state == StatePendingInactive {
			return nil
		}
	}
}

func (p *Puppet) newSessionLocked() *session {
	ctx, cancel := context.WithCancel(context.Background())
	p.session = &session{
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan bridge.Event, handlerQueueSize),
	}
	return p.session
}

func (p *Puppet) start(parentCtx context.Context, sess *session) (err error) {
	p.Log.Infof("Starting puppet")
	defer func() {
		if err != nil {
			if errors.Is(err, ErrStartAborted) {
				p.Log.Infof("Puppet start was aborted by stop")
			} else {
				p.Log.Errorf("Failed to start puppet: %v", err)
				p.dispatchEvent(&events.Error{Err: err})
			}
			p.stateLock.Lock()
			p.setStateLocked(StatePendingInactive)
			p.stateLock.Unlock()
			if stopErr := p.stop(parentCtx); stopErr != nil {
				p.Log.Warnf("Failed to clean up after failed start: %v", stopErr)
			}
		}
	}()
	// Stop cancels the session, which has to interrupt every wait below
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	defer context.AfterFunc(sess.ctx, cancel)()

	go p.handlerQueueLoop(sess)
	p.heartbeatDog.Wake()
	p.scanDog.Wake()

	p.restoreCookies(ctx)
	ready := p.expectReady()
	failed := p.expectStartError()
	if err = p.transport.Start(ctx); err != nil {
		return p.startError(sess, fmt.Errorf("failed to start transport: %w", err))
	}
	timeout, stopTimer := afterChan(p.clock, p.tunables.ReadyTimeout)
	select {
	case <-ready:
		stopTimer()
	case err = <-failed:
		stopTimer()
		return err
	case <-timeout:
		return ErrReadyTimeout
	case <-ctx.Done():
		stopTimer()
		return p.startError(sess, ctx.Err())
	}
	p.waiterLock.Lock()
	p.startErrWaiter = nil
	p.waiterLock.Unlock()

	if err = p.probe(ctx); err != nil {
		return p.startError(sess, err)
	}

	p.stateLock.Lock()
	if p.state != StatePendingActive {
		p.stateLock.Unlock()
		return ErrStartAborted
	}
	p.setStateLocked(StateActive)
	p.stateLock.Unlock()

	p.emitHeartbeat(sess.ctx, watchdog.Food[string]{Data: "inited", Type: "inited", Timeout: initTimeout})
	p.Log.Infof("Puppet started")
	return nil
}

// startError replaces the error of a wait interrupted by Stop with ErrStartAborted.
func (p *Puppet) startError(sess *session, err error) error {
	if sess.ctx.Err() != nil {
		return ErrStartAborted
	}
	return err
}

// probe checks that the injected page script is alive by sending a random nonce and waiting for it to come back.
func (p *Puppet) probe(ctx context.Context) error {
	nonce := uuid.NewString()
	dong := p.expectDing()
	if err := p.transport.Ding(ctx, nonce); err != nil {
		return fmt.Errorf("failed to send ding: %w", err)
	}
	timeout, stopTimer := afterChan(p.clock, p.tunables.DingTimeout)
	defer stopTimer()
	select {
	case data := <-dong:
		if data != nonce {
			return fmt.Errorf("%w: sent %s, got %s", ErrDingMismatch, nonce, data)
		}
		return nil
	case <-timeout:
		return ErrDingTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Puppet) stop(ctx context.Context) error {
	p.Log.Infof("Stopping puppet")
	p.markLoggedOut("stop()")
	p.heartbeatDog.Sleep()
	p.scanDog.Sleep()
	p.clearWaiters()
	p.blocked.Store(false)

	err := p.transport.Stop(ctx)
	if err != nil {
		p.Log.Errorf("Failed to stop transport: %v", err)
		err = fmt.Errorf("failed to stop transport: %w", err)
	}

	p.stateLock.Lock()
	if p.session != nil {
		p.session.cancel()
		p.session = nil
	}
	p.setStateLocked(StateInactive)
	p.stateLock.Unlock()

	p.contacts.clear()
	p.rooms.clear()
	p.messages.clear()
	return err
}

// Logout asks the page to log out and emits a Logout event.
func (p *Puppet) Logout(ctx context.Context) error {
	if !p.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	err := p.transport.Logout(ctx)
	p.markLoggedOut("logout()")
	if err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// Ding asks the page script to echo data back. The echo is emitted as *events.Dong.
func (p *Puppet) Ding(ctx context.Context, data string) error {
	if p.State() != StateActive {
		return ErrNotActive
	}
	return p.transport.Ding(ctx, data)
}

func (p *Puppet) markLoggedOut(data string) bool {
	p.selfLock.Lock()
	id := p.selfID
	p.selfID = ""
	p.selfLock.Unlock()
	if id == "" {
		return false
	}
	p.Log.Infof("Logged out from %s (%s)", id, data)
	if !p.blocked.Load() {
		p.scanDog.Wake()
		p.scanDog.Feed(watchdog.Food[string]{Data: id, Type: "logout"})
	}
	p.dispatchEvent(&events.Logout{ContactID: id, Data: data})
	return true
}

func afterChan(c clock.Clock, d time.Duration) (<-chan struct{}, func() bool) {
	ch := make(chan struct{})
	timer := c.AfterFunc(d, func() { close(ch) })
	return ch, timer.Stop
}

func (p *Puppet) expectReady() <-chan struct{} {
	ch := make(chan struct{}, 1)
	p.waiterLock.Lock()
	p.readyWaiter = ch
	p.waiterLock.Unlock()
	return ch
}

func (p *Puppet) expectDing() <-chan string {
	ch := make(chan string, 1)
	p.waiterLock.Lock()
	p.dingWaiter = ch
	p.waiterLock.Unlock()
	return ch
}

// expectStartError receives the first fatal transport error while starting.
func (p *Puppet) expectStartError() <-chan error {
	ch := make(chan error, 1)
	p.waiterLock.Lock()
	p.startErrWaiter = ch
	p.waiterLock.Unlock()
	return ch
}

func (p *Puppet) clearWaiters() {
	p.waiterLock.Lock()
	p.readyWaiter = nil
	p.dingWaiter = nil
	p.startErrWaiter = nil
	p.waiterLock.Unlock()
}

func (p *Puppet) enqueueBridgeEvent(evt bridge.Event) {
	p.stateLock.Lock()
	sess := p.session
	p.stateLock.Unlock()
	if sess == nil {
		p.Log.Debugf("Dropping %s event from transport as there's no active session", evt.EventName())
		return
	}
	select {
	case sess.queue <- evt:
	case <-sess.ctx.Done():
	}
}

func (p *Puppet) handlerQueueLoop(sess *session) {
	ticker := time.NewTicker(30 * time.Second)
	ticker.Stop()
	p.Log.Debugf("Starting handler queue loop")
Loop:
	for {
		select {
		case evt := <-sess.queue:
			handler, ok := p.bridgeHandlers[evt.EventName()]
			if !ok {
				p.Log.Warnf("No handler for %s event from transport", evt.EventName())
				continue
			}
			doneChan := make(chan struct{}, 1)
			start := time.Now()
			go func() {
				handler(sess.ctx, evt)
				duration := time.Since(start)
				doneChan <- struct{}{}
				if duration > 5*time.Second {
					p.Log.Warnf("Handling %s event took %s", evt.EventName(), duration)
				}
			}()
			ticker.Reset(30 * time.Second)
			for i := 0; i < 10; i++ {
				select {
				case <-doneChan:
					ticker.Stop()
					continue Loop
				case <-ticker.C:
					p.Log.Warnf("Handling %s event is taking long (started %s ago)", evt.EventName(), time.Since(start))
				}
			}
			p.Log.Warnf("Continuing handling of %s event in background as it's taking too long", evt.EventName())
			ticker.Stop()
		case <-sess.ctx.Done():
			p.Log.Debugf("Closing handler queue loop")
			return
		}
	}
}

// AddEventHandler registers a new function to receive all events emitted by the puppet.
//
// The returned integer is the event handler ID, which can be passed to RemoveEventHandler to remove it.
//
// All registered event handlers will receive all events. You should use a type switch statement to
// filter the events you want:
//
//	func myEventHandler(evt any) {
//		switch v := evt.(type) {
//		case *events.Message:
//			fmt.Println("Received a message!")
//		case *events.RoomJoin:
//			fmt.Println("Someone joined", v.RoomID)
//		}
//	}
func (p *Puppet) AddEventHandler(handler EventHandler) uint32 {
	nextID := atomic.AddUint32(&nextHandlerID, 1)
	p.eventHandlersLock.Lock()
	p.eventHandlers = append(p.eventHandlers, wrappedEventHandler{handler, nextID})
	p.eventHandlersLock.Unlock()
	return nextID
}

// RemoveEventHandler removes a previously registered event handler function.
// If the function with the given ID is found, this returns true.
//
// N.B. Do not run this directly from an event handler. The dispatcher holds a read lock
// on the handler list while calling handlers, so run it in a goroutine instead.
func (p *Puppet) RemoveEventHandler(id uint32) bool {
	p.eventHandlersLock.Lock()
	defer p.eventHandlersLock.Unlock()
	for index := range p.eventHandlers {
		if p.eventHandlers[index].id == id {
			p.eventHandlers[index].fn = nil
			p.eventHandlers = append(p.eventHandlers[:index], p.eventHandlers[index+1:]...)
			return true
		}
	}
	return false
}

// RemoveEventHandlers removes all event handlers that have been registered with AddEventHandler
func (p *Puppet) RemoveEventHandlers() {
	p.eventHandlersLock.Lock()
	p.eventHandlers = make([]wrappedEventHandler, 0, 1)
	p.eventHandlersLock.Unlock()
}

func (p *Puppet) dispatchEvent(evt any) {
	p.eventHandlersLock.RLock()
	defer func() {
		p.eventHandlersLock.RUnlock()
		err := recover()
		if err != nil {
			p.Log.Errorf("Event handler panicked while handling a %T: %v\n%s", evt, err, debug.Stack())
		}
	}()
	for _, handler := range p.eventHandlers {
		handler.fn(evt)
	}
}
