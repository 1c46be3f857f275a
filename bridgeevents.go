// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"errors"
	"fmt"

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/types/events"
	"github.com/wechaty/puppet-wechat/util/clock"
	"github.com/wechaty/puppet-wechat/watchdog"
)

func (p *Puppet) handleLogin(ctx context.Context, rawEvt bridge.Event) {
	evt := rawEvt.(*bridge.Login)
	if self := p.SelfID(); self != "" {
		err := fmt.Errorf("%w as %s", ErrAlreadyLoggedIn, self)
		p.Log.Errorf("Got login event: %v", err)
		p.dispatchEvent(&events.Error{Err: err})
		return
	}
	p.selfLock.Lock()
	p.scanPayload = nil
	p.selfLock.Unlock()

	// The login event can arrive before the page has loaded the account, so the user name may need a few tries.
	userName := evt.UserName
	for attempt := 1; userName == ""; attempt++ {
		name, err := p.transport.UserName(ctx)
		if err != nil {
			p.Log.Debugf("Failed to get user name (attempt #%d): %v", attempt, err)
		} else if name != "" {
			userName = name
			break
		}
		if attempt >= p.tunables.LoginRetryAttempts {
			p.Log.Errorf("Page didn't return a user name after %d attempts", attempt)
			p.dispatchEvent(&events.Error{Err: ErrLoginTimeout})
			return
		}
		if clock.Sleep(ctx, p.clock, p.tunables.LoginRetryInterval) != nil {
			return
		}
	}
	if state := p.State(); state != StateActive && state != StatePendingActive {
		p.Log.Debugf("Dropping login of %s as the puppet is %s", userName, state)
		return
	}

	p.selfLock.Lock()
	p.selfID = userName
	p.selfLock.Unlock()
	p.Log.Infof("Logged in as %s", userName)

	p.saveCookies(ctx)
	go p.waitStable(ctx, userName)
	// Scan monitoring is irrelevant until the next logout
	p.scanDog.Sleep()
	p.dispatchEvent(&events.Login{ContactID: userName})
}

func (p *Puppet) handleLogout(_ context.Context, _ bridge.Event) {
	if !p.markLoggedOut("logout") {
		p.Log.Errorf("Got logout event without a logged in user")
	}
}

func (p *Puppet) handleDing(_ context.Context, rawEvt bridge.Event) {
	evt := rawEvt.(*bridge.Ding)
	p.waiterLock.Lock()
	waiter := p.dingWaiter
	p.dingWaiter = nil
	p.waiterLock.Unlock()
	if waiter != nil {
		// The startup probe owns this echo
		waiter <- evt.Data
		return
	}
	p.dispatchEvent(&events.Dong{Data: evt.Data})
}

func (p *Puppet) handleHeartbeat(ctx context.Context, rawEvt bridge.Event) {
	evt := rawEvt.(*bridge.Heartbeat)
	p.emitHeartbeat(ctx, watchdog.Food[string]{Data: evt.Data, Type: "bridge"})
}

func (p *Puppet) handleReady(_ context.Context, _ bridge.Event) {
	p.waiterLock.Lock()
	waiter := p.readyWaiter
	p.readyWaiter = nil
	p.waiterLock.Unlock()
	if waiter != nil {
		waiter <- struct{}{}
	} else {
		p.Log.Debugf("Page became ready again")
	}
}

func (p *Puppet) handleError(_ context.Context, rawEvt bridge.Event) {
	evt := rawEvt.(*bridge.Error)
	if errors.Is(evt.Err, bridge.ErrBlocked) {
		p.handleBlocked(evt.Err)
		return
	}
	p.Log.Errorf("Transport error: %v", evt.Err)
	p.dispatchEvent(&events.Error{Err: evt.Err})
}

// handleBlocked fails a pending start, or parks an active session until it's stopped.
// Reloading a blocked page only shows the same notice again.
func (p *Puppet) handleBlocked(err error) {
	p.waiterLock.Lock()
	waiter := p.startErrWaiter
	p.startErrWaiter = nil
	p.waiterLock.Unlock()
	if waiter != nil {
		waiter <- err
		return
	}
	p.Log.Errorf("Account is blocked from web logins, stopping recovery: %v", err)
	p.blocked.Store(true)
	p.heartbeatDog.Sleep()
	p.scanDog.Sleep()
	p.dispatchEvent(&events.Error{Err: err})
}
