// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"fmt"
	"time"

	"github.com/wechaty/puppet-wechat/store"
	"github.com/wechaty/puppet-wechat/types/events"
	"github.com/wechaty/puppet-wechat/util/clock"
	"github.com/wechaty/puppet-wechat/watchdog"
)

// emitHeartbeat feeds the heartbeat watchdog, emits a Heartbeat event and
// saves the cookies if the last save was long enough ago.
func (p *Puppet) emitHeartbeat(ctx context.Context, food watchdog.Food[string]) {
	p.heartbeatDog.Feed(food)
	p.dispatchEvent(&events.Heartbeat{Type: food.Type, Data: food.Data})
	p.cookieSave.Do(func() {
		p.saveCookies(ctx)
	})
}

func (p *Puppet) onWatchdogReset(food watchdog.Food[string], elapsed time.Duration) {
	// Recovery stops and starts the transport, which must not happen on the timer goroutine.
	go p.recoverSession(context.Background(), food, elapsed)
}

func (p *Puppet) recoverSession(ctx context.Context, food watchdog.Food[string], elapsed time.Duration) {
	if state := p.State(); state != StateActive {
		p.Log.Debugf("Not recovering session after %s starvation as the puppet is %s", food.Type, state)
		return
	} else if p.blocked.Load() {
		p.Log.Debugf("Not recovering session after %s starvation as the account is blocked", food.Type)
		return
	}
	p.Log.Warnf("No %s food for %s, reloading page", food.Type, elapsed)
	err := p.transport.Reload(ctx)
	if err == nil {
		return
	}
	p.Log.Errorf("Failed to reload page: %v, restarting transport", err)
	if err = p.transport.Stop(ctx); err == nil {
		err = p.transport.Start(ctx)
	}
	if err != nil {
		p.Log.Errorf("Failed to restart transport: %v", err)
		p.dispatchEvent(&events.Error{Err: fmt.Errorf("failed to recover session: %w", err)})
		return
	}
	p.Log.Infof("Recovered session by restarting transport")
}

func (p *Puppet) saveCookies(ctx context.Context) {
	cookies, err := p.transport.Cookies(ctx)
	if err != nil {
		p.Log.Warnf("Failed to get cookies from transport: %v", err)
		return
	}
	if err = p.store.PutCookies(ctx, store.CookieSlot, cookies); err != nil {
		p.Log.Warnf("Failed to save cookies: %v", err)
		return
	}
	p.Log.Debugf("Saved %d cookies", len(cookies))
}

func (p *Puppet) restoreCookies(ctx context.Context) {
	cookies, err := p.store.GetCookies(ctx, store.CookieSlot)
	if err != nil {
		p.Log.Warnf("Failed to load saved cookies: %v", err)
		return
	} else if len(cookies) == 0 {
		return
	}
	if err = p.transport.SetCookies(ctx, cookies); err != nil {
		p.Log.Warnf("Failed to restore %d cookies: %v", len(cookies), err)
		return
	}
	p.Log.Debugf("Restored %d cookies", len(cookies))
}

// waitStable polls the contact list after login until its size stops growing,
// as the page loads contacts in the background without saying when it's done.
func (p *Puppet) waitStable(ctx context.Context, selfID string) {
	var maxCount, unchanged int
	for unchanged < p.tunables.StableRounds {
		if clock.Sleep(ctx, p.clock, p.tunables.StablePollInterval) != nil {
			return
		} else if p.SelfID() != selfID {
			p.Log.Debugf("Abandoning stability check for %s after logout", selfID)
			return
		}
		contacts, err := p.transport.ContactList(ctx)
		if err != nil {
			p.Log.Warnf("Failed to get contact list while waiting for it to settle: %v", err)
			unchanged = 0
			continue
		}
		count := len(contacts)
		if count > 0 && count == maxCount {
			unchanged++
		} else {
			unchanged = 0
		}
		maxCount = max(maxCount, count)
		p.Log.Debugf("Contact list has %d entries (max %d, unchanged for %d polls)", count, maxCount, unchanged)
	}
	p.Log.Infof("Contact list settled at %d entries", maxCount)
	p.dispatchEvent(&events.Ready{Data: "stable"})
}
