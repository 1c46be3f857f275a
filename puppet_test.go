// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/store"
	"github.com/wechaty/puppet-wechat/types"
	"github.com/wechaty/puppet-wechat/types/events"
	"github.com/wechaty/puppet-wechat/util/clock"
)

var testEpoch = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPuppet(t *testing.T, opts ...PuppetOption) (*Puppet, *fakeTransport, *clock.FakeClock, *eventCollector) {
	t.Helper()
	ft := newFakeTransport()
	clk := clock.Fake(testEpoch)
	p := NewPuppet(ft, append([]PuppetOption{WithClock(clk)}, opts...)...)
	return p, ft, clk, collectEvents(p)
}

func startTestPuppet(t *testing.T, opts ...PuppetOption) (*Puppet, *fakeTransport, *clock.FakeClock, *eventCollector) {
	t.Helper()
	p, ft, clk, c := newTestPuppet(t, opts...)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() {
		_ = p.Stop(context.Background())
	})
	return p, ft, clk, c
}

func TestStartStop(t *testing.T) {
	cookieStore := store.NewMemoryCookieStore()
	saved := []*types.Cookie{{Name: "webwx_auth_ticket", Value: "ticket", Domain: ".wx2.qq.com"}}
	require.NoError(t, cookieStore.PutCookies(context.Background(), store.CookieSlot, saved))

	p, ft, _, c := newTestPuppet(t, WithCookieStore(cookieStore))
	assert.Equal(t, StateInactive, p.State())
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, saved, ft.setCookies)

	hb := waitEvent[*events.Heartbeat](t, c)
	assert.Equal(t, "inited", hb.Type)

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, StateInactive, p.State())
	// A second stop is a no-op on the inactive puppet
	require.NoError(t, p.Stop(context.Background()))
	start, stop, _ := ft.calls()
	assert.Equal(t, 1, start)
	assert.Equal(t, 1, stop)
}

func TestStartTwice(t *testing.T) {
	p, ft, _, _ := startTestPuppet(t)
	require.NoError(t, p.Start(context.Background()))
	start, _, _ := ft.calls()
	assert.Equal(t, 1, start)
}

func TestStartWithoutTransport(t *testing.T) {
	p := NewPuppet(nil)
	assert.ErrorIs(t, p.Start(context.Background()), ErrTransportIsNil)
}

func TestStartDingMismatch(t *testing.T) {
	p, ft, _, c := newTestPuppet(t)
	ft.dingReply = func(string) string { return "dong" }

	err := p.Start(context.Background())
	require.ErrorIs(t, err, ErrDingMismatch)
	assert.Equal(t, StateInactive, p.State())
	evt := waitEvent[*events.Error](t, c)
	assert.ErrorIs(t, evt.Err, ErrDingMismatch)
	_, stop, _ := ft.calls()
	assert.Equal(t, 1, stop)
}

func TestStartTransportFailure(t *testing.T) {
	p, ft, _, _ := newTestPuppet(t)
	ft.startErr = errors.New("chrome not found")

	err := p.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
	assert.Equal(t, StateInactive, p.State())
}

func TestStartReadyTimeout(t *testing.T) {
	p, ft, clk, _ := newTestPuppet(t)
	ft.noReady = true

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Start(context.Background())
	}()
	clk.WaitForTimers(1)
	clk.Advance(p.tunables.ReadyTimeout)
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrReadyTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("Start didn't return after the ready timeout")
	}
	assert.Equal(t, StateInactive, p.State())
}

func TestScanLoginLogout(t *testing.T) {
	p, ft, _, c := startTestPuppet(t)
	ft.userNames = []string{"@self"}

	ft.emit(&bridge.Scan{Code: 0, URL: "https://login.weixin.qq.com/qrcode/Abc123=="})
	scan := waitEvent[*events.Scan](t, c)
	assert.Equal(t, "https://login.weixin.qq.com/l/Abc123==", scan.QRCode)
	assert.Equal(t, types.ScanStatusWaiting, scan.Status)
	require.NotNil(t, p.ScanPayload())
	assert.Equal(t, scan.QRCode, p.ScanPayload().QRCode)
	assert.False(t, p.scanDog.Asleep())

	ft.emit(&bridge.Login{})
	login := waitEvent[*events.Login](t, c)
	assert.Equal(t, "@self", login.ContactID)
	assert.True(t, p.IsLoggedIn())
	assert.Nil(t, p.ScanPayload())
	assert.True(t, p.scanDog.Asleep())

	ft.emit(&bridge.Logout{})
	logout := waitEvent[*events.Logout](t, c)
	assert.Equal(t, "@self", logout.ContactID)
	assert.False(t, p.IsLoggedIn())
	assert.False(t, p.scanDog.Asleep())
	assert.Equal(t, "logout", p.scanDog.LastFood().Type)
}

func TestLoginTwiceEmitsError(t *testing.T) {
	p, ft, _, c := startTestPuppet(t)
	ft.userNames = []string{"@self"}
	ft.emit(&bridge.Login{})
	waitEvent[*events.Login](t, c)

	ft.emit(&bridge.Login{UserName: "@other"})
	evt := waitEvent[*events.Error](t, c)
	assert.ErrorIs(t, evt.Err, ErrAlreadyLoggedIn)
	assert.Equal(t, "@self", p.SelfID())
}

func TestScanWhileLoggedInLogsOut(t *testing.T) {
	p, ft, _, c := startTestPuppet(t)
	ft.emit(&bridge.Login{UserName: "@self"})
	waitEvent[*events.Login](t, c)

	ft.emit(&bridge.Scan{Code: 201, URL: "https://login.weixin.qq.com/qrcode/x"})
	waitEvent[*events.Logout](t, c)
	scan := waitEvent[*events.Scan](t, c)
	assert.Equal(t, types.ScanStatusScanned, scan.Status)
	assert.False(t, p.IsLoggedIn())
	assert.Equal(t, 1, ft.logoutCalls)
}

func TestUnknownScanStatus(t *testing.T) {
	_, ft, _, c := startTestPuppet(t)
	ft.emit(&bridge.Scan{Code: 500, URL: "https://login.weixin.qq.com/qrcode/x"})
	evt := waitEvent[*events.Error](t, c)
	assert.ErrorIs(t, evt.Err, ErrUnknownScanStatus)
}

func TestLoginRetriesUserName(t *testing.T) {
	p, ft, clk, c := newTestPuppet(t)
	p.state = StateActive
	ft.userNames = []string{"", "", "@self"}

	done := make(chan struct{})
	go func() {
		p.handleLogin(context.Background(), &bridge.Login{})
		close(done)
	}()
	for i := 0; i < 2; i++ {
		clk.WaitForTimers(1)
		clk.Advance(p.tunables.LoginRetryInterval)
	}
	waitSignal(t, done, "login handling")
	assert.Equal(t, "@self", waitEvent[*events.Login](t, c).ContactID)
}

func TestLoginTimeout(t *testing.T) {
	tun := DefaultTunables()
	tun.LoginRetryAttempts = 3
	p, _, clk, c := newTestPuppet(t, WithTunables(tun))
	p.state = StateActive

	done := make(chan struct{})
	go func() {
		p.handleLogin(context.Background(), &bridge.Login{})
		close(done)
	}()
	for i := 0; i < 2; i++ {
		clk.WaitForTimers(1)
		clk.Advance(tun.LoginRetryInterval)
	}
	waitSignal(t, done, "login handling")
	assert.ErrorIs(t, waitEvent[*events.Error](t, c).Err, ErrLoginTimeout)
	assert.False(t, p.IsLoggedIn())
}

func TestWaitStable(t *testing.T) {
	p, ft, clk, c := newTestPuppet(t)
	ft.contactListCounts = []int{0, 1, 2, 2, 2, 2}
	p.selfID = "@self"

	go p.waitStable(context.Background(), "@self")
	for sample := 1; sample <= 6; sample++ {
		clk.WaitForTimers(1)
		assert.Zero(t, countEvents[*events.Ready](c.drainEvents()), "ready before sample %d", sample)
		clk.Advance(time.Second)
		waitSignal(t, ft.contactListCalled, "contact list poll")
	}
	ready := waitEvent[*events.Ready](t, c)
	assert.Equal(t, "stable", ready.Data)
	assert.Equal(t, 6, ft.contactListCalls)
}

func TestWaitStableAbandonedAfterLogout(t *testing.T) {
	p, ft, clk, c := newTestPuppet(t)
	ft.contactListCounts = []int{5}
	p.selfID = "@self"

	done := make(chan struct{})
	go func() {
		p.waitStable(context.Background(), "@self")
		close(done)
	}()
	clk.WaitForTimers(1)
	clk.Advance(time.Second)
	waitSignal(t, ft.contactListCalled, "contact list poll")
	clk.WaitForTimers(1)
	p.markLoggedOut("test")
	clk.Advance(time.Second)
	waitSignal(t, done, "stability check to stop")
	assert.Zero(t, countEvents[*events.Ready](c.drainEvents()))
}

func TestWatchdogResetReloads(t *testing.T) {
	p, ft, clk, _ := startTestPuppet(t)
	clk.Advance(initTimeout)
	waitSignal(t, ft.reloaded, "page reload")
	_, _, reload := ft.calls()
	assert.Equal(t, 1, reload)
	assert.Equal(t, StateActive, p.State())
}

func TestWatchdogResetRestartsTransport(t *testing.T) {
	_, ft, clk, _ := startTestPuppet(t)
	ft.reloadErr = errors.New("target closed")
	clk.Advance(initTimeout)
	waitSignal(t, ft.reloaded, "page reload")
	waitSignal(t, ft.restarted, "transport restart")
	start, stop, _ := ft.calls()
	assert.Equal(t, 2, start)
	assert.Equal(t, 1, stop)
}

func TestWatchdogResetFailureEmitsError(t *testing.T) {
	_, ft, clk, c := startTestPuppet(t)
	ft.lock.Lock()
	ft.reloadErr = errors.New("target closed")
	ft.stopErr = errors.New("browser crashed")
	ft.lock.Unlock()
	clk.Advance(initTimeout)
	evt := waitEvent[*events.Error](t, c)
	assert.Contains(t, evt.Err.Error(), "browser crashed")
}

func TestScanWatchdogFiresWithoutScans(t *testing.T) {
	p, ft, clk, c := startTestPuppet(t)
	// Keep the heartbeat watchdog happy so only the scan watchdog starves
	ft.emit(&bridge.Scan{Code: 0, URL: "https://login.weixin.qq.com/qrcode/x"})
	waitEvent[*events.Scan](t, c)
	for elapsed := time.Duration(0); elapsed < p.tunables.ScanTimeout; elapsed += 30 * time.Second {
		ft.emit(&bridge.Heartbeat{Data: "beat"})
		waitEvent[*events.Heartbeat](t, c)
		clk.Advance(30 * time.Second)
	}
	waitSignal(t, ft.reloaded, "page reload")
	assert.Equal(t, "scan", p.scanDog.LastFood().Type)
}

func TestCookieSaveThrottled(t *testing.T) {
	p, ft, _, c := startTestPuppet(t)
	waitEvent[*events.Heartbeat](t, c)
	ft.emit(&bridge.Heartbeat{Data: "1"})
	ft.emit(&bridge.Heartbeat{Data: "2"})
	waitEvent[*events.Heartbeat](t, c)
	waitEvent[*events.Heartbeat](t, c)

	ft.lock.Lock()
	assert.Equal(t, 1, ft.cookieCalls)
	ft.lock.Unlock()
	saved, err := p.store.GetCookies(context.Background(), store.CookieSlot)
	require.NoError(t, err)
	assert.Equal(t, ft.cookies, saved)
}

func TestDingEmitsDong(t *testing.T) {
	p, _, _, c := startTestPuppet(t)
	require.NoError(t, p.Ding(context.Background(), "hello"))
	assert.Equal(t, "hello", waitEvent[*events.Dong](t, c).Data)
}

func TestStartupProbeEmitsNoDong(t *testing.T) {
	_, _, _, c := startTestPuppet(t)
	waitEvent[*events.Heartbeat](t, c)
	assert.Zero(t, countEvents[*events.Dong](c.drainEvents()))
}

func TestDingInactive(t *testing.T) {
	p, _, _, _ := newTestPuppet(t)
	assert.ErrorIs(t, p.Ding(context.Background(), "hello"), ErrNotActive)
}

func TestLogoutNotLoggedIn(t *testing.T) {
	p, _, _, _ := startTestPuppet(t)
	assert.ErrorIs(t, p.Logout(context.Background()), ErrNotLoggedIn)
}

func TestStopLogsOut(t *testing.T) {
	p, ft, _, c := startTestPuppet(t)
	ft.emit(&bridge.Login{UserName: "@self"})
	waitEvent[*events.Login](t, c)

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, "stop()", waitEvent[*events.Logout](t, c).Data)
	assert.False(t, p.IsLoggedIn())
}

func TestEventHandlerPanicRecovered(t *testing.T) {
	p, _, _, c := newTestPuppet(t)
	id := p.AddEventHandler(func(evt any) {
		panic("boom")
	})
	assert.NotPanics(t, func() {
		p.dispatchEvent(&events.Ready{Data: "test"})
	})
	assert.True(t, p.RemoveEventHandler(id))
	assert.False(t, p.RemoveEventHandler(id))
	c.drainEvents()
	p.dispatchEvent(&events.Ready{Data: "after"})
	assert.Equal(t, "after", waitEvent[*events.Ready](t, c).Data)
}

// startPending starts the puppet in the background with a page that never becomes ready.
func startPending(t *testing.T, p *Puppet, ft *fakeTransport) <-chan error {
	t.Helper()
	ft.noReady = true
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Start(context.Background())
	}()
	require.Eventually(t, func() bool {
		start, _, _ := ft.calls()
		return start == 1
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, StatePendingActive, p.State())
	return errCh
}

func receiveErr(t *testing.T, errCh <-chan error, what string) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %s", what)
		return nil
	}
}

func TestConcurrentStartWaitsForPendingStart(t *testing.T) {
	p, ft, _, _ := newTestPuppet(t)
	first := startPending(t, p, ft)
	second := make(chan error, 1)
	go func() {
		second <- p.Start(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	select {
	case err := <-second:
		t.Fatalf("Second start returned before the first one finished: %v", err)
	default:
	}

	ft.emit(&bridge.Ready{})
	require.NoError(t, receiveErr(t, first, "first start"))
	require.NoError(t, receiveErr(t, second, "second start"))
	assert.Equal(t, StateActive, p.State())
	start, _, _ := ft.calls()
	assert.Equal(t, 1, start)
	require.NoError(t, p.Stop(context.Background()))
}

func TestStopAbortsPendingStart(t *testing.T) {
	p, ft, _, c := newTestPuppet(t)
	starting := startPending(t, p, ft)

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, StateInactive, p.State())
	err := receiveErr(t, starting, "aborted start")
	assert.ErrorIs(t, err, ErrStartAborted)
	assert.ErrorIs(t, err, ErrNotActive)
	_, stop, _ := ft.calls()
	assert.Equal(t, 1, stop)
	assert.Zero(t, countEvents[*events.Error](c.drainEvents()))
}

func TestStartWaitsForPendingStop(t *testing.T) {
	p, ft, _, _ := startTestPuppet(t)
	ft.lock.Lock()
	ft.stopBlock = make(chan struct{})
	ft.lock.Unlock()

	stopped := make(chan error, 1)
	go func() {
		stopped <- p.Stop(context.Background())
	}()
	require.Eventually(t, func() bool {
		return p.State() == StatePendingInactive
	}, 2*time.Second, time.Millisecond)
	started := make(chan error, 1)
	go func() {
		started <- p.Start(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	select {
	case err := <-started:
		t.Fatalf("Start returned while the puppet was stopping: %v", err)
	default:
	}

	ft.lock.Lock()
	close(ft.stopBlock)
	ft.stopBlock = nil
	ft.lock.Unlock()
	require.NoError(t, receiveErr(t, stopped, "stop"))
	require.NoError(t, receiveErr(t, started, "start"))
	assert.Equal(t, StateActive, p.State())
	start, _, _ := ft.calls()
	assert.Equal(t, 2, start)
}

func TestBlockedPageFailsStart(t *testing.T) {
	p, ft, _, c := newTestPuppet(t)
	starting := startPending(t, p, ft)
	ft.emit(&bridge.Error{Err: &bridge.BlockedError{Code: bridge.BlockedCode, Message: "当前登录环境异常"}})

	err := receiveErr(t, starting, "blocked start")
	var blocked *bridge.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "当前登录环境异常", blocked.Message)
	assert.Equal(t, StateInactive, p.State())
	evts := c.drainEvents()
	assert.Equal(t, 1, countEvents[*events.Error](evts))
}

func TestBlockedPageStopsRecovery(t *testing.T) {
	p, ft, clk, c := startTestPuppet(t)
	ft.emit(&bridge.Error{Err: &bridge.BlockedError{Code: bridge.BlockedCode, Message: "blocked"}})
	evt := waitEvent[*events.Error](t, c)
	assert.ErrorIs(t, evt.Err, bridge.ErrBlocked)
	assert.True(t, p.heartbeatDog.Asleep())
	assert.True(t, p.scanDog.Asleep())

	ft.emit(&bridge.Heartbeat{Data: "beat"})
	clk.Advance(2 * initTimeout)
	select {
	case <-ft.reloaded:
		t.Fatal("Blocked page was reloaded")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateActive, p.State())

	// A stop clears the block so the next start can try again
	require.NoError(t, p.Stop(context.Background()))
	assert.False(t, p.blocked.Load())
}
