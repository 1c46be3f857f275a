// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/types"
)

// fakeTransport is an in-memory page. Events are emitted synchronously from the calling goroutine.
type fakeTransport struct {
	lock    sync.Mutex
	handler func(evt bridge.Event)

	startCalls, stopCalls, reloadCalls, logoutCalls, cookieCalls int
	startErr, stopErr, reloadErr                                 error
	noReady                                                      bool
	dingReply                                                    func(data string) string

	userNames         []string
	contactListCounts []int
	contactListCalls  int
	contactListCalled chan struct{}

	contacts     map[string]*types.RawContact
	getContact   func(id string, call int) *types.RawContact
	contactCalls map[string]int
	messages     map[string]*types.RawMessage

	cookies    []*types.Cookie
	setCookies []*types.Cookie
	sent       []string
	accepted   []string

	reloaded  chan struct{}
	restarted chan struct{}
	// stopBlock holds Stop until it's closed
	stopBlock chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		contacts:          make(map[string]*types.RawContact),
		contactCalls:      make(map[string]int),
		messages:          make(map[string]*types.RawMessage),
		contactListCalled: make(chan struct{}, 16),
		reloaded:          make(chan struct{}, 4),
		restarted:         make(chan struct{}, 4),
		cookies:           []*types.Cookie{{Name: "webwxuvid", Value: "abc", Domain: ".wx.qq.com"}},
	}
}

func (ft *fakeTransport) emit(evt bridge.Event) {
	ft.lock.Lock()
	handler := ft.handler
	ft.lock.Unlock()
	handler(evt)
}

func (ft *fakeTransport) AddEventHandler(handler func(evt bridge.Event)) {
	ft.lock.Lock()
	ft.handler = handler
	ft.lock.Unlock()
}

func (ft *fakeTransport) Start(_ context.Context) error {
	ft.lock.Lock()
	ft.startCalls++
	err := ft.startErr
	calls := ft.startCalls
	ft.lock.Unlock()
	if err != nil {
		return err
	}
	if calls > 1 {
		ft.restarted <- struct{}{}
	}
	if !ft.noReady {
		ft.emit(&bridge.Ready{})
	}
	return nil
}

func (ft *fakeTransport) Stop(_ context.Context) error {
	ft.lock.Lock()
	block := ft.stopBlock
	ft.lock.Unlock()
	if block != nil {
		<-block
	}
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.stopCalls++
	return ft.stopErr
}

func (ft *fakeTransport) Reload(_ context.Context) error {
	ft.lock.Lock()
	ft.reloadCalls++
	err := ft.reloadErr
	ft.lock.Unlock()
	ft.reloaded <- struct{}{}
	return err
}

func (ft *fakeTransport) Ding(_ context.Context, data string) error {
	reply := data
	if ft.dingReply != nil {
		reply = ft.dingReply(data)
	}
	ft.emit(&bridge.Ding{Data: reply})
	return nil
}

func (ft *fakeTransport) UserName(_ context.Context) (string, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	if len(ft.userNames) == 0 {
		return "", nil
	}
	name := ft.userNames[0]
	if len(ft.userNames) > 1 {
		ft.userNames = ft.userNames[1:]
	}
	return name, nil
}

func (ft *fakeTransport) Logout(_ context.Context) error {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.logoutCalls++
	return nil
}

func (ft *fakeTransport) ContactList(_ context.Context) ([]string, error) {
	ft.lock.Lock()
	count := 0
	if ft.contactListCalls < len(ft.contactListCounts) {
		count = ft.contactListCounts[ft.contactListCalls]
	} else if len(ft.contactListCounts) > 0 {
		count = ft.contactListCounts[len(ft.contactListCounts)-1]
	}
	ft.contactListCalls++
	ft.lock.Unlock()
	ft.contactListCalled <- struct{}{}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = "@contact"
	}
	return ids, nil
}

func (ft *fakeTransport) RoomList(_ context.Context) ([]string, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	var ids []string
	for id := range ft.contacts {
		if types.IsRoomID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (ft *fakeTransport) GetContact(_ context.Context, id string) (*types.RawContact, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.contactCalls[id]++
	if ft.getContact != nil {
		if raw := ft.getContact(id, ft.contactCalls[id]); raw != nil {
			return raw, nil
		}
	}
	return ft.contacts[id], nil
}

func (ft *fakeTransport) GetMessage(_ context.Context, id string) (*types.RawMessage, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	return ft.messages[id], nil
}

func (ft *fakeTransport) Send(_ context.Context, to, text string) error {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.sent = append(ft.sent, to+":"+text)
	return nil
}

func (ft *fakeTransport) ContactAlias(_ context.Context, _, _ string) error { return nil }
func (ft *fakeTransport) RoomTopic(_ context.Context, _, _ string) error    { return nil }
func (ft *fakeTransport) RoomAdd(_ context.Context, _, _ string) error      { return nil }
func (ft *fakeTransport) RoomDel(_ context.Context, _, _ string) error      { return nil }

func (ft *fakeTransport) RoomCreate(_ context.Context, _ []string, _ string) (string, error) {
	return "@@created", nil
}

func (ft *fakeTransport) FriendshipAdd(_ context.Context, _, _ string) error { return nil }

func (ft *fakeTransport) FriendshipAccept(_ context.Context, contactID, ticket string) error {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.accepted = append(ft.accepted, contactID+":"+ticket)
	return nil
}

func (ft *fakeTransport) Cookies(_ context.Context) ([]*types.Cookie, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.cookieCalls++
	return ft.cookies, nil
}

func (ft *fakeTransport) SetCookies(_ context.Context, cookies []*types.Cookie) error {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.setCookies = cookies
	return nil
}

func (ft *fakeTransport) calls() (start, stop, reload int) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	return ft.startCalls, ft.stopCalls, ft.reloadCalls
}

type eventCollector struct {
	ch chan any
}

func collectEvents(p *Puppet) *eventCollector {
	c := &eventCollector{ch: make(chan any, 256)}
	p.AddEventHandler(func(evt any) {
		c.ch <- evt
	})
	return c
}

func waitEvent[T any](t *testing.T, c *eventCollector) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-c.ch:
			if typed, ok := evt.(T); ok {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("Timed out waiting for %T event", zero)
			return zero
		}
	}
}

// drainEvents returns every event emitted so far without waiting.
func (c *eventCollector) drainEvents() []any {
	var out []any
	for {
		select {
		case evt := <-c.ch:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func countEvents[T any](evts []any) int {
	n := 0
	for _, evt := range evts {
		if _, ok := evt.(T); ok {
			n++
		}
	}
	return n
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %s", what)
	}
}
