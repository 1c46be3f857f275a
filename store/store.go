// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package store contains the interfaces for persisting session state between restarts.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/wechaty/puppet-wechat/types"
)

// CookieSlot is the key under which the web session cookies are saved.
const CookieSlot = "PUPPET_WECHAT"

// CookieStore keeps one cookie set per slot.
//
// GetCookies returns nil cookies and no error when the slot is empty.
type CookieStore interface {
	GetCookies(ctx context.Context, slot string) ([]*types.Cookie, error)
	PutCookies(ctx context.Context, slot string, cookies []*types.Cookie) error
	DeleteCookies(ctx context.Context, slot string) error
}

// MemoryCookieStore is a CookieStore that only lives as long as the process.
type MemoryCookieStore struct {
	lock  sync.RWMutex
	slots map[string][]*types.Cookie
}

var _ CookieStore = (*MemoryCookieStore)(nil)

func NewMemoryCookieStore() *MemoryCookieStore {
	return &MemoryCookieStore{slots: make(map[string][]*types.Cookie)}
}

func cloneCookies(cookies []*types.Cookie) []*types.Cookie {
	if cookies == nil {
		return nil
	}
	out := make([]*types.Cookie, len(cookies))
	for i, c := range cookies {
		copied := *c
		out[i] = &copied
	}
	return out
}

func (m *MemoryCookieStore) GetCookies(_ context.Context, slot string) ([]*types.Cookie, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return cloneCookies(m.slots[slot]), nil
}

func (m *MemoryCookieStore) PutCookies(_ context.Context, slot string, cookies []*types.Cookie) error {
	m.lock.Lock()
	m.slots[slot] = cloneCookies(slices.DeleteFunc(slices.Clone(cookies), func(c *types.Cookie) bool { return c == nil }))
	m.lock.Unlock()
	return nil
}

func (m *MemoryCookieStore) DeleteCookies(_ context.Context, slot string) error {
	m.lock.Lock()
	delete(m.slots, slot)
	m.lock.Unlock()
	return nil
}
