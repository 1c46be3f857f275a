// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wechaty/puppet-wechat/store"
	"github.com/wechaty/puppet-wechat/types"
)

func openTestContainer(t *testing.T) *Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	container, err := New(context.Background(), "sqlite", SQLiteAddress(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func TestCookiesRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)

	cookies, err := c.GetCookies(ctx, store.CookieSlot)
	require.NoError(t, err)
	assert.Nil(t, cookies)

	saved := []*types.Cookie{
		{Name: "webwx_auth_ticket", Value: "t1", Domain: ".wx2.qq.com", Path: "/", Expires: 1700000000, HTTPOnly: true, Secure: true},
		{Name: "wxuin", Value: "12345", Domain: ".wx2.qq.com", Path: "/"},
	}
	require.NoError(t, c.PutCookies(ctx, store.CookieSlot, saved))

	cookies, err = c.GetCookies(ctx, store.CookieSlot)
	require.NoError(t, err)
	assert.Equal(t, saved, cookies)

	require.NoError(t, c.PutCookies(ctx, store.CookieSlot, saved[1:]))
	cookies, err = c.GetCookies(ctx, store.CookieSlot)
	require.NoError(t, err)
	assert.Equal(t, saved[1:], cookies, "second put replaces the slot")

	require.NoError(t, c.DeleteCookies(ctx, store.CookieSlot))
	cookies, err = c.GetCookies(ctx, store.CookieSlot)
	require.NoError(t, err)
	assert.Nil(t, cookies)
}

func TestUpgradeIsIdempotent(t *testing.T) {
	c := openTestContainer(t)
	require.NoError(t, c.Upgrade(context.Background()))
}
