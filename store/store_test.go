// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wechaty/puppet-wechat/types"
)

func TestMemoryCookieStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCookieStore()

	cookies, err := s.GetCookies(ctx, CookieSlot)
	require.NoError(t, err)
	assert.Nil(t, cookies)

	in := []*types.Cookie{{Name: "webwxuvid", Value: "abc", Domain: ".wx.qq.com"}, nil}
	require.NoError(t, s.PutCookies(ctx, CookieSlot, in))
	in[0].Value = "mutated"

	cookies, err = s.GetCookies(ctx, CookieSlot)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)

	require.NoError(t, s.DeleteCookies(ctx, CookieSlot))
	cookies, err = s.GetCookies(ctx, CookieSlot)
	require.NoError(t, err)
	assert.Nil(t, cookies)
}
