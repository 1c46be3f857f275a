// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wechaty/puppet-wechat/store"
)

func TestFingerprintRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openTestContainer(t)

	fp, err := c.GetFingerprint(ctx, store.CookieSlot)
	require.NoError(t, err)
	assert.Nil(t, fp)

	saved := &store.BrowserFingerprint{OS: "macOS", OSVersion: "14.5", Language: "zh", Country: "CN"}
	require.NoError(t, c.PutFingerprint(ctx, store.CookieSlot, saved))
	fp, err = c.GetFingerprint(ctx, store.CookieSlot)
	require.NoError(t, err)
	assert.Equal(t, saved, fp)

	updated := &store.BrowserFingerprint{OS: "Windows", OSVersion: "10.0", Language: "en", Country: "US"}
	require.NoError(t, c.PutFingerprint(ctx, store.CookieSlot, updated))
	fp, err = c.GetFingerprint(ctx, store.CookieSlot)
	require.NoError(t, err)
	assert.Equal(t, updated, fp)
}
