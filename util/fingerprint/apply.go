// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fingerprint

import (
	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/store"
)

// Identity converts a saved fingerprint to the identity the browser presents.
// A nil fingerprint gives bridge.DefaultIdentity.
func Identity(fp *store.BrowserFingerprint) bridge.Identity {
	if fp == nil || fp.OS == "" {
		return bridge.DefaultIdentity
	}
	return bridge.Identity{
		OS:        fp.OS,
		OSVersion: fp.OSVersion,
		Language:  fp.Language,
		Country:   fp.Country,
	}
}
