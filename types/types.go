// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package types contains the raw WeChat Web records returned by the page and
// the normalized payloads handed out by the puppet.
package types

import "strings"

const roomIDPrefix = "@@"

// IsRoomID reports whether the user name belongs to a group chat.
func IsRoomID(id string) bool {
	return strings.HasPrefix(id, roomIDPrefix)
}

// IsContactID reports whether the user name belongs to a single account.
func IsContactID(id string) bool {
	return id != "" && !IsRoomID(id)
}
