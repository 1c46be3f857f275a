// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"github.com/wechaty/puppet-wechat/types"
)

// Event is implemented by everything the browser emits to handlers registered with AddEventHandler.
type Event interface {
	EventName() string
}

// Scan is emitted when the page shows a new login QR code or its status changes.
type Scan struct {
	Code int
	URL  string
}

// Login is emitted when the page reports a logged in account.
type Login struct {
	// UserName may be empty if the page has not loaded the account yet.
	UserName string
}

// Logout is emitted when the page returns to the login screen.
type Logout struct{}

// Message carries a raw message record observed by the page.
type Message struct {
	Raw *types.RawMessage
}

// Ding is the echo of a Ding call.
type Ding struct {
	Data string
}

// Heartbeat is emitted periodically by the injected script.
type Heartbeat struct {
	Data string
}

// Ready is emitted after the page script has been injected and initialized.
type Ready struct{}

// Error is emitted for problems the browser can't return from a method call,
// such as a blocked account or an unexpected dialog.
type Error struct {
	Err error
}

func (*Scan) EventName() string      { return "scan" }
func (*Login) EventName() string     { return "login" }
func (*Logout) EventName() string    { return "logout" }
func (*Message) EventName() string   { return "message" }
func (*Ding) EventName() string      { return "ding" }
func (*Heartbeat) EventName() string { return "heartbeat" }
func (*Ready) EventName() string     { return "ready" }
func (*Error) EventName() string     { return "error" }
