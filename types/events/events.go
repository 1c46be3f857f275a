// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package events contains all the events that the puppet emits to functions registered with AddEventHandler.
package events

import (
	"time"

	"github.com/wechaty/puppet-wechat/types"
)

// Scan is emitted whenever the login page shows a new QR code or its status changes.
//
// QRCode is the URL that should be rendered as a QR code and scanned with the phone app.
type Scan struct {
	QRCode string
	Status types.ScanStatus
}

// Login is emitted after the account has logged in and its user name is known.
type Login struct {
	ContactID string
}

// Logout is emitted when the web session logs out, either by Logout or from the phone.
type Logout struct {
	ContactID string
	Data      string
}

// Ready is emitted once the contact list has stopped growing after login.
type Ready struct {
	Data string
}

// Heartbeat is emitted for every liveness signal of the page.
type Heartbeat struct {
	Type string
	Data string
}

// Dong is the echo of a Ding call.
type Dong struct {
	Data string
}

// Message is emitted for every message the page receives, including system notices.
// The payload can be fetched with Puppet.MessagePayload.
type Message struct {
	MessageID string
}

// Friendship is emitted for friend requests and friend confirmations.
type Friendship struct {
	FriendshipID string
}

// RoomJoin is emitted when members join a group chat.
type RoomJoin struct {
	RoomID        string
	InviteeIDList []string
	InviterID     string
	Timestamp     time.Time
}

// RoomLeave is emitted when a member is removed from a group chat.
type RoomLeave struct {
	RoomID        string
	RemoveeIDList []string
	RemoverID     string
	Timestamp     time.Time
}

// RoomTopic is emitted when a group chat is renamed.
type RoomTopic struct {
	RoomID    string
	ChangerID string
	NewTopic  string
	OldTopic  string
	Timestamp time.Time
}

// Error is emitted for failures that happen outside of a method call, like a
// failed watchdog recovery or the account being blocked from web login.
type Error struct {
	Err error
}
