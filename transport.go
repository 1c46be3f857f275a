// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/types"
)

// Transport is a session with the WeChat Web page. *bridge.Browser is the
// production implementation.
//
// Events are delivered to the handler registered with AddEventHandler as
// pointers to the types in the bridge package (*bridge.Scan, *bridge.Login etc).
// Handlers must not block for long.
type Transport interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reload(ctx context.Context) error
	AddEventHandler(handler func(evt bridge.Event))

	// Ding asks the page script to echo data back as a *bridge.Ding event.
	Ding(ctx context.Context, data string) error

	UserName(ctx context.Context) (string, error)
	Logout(ctx context.Context) error

	ContactList(ctx context.Context) ([]string, error)
	RoomList(ctx context.Context) ([]string, error)
	// GetContact returns the raw record of a contact or a room. A nil record with no error means the page doesn't know the id.
	GetContact(ctx context.Context, id string) (*types.RawContact, error)
	GetMessage(ctx context.Context, id string) (*types.RawMessage, error)

	Send(ctx context.Context, to, text string) error
	ContactAlias(ctx context.Context, contactID, alias string) error
	RoomTopic(ctx context.Context, roomID, topic string) error
	RoomAdd(ctx context.Context, roomID, contactID string) error
	RoomDel(ctx context.Context, roomID, contactID string) error
	RoomCreate(ctx context.Context, contactIDs []string, topic string) (string, error)
	FriendshipAdd(ctx context.Context, contactID, hello string) error
	FriendshipAccept(ctx context.Context, contactID, ticket string) error

	Cookies(ctx context.Context) ([]*types.Cookie, error)
	SetCookies(ctx context.Context, cookies []*types.Cookie) error
}

var _ Transport = (*bridge.Browser)(nil)
