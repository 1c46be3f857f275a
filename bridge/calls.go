// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/wechaty/puppet-wechat/types"
)

// Ding asks the page script to echo data. The echo is emitted as a *Ding event.
func (b *Browser) Ding(ctx context.Context, data string) error {
	var echo string
	if err := b.call(ctx, &echo, "ding", data); err != nil {
		return err
	}
	b.emit(&Ding{Data: echo})
	return nil
}

// UserName returns the id of the logged in account, or an empty string if there is none.
func (b *Browser) UserName(ctx context.Context) (string, error) {
	var name *string
	if err := b.call(ctx, &name, "getUserName"); err != nil {
		return "", err
	} else if name == nil {
		return "", nil
	}
	return *name, nil
}

func (b *Browser) Logout(ctx context.Context) error {
	return b.callOK(ctx, "logout")
}

func (b *Browser) ContactList(ctx context.Context) ([]string, error) {
	var ids []string
	if err := b.call(ctx, &ids, "contactList"); err != nil {
		return nil, err
	}
	return ids, nil
}

func (b *Browser) RoomList(ctx context.Context) ([]string, error) {
	var ids []string
	if err := b.call(ctx, &ids, "roomList"); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetContact returns the record of a contact or a room, retrying while the page hasn't loaded it.
// A nil record is returned if the page never knew about the id.
func (b *Browser) GetContact(ctx context.Context, id string) (*types.RawContact, error) {
	var raw types.RawContact
	if err := b.callRetry(ctx, &raw, "getContact", id); errors.Is(err, ErrEmptyResponse) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &raw, nil
}

// GetMessage works like GetContact, but for message records.
func (b *Browser) GetMessage(ctx context.Context, id string) (*types.RawMessage, error) {
	var raw types.RawMessage
	if err := b.callRetry(ctx, &raw, "getMessage", id); errors.Is(err, ErrEmptyResponse) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &raw, nil
}

// Send sends a text message to a contact or a room.
func (b *Browser) Send(ctx context.Context, to, text string) error {
	if to == "" {
		return errors.New("recipient is empty")
	} else if text == "" {
		return errors.New("message text is empty")
	}
	return b.callOK(ctx, "send", to, text)
}

// ContactAlias sets the remark of a contact. An empty alias clears it.
func (b *Browser) ContactAlias(ctx context.Context, contactID, alias string) error {
	return b.callOK(ctx, "contactRemark", contactID, alias)
}

func (b *Browser) RoomTopic(ctx context.Context, roomID, topic string) error {
	if roomID == "" {
		return errors.New("room id is empty")
	}
	return b.callOK(ctx, "roomModTopic", roomID, topic)
}

func (b *Browser) RoomAdd(ctx context.Context, roomID, contactID string) error {
	if roomID == "" || contactID == "" {
		return errors.New("room id and contact id are required")
	}
	return b.callOK(ctx, "roomAddMember", roomID, contactID)
}

func (b *Browser) RoomDel(ctx context.Context, roomID, contactID string) error {
	if roomID == "" || contactID == "" {
		return errors.New("room id and contact id are required")
	}
	return b.callOK(ctx, "roomDelMember", roomID, contactID)
}

// RoomCreate creates a room with the given members and returns its id.
// The topic is set with a separate call once the room exists.
func (b *Browser) RoomCreate(ctx context.Context, contactIDs []string, topic string) (string, error) {
	if len(contactIDs) == 0 {
		return "", errors.New("no members given")
	}
	var roomID string
	if err := b.call(ctx, &roomID, "roomCreate", contactIDs); err != nil {
		return "", err
	} else if roomID == "" {
		return "", fmt.Errorf("%w: roomCreate", ErrCallFailed)
	}
	if topic != "" {
		if err := b.callOK(ctx, "roomModTopic", roomID, topic); err != nil {
			b.log.Warnf("Created room %s but failed to set its topic: %v", roomID, err)
		}
	}
	return roomID, nil
}

// FriendshipAdd sends a friend request with a greeting.
func (b *Browser) FriendshipAdd(ctx context.Context, contactID, hello string) error {
	return b.callOK(ctx, "verifyUserRequest", contactID, hello)
}

// FriendshipAccept accepts the friend request of a contact using the ticket from the request message.
func (b *Browser) FriendshipAccept(ctx context.Context, contactID, ticket string) error {
	return b.callOK(ctx, "verifyUserOk", contactID, ticket)
}

// Cookies returns every cookie of the browser.
func (b *Browser) Cookies(ctx context.Context) ([]*types.Cookie, error) {
	var cookies []*network.Cookie
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) (err error) {
		cookies, err = network.GetCookies().Do(ctx)
		return
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}
	out := make([]*types.Cookie, len(cookies))
	for i, cookie := range cookies {
		out[i] = fromNetworkCookie(cookie)
	}
	return out, nil
}

// SetCookies puts cookies in the browser. Before Start they are kept and used for the first page load.
func (b *Browser) SetCookies(ctx context.Context, cookies []*types.Cookie) error {
	b.cookieLock.Lock()
	b.pendingCookies = cookies
	b.cookieLock.Unlock()
	if b.pageContext() == nil || len(cookies) == 0 {
		return nil
	}
	if err := b.run(ctx, setCookiesAction(cookies)); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

func fromNetworkCookie(cookie *network.Cookie) *types.Cookie {
	out := &types.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   cookie.Domain,
		Path:     cookie.Path,
		Expires:  cookie.Expires,
		HTTPOnly: cookie.HTTPOnly,
		Secure:   cookie.Secure,
		SameSite: cookie.SameSite.String(),
	}
	if cookie.Session {
		out.Expires = -1
	}
	return out
}

func toCookieParam(cookie *types.Cookie) *network.CookieParam {
	param := &network.CookieParam{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   cookie.Domain,
		Path:     cookie.Path,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HTTPOnly,
	}
	if cookie.SameSite != "" {
		param.SameSite = network.CookieSameSite(cookie.SameSite)
	}
	if cookie.Expires > 0 {
		sec, frac := math.Modf(cookie.Expires)
		expires := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(frac*1e9)))
		param.Expires = &expires
	}
	return param
}

func setCookiesAction(cookies []*types.Cookie) chromedp.Action {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, cookie := range cookies {
		if cookie != nil {
			params = append(params, toCookieParam(cookie))
		}
	}
	return network.SetCookies(params)
}
