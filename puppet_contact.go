// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.mau.fi/util/ptr"

	"github.com/wechaty/puppet-wechat/types"
	"github.com/wechaty/puppet-wechat/util/clock"
)

type payloadCache[T any] struct {
	lock  sync.RWMutex
	items map[string]*T
}

func newPayloadCache[T any]() *payloadCache[T] {
	return &payloadCache[T]{items: make(map[string]*T)}
}

func (pc *payloadCache[T]) get(id string) *T {
	pc.lock.RLock()
	defer pc.lock.RUnlock()
	return pc.items[id]
}

func (pc *payloadCache[T]) put(id string, item *T) {
	pc.lock.Lock()
	pc.items[id] = item
	pc.lock.Unlock()
}

// dirty drops the cached item so the next read goes to the page.
func (pc *payloadCache[T]) dirty(id string) {
	pc.lock.Lock()
	delete(pc.items, id)
	pc.lock.Unlock()
}

func (pc *payloadCache[T]) clear() {
	pc.lock.Lock()
	clear(pc.items)
	pc.lock.Unlock()
}

// ContactList returns the user names of all contacts the page knows about.
func (p *Puppet) ContactList(ctx context.Context) ([]string, error) {
	return p.transport.ContactList(ctx)
}

func (p *Puppet) contactRawPayload(ctx context.Context, id string) (*types.RawContact, error) {
	if cached := p.contacts.get(id); cached != nil {
		return cached, nil
	}
	raw, err := p.transport.GetContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact %s: %w", id, err)
	} else if raw == nil || raw.UserName == "" {
		return nil, fmt.Errorf("%w for contact %s", ErrEmptyPayload, id)
	}
	p.contacts.put(id, raw)
	return raw, nil
}

// ContactPayload returns the profile of a contact, from the cache if possible.
func (p *Puppet) ContactPayload(ctx context.Context, id string) (*types.ContactPayload, error) {
	raw, err := p.contactRawPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	return parseContactPayload(raw), nil
}

// ContactAlias sets the remark name of a contact.
func (p *Puppet) ContactAlias(ctx context.Context, contactID, alias string) error {
	err := p.transport.ContactAlias(ctx, contactID, alias)
	if err != nil {
		return fmt.Errorf("failed to set alias of %s: %w", contactID, err)
	}
	p.contacts.dirty(contactID)
	return nil
}

func parseContactPayload(raw *types.RawContact) *types.ContactPayload {
	contactType := types.ContactTypeIndividual
	if raw.UserName != "" && !types.IsRoomID(raw.UserName) && raw.VerifyFlag&types.VerifyFlagOfficial != 0 {
		contactType = types.ContactTypeOfficial
	}
	var friend *bool
	if raw.Stranger != nil {
		friend = ptr.Ptr(!*raw.Stranger)
	}
	return &types.ContactPayload{
		ID:        raw.UserName,
		Name:      plainText(raw.NickName),
		Alias:     raw.RemarkName,
		Weixin:    raw.Alias,
		Avatar:    raw.HeadImgUrl,
		Signature: raw.Signature,
		Province:  raw.Province,
		City:      raw.City,
		Gender:    types.Gender(raw.Sex),
		Type:      contactType,
		Star:      raw.StarFriend != 0,
		Friend:    friend,
	}
}

// RoomList returns the user names of all rooms the page knows about.
func (p *Puppet) RoomList(ctx context.Context) ([]string, error) {
	return p.transport.RoomList(ctx)
}

// roomRawPayload reads a room from the page until its member list stops growing,
// as members are loaded lazily after the room itself.
func (p *Puppet) roomRawPayload(ctx context.Context, id string) (*types.RawContact, error) {
	if cached := p.rooms.get(id); cached != nil {
		return cached, nil
	}
	prevLength := 0
	for attempt := 1; attempt <= p.tunables.RoomPayloadAttempts; attempt++ {
		raw, err := p.transport.GetContact(ctx, id)
		if err != nil {
			p.Log.Debugf("Failed to get room %s (attempt #%d): %v", id, attempt, err)
		} else if raw != nil {
			currLength := len(raw.MemberList)
			if currLength == prevLength {
				p.rooms.put(id, raw)
				return raw, nil
			} else if currLength > prevLength {
				prevLength = currLength
			} else {
				p.Log.Warnf("Member count of room %s went down from %d to %d", id, prevLength, currLength)
			}
		}
		if attempt < p.tunables.RoomPayloadAttempts {
			if err = clock.Sleep(ctx, p.clock, p.tunables.RoomPayloadInterval); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w for room %s", ErrNoPayload, id)
}

// RoomPayload returns the profile of a room, from the cache if possible.
func (p *Puppet) RoomPayload(ctx context.Context, id string) (*types.RoomPayload, error) {
	raw, err := p.roomRawPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	return parseRoomPayload(raw), nil
}

func parseRoomPayload(raw *types.RawContact) *types.RoomPayload {
	payload := &types.RoomPayload{
		ID:           raw.UserName,
		Topic:        plainText(raw.NickName),
		Avatar:       raw.HeadImgUrl,
		MemberIDList: make([]string, 0, len(raw.MemberList)),
		AdminIDList:  []string{},
	}
	for _, member := range raw.MemberList {
		payload.MemberIDList = append(payload.MemberIDList, member.UserName)
		if raw.OwnerUin != 0 && member.Uin == raw.OwnerUin {
			payload.OwnerID = member.UserName
		}
	}
	return payload
}

// RoomMemberList returns the user names of everyone in the room.
func (p *Puppet) RoomMemberList(ctx context.Context, roomID string) ([]string, error) {
	payload, err := p.RoomPayload(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return payload.MemberIDList, nil
}

// RoomMemberPayload returns the profile of one member of a room.
func (p *Puppet) RoomMemberPayload(ctx context.Context, roomID, contactID string) (*types.RoomMemberPayload, error) {
	raw, err := p.roomRawPayload(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, member := range raw.MemberList {
		if member.UserName == contactID {
			return &types.RoomMemberPayload{
				ID:        member.UserName,
				Name:      member.NickName,
				RoomAlias: member.DisplayName,
				Avatar:    member.HeadImgUrl,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrMemberNotFound, contactID, roomID)
}

// RoomMemberSearch finds the members of a room whose room alias, nickname or
// contact remark name equals name. Matches by room alias come first.
//
// Remark names are only checked for contacts that are already cached.
func (p *Puppet) RoomMemberSearch(ctx context.Context, roomID, name string) ([]string, error) {
	raw, err := p.roomRawPayload(ctx, roomID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	var byRoomAlias, byName, byRemark []string
	for _, member := range raw.MemberList {
		switch {
		case member.DisplayName != "" && member.DisplayName == name:
			byRoomAlias = append(byRoomAlias, member.UserName)
		case plainText(member.NickName) == name:
			byName = append(byName, member.UserName)
		default:
			if contact := p.contacts.get(member.UserName); contact != nil && contact.RemarkName != "" && contact.RemarkName == name {
				byRemark = append(byRemark, member.UserName)
			}
		}
	}
	return slices.Concat(byRoomAlias, byName, byRemark), nil
}

// RoomTopic changes the topic of a room.
func (p *Puppet) RoomTopic(ctx context.Context, roomID, topic string) error {
	err := p.transport.RoomTopic(ctx, roomID, topic)
	if err != nil {
		return fmt.Errorf("failed to set topic of %s: %w", roomID, err)
	}
	p.rooms.dirty(roomID)
	return nil
}

// RoomAdd invites a contact to a room.
func (p *Puppet) RoomAdd(ctx context.Context, roomID, contactID string) error {
	err := p.transport.RoomAdd(ctx, roomID, contactID)
	if err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", contactID, roomID, err)
	}
	p.rooms.dirty(roomID)
	return nil
}

// RoomDel removes a member from a room.
func (p *Puppet) RoomDel(ctx context.Context, roomID, contactID string) error {
	err := p.transport.RoomDel(ctx, roomID, contactID)
	if err != nil {
		return fmt.Errorf("failed to remove %s from %s: %w", contactID, roomID, err)
	}
	p.rooms.dirty(roomID)
	return nil
}

// RoomCreate creates a new room with the given contacts and returns its user name.
func (p *Puppet) RoomCreate(ctx context.Context, contactIDs []string, topic string) (string, error) {
	roomID, err := p.transport.RoomCreate(ctx, contactIDs, topic)
	if err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	} else if roomID == "" {
		return "", fmt.Errorf("failed to create room: %w", ErrNoPayload)
	}
	return roomID, nil
}
