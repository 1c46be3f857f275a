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

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/sysmsg"
	"github.com/wechaty/puppet-wechat/types"
	"github.com/wechaty/puppet-wechat/types/events"
	"github.com/wechaty/puppet-wechat/util/clock"
)

type messageCheck struct {
	name  string
	check func(ctx context.Context, raw *types.RawMessage) bool
}

func (p *Puppet) handleMessage(ctx context.Context, rawEvt bridge.Event) {
	raw := rawEvt.(*bridge.Message).Raw
	if raw == nil || raw.MsgId == "" {
		p.Log.Warnf("Got message event without a message")
		return
	}
	p.messages.put(raw.MsgId, raw)

	switch raw.MsgType {
	case types.WebMessageVerify:
		p.dispatchEvent(&events.Friendship{FriendshipID: raw.MsgId})
	case types.WebMessageSys:
		if types.IsRoomID(raw.FromUserName) {
			p.dispatchEvent(&events.Message{MessageID: raw.MsgId})
			// Resolving room members can wait for a minute, and the queue must keep moving meanwhile.
			go p.classifyRoomMessage(ctx, raw)
			return
		}
		p.checkFriendConfirm(ctx, raw)
	}
	p.dispatchEvent(&events.Message{MessageID: raw.MsgId})
}

func (p *Puppet) classifyRoomMessage(ctx context.Context, raw *types.RawMessage) {
	for _, mc := range p.roomMessageChecks {
		if mc.check(ctx, raw) {
			p.firerLog.Debugf("Fired %s for %s", mc.name, raw.MsgId)
			return
		}
	}
	p.firerLog.Debugf("System message %s in %s didn't match any room event: %q", raw.MsgId, raw.FromUserName, raw.Content)
}

func (p *Puppet) checkFriendConfirm(_ context.Context, raw *types.RawMessage) bool {
	if !sysmsg.IsFriendConfirm(raw.Content) {
		return false
	}
	p.dispatchEvent(&events.Friendship{FriendshipID: raw.MsgId})
	return true
}

// resolveMember returns the self id for self references, or the first room member matching name.
func (p *Puppet) resolveMember(ctx context.Context, roomID, name string) string {
	if sysmsg.IsSelf(name) {
		return p.SelfID()
	}
	ids, err := p.RoomMemberSearch(ctx, roomID, name)
	if err != nil {
		p.firerLog.Debugf("Failed to search %q in %s: %v", name, roomID, err)
		return ""
	} else if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// resolveJoinBatch fills the ids of every name that isn't resolved yet and reports whether all of them are.
func (p *Puppet) resolveJoinBatch(ctx context.Context, roomID string, join *sysmsg.RoomJoin, inviteeIDs []string, inviterID *string) bool {
	ready := true
	for i, name := range join.InviteeNames {
		if inviteeIDs[i] == "" {
			inviteeIDs[i] = p.resolveMember(ctx, roomID, name)
		}
		if inviteeIDs[i] == "" {
			ready = false
		} else if _, err := p.ContactPayload(ctx, inviteeIDs[i]); err != nil {
			p.firerLog.Debugf("Failed to get contact %s for invitee %q: %v", inviteeIDs[i], name, err)
			ready = false
		}
	}
	if *inviterID == "" {
		*inviterID = p.resolveMember(ctx, roomID, join.InviterName)
		if *inviterID == "" {
			ready = false
		}
	}
	return ready
}

func (p *Puppet) checkRoomJoin(ctx context.Context, raw *types.RawMessage) bool {
	roomID := raw.FromUserName
	join, err := sysmsg.ParseRoomJoin(raw.Content)
	if err != nil {
		return false
	}
	p.firerLog.Debugf("Parsed join in %s: inviter %q, invitees %q", roomID, join.InviterName, join.InviteeNames)

	inviteeIDs := make([]string, len(join.InviteeNames))
	var inviterID string
	resolved := false
	// New members show up in the room a while after the system message, so the whole batch is retried.
	for attempt := 1; attempt <= p.tunables.RoomJoinRetryAttempts; attempt++ {
		if attempt > 1 {
			if clock.Sleep(ctx, p.clock, p.tunables.RoomJoinRetryInterval) != nil {
				return false
			}
			p.rooms.dirty(roomID)
		}
		if !p.IsLoggedIn() {
			p.firerLog.Debugf("Abandoning join resolution in %s after logout", roomID)
			return false
		}
		if p.resolveJoinBatch(ctx, roomID, join, inviteeIDs, &inviterID) {
			resolved = true
			break
		}
	}
	if !resolved {
		p.firerLog.Warnf("Failed to resolve join in %s after %d attempts: inviter %q (%s), invitees %q (%s)",
			roomID, p.tunables.RoomJoinRetryAttempts, join.InviterName, inviterID, join.InviteeNames, strings.Join(inviteeIDs, ","))
		return false
	}

	for _, id := range append(slices.Clone(inviteeIDs), inviterID) {
		p.contacts.dirty(id)
		if _, err = p.ContactPayload(ctx, id); err != nil {
			p.firerLog.Warnf("Failed to refresh contact %s after join: %v", id, err)
		}
	}
	p.rooms.dirty(roomID)
	if _, err = p.RoomPayload(ctx, roomID); err != nil {
		p.firerLog.Warnf("Failed to refresh room %s after join: %v", roomID, err)
	}
	if !p.IsLoggedIn() || ctx.Err() != nil {
		p.firerLog.Debugf("Dropping join in %s as the session ended while resolving it", roomID)
		return false
	}
	p.dispatchEvent(&events.RoomJoin{
		RoomID:        roomID,
		InviteeIDList: inviteeIDs,
		InviterID:     inviterID,
		Timestamp:     p.clock.Now(),
	})
	return true
}

func (p *Puppet) checkRoomLeave(ctx context.Context, raw *types.RawMessage) bool {
	roomID := raw.FromUserName
	leave, err := sysmsg.ParseRoomLeave(raw.Content)
	if err != nil {
		return false
	}
	var leaverID, removerID string
	if sysmsg.IsSelf(leave.LeaverName) {
		leaverID = p.SelfID()
	} else {
		leaverID = p.resolveMember(ctx, roomID, leave.LeaverName)
	}
	if sysmsg.IsSelf(leave.RemoverName) {
		removerID = p.SelfID()
	} else {
		removerID = p.resolveMember(ctx, roomID, leave.RemoverName)
	}
	if leaverID == "" || removerID == "" {
		err = fmt.Errorf("%w: leaver %q (%s), remover %q (%s) in %s",
			ErrLeaveUnresolved, leave.LeaverName, leaverID, leave.RemoverName, removerID, roomID)
		p.firerLog.Errorf("%v", err)
		return false
	}

	p.dispatchEvent(&events.RoomLeave{
		RoomID:        roomID,
		RemoveeIDList: []string{leaverID},
		RemoverID:     removerID,
		Timestamp:     p.clock.Now(),
	})
	go p.refreshRoomLater(ctx, roomID)
	return true
}

// refreshRoomLater re-reads the room once the page has had time to drop the member.
func (p *Puppet) refreshRoomLater(ctx context.Context, roomID string) {
	if clock.Sleep(ctx, p.clock, p.tunables.RoomLeaveRefreshDelay) != nil || !p.IsLoggedIn() {
		return
	}
	p.rooms.dirty(roomID)
	if _, err := p.RoomPayload(ctx, roomID); err != nil {
		p.firerLog.Warnf("Failed to refresh room %s after leave: %v", roomID, err)
	}
}

func (p *Puppet) checkRoomTopic(ctx context.Context, raw *types.RawMessage) bool {
	roomID := raw.FromUserName
	topic, err := sysmsg.ParseRoomTopic(raw.Content)
	if err != nil {
		return false
	}
	room, err := p.RoomPayload(ctx, roomID)
	if err != nil {
		p.firerLog.Errorf("Failed to get room %s for topic change: %v", roomID, err)
		return false
	}
	changerID := p.resolveMember(ctx, roomID, topic.ChangerName)
	if changerID == "" {
		p.firerLog.Errorf("Changer %q of topic in %s not found", topic.ChangerName, roomID)
		return false
	}
	p.rooms.dirty(roomID)
	p.dispatchEvent(&events.RoomTopic{
		RoomID:    roomID,
		ChangerID: changerID,
		NewTopic:  topic.Topic,
		OldTopic:  room.Topic,
		Timestamp: p.clock.Now(),
	})
	return true
}
