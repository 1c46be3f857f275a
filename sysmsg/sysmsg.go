// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sysmsg parses the system notices that WeChat Web shows inside chats
// (friend confirmations, group joins, leaves and renames) in English and Chinese.
package sysmsg

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoMatch is returned by the room parsers when no pattern of the family matches the text.
var ErrNoMatch = errors.New("text does not match any known system message")

// Family identifies a group of patterns that describe the same kind of notice.
type Family int

const (
	FamilyNone Family = iota
	FamilyFriendConfirm
	FamilyRoomJoinInvite
	FamilyRoomJoinQRCode
	FamilyRoomLeaveIKickOther
	FamilyRoomLeaveOtherKickMe
	FamilyRoomTopic
)

var familyNames = map[Family]string{
	FamilyNone:                 "none",
	FamilyFriendConfirm:        "friend-confirm",
	FamilyRoomJoinInvite:       "room-join-invite",
	FamilyRoomJoinQRCode:       "room-join-qrcode",
	FamilyRoomLeaveIKickOther:  "room-leave-i-kick-other",
	FamilyRoomLeaveOtherKickMe: "room-leave-other-kick-me",
	FamilyRoomTopic:            "room-topic",
}

func (f Family) String() string {
	return familyNames[f]
}

// RoomJoin is the result of parsing a join notice. Names are display names as written in the notice.
type RoomJoin struct {
	InviteeNames []string
	InviterName  string
}

// RoomLeave is the result of parsing a removal notice.
type RoomLeave struct {
	LeaverName  string
	RemoverName string
}

// RoomTopic is the result of parsing a group rename notice.
type RoomTopic struct {
	Topic       string
	ChangerName string
}

type pattern struct {
	family Family
	re     *regexp.Regexp
}

func (p pattern) extract(m []string) Event {
	evt := Event{Family: p.family}
	switch p.family {
	case FamilyRoomJoinInvite:
		evt.Join = &RoomJoin{InviterName: m[1], InviteeNames: strings.Split(m[2], inviteeSeparator)}
	case FamilyRoomJoinQRCode:
		evt.Join = &RoomJoin{InviterName: m[2], InviteeNames: strings.Split(m[1], inviteeSeparator)}
	case FamilyRoomLeaveIKickOther:
		evt.Leave = &RoomLeave{LeaverName: m[2], RemoverName: m[1]}
	case FamilyRoomLeaveOtherKickMe:
		evt.Leave = &RoomLeave{LeaverName: m[1], RemoverName: m[2]}
	case FamilyRoomTopic:
		evt.Topic = &RoomTopic{ChangerName: m[1], Topic: m[2]}
	}
	return evt
}

// patterns is the full table. Inside a family the first matching entry wins.
// Entries of one family are kept together, Parse walks the table top to bottom.
var patterns = []pattern{
	{FamilyFriendConfirm, regexp.MustCompile(`^You have added (.+) as your WeChat contact. Start chatting!$`)},
	{FamilyFriendConfirm, regexp.MustCompile(`^你已添加了(.+)，现在可以开始聊天了。$`)},
	{FamilyFriendConfirm, regexp.MustCompile(`^(.+) just added you to his/her contacts list. Send a message to him/her now!$`)},
	{FamilyFriendConfirm, regexp.MustCompile(`^(.+)刚刚把你添加到通讯录，现在可以开始聊天了。$`)},

	{FamilyRoomJoinInvite, regexp.MustCompile(`^(.+?) invited (.+) to the group chat.\s+$`)},
	{FamilyRoomJoinInvite, regexp.MustCompile(`^(.+?) invited (.+) to the group chat$`)},
	{FamilyRoomJoinInvite, regexp.MustCompile(`^(.+?)邀请"(.+)"加入了群聊\s+$`)},
	{FamilyRoomJoinInvite, regexp.MustCompile(`^"(.+?)"邀请"(.+)"加入了群聊$`)},

	{FamilyRoomJoinQRCode, regexp.MustCompile(`^"(.+)" joined group chat via the QR code "?(.+?)"? shared.\s+$`)},
	{FamilyRoomJoinQRCode, regexp.MustCompile(`^"(.+)" joined the group chat via the QR Code shared by "?(.+?)".$`)},
	{FamilyRoomJoinQRCode, regexp.MustCompile(`^"(.+)"通过扫描(.+?)分享的二维码加入群聊\s+$`)},
	{FamilyRoomJoinQRCode, regexp.MustCompile(`^"\s+(.+)"通过扫描"(.+?)"分享的二维码加入群聊$`)},

	{FamilyRoomLeaveIKickOther, regexp.MustCompile(`^(You) removed "(.+)" from the group chat$`)},
	{FamilyRoomLeaveIKickOther, regexp.MustCompile(`^(你)将"(.+)"移出了群聊$`)},

	{FamilyRoomLeaveOtherKickMe, regexp.MustCompile(`^(You) were removed from the group chat by "(.+)"$`)},
	{FamilyRoomLeaveOtherKickMe, regexp.MustCompile(`^(你)被"(.+)"移出群聊$`)},

	{FamilyRoomTopic, regexp.MustCompile(`^"?(.+?)"? changed the group name to "(.+)"$`)},
	{FamilyRoomTopic, regexp.MustCompile(`^"?(.+?)"?修改群名为“(.+)”$`)},
}

var selfRegex = regexp.MustCompile(`(?i)^(you|你)$`)

// inviteeSeparator joins several invitees in a single join notice. Latin commas are part of names.
const inviteeSeparator = "、"

// IsSelf reports whether a name taken from a notice refers to the logged in account itself.
func IsSelf(name string) bool {
	return selfRegex.MatchString(name)
}

// match returns the event of the first pattern of the given families that matches.
// Families are tried in the order given.
func match(text string, families ...Family) (Event, bool) {
	for _, family := range families {
		for _, p := range patterns {
			if p.family != family {
				continue
			}
			if m := p.re.FindStringSubmatch(text); m != nil {
				return p.extract(m), true
			}
		}
	}
	return Event{}, false
}

// IsFriendConfirm reports whether the text is a "you are now contacts" notice.
//
// Unlike the room parsers this is a plain boolean, a miss is the normal case for every chat message.
func IsFriendConfirm(text string) bool {
	_, ok := match(text, FamilyFriendConfirm)
	return ok
}

// ParseRoomJoin extracts the inviter and invitees of an invite or QR code join notice.
func ParseRoomJoin(text string) (*RoomJoin, error) {
	evt, ok := match(text, FamilyRoomJoinInvite, FamilyRoomJoinQRCode)
	if !ok {
		return nil, ErrNoMatch
	}
	return evt.Join, nil
}

// ParseRoomLeave extracts who left (or was removed) and who removed them.
func ParseRoomLeave(text string) (*RoomLeave, error) {
	evt, ok := match(text, FamilyRoomLeaveIKickOther, FamilyRoomLeaveOtherKickMe)
	if !ok {
		return nil, ErrNoMatch
	}
	return evt.Leave, nil
}

// ParseRoomTopic extracts the new group name and who set it.
func ParseRoomTopic(text string) (*RoomTopic, error) {
	evt, ok := match(text, FamilyRoomTopic)
	if !ok {
		return nil, ErrNoMatch
	}
	return evt.Topic, nil
}
