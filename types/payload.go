// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package types

import "time"

type ContactType int

const (
	ContactTypeUnknown ContactType = iota
	ContactTypeIndividual
	ContactTypeOfficial
)

type Gender int

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

// ContactPayload is the normalized view of a contact.
type ContactPayload struct {
	ID        string
	Name      string
	Alias     string
	Weixin    string
	Avatar    string
	Signature string
	Province  string
	City      string
	Gender    Gender
	Type      ContactType
	Star      bool
	// Friend is nil when the page did not say.
	Friend *bool
}

// RoomPayload is the normalized view of a group chat.
type RoomPayload struct {
	ID           string
	Topic        string
	Avatar       string
	MemberIDList []string
	OwnerID      string
	AdminIDList  []string
}

// RoomMemberPayload is a member as seen inside one room.
type RoomMemberPayload struct {
	ID        string
	Name      string
	RoomAlias string
	Avatar    string
}

type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeText
	MessageTypeImage
	MessageTypeAudio
	MessageTypeVideo
	MessageTypeAttachment
	MessageTypeRecalled
)

var messageTypeNames = map[MessageType]string{
	MessageTypeUnknown:    "unknown",
	MessageTypeText:       "text",
	MessageTypeImage:      "image",
	MessageTypeAudio:      "audio",
	MessageTypeVideo:      "video",
	MessageTypeAttachment: "attachment",
	MessageTypeRecalled:   "recalled",
}

func (mt MessageType) String() string {
	return messageTypeNames[mt]
}

// MessagePayload is the normalized view of a message.
type MessagePayload struct {
	ID            string
	Type          MessageType
	TalkerID      string
	ListenerID    string
	RoomID        string
	Text          string
	Filename      string
	MentionIDList []string
	Timestamp     time.Time
}

type FriendshipType int

const (
	FriendshipTypeUnknown FriendshipType = iota
	FriendshipTypeConfirm
	FriendshipTypeReceive
)

// FriendshipPayload describes a friend request or confirmation.
type FriendshipPayload struct {
	ID        string
	ContactID string
	Hello     string
	Ticket    string
	Type      FriendshipType
	Timestamp time.Time
}
