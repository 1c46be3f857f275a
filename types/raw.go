// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package types

// WebMessageType is the MsgType field of a raw message.
type WebMessageType int

const (
	WebMessageText           WebMessageType = 1
	WebMessageImage          WebMessageType = 3
	WebMessageVoice          WebMessageType = 34
	WebMessageVerify         WebMessageType = 37
	WebMessagePossibleFriend WebMessageType = 40
	WebMessageShareCard      WebMessageType = 42
	WebMessageVideo          WebMessageType = 43
	WebMessageEmoticon       WebMessageType = 47
	WebMessageLocation       WebMessageType = 48
	WebMessageApp            WebMessageType = 49
	WebMessageVoIPMsg        WebMessageType = 50
	WebMessageStatusNotify   WebMessageType = 51
	WebMessageVoIPNotify     WebMessageType = 52
	WebMessageVoIPInvite     WebMessageType = 53
	WebMessageMicroVideo     WebMessageType = 62
	WebMessageSysNotice      WebMessageType = 9999
	WebMessageSys            WebMessageType = 10000
	WebMessageRecalled       WebMessageType = 10002
)

// WebAppMsgType is the AppMsgType field of an app (49) message.
type WebAppMsgType int

const (
	WebAppMsgText       WebAppMsgType = 1
	WebAppMsgImage      WebAppMsgType = 2
	WebAppMsgAudio      WebAppMsgType = 3
	WebAppMsgVideo      WebAppMsgType = 4
	WebAppMsgURL        WebAppMsgType = 5
	WebAppMsgAttach     WebAppMsgType = 6
	WebAppMsgOpen       WebAppMsgType = 7
	WebAppMsgEmoji      WebAppMsgType = 8
	WebAppMsgReaderType WebAppMsgType = 100001
)

// RecommendInfo is attached to friend requests.
type RecommendInfo struct {
	UserName   string
	NickName   string
	Content    string
	Ticket     string
	Alias      string
	Province   string
	City       string
	Signature  string
	Sex        int
	Scene      int
	VerifyFlag int
	OpCode     int
}

// RawMessage is a message record as kept by the web client's chat factory.
type RawMessage struct {
	MsgId        string
	FromUserName string
	ToUserName   string
	MsgType      WebMessageType
	AppMsgType   WebAppMsgType
	SubMsgType   WebMessageType
	Content      string
	Status       int
	CreateTime   int64
	FileName     string
	MediaId      string
	Url          string

	RecommendInfo *RecommendInfo `json:",omitempty"`

	MMActualContent string
	MMActualSender  string
	MMPeerUserName  string
	MMDigest        string
	MMDisplayTime   int64
	MMIsChatRoom    bool
	MMIsSend        bool
	MMAppMsgFileExt string `json:",omitempty"`
}

// RawMember is one entry of a room's MemberList.
type RawMember struct {
	UserName     string
	NickName     string
	DisplayName  string
	HeadImgUrl   string `json:",omitempty"`
	AttrStatus   int64
	MemberStatus int
	KeyWord      string
	Uin          int64
}

// RawContact is a contact record. Rooms are contacts too: their UserName
// starts with @@ and MemberList is filled.
type RawContact struct {
	UserName    string
	NickName    string
	RemarkName  string
	DisplayName string
	Alias       string
	HeadImgUrl  string
	Signature   string
	Province    string
	City        string
	Sex         int
	VerifyFlag  int
	ContactFlag int
	StarFriend  int
	Uin         int64
	KeyWord     string

	MemberList      []RawMember
	MemberCount     int
	OwnerUin        int64
	IsOwner         int
	EncryChatRoomId string

	// Stranger is filled in by the injected script, nil when it could not tell.
	Stranger *bool `json:"stranger,omitempty"`
}

// VerifyFlagOfficial marks official (brand) accounts.
const VerifyFlagOfficial = 8
