// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/wechaty/puppet-wechat/types"
)

// emojiSpanRegex matches the placeholders the page uses for emoji, e.g. <span class="emoji emoji1f334"></span>
var emojiSpanRegex = regexp.MustCompile(`<span class="emoji emoji([0-9a-fA-F]+)"></span>`)

// plainText strips HTML tags and decodes entities and emoji placeholders in names shown by the page.
func plainText(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	text = emojiSpanRegex.ReplaceAllStringFunc(text, func(span string) string {
		codepoint, err := strconv.ParseUint(emojiSpanRegex.FindStringSubmatch(span)[1], 16, 32)
		if err != nil {
			return ""
		}
		return string(rune(codepoint))
	})
	var out strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if !errors.Is(tokenizer.Err(), io.EOF) {
				return text
			}
			return out.String()
		case html.TextToken:
			out.Write(tokenizer.Text())
		}
	}
}

func webMessageType(raw *types.RawMessage) types.MessageType {
	switch raw.MsgType {
	case types.WebMessageText:
		if raw.SubMsgType == types.WebMessageLocation {
			return types.MessageTypeAttachment
		}
		return types.MessageTypeText
	case types.WebMessageEmoticon, types.WebMessageImage:
		return types.MessageTypeImage
	case types.WebMessageVoice:
		return types.MessageTypeAudio
	case types.WebMessageMicroVideo, types.WebMessageVideo:
		return types.MessageTypeVideo
	case types.WebMessageApp:
		switch raw.AppMsgType {
		case types.WebAppMsgAttach, types.WebAppMsgURL, types.WebAppMsgReaderType:
			return types.MessageTypeAttachment
		default:
			return types.MessageTypeText
		}
	case types.WebMessageRecalled:
		return types.MessageTypeRecalled
	default:
		// System messages and friend requests are text too
		return types.MessageTypeText
	}
}

var fileExtRegex = regexp.MustCompile(`(?i)\.[a-z0-9]{1,7}$`)

func messageExtension(raw *types.RawMessage) string {
	switch raw.MsgType {
	case types.WebMessageEmoticon:
		return ".gif"
	case types.WebMessageImage:
		return ".jpg"
	case types.WebMessageVoice:
		return ".mp3"
	case types.WebMessageVideo, types.WebMessageMicroVideo:
		return ".mp4"
	default:
		return ".dat"
	}
}

func messageFilename(raw *types.RawMessage) string {
	name := raw.FileName
	if name == "" {
		name = raw.MediaId
	}
	if name == "" {
		name = raw.MsgId
	}
	if fileExtRegex.MatchString(name) {
		return name
	} else if raw.MMAppMsgFileExt != "" {
		return name + "." + raw.MMAppMsgFileExt
	}
	return name + messageExtension(raw)
}

func parseMessagePayload(raw *types.RawMessage) (*types.MessagePayload, error) {
	payload := &types.MessagePayload{
		ID:        raw.MsgId,
		Type:      webMessageType(raw),
		TalkerID:  raw.MMActualSender,
		Text:      raw.MMActualContent,
		Filename:  messageFilename(raw),
		Timestamp: time.Unix(raw.MMDisplayTime, 0),
	}
	if raw.MMIsChatRoom {
		if types.IsRoomID(raw.FromUserName) {
			payload.RoomID = raw.FromUserName
		} else if types.IsRoomID(raw.ToUserName) {
			payload.RoomID = raw.ToUserName
		} else {
			return nil, fmt.Errorf("room message %s has no room in from (%s) or to (%s)", raw.MsgId, raw.FromUserName, raw.ToUserName)
		}
	}
	if raw.ToUserName != "" && !types.IsRoomID(raw.ToUserName) {
		payload.ListenerID = raw.ToUserName
	}
	if payload.RoomID == "" && payload.ListenerID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoConversation, raw.MsgId)
	}
	return payload, nil
}

func (p *Puppet) messageRawPayload(ctx context.Context, id string) (*types.RawMessage, error) {
	if cached := p.messages.get(id); cached != nil {
		return cached, nil
	}
	raw, err := p.transport.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	} else if raw == nil {
		return nil, fmt.Errorf("%w for message %s", ErrNoPayload, id)
	}
	p.messages.put(id, raw)
	return raw, nil
}

// MessagePayload returns the parsed message, including mentioned member ids for room text messages.
func (p *Puppet) MessagePayload(ctx context.Context, id string) (*types.MessagePayload, error) {
	raw, err := p.messageRawPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, err := parseMessagePayload(raw)
	if err != nil {
		return nil, err
	}
	if payload.RoomID != "" && payload.Type == types.MessageTypeText && strings.Contains(payload.Text, "@") {
		payload.MentionIDList, err = p.MentionIDList(ctx, payload.RoomID, payload.Text)
		if err != nil {
			p.Log.Warnf("Failed to resolve mentions in %s: %v", id, err)
		}
	}
	return payload, nil
}

// MessageSendText sends a text message to a contact or a room.
func (p *Puppet) MessageSendText(ctx context.Context, conversationID, text string) error {
	if !p.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	err := p.transport.Send(ctx, conversationID, text)
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", conversationID, err)
	}
	return nil
}

func (p *Puppet) parseFriendshipPayload(raw *types.RawMessage) (*types.FriendshipPayload, error) {
	switch raw.MsgType {
	case types.WebMessageVerify:
		if raw.RecommendInfo == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoRecommendInfo, raw.MsgId)
		}
		return &types.FriendshipPayload{
			ID:        raw.MsgId,
			ContactID: raw.RecommendInfo.UserName,
			Hello:     raw.RecommendInfo.Content,
			Ticket:    raw.RecommendInfo.Ticket,
			Type:      types.FriendshipTypeReceive,
			Timestamp: p.clock.Now(),
		}, nil
	case types.WebMessageSys:
		return &types.FriendshipPayload{
			ID:        raw.MsgId,
			ContactID: raw.FromUserName,
			Type:      types.FriendshipTypeConfirm,
			Timestamp: p.clock.Now(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s has type %d", ErrNotFriendship, raw.MsgId, raw.MsgType)
	}
}

// FriendshipPayload returns the friend request or confirmation behind an *events.Friendship.
func (p *Puppet) FriendshipPayload(ctx context.Context, id string) (*types.FriendshipPayload, error) {
	raw, err := p.messageRawPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.parseFriendshipPayload(raw)
}

// FriendshipAdd sends a friend request.
func (p *Puppet) FriendshipAdd(ctx context.Context, contactID, hello string) error {
	err := p.transport.FriendshipAdd(ctx, contactID, hello)
	if err != nil {
		return fmt.Errorf("failed to send friend request to %s: %w", contactID, err)
	}
	return nil
}

// FriendshipAccept accepts a received friend request.
func (p *Puppet) FriendshipAccept(ctx context.Context, friendshipID string) error {
	payload, err := p.FriendshipPayload(ctx, friendshipID)
	if err != nil {
		return err
	} else if payload.Type != types.FriendshipTypeReceive {
		return fmt.Errorf("%w: %s is not a received request", ErrNotFriendship, friendshipID)
	}
	err = p.transport.FriendshipAccept(ctx, payload.ContactID, payload.Ticket)
	if err != nil {
		return fmt.Errorf("failed to accept friend request from %s: %w", payload.ContactID, err)
	}
	p.contacts.dirty(payload.ContactID)
	return nil
}
