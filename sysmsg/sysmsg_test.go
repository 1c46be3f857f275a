// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sysmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomJoin(t *testing.T) {
	cases := []struct {
		text     string
		inviter  string
		invitees []string
	}{
		{`You invited 管理员 to the group chat.   `, "You", []string{"管理员"}},
		{`You invited 李卓桓.PreAngel、Bruce LEE to the group chat.   `, "You", []string{"李卓桓.PreAngel", "Bruce LEE"}},
		{`管理员 invited 小桔建群助手 to the group chat`, "管理员", []string{"小桔建群助手"}},
		{`管理员 invited 庆次、小桔妹 to the group chat`, "管理员", []string{"庆次", "小桔妹"}},
		{`你邀请"管理员"加入了群聊  `, "你", []string{"管理员"}},
		{`"管理员"邀请"宁锐锋"加入了群聊`, "管理员", []string{"宁锐锋"}},
		{`"管理员"通过扫描你分享的二维码加入群聊  `, "你", []string{"管理员"}},
		{`" 桔小秘"通过扫描"李佳芮"分享的二维码加入群聊`, "李佳芮", []string{"桔小秘"}},
		{`"管理员" joined group chat via the QR code you shared.  `, "you", []string{"管理员"}},
		{`"宁锐锋" joined the group chat via the QR Code shared by "管理员".`, "管理员", []string{"宁锐锋"}},
	}
	for _, c := range cases {
		t.Run(c.text, func(t *testing.T) {
			join, err := ParseRoomJoin(c.text)
			require.NoError(t, err)
			assert.Equal(t, c.inviter, join.InviterName)
			assert.Equal(t, c.invitees, join.InviteeNames)
		})
	}

	join, err := ParseRoomJoin("fsadfsadfsdfsdfs")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Nil(t, join)
}

func TestIsFriendConfirm(t *testing.T) {
	for _, text := range []string{
		`You have added 李卓桓 as your WeChat contact. Start chatting!`,
		`你已添加了李卓桓，现在可以开始聊天了。`,
		`johnbassserver@gmail.com just added you to his/her contacts list. Send a message to him/her now!`,
		`johnbassserver@gmail.com刚刚把你添加到通讯录，现在可以开始聊天了。`,
	} {
		assert.True(t, IsFriendConfirm(text), text)
	}
	assert.False(t, IsFriendConfirm("fsdfsdfasdfasdfadsa"))
}

func TestParseRoomLeave(t *testing.T) {
	cases := []struct {
		text    string
		leaver  string
		remover string
	}{
		{`You removed "Bruce LEE" from the group chat`, "Bruce LEE", "You"},
		{`你将"李佳芮"移出了群聊`, "李佳芮", "你"},
		{`You were removed from the group chat by "桔小秘"`, "You", "桔小秘"},
		{`你被"李佳芮"移出群聊`, "你", "李佳芮"},
	}
	for _, c := range cases {
		leave, err := ParseRoomLeave(c.text)
		require.NoError(t, err, c.text)
		assert.Equal(t, c.leaver, leave.LeaverName)
		assert.Equal(t, c.remover, leave.RemoverName)
	}

	_, err := ParseRoomLeave(`管理员 invited 小桔建群助手 to the group chat`)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestParseRoomTopic(t *testing.T) {
	topic, err := ParseRoomTopic(`"李卓桓.PreAngel" changed the group name to "ding"`)
	require.NoError(t, err)
	assert.Equal(t, "李卓桓.PreAngel", topic.ChangerName)
	assert.Equal(t, "ding", topic.Topic)

	topic, err = ParseRoomTopic(`"李佳芮"修改群名为“dong”`)
	require.NoError(t, err)
	assert.Equal(t, "李佳芮", topic.ChangerName)
	assert.Equal(t, "dong", topic.Topic)

	_, err = ParseRoomTopic("hello world")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestIsSelf(t *testing.T) {
	for _, name := range []string{"You", "you", "YOU", "你"} {
		assert.True(t, IsSelf(name), name)
	}
	for _, name := range []string{"Your", "你好", "管理员", ""} {
		assert.False(t, IsSelf(name), name)
	}
}

func TestParseFirstFamilyWins(t *testing.T) {
	evt := Parse(`You invited 管理员 to the group chat.   `)
	assert.Equal(t, FamilyRoomJoinInvite, evt.Family)
	require.NotNil(t, evt.Join)
	assert.Nil(t, evt.Leave)
	assert.Nil(t, evt.Topic)

	evt = Parse(`"宁锐锋" joined the group chat via the QR Code shared by "管理员".`)
	assert.Equal(t, FamilyRoomJoinQRCode, evt.Family)
	assert.Equal(t, "管理员", evt.Join.InviterName)

	evt = Parse(`你被"李佳芮"移出群聊`)
	assert.Equal(t, FamilyRoomLeaveOtherKickMe, evt.Family)

	evt = Parse(`"李佳芮"修改群名为“dong”`)
	assert.Equal(t, FamilyRoomTopic, evt.Family)
	assert.Equal(t, "dong", evt.Topic.Topic)

	evt = Parse(`你已添加了李卓桓，现在可以开始聊天了。`)
	assert.Equal(t, FamilyFriendConfirm, evt.Family)
	assert.False(t, evt.NoMatch())

	assert.True(t, Parse("just a chat message").NoMatch())
}

func TestParseIsDeterministic(t *testing.T) {
	text := `管理员 invited 庆次、小桔妹 to the group chat`
	first := Parse(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Parse(text))
	}
}
