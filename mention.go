// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"regexp"
	"slices"
	"strings"
)

// atSeparatorRegex splits mentions, which the clients end with a four-per-em space (U+2005).
var atSeparatorRegex = regexp.MustCompile(`[\x{2005}\x{0020}\s]+`)

// mentionNames returns the candidate member names mentioned in text.
//
// A name may contain @ itself, so a word like hello@a@b@c yields c, b@c and a@b@c.
func mentionNames(text string) []string {
	var names []string
	for _, word := range atSeparatorRegex.Split(text, -1) {
		idx := strings.IndexByte(word, '@')
		if idx < 0 {
			continue
		}
		parts := slices.DeleteFunc(strings.Split(word[idx+1:], "@"), func(part string) bool { return part == "" })
		for i := len(parts) - 1; i >= 0; i-- {
			names = append(names, strings.Join(parts[i:], "@"))
		}
	}
	return names
}

// MentionIDList resolves the @mentions in a room message text to member user names.
func (p *Puppet) MentionIDList(ctx context.Context, roomID, text string) ([]string, error) {
	names := mentionNames(text)
	if len(names) == 0 {
		return nil, nil
	}
	var ids []string
	for _, name := range names {
		found, err := p.RoomMemberSearch(ctx, roomID, name)
		if err != nil {
			return ids, err
		}
		ids = append(ids, found...)
	}
	if len(ids) == 0 {
		p.Log.Debugf("No members of %s found for mentioned names %q", roomID, names)
	}
	return ids, nil
}
