// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sysmsg

// Event is the tagged result of Parse. At most one of the pointer fields is set,
// friend confirmations carry no payload and FamilyNone means nothing matched.
type Event struct {
	Family Family

	Join  *RoomJoin
	Leave *RoomLeave
	Topic *RoomTopic
}

// NoMatch reports whether the text was not recognized as any system notice.
func (evt Event) NoMatch() bool {
	return evt.Family == FamilyNone
}

// Parse classifies the text against the whole table and returns the first match.
func Parse(text string) Event {
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return p.extract(m)
		}
	}
	return Event{}
}
