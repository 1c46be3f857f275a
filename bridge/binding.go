// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wechaty/puppet-wechat/types"
)

// bindingName is the page function the injected script emits events through.
const bindingName = "wechatyPuppetBridgeEmit"

// ErrPageScript is wrapped by errors the page script reports on its own.
var ErrPageScript = errors.New("page script error")

type bindingPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// pageLog is a debug line from the page script. It is logged, not dispatched.
type pageLog struct {
	Text string
}

func (*pageLog) EventName() string { return "log" }

func dataString(data json.RawMessage) string {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return string(data)
	}
	return str
}

// parseBinding decodes one binding call of the page script.
func parseBinding(payload string) (Event, error) {
	var bp bindingPayload
	if err := json.Unmarshal([]byte(payload), &bp); err != nil {
		return nil, fmt.Errorf("failed to parse binding payload: %w", err)
	}
	switch bp.Event {
	case "scan":
		var data struct {
			Code int    `json:"code"`
			URL  string `json:"url"`
		}
		if err := json.Unmarshal(bp.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to parse scan event: %w", err)
		}
		return &Scan{Code: data.Code, URL: data.URL}, nil
	case "login":
		var data struct {
			UserName string `json:"userName"`
		}
		if err := json.Unmarshal(bp.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to parse login event: %w", err)
		}
		return &Login{UserName: data.UserName}, nil
	case "logout":
		return &Logout{}, nil
	case "message":
		var raw types.RawMessage
		if err := json.Unmarshal(bp.Data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse message event: %w", err)
		}
		return &Message{Raw: &raw}, nil
	case "heartbeat":
		return &Heartbeat{Data: dataString(bp.Data)}, nil
	case "ding":
		return &Ding{Data: dataString(bp.Data)}, nil
	case "error":
		return &Error{Err: fmt.Errorf("%w: %s", ErrPageScript, dataString(bp.Data))}, nil
	case "log":
		return &pageLog{Text: dataString(bp.Data)}, nil
	default:
		return nil, fmt.Errorf("unknown page event %q", bp.Event)
	}
}

func (b *Browser) handleBinding(payload string) {
	evt, err := parseBinding(payload)
	if err != nil {
		b.log.Warnf("Ignoring binding call: %v", err)
		return
	}
	if line, ok := evt.(*pageLog); ok {
		b.log.Debugf("Page: %s", line.Text)
		return
	}
	b.emit(evt)
}
