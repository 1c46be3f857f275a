// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"errors"
	"fmt"
)

// Miscellaneous errors
var (
	ErrTransportIsNil    = errors.New("transport is nil")
	ErrNotLoggedIn       = errors.New("the puppet is not logged in")
	ErrAlreadyLoggedIn   = errors.New("the puppet is already logged in")
	ErrNotActive         = errors.New("the puppet is not active")
	ErrReadyTimeout      = errors.New("timed out waiting for the page to become ready")
	ErrDingMismatch      = errors.New("ding echo did not match the sent nonce")
	ErrDingTimeout       = errors.New("timed out waiting for ding echo")
	ErrLoginTimeout      = errors.New("timed out waiting for the logged in user name")
	ErrLeaveUnresolved   = errors.New("room leave message parsed but member ids could not be resolved")
	ErrUnknownScanStatus = errors.New("unknown scan status code")
	ErrNoPayload         = errors.New("no payload")
	ErrEmptyPayload      = errors.New("empty raw payload")
	ErrMemberNotFound    = errors.New("room member not found")
	ErrNotFriendship     = errors.New("message is not a friendship request")
	ErrNoRecommendInfo   = errors.New("friendship request has no recommend info")
	ErrNoConversation    = errors.New("message has neither a room nor a listener")
)

// ErrStartAborted is returned by Start when Stop is called before the puppet became active.
var ErrStartAborted = fmt.Errorf("%w: stopped while starting", ErrNotActive)
