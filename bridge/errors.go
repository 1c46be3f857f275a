// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPage is returned by every page call made before Start or after Stop.
	ErrNoPage = errors.New("no page open")
	// ErrNotInjected is returned when the page script is not (yet) present in the page.
	ErrNotInjected = errors.New("page script is not injected")
	// ErrBlocked is wrapped by *BlockedError when the page refuses web logins for the account.
	ErrBlocked       = errors.New("web login blocked")
	ErrInjectFailed  = errors.New("page script injection failed")
	ErrDialog        = errors.New("unexpected javascript dialog")
	ErrCallFailed    = errors.New("page call returned failure")
	ErrEmptyResponse = errors.New("page returned an empty record")
)

// BlockedCode is the error code the page shows when the login environment is considered abnormal.
const BlockedCode = 1203

// BlockedError is the diagnostic shown by the page instead of the web client.
type BlockedError struct {
	Code    int
	Message string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("web login blocked (%d): %s", e.Code, e.Message)
}

func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}

// InjectResult is the HTTP-like status returned by the page script and its init call.
type InjectResult struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OK reports whether the code is 2xx or 3xx.
func (ir *InjectResult) OK() bool {
	return ir != nil && ir.Code >= 200 && ir.Code < 400
}
