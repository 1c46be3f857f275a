// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/wechaty/puppet-wechat/util/clock"
)

const (
	fetchRetryAttempts = 10
	fetchRetryMinDelay = 1 * time.Second
	fetchRetryMaxDelay = 10 * time.Second
)

// encodeArgs packs call arguments so they survive being embedded in a script string
// whatever characters they contain. The page reverses it with
// JSON.parse(decodeURIComponent(window.atob(...))).
func encodeArgs(args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal arguments: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(url.PathEscape(string(data)))), nil
}

func proxyScript(fn string, args []any) (string, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return "", err
	}
	// Results come back as a JSON string so null and undefined decode like any other value
	return fmt.Sprintf(
		"Promise.resolve(WechatyBro.%s.apply(undefined, JSON.parse(decodeURIComponent(window.atob('%s')))))"+
			".then(function (ret) { return JSON.stringify(ret === undefined ? null : ret) })",
		fn, encoded,
	), nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// run executes actions on the page, cancelled when either the page or ctx is done.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	pageCtx := b.pageContext()
	if pageCtx == nil {
		return ErrNoPage
	}
	runCtx, cancel := context.WithCancel(pageCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// call invokes a function of the page script and stores its JSON result in res.
// res may be nil for calls whose result is ignored.
func (b *Browser) call(ctx context.Context, res any, fn string, args ...any) error {
	script, err := proxyScript(fn, args)
	if err != nil {
		return err
	}
	var missing bool
	var out string
	err = b.run(ctx,
		chromedp.Evaluate(`typeof WechatyBro === 'undefined'`, &missing),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if missing {
				return ErrNotInjected
			}
			return chromedp.Evaluate(script, &out, awaitPromise).Do(ctx)
		}),
	)
	if err != nil {
		b.log.Debugf("Call to %s failed: %v", fn, err)
		return fmt.Errorf("failed to call %s: %w", fn, err)
	} else if res == nil {
		return nil
	} else if err = json.Unmarshal([]byte(out), res); err != nil {
		return fmt.Errorf("failed to parse result of %s: %w", fn, err)
	}
	return nil
}

// callOK invokes a page function that reports success as a boolean.
func (b *Browser) callOK(ctx context.Context, fn string, args ...any) error {
	var ok bool
	if err := b.call(ctx, &ok, fn, args...); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrCallFailed, fn)
	}
	return nil
}

// callRetry repeats a record lookup while the page has nothing for it yet,
// as records are loaded lazily after login.
func (b *Browser) callRetry(ctx context.Context, res any, fn, id string) error {
	delay := fetchRetryMinDelay
	var lastErr error
	for attempt := 1; attempt <= fetchRetryAttempts; attempt++ {
		var data json.RawMessage
		lastErr = b.call(ctx, &data, fn, id)
		if lastErr == nil && emptyRecord(data) {
			lastErr = fmt.Errorf("%w for %s", ErrEmptyResponse, id)
		} else if lastErr == nil {
			if err := json.Unmarshal(data, res); err != nil {
				return fmt.Errorf("failed to parse result of %s: %w", fn, err)
			}
			return nil
		}
		if attempt == fetchRetryAttempts || errors.Is(lastErr, ErrNoPage) {
			break
		}
		b.log.Debugf("%s(%s) attempt #%d failed, retrying in %s: %v", fn, id, attempt, delay, lastErr)
		if err := clock.Sleep(ctx, b.clock, delay); err != nil {
			return err
		}
		delay = min(delay*2, fetchRetryMaxDelay)
	}
	return lastErr
}

// emptyRecord reports whether the page returned null, undefined or {}.
func emptyRecord(data json.RawMessage) bool {
	if len(data) == 0 || string(data) == "null" {
		return true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	return len(fields) == 0
}
