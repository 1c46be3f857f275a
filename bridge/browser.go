// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package bridge drives a Chromium tab running WeChat Web through the DevTools protocol.
package bridge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/wechaty/puppet-wechat/types"
	"github.com/wechaty/puppet-wechat/util/clock"
	wxLog "github.com/wechaty/puppet-wechat/util/log"
)

//go:embed inject.js
var injectScript string

const stealthScript = `(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined })
  if (!window.chrome) { window.chrome = { runtime: {} } }
})()`

const (
	angularTimeout      = 2 * time.Minute
	angularPollInterval = 500 * time.Millisecond
	stopCookieTimeout   = 5 * time.Second
)

const switchAccountXPath = `//div[contains(@class,'association') and contains(@class,'show')]/a[@ng-click='qrcodeLogin()']`

// Options configure how the browser is launched.
type Options struct {
	// Head shows the browser window instead of running headless.
	Head bool
	// Stealthless disables hiding the automation markers of the browser.
	Stealthless bool
	// Endpoint is either the path of a Chromium executable or a ws:// DevTools URL of a running browser.
	Endpoint string
	// UOS makes the page log in as the UOS desktop client.
	UOS        bool
	UOSExtSpam string
	// Identity is the browser the stealth patch pretends to be. DefaultIdentity if zero.
	Identity Identity

	Log   wxLog.Logger
	Clock clock.Clock
}

// Browser is a WeChat Web session in a Chromium tab.
type Browser struct {
	opts  Options
	log   wxLog.Logger
	clock clock.Clock

	pageLock    sync.RWMutex
	pageCtx     context.Context
	cancelPage  context.CancelFunc
	cancelAlloc context.CancelFunc

	// watchLoads is set once the cookies are in place, loads before that are not the web client.
	watchLoads atomic.Bool
	loadLock   sync.Mutex

	cookieLock     sync.Mutex
	pendingCookies []*types.Cookie

	handlersLock sync.RWMutex
	handlers     []func(evt Event)
}

// NewBrowser prepares a browser. Nothing is launched until Start.
func NewBrowser(opts Options) *Browser {
	if opts.Log == nil {
		opts.Log = wxLog.Noop
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Identity == (Identity{}) {
		opts.Identity = DefaultIdentity
	}
	return &Browser{
		opts:  opts,
		log:   opts.Log,
		clock: opts.Clock,
	}
}

// AddEventHandler registers a function that receives every event of the browser.
// Handlers are called from the DevTools event loop and must not block.
func (b *Browser) AddEventHandler(handler func(evt Event)) {
	b.handlersLock.Lock()
	b.handlers = append(b.handlers, handler)
	b.handlersLock.Unlock()
}

func (b *Browser) emit(evt Event) {
	b.handlersLock.RLock()
	handlers := b.handlers
	b.handlersLock.RUnlock()
	for _, handler := range handlers {
		handler(evt)
	}
}

func (b *Browser) pageContext() context.Context {
	b.pageLock.RLock()
	defer b.pageLock.RUnlock()
	return b.pageCtx
}

func isRemoteEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://")
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("audio-output-channels", "0"),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-translate", true),
		chromedp.DisableGPU,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.NoSandbox,
	)
	if b.opts.Head {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.opts.Endpoint != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.Endpoint))
	}
	if !b.opts.Stealthless {
		opts = append(opts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
			chromedp.UserAgent(b.opts.Identity.UserAgent()),
		)
	}
	return opts
}

func (b *Browser) setupActions() []chromedp.Action {
	actions := []chromedp.Action{runtime.AddBinding(bindingName)}
	if !b.opts.Stealthless {
		id := b.opts.Identity
		actions = append(actions,
			emulation.SetUserAgentOverride(id.UserAgent()).
				WithAcceptLanguage(id.AcceptLanguage()).
				WithPlatform(id.Platform()),
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
				return err
			}),
		)
	}
	if b.opts.UOS {
		actions = append(actions, fetch.Enable().WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}))
	}
	return actions
}

// Start launches the browser and opens the web client with the cookies given to SetCookies.
// It returns once the page is loaded. Ready is emitted later, after the page script is initialized.
func (b *Browser) Start(ctx context.Context) error {
	b.pageLock.Lock()
	if b.pageCtx != nil {
		b.pageLock.Unlock()
		return nil
	}
	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if isRemoteEndpoint(b.opts.Endpoint) {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), b.opts.Endpoint)
	} else {
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	}
	browserLog := b.log.Sub("CDP")
	pageCtx, cancelPage := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(browserLog.Debugf),
		chromedp.WithErrorf(browserLog.Errorf),
	)
	b.pageCtx, b.cancelPage, b.cancelAlloc = pageCtx, cancelPage, cancelAlloc
	b.pageLock.Unlock()

	chromedp.ListenTarget(pageCtx, b.onTargetEvent)
	// The first run allocates the browser, so it must use the long lived page context
	if err := chromedp.Run(pageCtx); err != nil {
		b.close()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.cookieLock.Lock()
	cookies := b.pendingCookies
	b.cookieLock.Unlock()
	entryURL := EntryURL(cookies)
	b.log.Infof("Opening %s", entryURL)

	err := b.run(ctx, b.setupActions()...)
	if err == nil {
		err = b.run(ctx, chromedp.Navigate(entryURL))
	}
	if err == nil && len(cookies) > 0 {
		err = b.run(ctx, setCookiesAction(cookies))
	}
	if err == nil {
		b.watchLoads.Store(true)
		err = b.run(ctx, chromedp.Reload())
	}
	if err != nil {
		b.close()
		return fmt.Errorf("failed to open web client: %w", err)
	}
	return nil
}

func (b *Browser) close() {
	b.pageLock.Lock()
	b.watchLoads.Store(false)
	pageCtx, cancelPage, cancelAlloc := b.pageCtx, b.cancelPage, b.cancelAlloc
	b.pageCtx, b.cancelPage, b.cancelAlloc = nil, nil, nil
	b.pageLock.Unlock()
	if pageCtx == nil {
		return
	}
	if err := chromedp.Cancel(pageCtx); err != nil && !errors.Is(err, context.Canceled) {
		b.log.Warnf("Failed to close browser cleanly: %v", err)
	}
	cancelPage()
	cancelAlloc()
}

// Stop closes the browser. The current cookies are kept for the next Start.
// Stopping a browser that isn't running is a no-op.
func (b *Browser) Stop(ctx context.Context) error {
	if b.pageContext() == nil {
		return nil
	}
	cookieCtx, cancel := context.WithTimeout(ctx, stopCookieTimeout)
	if cookies, err := b.Cookies(cookieCtx); err != nil {
		b.log.Debugf("Failed to save cookies before closing: %v", err)
	} else {
		b.cookieLock.Lock()
		b.pendingCookies = cookies
		b.cookieLock.Unlock()
	}
	cancel()
	b.close()
	return nil
}

// Reload reloads the page. The page script is injected again once it has loaded.
func (b *Browser) Reload(ctx context.Context) error {
	if err := b.run(ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}

func (b *Browser) onTargetEvent(ev any) {
	switch evt := ev.(type) {
	case *runtime.EventBindingCalled:
		if evt.Name == bindingName {
			b.handleBinding(evt.Payload)
		}
	case *page.EventLoadEventFired:
		if b.watchLoads.Load() {
			go b.onLoad()
		}
	case *page.EventJavascriptDialogOpening:
		go b.onDialog(evt)
	case *fetch.EventRequestPaused:
		go b.onRequestPaused(evt)
	case *runtime.EventExceptionThrown:
		if evt.ExceptionDetails != nil {
			b.log.Debugf("Page exception: %s", evt.ExceptionDetails.Text)
		}
	}
}

func (b *Browser) onDialog(evt *page.EventJavascriptDialogOpening) {
	b.log.Warnf("Page opened a %s dialog: %s", evt.Type, evt.Message)
	if err := b.run(context.Background(), page.HandleJavaScriptDialog(true)); err != nil {
		b.log.Errorf("Failed to accept dialog: %v", err)
	}
	b.emit(&Error{Err: fmt.Errorf("%w %s: %s", ErrDialog, evt.Type, evt.Message)})
}

func (b *Browser) onLoad() {
	b.loadLock.Lock()
	defer b.loadLock.Unlock()
	if !b.watchLoads.Load() {
		return
	}
	ctx := context.Background()
	if err := b.readyAngular(ctx); err != nil {
		b.log.Errorf("Web client didn't load: %v", err)
		b.emit(&Error{Err: err})
		return
	}
	if err := b.inject(ctx); err != nil {
		b.log.Errorf("Failed to inject page script: %v", err)
		b.emit(&Error{Err: err})
		return
	}
	if clicked, err := b.clickSwitchAccount(ctx); err != nil {
		b.log.Warnf("Failed to check for the switch account button: %v", err)
	} else if clicked {
		b.log.Infof("Clicked switch account to get a QR code")
	}
	b.log.Debugf("Page script is ready")
	b.emit(&Ready{})
}

// readyAngular waits for the web client framework to load. The page is checked
// for a login block notice first, and again if the framework never shows up.
func (b *Browser) readyAngular(ctx context.Context) error {
	if blocked := b.blockedNotice(ctx); blocked != nil {
		return blocked
	}
	var ready bool
	err := b.run(ctx, chromedp.Poll(`typeof window.angular !== 'undefined'`, &ready,
		chromedp.WithPollingTimeout(angularTimeout),
		chromedp.WithPollingInterval(angularPollInterval),
	))
	if err == nil {
		return nil
	} else if blocked := b.blockedNotice(ctx); blocked != nil {
		return blocked
	}
	return fmt.Errorf("failed to wait for angular: %w", err)
}

// blockedNotice returns the block diagnostic if the page body is one.
func (b *Browser) blockedNotice(ctx context.Context) *BlockedError {
	var body string
	if err := b.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerHTML : ''`, &body)); err != nil {
		b.log.Debugf("Failed to read page body: %v", err)
		return nil
	}
	return ParseBlocked(body)
}

func (b *Browser) inject(ctx context.Context) error {
	var result InjectResult
	if err := b.run(ctx, chromedp.Evaluate(injectScript, &result)); err != nil {
		return fmt.Errorf("failed to evaluate page script: %w", err)
	} else if !result.OK() {
		return fmt.Errorf("%w: %d %s", ErrInjectFailed, result.Code, result.Message)
	}
	b.log.Debugf("Page script evaluated: %d %s", result.Code, result.Message)
	var initResult InjectResult
	if err := b.call(ctx, &initResult, "init"); err != nil {
		return err
	} else if !initResult.OK() {
		return fmt.Errorf("%w: init returned %d %s", ErrInjectFailed, initResult.Code, initResult.Message)
	}
	return nil
}

// clickSwitchAccount leaves the "log in as" screen of a remembered account, which has no QR code.
func (b *Browser) clickSwitchAccount(ctx context.Context) (bool, error) {
	var nodes []*cdp.Node
	if err := b.run(ctx, chromedp.Nodes(switchAccountXPath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return false, err
	} else if len(nodes) == 0 {
		return false, nil
	}
	return true, b.run(ctx, chromedp.MouseClickNode(nodes[0]))
}
