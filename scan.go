// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package puppetwechat

import (
	"context"
	"fmt"
	"strings"

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/types"
	"github.com/wechaty/puppet-wechat/types/events"
	"github.com/wechaty/puppet-wechat/watchdog"
)

// Scan status codes used by the login page.
const (
	scanCodeWaiting   = 0
	scanCodeConfirmed = 200
	scanCodeScanned   = 201
	scanCodeTimeout   = 408
)

func normalizeScanStatus(code int) (types.ScanStatus, error) {
	switch code {
	case scanCodeWaiting:
		return types.ScanStatusWaiting, nil
	case scanCodeConfirmed:
		return types.ScanStatusConfirmed, nil
	case scanCodeScanned:
		return types.ScanStatusScanned, nil
	case scanCodeTimeout:
		return types.ScanStatusTimeout, nil
	default:
		return types.ScanStatusUnknown, fmt.Errorf("%w %d", ErrUnknownScanStatus, code)
	}
}

// makeQRCodeURL turns the image URL shown on the page into the URL encoded in the QR code itself.
func makeQRCodeURL(imageURL string) string {
	return strings.Replace(imageURL, "/qrcode/", "/l/", 1)
}

func (p *Puppet) handleScan(ctx context.Context, rawEvt bridge.Event) {
	evt := rawEvt.(*bridge.Scan)
	p.Log.Debugf("Got scan event with code %d: %s", evt.Code, evt.URL)
	qrcode := makeQRCodeURL(evt.URL)
	status, statusErr := normalizeScanStatus(evt.Code)

	p.selfLock.Lock()
	p.scanPayload = &types.ScanPayload{QRCode: qrcode, Status: status}
	p.selfLock.Unlock()

	// The page refreshes its cookies along with every new QR code
	p.saveCookies(ctx)

	if p.IsLoggedIn() {
		p.Log.Infof("Got scan event while logged in as %s, logging out", p.SelfID())
		if err := p.Logout(ctx); err != nil {
			p.Log.Warnf("Failed to log out before handling scan: %v", err)
		}
	}

	p.scanDog.Feed(watchdog.Food[string]{Data: qrcode, Type: "scan"})
	p.emitHeartbeat(ctx, watchdog.Food[string]{Data: evt.URL, Type: "scan"})

	if statusErr != nil {
		p.Log.Warnf("Failed to handle scan event: %v", statusErr)
		p.dispatchEvent(&events.Error{Err: statusErr})
		return
	}
	p.dispatchEvent(&events.Scan{QRCode: qrcode, Status: status})
}
