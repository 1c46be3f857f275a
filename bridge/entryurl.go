// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"regexp"
	"strings"

	"github.com/wechaty/puppet-wechat/types"
)

// DefaultEntryURL is opened when no saved cookie says which WeChat Web host the account belongs to.
const DefaultEntryURL = "https://wx.qq.com"

var sessionCookieRegex = regexp.MustCompile(`^webwx_auth_ticket|webwxuvid$`)

// EntryURL picks the web client host from saved session cookies.
func EntryURL(cookies []*types.Cookie) string {
	var domain string
	for _, cookie := range cookies {
		if cookie != nil && sessionCookieRegex.MatchString(cookie.Name) {
			domain = cookie.Domain
			break
		}
	}
	if domain == "" {
		return DefaultEntryURL
	}
	domain = strings.TrimPrefix(domain, ".")
	if domain == "wechat.com" {
		domain = "web.wechat.com"
	}
	if strings.HasPrefix(domain, "http") {
		return domain
	}
	return "https://" + domain
}
