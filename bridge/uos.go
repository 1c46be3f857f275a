// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"
)

const (
	uosClientVersion = "2.0.0"
	uosLoginPagePath = "/cgi-bin/mmwebwx-bin/webwxnewloginpage"

	// DefaultUOSExtSpam is the extspam header the UOS desktop client sends.
	DefaultUOSExtSpam = "Gp8ICJkIEpkICggwMDAwMDAwMRAGGoAI1GiJSIpeO1RZTq9QBKsRbPJdi84ropi16EYI10WB6g74sGmRwSNXjPQnYUKYotKkvLGpshucCaeWZMOylnc6o2AgDX9grhQQx7fm2DJRTyuNhUlwmEoWhjoG3F0ySAWUsEbH3bJMsEBwoB//0qmFJob74ffdaslqL+IrSy7LJ76/G5TkvNC+J0VQkpH1u3iJJs0uUYyLDzdBIQ6Ogd8LDQ3VKnJLm4g/uDLe+G7zzzkOPzCjXL+70naaQ9medzqmh+/SmaQ6uFWLDQLcRln++wBwoEibNpG4uOJvqXy+ql50DjlNchSuqLmeadFoo9/mDT0q3G7o/80P15ostktjb7h9bfNc+nZVSnUEJXbCjTeqS5UYuxn+HTS5nZsPVxJA2O5GdKCYK4x8lTTKShRstqPfbQpplfllx2fwXcSljuYi3YipPyS3GCAqf5A7aYYwJ7AvGqUiR2SsVQ9Nbp8MGHET1GxhifC692APj6SJxZD3i1drSYZPMMsS9rKAJTGz2FEupohtpf2tgXm6c16nDk/cw+C7K7me5j5PLHv55DFCS84b06AytZPdkFZLj7FHOkcFGJXitHkX5cgww7vuf6F3p0yM/W73SoXTx6GX4G6Hg2rYx3O/9VU2Uq8lvURB4qIbD9XQpzmyiFMaytMnqxcZJcoXCtfkTJ6pI7a92JpRUvdSitg967VUDUAQnCXCM/m0snRkR9LtoXAO1FUGpwlp1EfIdCZFPKNnXMeqev0j9W9ZrkEs9ZWcUEexSj5z+dKYQBhIICviYUQHVqBTZSNy22PlUIeDeIs11j7q4t8rD8LPvzAKWVqXE+5lS1JPZkjg4y5hfX1Dod3t96clFfwsvDP6xBSe1NBcoKbkyGxYK0UvPGtKQEE0Se2zAymYDv41klYE9s+rxp8e94/H8XhrL9oGm8KWb2RmYnAE7ry9gd6e8ZuBRIsISlJAE/e8y8xFmP031S6Lnaet6YXPsFpuFsdQs535IjcFd75hh6DNMBYhSfjv456cvhsb99+fRw/KVZLC3yzNSCbLSyo9d9BI45Plma6V8akURQA/qsaAzU0VyTIqZJkPDTzhuCl92vD2AD/QOhx6iwRSVPAxcRFZcWjgc2wCKh+uCYkTVbNQpB9B90YlNmI3fWTuUOUjwOzQRxJZj11NsimjOJ50qQwTTFj6qQvQ1a/I+MkTx5UO+yNHl718JWcR3AXGmv/aa9rD1eNP8ioTGlOZwPgmr2sor2iBpKTOrB83QgZXP+xRYkb4zVC+LoAXEoIa1+zArywlgREer7DLePukkU6wHTkuSaF+ge5Of1bXuU4i938WJHj0t3D8uQxkJvoFi/EYN/7u2P1zGRLV4dHVUsZMGCCtnO6BBigFMAA="
)

// uosRewrite describes how a paused request should continue. Empty fields keep the original.
type uosRewrite struct {
	URL     string
	Headers map[string]string
}

// rewriteUOSRequest makes the web client log in as the UOS desktop client.
func rewriteUOSRequest(rawURL string, headers map[string]string, extSpam string) uosRewrite {
	u, err := url.Parse(rawURL)
	if err != nil {
		return uosRewrite{}
	}
	switch {
	case u.Path == "/" && !strings.Contains(u.RawQuery, "target=t"):
		if u.RawQuery == "" {
			u.RawQuery = "target=t"
		} else {
			u.RawQuery += "&target=t"
		}
		return uosRewrite{URL: u.String()}
	case u.Path == uosLoginPagePath:
		patched := make(map[string]string, len(headers)+2)
		for name, value := range headers {
			patched[name] = value
		}
		patched["client-version"] = uosClientVersion
		patched["extspam"] = extSpam
		return uosRewrite{Headers: patched}
	default:
		return uosRewrite{}
	}
}

func (b *Browser) onRequestPaused(evt *fetch.EventRequestPaused) {
	headers := make(map[string]string, len(evt.Request.Headers))
	for name, value := range evt.Request.Headers {
		if str, ok := value.(string); ok {
			headers[name] = str
		}
	}
	rewrite := rewriteUOSRequest(evt.Request.URL, headers, b.uosExtSpam())
	continueReq := fetch.ContinueRequest(evt.RequestID)
	if rewrite.URL != "" {
		b.log.Debugf("Rewriting %s to %s", evt.Request.URL, rewrite.URL)
		continueReq = continueReq.WithURL(rewrite.URL)
	}
	if rewrite.Headers != nil {
		entries := make([]*fetch.HeaderEntry, 0, len(rewrite.Headers))
		for name, value := range rewrite.Headers {
			entries = append(entries, &fetch.HeaderEntry{Name: name, Value: value})
		}
		continueReq = continueReq.WithHeaders(entries)
	}
	err := b.run(context.Background(), chromedp.ActionFunc(continueReq.Do))
	if err != nil {
		b.log.Warnf("Failed to continue request to %s: %v", evt.Request.URL, err)
	}
}

func (b *Browser) uosExtSpam() string {
	if b.opts.UOSExtSpam != "" {
		return b.opts.UOSExtSpam
	}
	return DefaultUOSExtSpam
}
