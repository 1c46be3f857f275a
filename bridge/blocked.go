// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var preRegex = regexp.MustCompile(`(?i)^<pre[^>]*>([^<]+)</pre>$`)

// PreHTMLToXML unwraps a document the browser rendered as plain text inside a <pre> tag.
// Other text is returned unchanged.
func PreHTMLToXML(text string) string {
	match := preRegex.FindStringSubmatch(text)
	if match == nil {
		return text
	}
	return html.UnescapeString(match[1])
}

type errorDocument struct {
	XMLName xml.Name `xml:"error"`
	Ret     string   `xml:"ret"`
	Message string   `xml:"message"`
}

// ParseBlocked returns the diagnostic of an <error> document, or nil if the text is anything else.
func ParseBlocked(text string) *BlockedError {
	var doc errorDocument
	if err := xml.Unmarshal([]byte(PreHTMLToXML(strings.TrimSpace(text))), &doc); err != nil {
		return nil
	}
	code, _ := strconv.Atoi(strings.TrimSpace(doc.Ret))
	return &BlockedError{Code: code, Message: doc.Message}
}

// BlockedMessage returns the <message> of an <error> document, or an empty string.
func BlockedMessage(text string) string {
	if blocked := ParseBlocked(text); blocked != nil {
		return blocked.Message
	}
	return ""
}
