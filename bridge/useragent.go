// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bridge

import (
	"fmt"
	"strings"
)

const chromeVersion = "131.0.0.0"

// Identity is what the browser claims to be when the stealth patch is on.
type Identity struct {
	OS        string
	OSVersion string
	Language  string
	Country   string
}

// DefaultIdentity is a desktop Chrome on Windows with a Chinese locale, the most common web client.
var DefaultIdentity = Identity{
	OS:        "Windows",
	OSVersion: "10.0",
	Language:  "zh",
	Country:   "CN",
}

// UserAgent returns a desktop Chrome user agent string for the identity.
func (id Identity) UserAgent() string {
	return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", id.osPart(), chromeVersion)
}

// Platform returns the navigator.platform value matching the user agent.
func (id Identity) Platform() string {
	switch os := strings.ToLower(id.OS); {
	case strings.Contains(os, "mac"):
		return "MacIntel"
	case strings.Contains(os, "linux"):
		return "Linux x86_64"
	default:
		return "Win32"
	}
}

func (id Identity) osPart() string {
	switch os := strings.ToLower(id.OS); {
	case strings.Contains(os, "mac"):
		return "Macintosh; Intel Mac OS X " + macVersion(id.OSVersion)
	case strings.Contains(os, "linux"):
		return "X11; Linux x86_64"
	default:
		version := id.OSVersion
		if version == "" {
			version = "10.0"
		} else if !strings.Contains(version, ".") {
			version += ".0"
		}
		return fmt.Sprintf("Windows NT %s; Win64; x64", version)
	}
}

// macVersion turns 14 or 14.5 into the underscore form with three parts, 14_0_0 or 14_5_0.
func macVersion(version string) string {
	if version == "" {
		version = "10.15.7"
	}
	parts := strings.Split(version, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, "_")
}

// AcceptLanguage returns the Accept-Language header a browser with this locale sends.
func (id Identity) AcceptLanguage() string {
	lang, country := id.Language, id.Country
	if lang == "" {
		lang = "en"
	}
	if country == "" {
		return fmt.Sprintf("%s,en;q=0.8", lang)
	}
	primary := lang + "-" + country
	if lang == "en" {
		return fmt.Sprintf("%s,en;q=0.9", primary)
	}
	return fmt.Sprintf("%s,%s;q=0.9,en;q=0.8", primary, lang)
}
