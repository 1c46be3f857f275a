// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package regions registers the built-in fingerprint regions. Import it for its side effects.
package regions

import (
	"github.com/wechaty/puppet-wechat/util/fingerprint"
)

func init() {
	// Mainland China, also used when no region is configured
	config := &fingerprint.RegionConfig{
		Code: "CN",
		Name: "China",
		Languages: []fingerprint.LanguageConfig{
			{Code: "zh", Weight: 0.95, Countries: []string{"CN"}},
			{Code: "en", Weight: 0.05, Countries: []string{"US"}},
		},
		Platforms: []fingerprint.PlatformDistribution{
			{OS: "Windows", Weight: 0.8, OSVersions: []string{"10.0"}},
			{OS: "macOS", Weight: 0.2, OSVersions: []string{"10.15.7", "13.6", "14.5"}},
		},
	}
	if err := fingerprint.SetDefaultRegion(config); err != nil {
		panic(err)
	}
	mustRegister(config)
}

// mustRegister registers a built-in region. A built-in region failing validation is a bug.
func mustRegister(config *fingerprint.RegionConfig) {
	if err := fingerprint.RegisterRegion(config); err != nil {
		panic(err)
	}
}
