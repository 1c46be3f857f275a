// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package regions

import (
	"github.com/wechaty/puppet-wechat/util/fingerprint"
)

func init() {
	mustRegister(&fingerprint.RegionConfig{
		Code: "TW",
		Name: "Taiwan",
		Languages: []fingerprint.LanguageConfig{
			{Code: "zh", Weight: 1.0, Countries: []string{"TW"}},
		},
		Platforms: []fingerprint.PlatformDistribution{
			{OS: "Windows", Weight: 0.7, OSVersions: []string{"10.0"}},
			{OS: "macOS", Weight: 0.3, OSVersions: []string{"13.6", "14.5"}},
		},
	})
	mustRegister(&fingerprint.RegionConfig{
		Code: "HK",
		Name: "Hong Kong",
		Languages: []fingerprint.LanguageConfig{
			{Code: "zh", Weight: 0.7, Countries: []string{"HK"}},
			{Code: "en", Weight: 0.3, Countries: []string{"HK"}},
		},
		Platforms: []fingerprint.PlatformDistribution{
			{OS: "Windows", Weight: 0.6, OSVersions: []string{"10.0"}},
			{OS: "macOS", Weight: 0.4, OSVersions: []string{"13.6", "14.5"}},
		},
	})
	mustRegister(&fingerprint.RegionConfig{
		Code: "US",
		Name: "United States",
		Languages: []fingerprint.LanguageConfig{
			{Code: "en", Weight: 0.9, Countries: []string{"US"}},
			{Code: "zh", Weight: 0.1, Countries: []string{"CN"}},
		},
		Platforms: []fingerprint.PlatformDistribution{
			{OS: "Windows", Weight: 0.6, OSVersions: []string{"10.0"}},
			{OS: "macOS", Weight: 0.3, OSVersions: []string{"13.6", "14.5"}},
			{OS: "Linux", Weight: 0.1},
		},
	})
}
