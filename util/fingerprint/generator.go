// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fingerprint

import (
	"math/rand/v2"

	"github.com/wechaty/puppet-wechat/store"
)

var fallbackPlatform = PlatformDistribution{OS: "Windows", OSVersions: []string{"10.0"}}

// Generate picks a browser fingerprint using the weights of a region.
// An empty or unknown code uses the default region.
func Generate(regionCode string) *store.BrowserFingerprint {
	return generate(GetRegionConfig(regionCode), rand.Float64, rand.IntN)
}

func generate(config *RegionConfig, float func() float64, intn func(int) int) *store.BrowserFingerprint {
	if config == nil {
		return &store.BrowserFingerprint{OS: fallbackPlatform.OS, OSVersion: fallbackPlatform.OSVersions[0], Language: "zh", Country: "CN"}
	}
	lang, country := selectLanguageAndCountry(config, float, intn)
	platform := selectPlatform(config.Platforms, float)
	version := ""
	if len(platform.OSVersions) > 0 {
		version = platform.OSVersions[intn(len(platform.OSVersions))]
	}
	return &store.BrowserFingerprint{
		OS:        platform.OS,
		OSVersion: version,
		Language:  lang,
		Country:   country,
	}
}

func selectLanguageAndCountry(config *RegionConfig, float func() float64, intn func(int) int) (lang, country string) {
	if len(config.Languages) == 0 {
		return "en", "US"
	}
	picked := config.Languages[0]
	r := float()
	var cumWeight float64
	for _, langConfig := range config.Languages {
		cumWeight += langConfig.Weight
		if r <= cumWeight {
			picked = langConfig
			break
		}
	}
	if len(picked.Countries) == 0 {
		return picked.Code, ""
	}
	return picked.Code, picked.Countries[intn(len(picked.Countries))]
}

func selectPlatform(distributions []PlatformDistribution, float func() float64) PlatformDistribution {
	if len(distributions) == 0 {
		return fallbackPlatform
	}
	r := float()
	var cumWeight float64
	for _, dist := range distributions {
		cumWeight += dist.Weight
		if r <= cumWeight {
			return dist
		}
	}
	// Weights that don't add up to 1 fall back to the first platform
	return distributions[0]
}
