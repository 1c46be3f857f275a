// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wechaty/puppet-wechat/bridge"
	"github.com/wechaty/puppet-wechat/store"
	"github.com/wechaty/puppet-wechat/util/fingerprint"
	_ "github.com/wechaty/puppet-wechat/util/fingerprint/regions"
)

func TestRegionsRegistered(t *testing.T) {
	assert.Equal(t, []string{"CN", "HK", "TW", "US"}, fingerprint.ListRegions())
	assert.Equal(t, "CN", fingerprint.GetRegionConfig("").Code)
	assert.Equal(t, "CN", fingerprint.GetRegionConfig("XX").Code)
	assert.Equal(t, "US", fingerprint.GetRegionConfig("US").Code)
}

func TestGenerateUsesRegion(t *testing.T) {
	for range 20 {
		fp := fingerprint.Generate("TW")
		assert.Equal(t, "zh", fp.Language)
		assert.Equal(t, "TW", fp.Country)
		assert.Contains(t, []string{"Windows", "macOS"}, fp.OS)
		assert.NotEmpty(t, fp.OSVersion)
	}
}

func TestRegisterRegionValidates(t *testing.T) {
	assert.Error(t, fingerprint.RegisterRegion(nil))
	assert.Error(t, fingerprint.RegisterRegion(&fingerprint.RegionConfig{Name: "No code"}))
	assert.Error(t, fingerprint.RegisterRegion(&fingerprint.RegionConfig{
		Code: "ZZ",
		Platforms: []fingerprint.PlatformDistribution{
			{OS: "Windows", Weight: 0.8},
			{OS: "macOS", Weight: 0.8},
		},
	}))
	assert.NotContains(t, fingerprint.ListRegions(), "ZZ")
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, bridge.DefaultIdentity, fingerprint.Identity(nil))
	assert.Equal(t, bridge.Identity{OS: "macOS", OSVersion: "14.5", Language: "en", Country: "US"},
		fingerprint.Identity(&store.BrowserFingerprint{OS: "macOS", OSVersion: "14.5", Language: "en", Country: "US"}))
}
