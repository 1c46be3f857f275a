// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package fingerprint picks a plausible desktop browser identity for an account.
//
// An identity is generated once from the weights of a region and then saved,
// so the same account keeps presenting the same browser between restarts.
package fingerprint

// RegionConfig describes the browsers commonly seen in one region.
type RegionConfig struct {
	Code string // "CN", "US"
	Name string

	Languages []LanguageConfig
	Platforms []PlatformDistribution
}

// LanguageConfig is a UI language and the countries it is picked with.
type LanguageConfig struct {
	Code      string
	Weight    float64
	Countries []string
}

// PlatformDistribution is the share of one desktop OS.
type PlatformDistribution struct {
	OS         string // "Windows", "macOS", "Linux"
	Weight     float64
	OSVersions []string
}
