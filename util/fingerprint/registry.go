// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fingerprint

import (
	"fmt"
	"slices"
	"sync"
)

var (
	registry      = make(map[string]*RegionConfig)
	registryLock  sync.RWMutex
	defaultRegion *RegionConfig
)

// RegisterRegion adds a region that can be passed to Generate.
func RegisterRegion(config *RegionConfig) error {
	if config == nil {
		return fmt.Errorf("region config cannot be nil")
	} else if config.Code == "" {
		return fmt.Errorf("region code cannot be empty")
	} else if err := validateRegionConfig(config); err != nil {
		return fmt.Errorf("invalid region config for %s: %w", config.Code, err)
	}
	registryLock.Lock()
	registry[config.Code] = config
	registryLock.Unlock()
	return nil
}

// GetRegionConfig returns the config of a region, or the default region if the code is unknown.
func GetRegionConfig(regionCode string) *RegionConfig {
	registryLock.RLock()
	defer registryLock.RUnlock()
	if config, ok := registry[regionCode]; ok {
		return config
	}
	return defaultRegion
}

// ListRegions returns the registered region codes in sorted order.
func ListRegions() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	regions := make([]string, 0, len(registry))
	for code := range registry {
		regions = append(regions, code)
	}
	slices.Sort(regions)
	return regions
}

// SetDefaultRegion sets the config used for empty or unknown region codes.
func SetDefaultRegion(config *RegionConfig) error {
	if err := validateRegionConfig(config); err != nil {
		return fmt.Errorf("invalid default region config: %w", err)
	}
	registryLock.Lock()
	defaultRegion = config
	registryLock.Unlock()
	return nil
}

func checkWeights(kind string, weights []float64) error {
	var sum float64
	for _, weight := range weights {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("%s weight must be between 0 and 1", kind)
		}
		sum += weight
	}
	// Allow for float rounding
	if sum > 1.01 {
		return fmt.Errorf("%s weights sum should be <= 1.0, got %.2f", kind, sum)
	}
	return nil
}

func validateRegionConfig(config *RegionConfig) error {
	if config == nil {
		return fmt.Errorf("region config cannot be nil")
	}
	langWeights := make([]float64, len(config.Languages))
	for i, lang := range config.Languages {
		langWeights[i] = lang.Weight
	}
	if err := checkWeights("language", langWeights); err != nil {
		return err
	}
	platformWeights := make([]float64, len(config.Platforms))
	for i, platform := range config.Platforms {
		platformWeights[i] = platform.Weight
	}
	return checkWeights("platform", platformWeights)
}
