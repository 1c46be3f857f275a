// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config loads the puppet options from the environment, an optional
// TOML file and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"

	wxLog "github.com/wechaty/puppet-wechat/util/log"
)

const (
	KeyHead        = "head"
	KeyStealthless = "stealthless"
	KeyEndpoint    = "endpoint"
	KeyUOS         = "uos"
	KeyUOSExtSpam  = "uos_ext_spam"
	KeyDatabase    = "database"
	KeyLogLevel    = "log_level"
	KeyRegion      = "region"

	EnvHead               = "WECHATY_PUPPET_WECHAT_PUPPETEER_HEAD"
	EnvStealthless        = "WECHATY_PUPPET_WECHAT_PUPPETEER_STEALTHLESS"
	EnvEndpoint           = "WECHATY_PUPPET_WECHAT_ENDPOINT"
	EnvDeprecatedEndpoint = "WECHATY_PUPPET_PUPPETEER_ENDPOINT"
	EnvUOS                = "WECHATY_PUPPET_WECHAT_PUPPETEER_UOS"

	configName = "puppet-wechat"
	configType = "toml"
)

// Options are the settings of one bridged account.
type Options struct {
	// Head shows the browser window instead of running headless.
	Head bool
	// Stealthless turns off the automation fingerprint patches.
	Stealthless bool
	// Endpoint is the Chrome executable path, or a ws:// DevTools URL of a running browser.
	Endpoint string
	// UOS makes the page log in as the desktop (UOS) client, which some accounts need.
	UOS        bool
	UOSExtSpam string

	DatabasePath string
	LogLevel     string
	// Region picks the locale and OS mix of the generated browser fingerprint.
	Region string
}

var envTrueRegex = regexp.MustCompile(`(?i)^(true|1)$`)

// New returns a viper instance with the environment bindings and defaults set up.
func New() *viper.Viper {
	v := viper.New()
	_ = v.BindEnv(KeyHead, EnvHead)
	_ = v.BindEnv(KeyStealthless, EnvStealthless)
	_ = v.BindEnv(KeyEndpoint, EnvEndpoint, EnvDeprecatedEndpoint)
	_ = v.BindEnv(KeyUOS, EnvUOS)
	v.SetDefault(KeyDatabase, "puppet-wechat.db")
	v.SetDefault(KeyLogLevel, "INFO")
	return v
}

// Load reads the options. A missing config file is not an error.
func Load(v *viper.Viper, log wxLog.Logger) (*Options, error) {
	if v == nil {
		v = New()
	}
	if log == nil {
		log = wxLog.Noop
	}
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configName))
	}
	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		log.Debugf("Loaded config from %s", v.ConfigFileUsed())
	}

	if _, ok := os.LookupEnv(EnvEndpoint); !ok {
		if _, deprecated := os.LookupEnv(EnvDeprecatedEndpoint); deprecated {
			log.Warnf("%s is deprecated, use %s instead", EnvDeprecatedEndpoint, EnvEndpoint)
		}
	}

	return &Options{
		Head:         presenceBool(v.Get(KeyHead)),
		Stealthless:  presenceBool(v.Get(KeyStealthless)),
		Endpoint:     v.GetString(KeyEndpoint),
		UOS:          matchBool(v.Get(KeyUOS)),
		UOSExtSpam:   v.GetString(KeyUOSExtSpam),
		DatabasePath: v.GetString(KeyDatabase),
		LogLevel:     v.GetString(KeyLogLevel),
		Region:       v.GetString(KeyRegion),
	}, nil
}

// presenceBool treats any non-empty environment value as true. Typed values
// from flags and the config file are used as is.
func presenceBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return typed != ""
	default:
		return false
	}
}

// matchBool only accepts "true" or "1" from the environment.
func matchBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return envTrueRegex.MatchString(typed)
	default:
		return false
	}
}
