// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{EnvHead, EnvStealthless, EnvEndpoint, EnvDeprecatedEndpoint, EnvUOS} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(EnvHead, "yes")
	t.Setenv(EnvEndpoint, "/usr/bin/chromium")
	t.Setenv(EnvUOS, "TRUE")

	opts, err := Load(New(), nil)
	require.NoError(t, err)
	assert.True(t, opts.Head)
	assert.False(t, opts.Stealthless)
	assert.Equal(t, "/usr/bin/chromium", opts.Endpoint)
	assert.True(t, opts.UOS)
	assert.Equal(t, "puppet-wechat.db", opts.DatabasePath)
}

func TestDeprecatedEndpointFallback(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(EnvDeprecatedEndpoint, "/opt/chrome")

	opts, err := Load(New(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/chrome", opts.Endpoint)

	t.Setenv(EnvEndpoint, "/usr/bin/chromium")
	opts, err = Load(New(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/chromium", opts.Endpoint)
}

func TestUOSOnlyAcceptsTrueOrOne(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	for value, expected := range map[string]bool{"1": true, "true": true, "True": true, "yes": false, "0": false, "": false} {
		t.Setenv(EnvUOS, value)
		opts, err := Load(New(), nil)
		require.NoError(t, err)
		assert.Equal(t, expected, opts.UOS, value)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "puppet-wechat.toml"), []byte(`
head = false
stealthless = true
uos = true
database = "/var/lib/puppet/wechat.db"
`), 0o600))

	opts, err := Load(New(), nil)
	require.NoError(t, err)
	assert.False(t, opts.Head)
	assert.True(t, opts.Stealthless)
	assert.True(t, opts.UOS)
	assert.Equal(t, "/var/lib/puppet/wechat.db", opts.DatabasePath)
}
