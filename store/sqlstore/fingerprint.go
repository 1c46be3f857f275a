// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wechaty/puppet-wechat/store"
)

var _ store.FingerprintStore = (*Container)(nil)

const (
	createFingerprintTable = `
		CREATE TABLE IF NOT EXISTS puppet_wechat_fingerprint (
			slot       TEXT PRIMARY KEY,
			os         TEXT NOT NULL,
			os_version TEXT NOT NULL,
			language   TEXT NOT NULL,
			country    TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)
	`
	getFingerprintQuery = `
		SELECT os, os_version, language, country FROM puppet_wechat_fingerprint WHERE slot=$1
	`
	putFingerprintQuery = `
		INSERT INTO puppet_wechat_fingerprint (slot, os, os_version, language, country, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slot) DO UPDATE SET
			os=excluded.os, os_version=excluded.os_version,
			language=excluded.language, country=excluded.country,
			updated_at=excluded.updated_at
	`
)

// GetFingerprint returns the browser fingerprint saved in the slot.
func (c *Container) GetFingerprint(ctx context.Context, slot string) (*store.BrowserFingerprint, error) {
	var fp store.BrowserFingerprint
	err := c.db.QueryRow(ctx, getFingerprintQuery, slot).Scan(&fp.OS, &fp.OSVersion, &fp.Language, &fp.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	return &fp, nil
}

// PutFingerprint saves the browser fingerprint of the slot.
func (c *Container) PutFingerprint(ctx context.Context, slot string, fp *store.BrowserFingerprint) error {
	_, err := c.db.Exec(ctx, putFingerprintQuery, slot, fp.OS, fp.OSVersion, fp.Language, fp.Country, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to put fingerprint: %w", err)
	}
	return nil
}
