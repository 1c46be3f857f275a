// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wechaty/puppet-wechat/store"
	"github.com/wechaty/puppet-wechat/types"
)

var _ store.CookieStore = (*Container)(nil)

const (
	getMemoryQuery = `SELECT value FROM puppet_wechat_memory WHERE slot=$1`
	putMemoryQuery = `
		INSERT INTO puppet_wechat_memory (slot, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
	`
	deleteMemoryQuery = `DELETE FROM puppet_wechat_memory WHERE slot=$1`
)

// GetCookies returns the cookies saved in the slot, or nil if nothing was saved.
func (c *Container) GetCookies(ctx context.Context, slot string) ([]*types.Cookie, error) {
	var value string
	err := c.db.QueryRow(ctx, getMemoryQuery, slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}
	var cookies []*types.Cookie
	if err = json.Unmarshal([]byte(value), &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse saved cookies: %w", err)
	}
	return cookies, nil
}

// PutCookies replaces the cookies saved in the slot.
func (c *Container) PutCookies(ctx context.Context, slot string, cookies []*types.Cookie) error {
	value, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to serialize cookies: %w", err)
	}
	_, err = c.db.Exec(ctx, putMemoryQuery, slot, string(value), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to put cookies: %w", err)
	}
	c.log.Debugf("Saved %d cookies to slot %s", len(cookies), slot)
	return nil
}

// DeleteCookies forgets the slot.
func (c *Container) DeleteCookies(ctx context.Context, slot string) error {
	_, err := c.db.Exec(ctx, deleteMemoryQuery, slot)
	if err != nil {
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	return nil
}
