// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sqlstore contains an SQL-backed implementation of the interfaces in the store package.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"go.mau.fi/util/dbutil"
	_ "modernc.org/sqlite"

	wxLog "github.com/wechaty/puppet-wechat/util/log"
)

// Container is a wrapper for a SQL database that can contain the puppet's persisted state.
type Container struct {
	db  *dbutil.Database
	log wxLog.Logger
}

// SQLiteAddress builds a DSN for the modernc.org/sqlite driver with WAL and a busy timeout.
func SQLiteAddress(path string) string {
	return fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", url.PathEscape(path))
}

// New connects to the given SQL database and creates the tables if needed.
//
//	container, err := sqlstore.New(ctx, "sqlite", sqlstore.SQLiteAddress("puppet-wechat.db"), nil)
//	if err != nil {
//		panic(err)
//	}
//	puppet := puppetwechat.NewPuppet(browser, puppetwechat.WithCookieStore(container))
func New(ctx context.Context, dialect, address string, log wxLog.Logger) (*Container, error) {
	db, err := sql.Open(dialect, address)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	container, err := NewWithDB(db, dialect, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	err = container.Upgrade(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to upgrade database: %w", err)
	}
	return container, nil
}

// NewWithDB wraps an existing database connection. Upgrade must be called before use.
func NewWithDB(db *sql.DB, dialect string, log wxLog.Logger) (*Container, error) {
	wrapped, err := dbutil.NewWithDB(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap database: %w", err)
	}
	if log == nil {
		log = wxLog.Noop
	}
	return &Container{db: wrapped, log: log}, nil
}

const createMemoryTable = `
	CREATE TABLE IF NOT EXISTS puppet_wechat_memory (
		slot       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)
`

// Upgrade creates the tables used by the container if they don't exist yet.
func (c *Container) Upgrade(ctx context.Context) error {
	for _, query := range []string{createMemoryTable, createFingerprintTable} {
		if _, err := c.db.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (c *Container) Close() error {
	return c.db.Close()
}
