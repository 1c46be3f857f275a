// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"context"
	"sync"
)

// BrowserFingerprint is the desktop browser an account presents itself as.
type BrowserFingerprint struct {
	OS        string
	OSVersion string
	Language  string
	Country   string
}

// FingerprintStore keeps one fingerprint per slot.
//
// GetFingerprint returns nil and no error when the slot is empty.
type FingerprintStore interface {
	GetFingerprint(ctx context.Context, slot string) (*BrowserFingerprint, error)
	PutFingerprint(ctx context.Context, slot string, fp *BrowserFingerprint) error
}

// MemoryFingerprintStore is a FingerprintStore that only lives as long as the process.
type MemoryFingerprintStore struct {
	lock  sync.RWMutex
	slots map[string]BrowserFingerprint
}

var _ FingerprintStore = (*MemoryFingerprintStore)(nil)

func NewMemoryFingerprintStore() *MemoryFingerprintStore {
	return &MemoryFingerprintStore{slots: make(map[string]BrowserFingerprint)}
}

func (m *MemoryFingerprintStore) GetFingerprint(_ context.Context, slot string) (*BrowserFingerprint, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	fp, ok := m.slots[slot]
	if !ok {
		return nil, nil
	}
	return &fp, nil
}

func (m *MemoryFingerprintStore) PutFingerprint(_ context.Context, slot string, fp *BrowserFingerprint) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.slots[slot] = *fp
	return nil
}

// LoadOrCreateFingerprint returns the fingerprint saved in the slot, saving the result of generate if there is none.
func LoadOrCreateFingerprint(ctx context.Context, fs FingerprintStore, slot string, generate func() *BrowserFingerprint) (*BrowserFingerprint, bool, error) {
	fp, err := fs.GetFingerprint(ctx, slot)
	if err != nil {
		return nil, false, err
	} else if fp != nil {
		return fp, false, nil
	}
	fp = generate()
	if err = fs.PutFingerprint(ctx, slot, fp); err != nil {
		return nil, false, err
	}
	return fp, true, nil
}
