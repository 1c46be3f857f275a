// Copyright (c) 2026
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package types

import "fmt"

// ScanStatus is the state of the login QR code.
type ScanStatus int

const (
	ScanStatusUnknown ScanStatus = iota
	ScanStatusWaiting
	ScanStatusScanned
	ScanStatusConfirmed
	ScanStatusTimeout
)

var scanStatusNames = map[ScanStatus]string{
	ScanStatusUnknown:   "unknown",
	ScanStatusWaiting:   "waiting",
	ScanStatusScanned:   "scanned",
	ScanStatusConfirmed: "confirmed",
	ScanStatusTimeout:   "timeout",
}

func (ss ScanStatus) String() string {
	if name, ok := scanStatusNames[ss]; ok {
		return name
	}
	return fmt.Sprintf("ScanStatus(%d)", int(ss))
}

// ScanPayload is the latest QR code shown by the login page.
type ScanPayload struct {
	QRCode string
	Status ScanStatus
}
