/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build linux

package playout

import "golang.org/x/sys/unix"

// lockMemory pins the ring's backing store so the output thread never
// takes a page fault. Failure is tolerated; mlock limits are common in
// containers.
func lockMemory(buf []byte) {
	_ = unix.Mlock(buf)
}
