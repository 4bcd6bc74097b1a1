/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides version information for the player binary.
package version

// Version is the current version of Skald Player.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/skald_player/internal/version.Version=X.Y.Z
var Version = "0.3.1"
