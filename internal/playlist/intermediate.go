/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/media"
	"github.com/friendsincode/skald_player/internal/rng"
)

// BurstIdle marks an intermediate playlist with no burst in progress.
const BurstIdle = -1

// Intermediate is a playlist that interrupts the zone's main rotation
// every IntervalMins minutes for a burst of ItemsPerBurst items.
type Intermediate struct {
	Playlist

	Name          string
	IntervalMins  int
	ItemsPerBurst int

	// Burst bookkeeping, owned by the scheduler.
	LastScheduled time.Time
	Pending       int
}

// NewIntermediate creates an intermediate playlist. LastScheduled starts
// at now, so the first burst fires one interval after engine start.
func NewIntermediate(name, sourcePath string, shuffle bool, fade *media.FadeInfo,
	intervalMins, itemsPerBurst int, now time.Time, rnd *rng.Source, logger zerolog.Logger) *Intermediate {
	return &Intermediate{
		Playlist:      *New(sourcePath, shuffle, fade, rnd, logger),
		Name:          name,
		IntervalMins:  intervalMins,
		ItemsPerBurst: itemsPerBurst,
		LastScheduled: now,
		Pending:       BurstIdle,
	}
}

// Ready reports whether the interval has elapsed since the last
// completed burst.
func (i *Intermediate) Ready(now time.Time) bool {
	return now.After(i.LastScheduled.Add(time.Duration(i.IntervalMins) * time.Minute))
}
