/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler selects the next track to play for a given wall time.
package scheduler

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/media"
	"github.com/friendsincode/skald_player/internal/playlist"
	"github.com/friendsincode/skald_player/internal/schedule"
	"github.com/friendsincode/skald_player/internal/telemetry"
)

// ErrNothingAvailable means every playlist level failed to produce an item.
var ErrNothingAvailable = errors.New("nothing available to schedule")

// MediaLoader builds AudioFile descriptors for selected paths.
type MediaLoader interface {
	Load(path, zoneName string, fade *media.FadeInfo) (*media.AudioFile, error)
}

// Scheduler resolves wall time to the next track via the week schedule.
// Failing to reload config or to get an item from one playlist is not
// fatal; only exhausting every fallback level is.
type Scheduler struct {
	store  *schedule.Store
	loader MediaLoader
	logger zerolog.Logger
}

// New creates a scheduler.
func New(store *schedule.Store, loader MediaLoader, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		loader: loader,
		logger: logger.With().Str("component", "sched").Logger(),
	}
}

// NextFor returns the track to play at the given schedule time.
func (s *Scheduler) NextFor(now time.Time) (*media.AudioFile, error) {
	s.logger.Info().Str("for", now.Format("Mon 02 Jan 2006, 15:04:05")).Msg("scheduling item")

	if err := s.store.ReloadIfNeeded(); err != nil {
		s.logger.Warn().Err(err).Msg("re-loading config failed")
	}

	zone, ok := s.store.Week().ZoneFor(now)
	if !ok {
		s.logger.Warn().Msg("nothing is scheduled for now, using first zone of the day")
	}

	// Intermediate playlists, in declaration order (highest priority
	// first). A list emits exactly ItemsPerBurst items per interval;
	// the idle sentinel and LastScheduled only advance once the burst
	// has been fully served.
	for _, ipls := range zone.Others {
		if !ipls.Ready(now) {
			continue
		}
		if ipls.Pending == playlist.BurstIdle {
			ipls.Pending = ipls.ItemsPerBurst
		} else if ipls.Pending == 0 {
			ipls.Pending = playlist.BurstIdle
			ipls.LastScheduled = now
			continue
		}
		s.logger.Debug().Str("list", ipls.Name).Int("pending", ipls.Pending).
			Msg("intermediate playlist ready")
		ipls.Pending--

		if info, err := s.itemFrom(&ipls.Playlist, zone.Name); err == nil {
			s.logger.Debug().Str("list", ipls.Name).Msg("using intermediate playlist")
			return info, nil
		}
		break
	}

	if info, err := s.itemFrom(zone.Main, zone.Name); err == nil {
		s.logger.Debug().Msg("using main playlist")
		return info, nil
	}

	if zone.Fallback != nil {
		if info, err := s.itemFrom(zone.Fallback, zone.Name); err == nil {
			s.logger.Warn().Msg("using fallback playlist")
			telemetry.SchedulerFallbacks.Inc()
			return info, nil
		}
	}

	return nil, ErrNothingAvailable
}

// itemFrom serves the next loadable item from a playlist. Loader failures
// skip the file and continue the scan.
func (s *Scheduler) itemFrom(pls *playlist.Playlist, zoneName string) (*media.AudioFile, error) {
	attempts := len(pls.Items())
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		path, err := pls.NextItem()
		if err != nil {
			return nil, err
		}

		info, err := s.loader.Load(path, zoneName, pls.Fade)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("skipping unloadable file")
			telemetry.MediaLoadFailures.Inc()
			continue
		}
		s.logger.Info().Str("file", path).Bool("fader", info.Fade != nil).Msg("got next item")
		return info, nil
	}

	return nil, ErrNothingAvailable
}
