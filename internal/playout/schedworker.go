/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"fmt"
	"time"
)

// loadNext asks the scheduler for the track at schedTime, opens its
// decoder chain, and installs it as the next context. The load itself
// runs outside the file mutex; only the install takes it.
func (e *Engine) loadNext(schedTime time.Time) error {
	info, err := e.sched.NextFor(schedTime)
	if err != nil {
		return fmt.Errorf("get next file from scheduler: %w", err)
	}

	e.logger.Debug().Str("file", info.Path).Msg("loading next file")

	ctx, err := newTrackContext(info, e.logger)
	if err != nil {
		return fmt.Errorf("initialize next audiofile context: %w", err)
	}

	e.fileMu.Lock()
	e.next = ctx
	e.fileMu.Unlock()
	return nil
}

// scheduleWorker keeps the engine exactly one track ahead. Pre-loading
// the next file amortizes the strict duration scan and the resampler
// warm-up so track transitions never stall the decoder.
func (e *Engine) scheduleWorker() {
	defer e.wg.Done()

	e.logger.Debug().Msg("scheduler thread started")

	// First boot: load the current track, promote it, then load its
	// successor before letting the decoder run.
	schedTime := e.clk.Now()
	if err := e.loadNext(schedTime); err != nil {
		e.logger.Error().Err(err).Msg("failed to load initial file")
		e.fail(err)
		return
	}

	e.fileMu.Lock()
	e.current = e.next
	e.next = nil
	e.elapsedSamples.Store(0)
	currDuration := e.current.info.Duration
	e.fileMu.Unlock()

	schedTime = schedTime.Add(secsToDuration(currDuration))
	if err := e.loadNext(schedTime); err != nil {
		e.logger.Error().Err(err).Msg("failed to load second file")
		e.fail(err)
		return
	}

	e.fileMu.Lock()
	e.publishNowPlayingLocked()
	e.fileMu.Unlock()

	post(e.decoderGo)

	for e.State() != StateStopping {
		// Capture the next track's duration before the decoder swaps
		// it into current; once it plays, the one after it lands at
		// now + this duration.
		e.fileMu.Lock()
		var pendingDuration float64
		if e.next != nil {
			pendingDuration = e.next.info.Duration
		}
		e.fileMu.Unlock()

		select {
		case <-e.schedulerGo:
		case <-e.stopCh:
		}
		if e.State() == StateStopping {
			break
		}

		now := e.clk.Now()
		e.logger.Debug().Str("at", now.Format("Mon 02 Jan 2006, 15:04:05")).
			Msg("scheduler triggered")
		schedTime = now.Add(secsToDuration(pendingDuration))

		if err := e.loadNext(schedTime); err != nil {
			e.logger.Error().Err(err).Msg("failed to load next file")
			e.fail(err)
			return
		}

		post(e.decoderGo)
	}

	e.logger.Debug().Msg("scheduler thread stopping")
	e.beginStop()
}

func secsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
