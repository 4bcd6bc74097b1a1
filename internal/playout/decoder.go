/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/friendsincode/skald_player/internal/events"
	"github.com/friendsincode/skald_player/internal/telemetry"
)

// extractFrames pulls up to framesNeeded resampled frames out of the
// context into out (interleaved float32), applying the per-sample track
// fade and ReplayGain. Returns the number of frames produced; fewer than
// requested means EOF (or shutdown).
func (e *Engine) extractFrames(ctx *trackContext, out []float32, framesNeeded int) int {
	produced := 0

	for produced < framesNeeded && !ctx.eof && e.State() != StateStopping {
		// Staging buffer exhausted, pull the next chunk through the
		// decoder/resampler chain.
		if ctx.consumed >= ctx.avail {
			ctx.consumed = 0
			ctx.avail = 0

			n, ok := ctx.stream.Stream(ctx.buf)
			if n == 0 && !ok {
				if err := ctx.dec.Err(); err != nil {
					// Mid-playback codec error: fatal for this
					// track only, the caller advances to the next.
					e.logger.Error().Err(err).Str("file", ctx.info.Path).
						Msg("decoder error, dropping track")
					telemetry.DecodeErrors.Inc()
				}
				ctx.eof = true
				break
			}
			ctx.avail = n
		}

		copyN := ctx.avail - ctx.consumed
		if remaining := framesNeeded - produced; copyN > remaining {
			copyN = remaining
		}

		for i := 0; i < copyN; i++ {
			gain := ctx.fadeGain() * ctx.replayGain
			frame := ctx.buf[ctx.consumed+i]
			out[(produced+i)*Channels] = float32(frame[0] * gain)
			out[(produced+i)*Channels+1] = float32(frame[1] * gain)
			ctx.samplesPlayed += Channels
		}

		ctx.consumed += copyN
		produced += copyN
	}

	e.elapsedSamples.Add(uint64(produced * Channels))
	return produced
}

// decodeWorker keeps the ring topped up one period at a time, swapping
// in the pre-loaded next context when the current track runs dry.
func (e *Engine) decodeWorker() {
	defer e.wg.Done()

	e.logger.Debug().Msg("decoder thread started")

	periodF := make([]float32, PeriodFrames*Channels)
	periodB := make([]byte, periodBytes)

	// Wait until the schedule worker has something for us.
	select {
	case <-e.decoderGo:
	case <-e.stopCh:
		return
	}

	for e.State() != StateStopping {
		if e.ring.WriteSpace() < periodBytes {
			select {
			case <-e.spaceAvailable:
			case <-e.stopCh:
			}
			continue
		}

		e.fileMu.Lock()
		frames := e.extractFrames(e.current, periodF, PeriodFrames)

		// Short read means the current file is done; if the next one is
		// pre-loaded, swap and finish the period from it so the stream
		// stays gapless across the boundary.
		if frames < PeriodFrames && e.next != nil {
			if diff := e.current.drift(); diff > driftToleranceSamples || diff < -driftToleranceSamples {
				e.logger.Warn().Int64("diff_samples", diff).Str("file", e.current.info.Path).
					Msg("inconsistent playback diff")
			}
			e.logger.Debug().Msg("switching to next file")

			ended := e.current.info
			e.current.Close()
			e.current = e.next
			e.next = nil
			e.elapsedSamples.Store(0)
			telemetry.TracksPlayed.Inc()

			post(e.schedulerGo)

			e.bus.Publish(events.EventTrackEnded, events.Payload{"path": ended.Path})
			e.publishNowPlayingLocked()

			frames += e.extractFrames(e.current, periodF[frames*Channels:], PeriodFrames-frames)
		}
		e.fileMu.Unlock()

		if frames > 0 {
			n := frames * bytesPerFrame
			for i := 0; i < frames*Channels; i++ {
				binary.LittleEndian.PutUint32(periodB[i*bytesPerSample:], math.Float32bits(periodF[i]))
			}
			if written := e.ring.Write(periodB[:n]); written < n {
				e.logger.Warn().Int("wrote", written).Int("expected", n).Msg("ring buffer overrun")
				telemetry.RingOverruns.Inc()
			}
			telemetry.RingFillBytes.Set(float64(e.ring.ReadSpace()))
		}

		// Both contexts at EOF with nothing loaded yet; avoid a hot loop.
		if frames == 0 && e.State() != StateStopping {
			time.Sleep(time.Millisecond)
		}
	}

	e.logger.Debug().Msg("decoder thread stopping")
	e.beginStop()
}
