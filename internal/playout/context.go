/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"fmt"
	"math"

	"github.com/faiface/beep"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/media"
)

// Output format: fixed at stream connect, everything is resampled to it.
const (
	SampleRate   = 48000
	Channels     = 2
	PeriodFrames = 2048

	bytesPerSample = 4
	bytesPerFrame  = Channels * bytesPerSample
	periodBytes    = PeriodFrames * bytesPerFrame
)

// driftToleranceSamples is how far samples_played may land from
// total_samples at a track switch before we warn. Resampler boundary
// rounding accounts for a few samples either way.
const driftToleranceSamples = 100

// trackContext owns the decode state for one file: the decoder and
// resampler chain, the staging buffer of resampled frames, gain and fade
// state, and the sample counters.
type trackContext struct {
	info *media.AudioFile

	dec    beep.StreamSeekCloser
	stream beep.Streamer // resampled to the output rate

	buf      [][2]float64 // staging frames from the resampler
	consumed int
	avail    int
	eof      bool

	replayGain float64
	gainCap    float64

	fadeInSlope   float64 // per output frame
	fadeOutSlope  float64
	fadeInFrames  uint64
	fadeOutFrames uint64

	totalSamples  uint64 // interleaved samples expected for the track
	samplesPlayed uint64
}

// newTrackContext opens the decoder chain for a loaded file.
func newTrackContext(info *media.AudioFile, logger zerolog.Logger) (*trackContext, error) {
	dec, format, err := media.OpenDecoder(info.Path)
	if err != nil {
		return nil, fmt.Errorf("open decoder: %w", err)
	}

	ctx := &trackContext{
		info:         info,
		dec:          dec,
		stream:       dec,
		buf:          make([][2]float64, PeriodFrames),
		totalSamples: uint64(info.Duration*SampleRate) * Channels,
	}
	if format.SampleRate != SampleRate {
		ctx.stream = beep.Resample(4, format.SampleRate, SampleRate, dec)
	}

	ctx.setupReplayGain(logger)
	ctx.setupFades()

	return ctx, nil
}

// setupReplayGain derives the linear gain factor, limited by the
// reciprocal of the track peak so normalization never clips.
func (c *trackContext) setupReplayGain(logger zerolog.Logger) {
	c.replayGain = 1.0
	if c.info.TrackGain != 0 {
		c.replayGain = math.Pow(10, c.info.TrackGain/20)
	}
	c.gainCap = 1.0
	if c.info.TrackPeak > 0 {
		c.gainCap = 1.0 / c.info.TrackPeak
	}
	if c.replayGain > c.gainCap {
		logger.Debug().Float64("gain_cap", c.gainCap).Msg("limiting replay gain to peak")
		c.replayGain = c.gainCap
	}
}

// setupFades derives per-frame ramp slopes. A fade longer than the track
// itself is ignored.
func (c *trackContext) setupFades() {
	fade := c.info.Fade
	if fade == nil {
		return
	}
	if fade.FadeInSecs > 0 && fade.FadeInSecs < c.info.Duration {
		c.fadeInSlope = 1.0 / (SampleRate * fade.FadeInSecs)
		c.fadeInFrames = uint64(fade.FadeInSecs * SampleRate)
	}
	if fade.FadeOutSecs > 0 && fade.FadeOutSecs < c.info.Duration {
		c.fadeOutSlope = 1.0 / (SampleRate * fade.FadeOutSecs)
		c.fadeOutFrames = uint64(fade.FadeOutSecs * SampleRate)
	}
}

// fadeGain returns the track fade factor for the current position.
func (c *trackContext) fadeGain() float64 {
	framesPlayed := c.samplesPlayed / Channels

	if c.fadeInSlope > 0 && framesPlayed < c.fadeInFrames {
		return clampUnit(c.fadeInSlope * float64(framesPlayed))
	}
	if c.fadeOutSlope > 0 && c.totalSamples > c.samplesPlayed {
		framesRemaining := (c.totalSamples - c.samplesPlayed) / Channels
		if framesRemaining < c.fadeOutFrames {
			return clampUnit(c.fadeOutSlope * float64(framesRemaining))
		}
	}
	if c.fadeOutSlope > 0 && c.samplesPlayed >= c.totalSamples {
		// Resampler tail past the expected end of a faded track.
		return 0
	}
	return 1.0
}

// drift returns total_samples - samples_played.
func (c *trackContext) drift() int64 {
	return int64(c.totalSamples) - int64(c.samplesPlayed)
}

// Close tears down the decoder chain.
func (c *trackContext) Close() {
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
