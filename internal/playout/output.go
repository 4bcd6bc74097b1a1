/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"encoding/binary"
	"math"

	"github.com/friendsincode/skald_player/internal/telemetry"
)

// stateFadeSecs is the pause/resume ramp length.
const stateFadeSecs = 2

// maxCallbackFrames bounds one output pull; larger requests are served
// in slices by the audio library.
const maxCallbackFrames = 16384

// stateFade is the pause/resume volume ramp. It is only ever touched
// from the output callback, so it needs no locking.
type stateFade struct {
	active    bool
	fadeIn    bool
	gain      float64
	slope     float64
	samplesIn uint64 // frames stepped so far
	total     uint64
}

func newStateFade() stateFade {
	return stateFade{
		slope: 1.0 / (SampleRate * stateFadeSecs),
		total: SampleRate * stateFadeSecs,
		gain:  1.0,
	}
}

func (f *stateFade) start(fadeIn bool) {
	f.active = true
	f.fadeIn = fadeIn
	f.samplesIn = 0
	if fadeIn {
		f.gain = 0.0
	} else {
		f.gain = 1.0
	}
}

// step advances the ramp by one frame and returns the gain to apply.
func (f *stateFade) step() float64 {
	if !f.active {
		return f.gain
	}
	if f.samplesIn >= f.total {
		f.active = false
		if f.fadeIn {
			f.gain = 1.0
		} else {
			f.gain = 0.0
		}
		return f.gain
	}
	if f.fadeIn {
		f.gain = clampUnit(float64(f.samplesIn) * f.slope)
	} else {
		f.gain = clampUnit(float64(f.total-f.samplesIn) * f.slope)
	}
	f.samplesIn++
	return f.gain
}

// Output is the ring consumer. The audio library's mixer pulls it on the
// real-time output thread: Stream must fill the requested frames without
// blocking, allocating, or taking long-held locks.
type Output struct {
	e       *Engine
	fade    stateFade
	scratch []byte
}

func newOutput(e *Engine) *Output {
	return &Output{
		e:       e,
		fade:    newStateFade(),
		scratch: make([]byte, maxCallbackFrames*bytesPerFrame),
	}
}

// Stream fills the requested frames from the ring, applying the
// pause/resume fade. Underruns come out as silence.
func (o *Output) Stream(samples [][2]float64) (int, bool) {
	e := o.e
	st := e.State()

	if st == StateStopping {
		return 0, false
	}

	n := len(samples)
	if n > maxCallbackFrames {
		n = maxCallbackFrames
	}
	need := n * bytesPerFrame

	if st == StatePaused || st == StateStopped {
		fillSilence(samples[:n])
		return n, true
	}

	// Kick off the ramp on the first callback after a state change.
	if st == StatePausing && !o.fade.active {
		o.fade.start(false)
	} else if st == StateResuming && !o.fade.active {
		o.fade.start(true)
	}

	if e.ring.ReadSpace() < need {
		fillSilence(samples[:n])
		if st == StatePlaying {
			e.logger.Warn().Int("needed", need).Int("available", e.ring.ReadSpace()).
				Msg("decoder ring buffer underrun")
			telemetry.RingUnderruns.Inc()
		}
		return n, true
	}

	e.ring.Read(o.scratch[:need])
	post(e.spaceAvailable)

	for i := 0; i < n; i++ {
		gain := o.fade.step()
		l := math.Float32frombits(binary.LittleEndian.Uint32(o.scratch[i*bytesPerFrame:]))
		r := math.Float32frombits(binary.LittleEndian.Uint32(o.scratch[i*bytesPerFrame+bytesPerSample:]))
		samples[i][0] = float64(l) * gain
		samples[i][1] = float64(r) * gain
	}

	// Ramp finished during this period: settle the state machine. The
	// plain store keeps the callback free of locks; the event bus is
	// not touched from the audio thread.
	if !o.fade.active {
		if st == StatePausing && !o.fade.fadeIn {
			e.storeState(StatePaused)
		} else if st == StateResuming && o.fade.fadeIn {
			e.storeState(StatePlaying)
		}
	}

	return n, true
}

// Err implements beep.Streamer; the output never fails.
func (o *Output) Err() error { return nil }

func fillSilence(samples [][2]float64) {
	for i := range samples {
		samples[i][0] = 0
		samples[i][1] = 0
	}
}
