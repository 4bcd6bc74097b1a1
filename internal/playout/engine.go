/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/clock"
	"github.com/friendsincode/skald_player/internal/events"
	"github.com/friendsincode/skald_player/internal/media"
	"github.com/friendsincode/skald_player/internal/telemetry"
)

// Provider hands out the next track to play for a schedule time.
type Provider interface {
	NextFor(now time.Time) (*media.AudioFile, error)
}

// Engine owns the playback path: the schedule worker pre-loading one
// track ahead, the decode worker filling the ring, and the output
// callback draining it on the audio thread.
type Engine struct {
	sched  Provider
	clk    clock.Clock
	bus    *events.Bus
	logger zerolog.Logger

	ring *Ring
	out  *Output

	state atomic.Int32

	// fileMu guards current/next. The decoder holds it while extracting
	// each period and for the swap; the schedule worker only for the
	// descriptor install. The output thread never touches these.
	fileMu  sync.Mutex
	current *trackContext
	next    *trackContext

	// Interleaved samples emitted for the track currently playing.
	elapsedSamples atomic.Uint64

	// One-shot go signals; the mutex/condvar pairs of a classic player
	// collapse to single-slot channels here.
	decoderGo      chan struct{}
	schedulerGo    chan struct{}
	spaceAvailable chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup

	errMu sync.Mutex
	err   error

	speakerInit func(sr beep.SampleRate, bufferSize int) error
	speakerPlay func(s beep.Streamer)
}

// NewEngine creates a stopped engine. ringSeconds sizes the audio ring.
func NewEngine(sched Provider, ringSeconds int, clk clock.Clock, bus *events.Bus, logger zerolog.Logger) *Engine {
	e := &Engine{
		sched:          sched,
		clk:            clk,
		bus:            bus,
		logger:         logger.With().Str("component", "player").Logger(),
		ring:           NewRing(ringSeconds * SampleRate * Channels * bytesPerSample),
		decoderGo:      make(chan struct{}, 1),
		schedulerGo:    make(chan struct{}, 1),
		spaceAvailable: make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
		speakerInit: func(sr beep.SampleRate, bufferSize int) error {
			return speaker.Init(sr, bufferSize)
		},
		speakerPlay: speaker.Play,
	}
	e.out = newOutput(e)
	e.state.Store(int32(StateStopped))
	return e
}

// State returns the current engine state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.storeState(s)
	e.bus.Publish(events.EventStateChange, events.Payload{"state": s.String()})
}

// storeState updates the state word and gauge without publishing; safe
// from the output callback.
func (e *Engine) storeState(s State) {
	e.state.Store(int32(s))
	telemetry.EngineState.Set(float64(s))
}

// Start connects the output stream and launches the worker threads.
func (e *Engine) Start() error {
	if e.State() != StateStopped {
		return fmt.Errorf("player not in stopped state")
	}

	if err := e.speakerInit(beep.SampleRate(SampleRate), PeriodFrames); err != nil {
		e.setState(StateError)
		return fmt.Errorf("connect output stream: %w", err)
	}

	e.setState(StateResuming)

	e.wg.Add(2)
	go e.scheduleWorker()
	go e.decodeWorker()

	e.speakerPlay(e.out)

	e.logger.Debug().Msg("started")
	return nil
}

// Pause begins the fade to silence.
func (e *Engine) Pause() {
	if e.State() != StatePlaying && e.State() != StateResuming {
		return
	}
	e.logger.Info().Msg("pausing")
	e.setState(StatePausing)
}

// Resume begins the fade back from silence.
func (e *Engine) Resume() {
	if e.State() != StatePaused && e.State() != StatePausing {
		return
	}
	e.logger.Info().Msg("resuming")
	e.setState(StateResuming)
}

// Stop tears the engine down: both workers are signalled and joined, the
// output stream is released. Safe to call more than once.
func (e *Engine) Stop() {
	st := e.State()
	if st == StateStopped || (st == StateStopping && e.isDone()) {
		return
	}

	e.beginStop()
	e.wg.Wait()

	e.fileMu.Lock()
	if e.current != nil {
		e.current.Close()
		e.current = nil
	}
	if e.next != nil {
		e.next.Close()
		e.next = nil
	}
	e.fileMu.Unlock()

	e.errMu.Lock()
	failed := e.err != nil
	e.errMu.Unlock()
	if failed {
		e.setState(StateError)
	} else {
		e.setState(StateStopped)
	}

	e.doneOnce.Do(func() { close(e.doneCh) })
	e.logger.Debug().Msg("player stopped")
}

// beginStop flips the state and wakes every suspension point. Called
// from worker threads on fatal errors; never joins.
func (e *Engine) beginStop() {
	e.stopOnce.Do(func() {
		e.setState(StateStopping)
		close(e.stopCh)
	})
}

// Done is closed once the engine has fully stopped.
func (e *Engine) Done() <-chan struct{} { return e.doneCh }

func (e *Engine) isDone() bool {
	select {
	case <-e.doneCh:
		return true
	default:
		return false
	}
}

// Stopping is closed when shutdown begins; main uses it to notice fatal
// worker errors.
func (e *Engine) Stopping() <-chan struct{} { return e.stopCh }

// Err returns the fatal error that brought the engine down, if any.
func (e *Engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *Engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.beginStop()
}

// ElapsedSeconds returns full seconds played of the current track.
func (e *Engine) ElapsedSeconds() int {
	return int(e.elapsedSamples.Load() / (SampleRate * Channels))
}

// post delivers a one-shot go signal without blocking.
func post(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// publishNowPlayingLocked snapshots current/next for the status endpoint and
// the play log. Caller holds fileMu.
func (e *Engine) publishNowPlayingLocked() {
	payload := events.Payload{}
	if e.current != nil {
		info := *e.current.info
		payload["current"] = &info
	}
	if e.next != nil {
		info := *e.next.info
		payload["next"] = &info
	}
	e.bus.Publish(events.EventNowPlaying, payload)
}
