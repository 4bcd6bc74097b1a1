/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes prometheus metrics for the playout path.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RingUnderruns counts output callbacks served with silence while playing.
	RingUnderruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_ring_underruns_total",
		Help: "Output callbacks that found insufficient data in the audio ring.",
	})

	// RingOverruns counts short writes from the decode worker.
	RingOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_ring_overruns_total",
		Help: "Decoder ring writes that were shorter than requested.",
	})

	// TracksPlayed counts track switches.
	TracksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_tracks_played_total",
		Help: "Tracks the decode worker has finished playing.",
	})

	// DecodeErrors counts per-track decoder failures.
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_decode_errors_total",
		Help: "Decoder errors that aborted a track.",
	})

	// SchedulerFallbacks counts selections that fell through to a fallback playlist.
	SchedulerFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_scheduler_fallbacks_total",
		Help: "Selections served from a zone's fallback playlist.",
	})

	// MediaLoadFailures counts files that failed to load and were skipped.
	MediaLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_media_load_failures_total",
		Help: "Media files skipped because the loader rejected them.",
	})

	// RingFillBytes reports the current readable byte count of the audio ring.
	RingFillBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_ring_fill_bytes",
		Help: "Bytes currently buffered in the audio ring.",
	})

	// EngineState reports the engine state machine value.
	EngineState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_engine_state",
		Help: "Engine state (0 stopped, 1 playing, 2 pausing, 3 paused, 4 resuming, 5 stopping, 6 error).",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
