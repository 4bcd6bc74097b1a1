/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package status serves the "now playing" endpoint: a read-mostly
// snapshot fed by the decoder at track switches, rendered as the legacy
// JSON shape external dashboards consume.
package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/events"
	"github.com/friendsincode/skald_player/internal/logbuffer"
	"github.com/friendsincode/skald_player/internal/media"
	"github.com/friendsincode/skald_player/internal/telemetry"
)

// Snapshot is the current/next pair published by the playback engine.
type Snapshot struct {
	Current *media.AudioFile
	Next    *media.AudioFile
}

// songJSON is the wire shape of one song. Field order is part of the
// contract; consumers parse the object positionally.
type songJSON struct {
	Artist         string `json:"Artist"`
	Album          string `json:"Album"`
	Title          string `json:"Title"`
	Path           string `json:"Path"`
	Duration       string `json:"Duration"`
	Elapsed        string `json:"Elapsed,omitempty"`
	Zone           string `json:"Zone"`
	AlbumID        string `json:"MusicBrainz Album Id"`
	ReleaseTrackID string `json:"MusicBrainz Release Track Id"`
}

type responseJSON struct {
	Current songJSON `json:"current_song"`
	Next    songJSON `json:"next_song"`
}

// Service holds the snapshot and serves the HTTP surface.
type Service struct {
	bus     *events.Bus
	elapsed func() int
	logbuf  *logbuffer.Buffer
	logger  zerolog.Logger

	snap atomic.Pointer[Snapshot]

	// The sanitized response body is rebuilt at most once per second;
	// only the elapsed counter is refreshed per request.
	mu       sync.Mutex
	cached   *responseJSON
	cachedAt time.Time
}

// New creates the status service.
func New(bus *events.Bus, elapsed func() int, logbuf *logbuffer.Buffer, logger zerolog.Logger) *Service {
	s := &Service{
		bus:     bus,
		elapsed: elapsed,
		logbuf:  logbuf,
		logger:  logger.With().Str("component", "status").Logger(),
	}
	s.snap.Store(&Snapshot{})
	return s
}

// Start subscribes to now-playing events until ctx ends.
func (s *Service) Start(ctx context.Context) {
	sub := s.bus.Subscribe(events.EventNowPlaying)
	go func() {
		defer s.bus.Unsubscribe(events.EventNowPlaying, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub:
				if !ok {
					return
				}
				snap := &Snapshot{}
				if cur, ok := payload["current"].(*media.AudioFile); ok {
					snap.Current = cur
				}
				if next, ok := payload["next"].(*media.AudioFile); ok {
					snap.Next = next
				}
				s.snap.Store(snap)
			}
		}
	}()
}

// Router builds the HTTP surface: the JSON contract at /, plus health,
// recent logs and metrics.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.handleNowPlaying)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/logs", s.handleLogs)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())
	return r
}

func (s *Service) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	resp := s.response()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")

	body, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		http.Error(w, "encode failure", http.StatusInternalServerError)
		return
	}

	wrote, err := w.Write(body)
	if err != nil || wrote != len(body) {
		s.logger.Warn().Int("wrote", wrote).Int("expected", len(body)).Msg("write error")
	}
}

func (s *Service) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logbuf == nil {
		http.Error(w, "log buffer disabled", http.StatusNotFound)
		return
	}
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries := s.logbuf.Query(logbuffer.QueryParams{
		Level:     r.URL.Query().Get("level"),
		Component: r.URL.Query().Get("component"),
		Search:    r.URL.Query().Get("q"),
		Limit:     limit,
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(entries)
}

// response returns the cached body, rebuilt when stale, with a fresh
// elapsed count patched in.
func (s *Service) response() responseJSON {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil || time.Since(s.cachedAt) >= time.Second {
		snap := s.snap.Load()
		resp := responseJSON{
			Current: songFields(snap.Current, true),
			Next:    songFields(snap.Next, false),
		}
		s.cached = &resp
		s.cachedAt = time.Now()
	}

	resp := *s.cached
	if resp.Current.Elapsed != "" {
		resp.Current.Elapsed = strconv.Itoa(s.elapsed())
	}
	return resp
}

func songFields(info *media.AudioFile, withElapsed bool) songJSON {
	if info == nil {
		out := songJSON{}
		if withElapsed {
			out.Elapsed = "0"
		}
		return out
	}
	out := songJSON{
		Artist:         sanitizeText(info.Artist),
		Album:          sanitizeText(info.Album),
		Title:          sanitizeText(info.Title),
		Path:           info.Path,
		Duration:       strconv.Itoa(int(info.Duration)),
		Zone:           sanitizeText(info.ZoneName),
		AlbumID:        sanitizeText(info.AlbumID),
		ReleaseTrackID: sanitizeText(info.ReleaseTrackID),
	}
	if withElapsed {
		out.Elapsed = "0"
	}
	return out
}

// sanitizeText neuters characters the downstream consumer cannot take
// escaped: backslashes become slashes, double quotes become single
// quotes. Paths are exempt; their backslashes are escaped normally.
func sanitizeText(v string) string {
	v = strings.ReplaceAll(v, `\`, "/")
	return strings.ReplaceAll(v, `"`, "'")
}

// Listen binds the status port. Kept separate from Serve so a bind
// failure surfaces at startup.
func (s *Service) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve runs the HTTP server on ln until ctx is cancelled.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Router(),
		ReadTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
