/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/clock"
	"github.com/friendsincode/skald_player/internal/rng"
)

// Store holds the current week schedule and reloads it when the source
// document changes. A failed reload keeps the previous schedule.
type Store struct {
	path   string
	rnd    *rng.Source
	clk    clock.Clock
	base   zerolog.Logger // handed to Parse so playlists tag themselves
	logger zerolog.Logger

	mu        sync.Mutex
	week      *Week
	lastMtime time.Time

	// With a watcher attached, dirty gates the stat call so the hot
	// scheduling path does not hit the filesystem on every selection.
	watching atomic.Bool
	dirty    atomic.Bool
	watcher  *fsnotify.Watcher
}

// NewStore creates a schedule store for the given document path.
func NewStore(path string, rnd *rng.Source, clk clock.Clock, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		rnd:    rnd,
		clk:    clk,
		base:   logger,
		logger: logger.With().Str("component", "config").Str("path", path).Logger(),
	}
}

// Load parses the document for the first time. Errors here are fatal.
func (s *Store) Load() error {
	fi, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat schedule: %w", err)
	}
	week, err := Parse(s.path, s.clk.Now(), s.rnd, s.base)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.week = week
	s.lastMtime = fi.ModTime()
	s.mu.Unlock()

	s.logger.Info().Msg("schedule loaded")
	return nil
}

// Week returns the current schedule.
func (s *Store) Week() *Week {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.week
}

// ReloadIfNeeded re-parses the document when its mtime changed. The
// previous schedule stays active when the reload fails.
func (s *Store) ReloadIfNeeded() error {
	if s.watching.Load() && !s.dirty.Load() {
		return nil
	}

	fi, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat schedule: %w", err)
	}

	s.mu.Lock()
	unchanged := fi.ModTime().Equal(s.lastMtime)
	s.mu.Unlock()
	if unchanged {
		s.dirty.Store(false)
		return nil
	}

	week, err := Parse(s.path, s.clk.Now(), s.rnd, s.base)
	if err != nil {
		// Record the mtime so a broken file is not re-parsed on
		// every selection; the next write marks it dirty again.
		s.mu.Lock()
		s.lastMtime = fi.ModTime()
		s.mu.Unlock()
		s.dirty.Store(false)
		return err
	}

	s.mu.Lock()
	s.week = week
	s.lastMtime = fi.ModTime()
	s.mu.Unlock()
	s.dirty.Store(false)

	s.logger.Info().Msg("schedule reloaded")
	return nil
}

// Watch marks the store dirty on filesystem events so ReloadIfNeeded can
// skip stat calls in the common case. The watcher runs until ctx ends.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: editors and atomic writers
	// replace the file by rename, which would orphan a file watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.watching.Store(true)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				s.watching.Store(false)
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					s.watching.Store(false)
					return
				}
				if ev.Name == s.path {
					s.dirty.Store(true)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					s.watching.Store(false)
					return
				}
				s.logger.Warn().Err(err).Msg("schedule watcher error")
			}
		}
	}()

	return nil
}
