/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist handles playlist files (.pls/.m3u): parsing, the
// rotating cursor and optional shuffle, and reload on modification.
package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/friendsincode/skald_player/internal/media"
	"github.com/friendsincode/skald_player/internal/rng"
)

// ErrNoItems means no readable item is left in the list.
var ErrNoItems = errors.New("no readable items in playlist")

// Playlist is a rotating list of absolute media file paths.
type Playlist struct {
	SourcePath string
	Shuffle    bool
	Fade       *media.FadeInfo

	mu        sync.Mutex
	items     []string
	cursor    int
	lastMtime time.Time
	rnd       *rng.Source
	logger    zerolog.Logger
}

// New creates a playlist backed by the given .pls or .m3u file. The list
// is parsed lazily on first use.
func New(sourcePath string, shuffle bool, fade *media.FadeInfo, rnd *rng.Source, logger zerolog.Logger) *Playlist {
	return &Playlist{
		SourcePath: sourcePath,
		Shuffle:    shuffle,
		Fade:       fade,
		rnd:        rnd,
		logger:     logger.With().Str("component", "playlist").Str("path", sourcePath).Logger(),
	}
}

// NextItem serves the next readable path, advancing the cursor. When the
// cursor passes the end the list wraps and is re-shuffled if enabled.
func (p *Playlist) NextItem() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.reloadIfNeeded(); err != nil {
		return "", fmt.Errorf("reload %s: %w", p.SourcePath, err)
	}

	if p.cursor >= len(p.items) {
		p.cursor = 0
		if p.Shuffle {
			p.logger.Debug().Msg("re-shuffling playlist")
			p.shuffleLocked()
		}
	}

	for idx := p.cursor; idx < len(p.items); idx++ {
		next := p.items[idx]
		if isReadableFile(next) {
			p.cursor = idx + 1
			return next, nil
		}
		p.logger.Warn().Str("file", next).Msg("file unreadable")
	}

	return "", ErrNoItems
}

// Items returns a copy of the current item list.
func (p *Playlist) Items() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.items...)
}

// Reload forces a re-parse of the playlist file.
func (p *Playlist) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastMtime = time.Time{}
	return p.reloadIfNeeded()
}

// reloadIfNeeded re-parses the playlist when the source file's mtime
// changed. Caller holds the lock.
func (p *Playlist) reloadIfNeeded() error {
	fi, err := os.Stat(p.SourcePath)
	if err != nil {
		return err
	}
	if fi.ModTime().Equal(p.lastMtime) {
		return nil
	}

	items, err := parseFile(p.SourcePath, p.logger)
	if err != nil {
		return err
	}

	p.items = items
	p.cursor = 0
	p.lastMtime = fi.ModTime()
	if p.Shuffle {
		p.shuffleLocked()
	}

	p.logger.Info().Int("items", len(p.items)).Msg("playlist loaded")
	return nil
}

func (p *Playlist) shuffleLocked() {
	p.rnd.Shuffle(len(p.items), func(i, j int) {
		p.items[i], p.items[j] = p.items[j], p.items[i]
	})
}

// parseFile reads a playlist file, selecting the format by extension.
// Unreadable entries are logged and skipped; an empty result is an error.
func parseFile(path string, logger zerolog.Logger) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pls":
		items, err = parsePLS(f, logger)
	case ".m3u":
		items, err = parseM3U(f, logger)
	default:
		return nil, fmt.Errorf("unknown playlist type: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

func parsePLS(f *os.File, logger zerolog.Logger) ([]string, error) {
	scanner := bufio.NewScanner(f)

	// First non-empty line must be the [playlist] header.
	sawHeader := false
	var items []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			if line != "[playlist]" {
				return nil, fmt.Errorf("missing [playlist] header")
			}
			sawHeader = true
			continue
		}
		if !strings.HasPrefix(line, "File") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed pls entry: %s", line)
		}
		addItem(strings.TrimSpace(line[eq+1:]), &items, logger)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("missing [playlist] header")
	}
	return items, nil
}

func parseM3U(f *os.File, logger zerolog.Logger) ([]string, error) {
	scanner := bufio.NewScanner(f)
	var items []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addItem(line, &items, logger)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func addItem(path string, items *[]string, logger zerolog.Logger) {
	if !isReadableFile(path) {
		logger.Warn().Str("file", path).Msg("skipping unreadable entry")
		return
	}
	*items = append(*items, path)
}

// isReadableFile reports whether path is a regular file we can read.
func isReadableFile(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.R_OK) == nil
}
