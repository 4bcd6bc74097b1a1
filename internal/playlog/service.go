/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlog persists the play history: one row per track the
// engine started, written from now-playing events.
package playlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/skald_player/internal/events"
	"github.com/friendsincode/skald_player/internal/media"
)

// PlayedTrack is one play history row.
type PlayedTrack struct {
	ID           string `gorm:"primaryKey;size:36"`
	Path         string `gorm:"index"`
	Artist       string
	Album        string
	Title        string
	Zone         string
	StartedAt    time.Time `gorm:"index"`
	DurationSecs float64
}

// Open connects the sqlite database and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PlayedTrack{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Service subscribes to now-playing events and records each track start.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger

	lastPath string
	lastAt   time.Time
}

// NewService creates a play log service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "playlog").Logger(),
	}
}

// Start consumes events until ctx ends.
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
				info, ok := payload["current"].(*media.AudioFile)
				if !ok || info == nil {
					continue
				}
				s.record(ctx, info)
			}
		}
	}()
}

// record inserts one row per distinct track start. The engine republishes
// the snapshot on every switch, so consecutive duplicates are collapsed.
func (s *Service) record(ctx context.Context, info *media.AudioFile) {
	now := time.Now()
	if info.Path == s.lastPath && now.Sub(s.lastAt) < time.Duration(info.Duration)*time.Second {
		return
	}
	s.lastPath = info.Path
	s.lastAt = now

	row := PlayedTrack{
		ID:           uuid.NewString(),
		Path:         info.Path,
		Artist:       info.Artist,
		Album:        info.Album,
		Title:        info.Title,
		Zone:         info.ZoneName,
		StartedAt:    now,
		DurationSecs: info.Duration,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Warn().Err(err).Str("path", info.Path).Msg("failed to record played track")
	}
}

// Recent returns the latest n rows, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]PlayedTrack, error) {
	var rows []PlayedTrack
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(n).Find(&rows).Error
	return rows, err
}
