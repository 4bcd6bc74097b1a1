/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule holds the weekly programming schedule: its XML model,
// validation, and the reloading store.
package schedule

import (
	"fmt"
	"time"

	"github.com/friendsincode/skald_player/internal/playlist"
)

// TimeOfDay is seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an HH:MM:SS string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

// String formats the time of day as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

// At returns the time of day of a wall-clock instant, date stripped.
func At(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Zone is a contiguous time-of-day segment bound to one main playlist,
// an optional fallback, and intermediate playlists in descending priority.
type Zone struct {
	Name        string
	Start       TimeOfDay
	Maintainer  string
	Description string
	Comment     string

	Main     *playlist.Playlist
	Fallback *playlist.Playlist
	Others   []*playlist.Intermediate
}

// Day is an ordered sequence of zones, strictly ascending by start time.
type Day struct {
	Zones []*Zone
}

// Week holds the seven day schedules, indexed Sunday=0 through Saturday=6.
type Week struct {
	Days [7]*Day
}

// ZoneFor finds the zone covering the given instant: the latest zone
// whose start is not after the time of day. When the instant falls before
// the first zone of the day, the first zone is returned with ok=false.
func (w *Week) ZoneFor(now time.Time) (*Zone, bool) {
	day := w.Days[int(now.Weekday())]
	tod := At(now)
	for i := len(day.Zones) - 1; i >= 0; i-- {
		if day.Zones[i].Start <= tod {
			return day.Zones[i], true
		}
	}
	return day.Zones[0], false
}
