/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/media"
	"github.com/friendsincode/skald_player/internal/playlist"
	"github.com/friendsincode/skald_player/internal/rng"
)

// Document layout: a WeekSchedule root with exactly seven day children
// (Mon..Sun), each holding one or more Zone elements.

type xmlWeek struct {
	XMLName xml.Name `xml:"WeekSchedule"`
	Sun     *xmlDay  `xml:"Sun"`
	Mon     *xmlDay  `xml:"Mon"`
	Tue     *xmlDay  `xml:"Tue"`
	Wed     *xmlDay  `xml:"Wed"`
	Thu     *xmlDay  `xml:"Thu"`
	Fri     *xmlDay  `xml:"Fri"`
	Sat     *xmlDay  `xml:"Sat"`
}

type xmlDay struct {
	Zones []xmlZone `xml:"Zone"`
}

type xmlZone struct {
	Name         string            `xml:"Name,attr"`
	Start        string            `xml:"Start,attr"`
	Maintainer   string            `xml:"Maintainer,omitempty"`
	Description  string            `xml:"Description,omitempty"`
	Comment      string            `xml:"Comment,omitempty"`
	Main         *xmlPlaylist      `xml:"Main"`
	Fallback     *xmlPlaylist      `xml:"Fallback"`
	Intermediate []xmlIntermediate `xml:"Intermediate"`
}

type xmlPlaylist struct {
	Path    string    `xml:"Path"`
	Shuffle bool      `xml:"Shuffle"`
	Fader   *xmlFader `xml:"Fader"`
}

type xmlFader struct {
	FadeInDurationSecs  float64 `xml:"FadeInDurationSecs"`
	FadeOutDurationSecs float64 `xml:"FadeOutDurationSecs"`
	MinLevel            float64 `xml:"MinLevel"`
	MaxLevel            float64 `xml:"MaxLevel"`
}

type xmlIntermediate struct {
	Name              string    `xml:"Name,attr"`
	Path              string    `xml:"Path"`
	Shuffle           bool      `xml:"Shuffle"`
	Fader             *xmlFader `xml:"Fader"`
	SchedIntervalMins int       `xml:"SchedIntervalMins"`
	NumSchedItems     int       `xml:"NumSchedItems"`
}

// Parse reads and validates a schedule document, building the runtime
// model with live playlist objects. now seeds the intermediate playlists'
// burst clocks.
func Parse(path string, now time.Time, rnd *rng.Source, logger zerolog.Logger) (*Week, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	var raw xmlWeek
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfgLog := logger.With().Str("component", "config").Logger()

	week := &Week{}
	rawDays := [7]*xmlDay{raw.Sun, raw.Mon, raw.Tue, raw.Wed, raw.Thu, raw.Fri, raw.Sat}
	names := [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	for i, rd := range rawDays {
		day, err := buildDay(rd, now, rnd, logger)
		if err != nil {
			return nil, fmt.Errorf("day %s: %w", names[i], err)
		}
		if day.Zones[0].Start != 0 {
			cfgLog.Warn().Str("day", names[i]).
				Stringer("first_zone_start", day.Zones[0].Start).
				Msg("day does not start at midnight")
		}
		week.Days[i] = day
	}

	return week, nil
}

func buildDay(rd *xmlDay, now time.Time, rnd *rng.Source, logger zerolog.Logger) (*Day, error) {
	day := &Day{}
	for _, rz := range rd.Zones {
		start, err := ParseTimeOfDay(rz.Start)
		if err != nil {
			return nil, fmt.Errorf("zone %q: %w", rz.Name, err)
		}

		zone := &Zone{
			Name:        rz.Name,
			Start:       start,
			Maintainer:  rz.Maintainer,
			Description: rz.Description,
			Comment:     rz.Comment,
			Main:        buildPlaylist(rz.Main, rnd, logger),
		}
		if rz.Fallback != nil {
			zone.Fallback = buildPlaylist(rz.Fallback, rnd, logger)
		}
		for _, ri := range rz.Intermediate {
			zone.Others = append(zone.Others, playlist.NewIntermediate(
				ri.Name, ri.Path, ri.Shuffle, buildFade(ri.Fader),
				ri.SchedIntervalMins, ri.NumSchedItems, now, rnd, logger))
		}
		day.Zones = append(day.Zones, zone)
	}
	return day, nil
}

func buildPlaylist(rp *xmlPlaylist, rnd *rng.Source, logger zerolog.Logger) *playlist.Playlist {
	return playlist.New(rp.Path, rp.Shuffle, buildFade(rp.Fader), rnd, logger)
}

func buildFade(rf *xmlFader) *media.FadeInfo {
	if rf == nil {
		return nil
	}
	return &media.FadeInfo{
		FadeInSecs:  rf.FadeInDurationSecs,
		FadeOutSecs: rf.FadeOutDurationSecs,
		MinLevel:    rf.MinLevel,
		MaxLevel:    rf.MaxLevel,
	}
}

// Serialize renders the week back to the document format. Playlist
// runtime state (cursor, shuffle order) is not part of the document.
func Serialize(w *Week) ([]byte, error) {
	raw := xmlWeek{}
	days := [7]**xmlDay{&raw.Sun, &raw.Mon, &raw.Tue, &raw.Wed, &raw.Thu, &raw.Fri, &raw.Sat}
	for i, slot := range days {
		rd := &xmlDay{}
		for _, z := range w.Days[i].Zones {
			rz := xmlZone{
				Name:        z.Name,
				Start:       z.Start.String(),
				Maintainer:  z.Maintainer,
				Description: z.Description,
				Comment:     z.Comment,
				Main:        serializePlaylist(z.Main),
			}
			if z.Fallback != nil {
				rz.Fallback = serializePlaylist(z.Fallback)
			}
			for _, ipls := range z.Others {
				rz.Intermediate = append(rz.Intermediate, xmlIntermediate{
					Name:              ipls.Name,
					Path:              ipls.SourcePath,
					Shuffle:           ipls.Shuffle,
					Fader:             serializeFade(ipls.Fade),
					SchedIntervalMins: ipls.IntervalMins,
					NumSchedItems:     ipls.ItemsPerBurst,
				})
			}
			rd.Zones = append(rd.Zones, rz)
		}
		*slot = rd
	}
	return xml.MarshalIndent(raw, "", "\t")
}

func serializePlaylist(p *playlist.Playlist) *xmlPlaylist {
	return &xmlPlaylist{
		Path:    p.SourcePath,
		Shuffle: p.Shuffle,
		Fader:   serializeFade(p.Fade),
	}
}

func serializeFade(f *media.FadeInfo) *xmlFader {
	if f == nil {
		return nil
	}
	return &xmlFader{
		FadeInDurationSecs:  f.FadeInSecs,
		FadeOutDurationSecs: f.FadeOutSecs,
		MinLevel:            f.MinLevel,
		MaxLevel:            f.MaxLevel,
	}
}
