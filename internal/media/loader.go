/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"
)

const scanChunkFrames = 4096

// Loader builds AudioFile descriptors. In strict mode it decodes the whole
// file to verify it and compute an accurate duration; the full read also
// pulls the file into the page cache ahead of playback.
type Loader struct {
	strict bool
	logger zerolog.Logger
}

// NewLoader creates a media loader.
func NewLoader(strict bool, logger zerolog.Logger) *Loader {
	return &Loader{
		strict: strict,
		logger: logger.With().Str("component", "loader").Logger(),
	}
}

// Load opens the file at path and fills an AudioFile descriptor with its
// tags and duration. The zone name and fade parameters come from the
// playlist that served the file.
func (l *Loader) Load(path, zoneName string, fade *FadeInfo) (*AudioFile, error) {
	info := &AudioFile{
		Path:     path,
		ZoneName: zoneName,
		Fade:     fade,
	}

	l.readTags(info)

	dec, format, err := OpenDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer dec.Close()

	// Container-reported duration, when the decoder knows the stream length.
	var metaDuration float64
	if n := dec.Len(); n > 0 {
		metaDuration = float64(n) / float64(format.SampleRate)
	}

	if !l.strict && metaDuration > 0 {
		info.Duration = metaDuration
		return info, nil
	}

	// Strict pass: decode everything and count what actually comes out.
	frames := 0
	buf := make([][2]float64, scanChunkFrames)
	for {
		n, ok := dec.Stream(buf)
		frames += n
		if !ok {
			break
		}
	}
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if frames == 0 {
		return nil, fmt.Errorf("no audio frames in %s", path)
	}

	info.Duration = float64(frames) / float64(format.SampleRate)

	if metaDuration > 0 {
		if diff := math.Abs(info.Duration - metaDuration); diff > 1.0 {
			l.logger.Warn().Str("path", path).
				Float64("metadata_secs", metaDuration).
				Float64("calculated_secs", info.Duration).
				Float64("diff_secs", diff).
				Msg("duration mismatch")
		}
	} else {
		l.logger.Warn().Str("path", path).Msg("no duration metadata")
	}

	l.logger.Debug().
		Str("path", info.Path).
		Str("artist", info.Artist).
		Str("album", info.Album).
		Str("title", info.Title).
		Str("album_id", info.AlbumID).
		Str("release_track_id", info.ReleaseTrackID).
		Float64("track_gain", info.TrackGain).
		Float64("track_peak", info.TrackPeak).
		Float64("duration", info.Duration).
		Msg("loaded file")

	return info, nil
}

// readTags extracts artist/album/title, ReplayGain and MusicBrainz IDs.
// Missing or unreadable tags are not an error; untagged files play fine.
func (l *Loader) readTags(info *AudioFile) {
	f, err := os.Open(info.Path)
	if err != nil {
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return
	}

	info.Artist = m.Artist()
	info.Album = m.Album()
	info.Title = m.Title()

	raw := normalizeRawTags(m.Raw())
	info.AlbumID = firstTag(raw, "MUSICBRAINZ_ALBUMID", "MUSICBRAINZ ALBUM ID")
	info.ReleaseTrackID = firstTag(raw, "MUSICBRAINZ_RELEASETRACKID", "MUSICBRAINZ RELEASE TRACK ID")

	info.AlbumGain = l.gainTag(raw, "REPLAYGAIN_ALBUM_GAIN")
	info.AlbumPeak = l.gainTag(raw, "REPLAYGAIN_ALBUM_PEAK")
	info.TrackGain = l.gainTag(raw, "REPLAYGAIN_TRACK_GAIN")
	info.TrackPeak = l.gainTag(raw, "REPLAYGAIN_TRACK_PEAK")
}

// normalizeRawTags flattens the per-format raw tag map to upper-case
// string keys. Vorbis comments arrive as plain strings; ID3v2 user text
// frames (TXXX) arrive as description/text pairs.
func normalizeRawTags(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[strings.ToUpper(k)] = val
		case *tag.Comm:
			out[strings.ToUpper(val.Description)] = val.Text
		}
	}
	return out
}

func firstTag(raw map[string]string, names ...string) string {
	for _, name := range names {
		if v, ok := raw[name]; ok {
			return v
		}
	}
	return ""
}

// gainTag parses a ReplayGain value. Gains carry a "dB" suffix, peaks are
// bare linear floats; both parse the same way.
func (l *Loader) gainTag(raw map[string]string, name string) float64 {
	v, ok := raw[name]
	if !ok {
		return 0
	}
	fields := strings.Fields(strings.TrimSpace(v))
	if len(fields) == 0 {
		return 0
	}
	val, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		l.logger.Warn().Str("tag", name).Str("value", v).Msg("invalid ReplayGain format")
		return 0
	}
	return val
}
