package media

import (
	"testing"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"
)

func TestNormalizeRawTagsVorbisStyle(t *testing.T) {
	raw := map[string]interface{}{
		"replaygain_track_gain": "-6.52 dB",
		"replaygain_track_peak": "0.988",
		"musicbrainz_albumid":   "a1b2",
	}
	got := normalizeRawTags(raw)
	if got["REPLAYGAIN_TRACK_GAIN"] != "-6.52 dB" {
		t.Fatalf("gain: %q", got["REPLAYGAIN_TRACK_GAIN"])
	}
	if got["MUSICBRAINZ_ALBUMID"] != "a1b2" {
		t.Fatalf("album id: %q", got["MUSICBRAINZ_ALBUMID"])
	}
}

func TestNormalizeRawTagsID3UserFrames(t *testing.T) {
	raw := map[string]interface{}{
		"TXXX": &tag.Comm{Description: "MusicBrainz Album Id", Text: "xyz"},
	}
	got := normalizeRawTags(raw)
	if got["MUSICBRAINZ ALBUM ID"] != "xyz" {
		t.Fatalf("normalized: %v", got)
	}
	if firstTag(got, "MUSICBRAINZ_ALBUMID", "MUSICBRAINZ ALBUM ID") != "xyz" {
		t.Fatal("lookup through alternate naming failed")
	}
}

func TestGainTagParsing(t *testing.T) {
	l := NewLoader(false, zerolog.Nop())

	raw := map[string]string{
		"REPLAYGAIN_TRACK_GAIN": "-7.3 dB",
		"REPLAYGAIN_TRACK_PEAK": "0.5",
		"REPLAYGAIN_ALBUM_GAIN": "garbage",
	}
	if got := l.gainTag(raw, "REPLAYGAIN_TRACK_GAIN"); got != -7.3 {
		t.Fatalf("gain: %f", got)
	}
	if got := l.gainTag(raw, "REPLAYGAIN_TRACK_PEAK"); got != 0.5 {
		t.Fatalf("peak: %f", got)
	}
	if got := l.gainTag(raw, "REPLAYGAIN_ALBUM_GAIN"); got != 0 {
		t.Fatalf("invalid value should parse to 0, got %f", got)
	}
	if got := l.gainTag(raw, "REPLAYGAIN_ALBUM_PEAK"); got != 0 {
		t.Fatalf("absent tag should be 0, got %f", got)
	}
}
