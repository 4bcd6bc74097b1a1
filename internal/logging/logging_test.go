package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelMapping(t *testing.T) {
	cases := []struct {
		d    int
		want zerolog.Level
	}{
		{0, zerolog.Disabled},
		{1, zerolog.ErrorLevel},
		{2, zerolog.WarnLevel},
		{3, zerolog.InfoLevel},
		{4, zerolog.DebugLevel},
		{9, zerolog.DebugLevel},
	}
	for _, c := range cases {
		if got := Level(c.d); got != c.want {
			t.Errorf("Level(%d) = %v, want %v", c.d, got, c.want)
		}
	}
}

func TestFacilityMaskCapsDebug(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.DebugLevel)

	masked := ForFacility(logger, FacRing, FacSched|FacPlayer)
	if masked.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("masked facility level: %v", masked.GetLevel())
	}

	open := ForFacility(logger, FacPlayer, FacSched|FacPlayer)
	if open.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("unmasked facility level: %v", open.GetLevel())
	}

	// The mask never promotes output when debug is off globally.
	info := zerolog.New(nil).Level(zerolog.InfoLevel)
	if got := ForFacility(info, FacRing, 0); got.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("non-debug logger level: %v", got.GetLevel())
	}
}
