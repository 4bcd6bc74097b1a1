/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
)

const (
	maxFadeSecs      = 10.0
	maxIntermediates = 4
)

// validate enforces the schema constraints on a parsed document before
// the runtime model is built from it.
func validate(raw *xmlWeek) error {
	days := map[string]*xmlDay{
		"Sun": raw.Sun, "Mon": raw.Mon, "Tue": raw.Tue, "Wed": raw.Wed,
		"Thu": raw.Thu, "Fri": raw.Fri, "Sat": raw.Sat,
	}

	for name, day := range days {
		if day == nil {
			return fmt.Errorf("schedule is missing day %s", name)
		}
		if err := validateDay(name, day); err != nil {
			return err
		}
	}
	return nil
}

func validateDay(name string, day *xmlDay) error {
	if len(day.Zones) == 0 {
		return fmt.Errorf("day %s has no zones", name)
	}

	prev := TimeOfDay(-1)
	for _, z := range day.Zones {
		if z.Name == "" {
			return fmt.Errorf("day %s: zone without a Name attribute", name)
		}
		start, err := ParseTimeOfDay(z.Start)
		if err != nil {
			return fmt.Errorf("day %s zone %q: %w", name, z.Name, err)
		}
		if start <= prev {
			return fmt.Errorf("day %s: zones out of order at %q (start %s)", name, z.Name, start)
		}
		prev = start

		if z.Main == nil || z.Main.Path == "" {
			return fmt.Errorf("day %s zone %q: missing Main playlist", name, z.Name)
		}
		if err := validateFader(z.Main.Fader); err != nil {
			return fmt.Errorf("day %s zone %q main: %w", name, z.Name, err)
		}
		if z.Fallback != nil {
			if z.Fallback.Path == "" {
				return fmt.Errorf("day %s zone %q: Fallback without a Path", name, z.Name)
			}
			if err := validateFader(z.Fallback.Fader); err != nil {
				return fmt.Errorf("day %s zone %q fallback: %w", name, z.Name, err)
			}
		}

		if len(z.Intermediate) > maxIntermediates {
			return fmt.Errorf("day %s zone %q: %d intermediate playlists (max %d)",
				name, z.Name, len(z.Intermediate), maxIntermediates)
		}
		for _, ipls := range z.Intermediate {
			if ipls.Name == "" {
				return fmt.Errorf("day %s zone %q: intermediate playlist without a Name", name, z.Name)
			}
			if ipls.Path == "" {
				return fmt.Errorf("day %s zone %q intermediate %q: missing Path", name, z.Name, ipls.Name)
			}
			if ipls.SchedIntervalMins <= 0 {
				return fmt.Errorf("day %s zone %q intermediate %q: SchedIntervalMins must be positive",
					name, z.Name, ipls.Name)
			}
			if ipls.NumSchedItems <= 0 {
				return fmt.Errorf("day %s zone %q intermediate %q: NumSchedItems must be positive",
					name, z.Name, ipls.Name)
			}
			if err := validateFader(ipls.Fader); err != nil {
				return fmt.Errorf("day %s zone %q intermediate %q: %w", name, z.Name, ipls.Name, err)
			}
		}
	}
	return nil
}

func validateFader(f *xmlFader) error {
	if f == nil {
		return nil
	}
	if f.FadeInDurationSecs < 0 || f.FadeInDurationSecs > maxFadeSecs {
		return fmt.Errorf("FadeInDurationSecs %.1f out of range 0..%.0f", f.FadeInDurationSecs, maxFadeSecs)
	}
	if f.FadeOutDurationSecs < 0 || f.FadeOutDurationSecs > maxFadeSecs {
		return fmt.Errorf("FadeOutDurationSecs %.1f out of range 0..%.0f", f.FadeOutDurationSecs, maxFadeSecs)
	}
	if f.MinLevel < 0 || f.MinLevel > 1 {
		return fmt.Errorf("MinLevel %.2f out of range 0..1", f.MinLevel)
	}
	if f.MaxLevel < 0 || f.MaxLevel > 1 {
		return fmt.Errorf("MaxLevel %.2f out of range 0..1", f.MaxLevel)
	}
	if f.MinLevel > f.MaxLevel {
		return fmt.Errorf("MinLevel %.2f above MaxLevel %.2f", f.MinLevel, f.MaxLevel)
	}
	return nil
}
