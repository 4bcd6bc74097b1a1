/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Facility identifies a debug-log producer. The debug mask gates which
// facilities emit at debug level; error/warn/info are never masked.
type Facility uint32

const (
	FacSched Facility = 1 << iota
	FacPlaylist
	FacLoader
	FacPlayer
	FacRing
	FacStatus
	FacConfig
	FacSignals
)

// FacilityAll enables debug output for every facility.
const FacilityAll Facility = 0xffffffff

// Level maps the -d command line value (0..4) to a zerolog level.
func Level(d int) zerolog.Level {
	switch {
	case d <= 0:
		return zerolog.Disabled
	case d == 1:
		return zerolog.ErrorLevel
	case d == 2:
		return zerolog.WarnLevel
	case d == 3:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Setup configures zerolog for the process.
func Setup(level zerolog.Level) zerolog.Logger {
	return SetupWithWriter(level, nil)
}

// SetupWithWriter configures zerolog with an additional writer (e.g., for the log buffer).
func SetupWithWriter(level zerolog.Level, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout}

	var writer io.Writer = consoleWriter
	if additionalWriter != nil {
		writer = zerolog.MultiLevelWriter(consoleWriter, additionalWriter)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}

// ForFacility applies the -m debug mask: when the facility is masked
// out, the returned logger is capped at info so the debug stream stays
// readable without silencing warnings. Components still attach their own
// names with With().Str("component", ...).
func ForFacility(logger zerolog.Logger, fac Facility, mask Facility) zerolog.Logger {
	if mask&fac == 0 && logger.GetLevel() == zerolog.DebugLevel {
		return logger.Level(zerolog.InfoLevel)
	}
	return logger
}
