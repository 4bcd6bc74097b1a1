/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config covers process level configuration read from environment variables.
// The weekly schedule itself comes from the XML document given on the
// command line; these settings tune the runtime around it.
type Config struct {
	Environment string
	StatusBind  string
	StatusPort  int // Overridden by -p on the command line
	RingSeconds int
	StrictScan  bool   // Full decode pass when loading media
	PlaylogDSN  string // SQLite path for the play history; empty disables it
	LogBufSize  int
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "production"),
		StatusBind:  getEnv("SKALD_STATUS_BIND", "0.0.0.0"),
		StatusPort:  getEnvInt("SKALD_STATUS_PORT", 9670),
		RingSeconds: getEnvInt("SKALD_RING_SECONDS", 4),
		StrictScan:  getEnvBool("SKALD_STRICT_SCAN", true),
		PlaylogDSN:  getEnv("SKALD_PLAYLOG_DSN", ""),
		LogBufSize:  getEnvInt("SKALD_LOGBUF_SIZE", 2000),
	}

	if cfg.StatusPort <= 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("invalid status port %d", cfg.StatusPort)
	}

	if cfg.RingSeconds < 1 || cfg.RingSeconds > 60 {
		return nil, fmt.Errorf("invalid ring size %d seconds", cfg.RingSeconds)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}
