/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_player/internal/clock"
	"github.com/friendsincode/skald_player/internal/config"
	"github.com/friendsincode/skald_player/internal/events"
	"github.com/friendsincode/skald_player/internal/logbuffer"
	"github.com/friendsincode/skald_player/internal/logging"
	"github.com/friendsincode/skald_player/internal/media"
	"github.com/friendsincode/skald_player/internal/playlog"
	"github.com/friendsincode/skald_player/internal/playout"
	"github.com/friendsincode/skald_player/internal/rng"
	"github.com/friendsincode/skald_player/internal/schedule"
	"github.com/friendsincode/skald_player/internal/scheduler"
	"github.com/friendsincode/skald_player/internal/signals"
	"github.com/friendsincode/skald_player/internal/status"
	"github.com/friendsincode/skald_player/internal/version"
)

// Exit codes per failing subsystem.
const (
	exitScheduler = 2
	exitStatus    = 3
	exitPlayer    = 4
)

var (
	debugLevel int
	debugMask  string
	statusPort int
)

var rootCmd = &cobra.Command{
	Use:     "skaldplayer SCHEDULE.xml",
	Short:   "Skald Player - Unattended broadcast playout",
	Long:    "Skald Player renders a weekly zoned schedule of playlists as one continuous stereo stream to the system audio output.",
	Version: version.Version,
	Args:    cobra.ExactArgs(1),
	RunE:    runServe,
}

func init() {
	rootCmd.Flags().IntVarP(&debugLevel, "debug-level", "d", 3, "log level 0..4 (silent, error, warn, info, debug)")
	rootCmd.Flags().StringVarP(&debugMask, "debug-mask", "m", "ffffffff", "hex debug-facility bitmask")
	rootCmd.Flags().IntVarP(&statusPort, "port", "p", 0, "TCP port for the status endpoint")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseMask(s string) logging.Facility {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return logging.FacilityAll
	}
	return logging.Facility(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if statusPort != 0 {
		cfg.StatusPort = statusPort
	}

	logBuf := logbuffer.New(cfg.LogBufSize)
	logger := logging.SetupWithWriter(logging.Level(debugLevel), logbuffer.NewWriter(logBuf))
	mask := parseMask(debugMask)
	facLogger := func(fac logging.Facility) zerolog.Logger {
		return logging.ForFacility(logger, fac, mask)
	}

	logger.Info().Str("version", version.Version).Msg("Skald Player starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	rnd := rng.New()
	clk := clock.System{}

	// Scheduler: config store, media loader, selection policy.
	store := schedule.NewStore(args[0], rnd, clk, facLogger(logging.FacConfig))
	if err := store.Load(); err != nil {
		logger.Error().Err(err).Msg("failed to initialize scheduler")
		os.Exit(exitScheduler)
	}
	if err := store.Watch(ctx); err != nil {
		logger.Warn().Err(err).Msg("schedule watcher unavailable, falling back to stat polling")
	}
	loader := media.NewLoader(cfg.StrictScan, facLogger(logging.FacLoader))
	sched := scheduler.New(store, loader, facLogger(logging.FacSched))

	// Playback engine.
	engine := playout.NewEngine(sched, cfg.RingSeconds, clk, bus, facLogger(logging.FacPlayer))

	// Status endpoint.
	statusSvc := status.New(bus, engine.ElapsedSeconds, logBuf, facLogger(logging.FacStatus))
	addr := fmt.Sprintf("%s:%d", cfg.StatusBind, cfg.StatusPort)
	ln, err := statusSvc.Listen(addr)
	if err != nil {
		logger.Error().Err(err).Str("addr", addr).Msg("failed to initialize status endpoint")
		os.Exit(exitStatus)
	}
	statusSvc.Start(ctx)
	go func() {
		logger.Info().Str("addr", addr).Msg("status endpoint listening")
		if err := statusSvc.Serve(ctx, ln); err != nil {
			logger.Error().Err(err).Msg("status endpoint error")
		}
	}()

	// Optional play history.
	if cfg.PlaylogDSN != "" {
		db, err := playlog.Open(cfg.PlaylogDSN)
		if err != nil {
			logger.Warn().Err(err).Str("dsn", cfg.PlaylogDSN).Msg("play log disabled")
		} else {
			playlog.NewService(db, bus, facLogger(logging.FacStatus)).Start(ctx)
		}
	}

	// Signal fan-out: termination stops everything, user signals drive
	// pause/resume.
	dispatcher := signals.NewDispatcher(facLogger(logging.FacSignals))
	dispatcher.Register(signals.UnitPlayer, func(sig os.Signal) {
		switch sig {
		case syscall.SIGUSR1:
			engine.Pause()
		case syscall.SIGUSR2:
			engine.Resume()
		case syscall.SIGINT, syscall.SIGTERM:
			go engine.Stop()
		}
	})
	dispatcher.Register(signals.UnitStatus, func(os.Signal) {
		cancel()
	})
	dispatcher.Start(ctx)

	if err := engine.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to initialize player")
		os.Exit(exitPlayer)
	}

	// Block until the engine goes down, by signal or by fatal error.
	<-engine.Stopping()
	engine.Stop()
	cancel()

	if err := engine.Err(); err != nil {
		return fmt.Errorf("player stopped: %w", err)
	}

	logger.Info().Msg("Skald Player stopped")
	return nil
}
