/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package signals owns process signal delivery: one goroutine reads the
// signal stream and fans each signal out by semantic unit. Synchronous
// crash signals are left alone.
package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// Unit names a semantic receiver of signals.
type Unit int

const (
	UnitPlayer Unit = iota
	UnitStatus
)

// Handler receives a delivered signal.
type Handler func(sig os.Signal)

// Dispatcher fans process signals out to registered units. Termination
// signals go to every unit; user signals drive the player only.
type Dispatcher struct {
	logger zerolog.Logger

	mu       sync.Mutex
	handlers map[Unit][]Handler

	ch chan os.Signal
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With().Str("component", "signals").Logger(),
		handlers: make(map[Unit][]Handler),
		ch:       make(chan os.Signal, 4),
	}
}

// Register adds a handler for a unit. Must be called before Start.
func (d *Dispatcher) Register(unit Unit, h Handler) {
	d.mu.Lock()
	d.handlers[unit] = append(d.handlers[unit], h)
	d.mu.Unlock()
}

// Start begins reading signals until ctx ends.
func (d *Dispatcher) Start(ctx context.Context) {
	signal.Notify(d.ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(d.ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-d.ch:
				d.dispatch(sig)
			}
		}
	}()
}

func (d *Dispatcher) dispatch(sig os.Signal) {
	d.logger.Debug().Str("signal", sig.String()).Msg("dispatching")

	d.mu.Lock()
	defer d.mu.Unlock()

	switch sig {
	case syscall.SIGINT, syscall.SIGTERM:
		for _, handlers := range d.handlers {
			for _, h := range handlers {
				h(sig)
			}
		}
	case syscall.SIGUSR1, syscall.SIGUSR2:
		for _, h := range d.handlers[UnitPlayer] {
			h(sig)
		}
	}
}
