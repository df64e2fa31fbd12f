// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "log/slog"

// Config holds the settings of a Kernel or Simulation.
//
type Config struct {
	// SettleLimit overrides the maximum number of passes of a settle. The
	// default bound is derived from the circuit size and depth.
	SettleLimit int
	// WatchLimit is the default time limit of Until waits. Zero means no
	// limit other than the simulation time limit.
	WatchLimit uint64
	// Logger receives debug records. Defaults to a discarding logger.
	Logger *slog.Logger
	// Tracer, if not nil, receives all signal value changes.
	Tracer Tracer
}

func (cfg *Config) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.Logger
}
