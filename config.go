// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corovisor

import (
	"runtime"
	"time"
)

// config holds process-wide Runtime configuration, resolved once before the
// first Spawn (spec.md §6 "Runtime configuration").
type config struct {
	workerCount         int
	stackSize           int
	ioTimeoutResolution time.Duration
	metricsEnabled      bool
	logger              Logger
}

// --- Runtime Options ---

// Option configures a Runtime instance.
type Option interface {
	applyRuntime(*config) error
}

type optionFunc struct {
	apply func(*config) error
}

func (o *optionFunc) applyRuntime(cfg *config) error {
	return o.apply(cfg)
}

// WithWorkerCount sets the number of OS threads backing the worker pool.
// Defaults to runtime.NumCPU().
func WithWorkerCount(n int) Option {
	return &optionFunc{func(cfg *config) error {
		if n <= 0 {
			return &InvariantViolation{Detail: "WithWorkerCount requires n > 0"}
		}
		cfg.workerCount = n
		return nil
	}}
}

// WithStackSize sets the nominal per-coroutine stack size, rounded up to a
// multiple of 4096 bytes (defaultPageSize). Since Go coroutines are backed by goroutines with growable
// stacks (see doc.go "Context switch"), this value is advisory only: Go's
// runtime chooses and grows each goroutine's actual stack on its own, so
// WithStackSize has no observable effect beyond recording the caller's
// intent in config for parity with the original stackful design.
func WithStackSize(bytes int) Option {
	return &optionFunc{func(cfg *config) error {
		if bytes <= 0 {
			return &InvariantViolation{Detail: "WithStackSize requires bytes > 0"}
		}
		cfg.stackSize = roundToPage(bytes)
		return nil
	}}
}

// WithIOTimeoutResolution sets the minimum tick duration of the timer wheel
// (spec.md §4.4). Smaller values increase timer precision at the cost of
// more frequent selector polling.
func WithIOTimeoutResolution(d time.Duration) Option {
	return &optionFunc{func(cfg *config) error {
		if d <= 0 {
			return &InvariantViolation{Detail: "WithIOTimeoutResolution requires d > 0"}
		}
		cfg.ioTimeoutResolution = d
		return nil
	}}
}

// WithMetrics enables runtime metrics collection (steal counts, park
// counts, I/O completion latency). Accessible via Runtime.Metrics().
func WithMetrics(enabled bool) Option {
	return &optionFunc{func(cfg *config) error {
		cfg.metricsEnabled = enabled
		return nil
	}}
}

// WithLogger overrides the structured logger used for scheduler and
// selector diagnostics. Without this option, a Runtime falls back to the
// package-level logger set by SetStructuredLogger, or a no-op logger if
// none was set.
func WithLogger(logger Logger) Option {
	return &optionFunc{func(cfg *config) error {
		cfg.logger = logger
		return nil
	}}
}

const defaultPageSize = 4096

func roundToPage(bytes int) int {
	if bytes%defaultPageSize == 0 {
		return bytes
	}
	return (bytes/defaultPageSize + 1) * defaultPageSize
}

// resolveConfig applies Option instances over the process defaults.
func resolveConfig(opts []Option) (*config, error) {
	cfg := &config{
		workerCount:         runtime.NumCPU(),
		stackSize:           defaultPageSize,
		ioTimeoutResolution: 100 * time.Microsecond,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRuntime(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = getGlobalLogger()
	}
	return cfg, nil
}
