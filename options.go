// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"runtime"
	"time"
)

// schedulerOptions holds configuration for NewIOThreadScheduler.
type schedulerOptions struct {
	capacity  int
	workers   int
	poster    Poster
	logger    *Logger
	loggerSet bool
}

// SchedulerOption configures an IOThreadScheduler.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions) error
}

type schedulerOptionImpl struct {
	applySchedulerFunc func(*schedulerOptions) error
}

func (o *schedulerOptionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applySchedulerFunc(opts)
}

// WithCapacity sets the initial queue capacity. It must be a power of two
// between 2 and 0x8000. The queue doubles on demand up to 0x8000.
func WithCapacity(n int) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		if n < 2 || n > maximumCapacity || n&(n-1) != 0 {
			return argOutOfRange("capacity", n)
		}
		opts.capacity = n
		return nil
	}}
}

// WithWorkers sets how many goroutines the built-in posters run.
// Ignored when WithPoster supplies a poster.
func WithWorkers(n int) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		if n < 1 {
			return argOutOfRange("workers", n)
		}
		opts.workers = n
		return nil
	}}
}

// WithPoster replaces the wake-up mechanism. The scheduler takes ownership
// and closes p on Close.
func WithPoster(p Poster) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		if p == nil {
			return argNull("poster")
		}
		opts.poster = p
		return nil
	}}
}

// WithSchedulerLogger sets the logger for one scheduler, overriding
// SetLogger.
func WithSchedulerLogger(l *Logger) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.logger = l
		opts.loggerSet = true
		return nil
	}}
}

func resolveSchedulerOptions(opts []SchedulerOption) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		capacity: defaultCapacity,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// coalescerOptions holds configuration for NewTokenCoalescer.
type coalescerOptions struct {
	clock     func() time.Time
	logger    *Logger
	loggerSet bool
}

// CoalescerOption configures a TokenCoalescer.
type CoalescerOption interface {
	applyCoalescer(*coalescerOptions) error
}

type coalescerOptionImpl struct {
	applyCoalescerFunc func(*coalescerOptions) error
}

func (o *coalescerOptionImpl) applyCoalescer(opts *coalescerOptions) error {
	return o.applyCoalescerFunc(opts)
}

// WithClock sets the time source used to compute target instants.
// Token deadlines are still enforced by the runtime timer.
func WithClock(now func() time.Time) CoalescerOption {
	return &coalescerOptionImpl{func(opts *coalescerOptions) error {
		if now == nil {
			return argNull("clock")
		}
		opts.clock = now
		return nil
	}}
}

// WithCoalescerLogger sets the logger for one coalescer.
func WithCoalescerLogger(l *Logger) CoalescerOption {
	return &coalescerOptionImpl{func(opts *coalescerOptions) error {
		opts.logger = l
		opts.loggerSet = true
		return nil
	}}
}

func resolveCoalescerOptions(opts []CoalescerOption) (*coalescerOptions, error) {
	cfg := &coalescerOptions{clock: time.Now}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyCoalescer(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// timeoutOptions holds configuration for NewTimeoutHelper.
type timeoutOptions struct {
	clock     func() time.Time
	coalescer *TokenCoalescer
}

// TimeoutOption configures a TimeoutHelper.
type TimeoutOption interface {
	applyTimeout(*timeoutOptions) error
}

type timeoutOptionImpl struct {
	applyTimeoutFunc func(*timeoutOptions) error
}

func (o *timeoutOptionImpl) applyTimeout(opts *timeoutOptions) error {
	return o.applyTimeoutFunc(opts)
}

// WithTimeoutClock sets the time source for deadline arithmetic.
func WithTimeoutClock(now func() time.Time) TimeoutOption {
	return &timeoutOptionImpl{func(opts *timeoutOptions) error {
		if now == nil {
			return argNull("clock")
		}
		opts.clock = now
		return nil
	}}
}

// WithCoalescer sets the token cache. The default is the process-wide
// coalescer.
func WithCoalescer(c *TokenCoalescer) TimeoutOption {
	return &timeoutOptionImpl{func(opts *timeoutOptions) error {
		if c == nil {
			return argNull("coalescer")
		}
		opts.coalescer = c
		return nil
	}}
}

func resolveTimeoutOptions(opts []TimeoutOption) (*timeoutOptions, error) {
	cfg := &timeoutOptions{clock: time.Now}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyTimeout(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.coalescer == nil {
		cfg.coalescer = defaultCoalescer()
	}
	return cfg, nil
}
