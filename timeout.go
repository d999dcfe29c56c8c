// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"
	"math"
	"time"
)

const (
	// Infinite is the duration of a timeout that never expires.
	Infinite time.Duration = math.MaxInt64

	// MaxWait is the longest finite wait expressible in int32 milliseconds.
	// Remaining times at or beyond it get a context that is never cancelled.
	MaxWait = time.Duration(math.MaxInt32) * time.Millisecond
)

// maxTime is the saturation point of AddTime.
var maxTime = time.Unix(1<<62, 0)

// expired is the shared pre-cancelled context.
var expired = func() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}()

// TimeoutHelper tracks one operation's time budget. The deadline is fixed
// by the first call to RemainingTime and never moves afterwards.
//
// A TimeoutHelper is not safe for concurrent use.
type TimeoutHelper struct {
	original    time.Duration
	deadline    time.Time
	deadlineSet bool
	token       context.Context
	clock       func() time.Time
	coalescer   *TokenCoalescer
}

// NewTimeoutHelper returns a helper for a budget of timeout, which must not
// be negative. Pass Infinite for no limit.
func NewTimeoutHelper(timeout time.Duration, opts ...TimeoutOption) (*TimeoutHelper, error) {
	if err := ValidateNonNegative(timeout); err != nil {
		return nil, err
	}
	cfg, err := resolveTimeoutOptions(opts)
	if err != nil {
		return nil, err
	}
	return &TimeoutHelper{
		original:    timeout,
		deadlineSet: timeout == Infinite,
		clock:       cfg.clock,
		coalescer:   cfg.coalescer,
	}, nil
}

// OriginalTimeout returns the budget the helper was created with.
func (h *TimeoutHelper) OriginalTimeout() time.Duration {
	return h.original
}

// RemainingTime returns the time left before the deadline, floored at zero.
// The first call fixes the deadline and returns the original timeout.
func (h *TimeoutHelper) RemainingTime() time.Duration {
	if !h.deadlineSet {
		h.setDeadline()
		return h.original
	}
	if h.original == Infinite {
		return Infinite
	}
	remaining := h.deadline.Sub(h.clock())
	if remaining <= 0 {
		return 0
	}
	return remaining
}

// ElapsedTime returns OriginalTimeout minus RemainingTime.
func (h *TimeoutHelper) ElapsedTime() time.Duration {
	return h.original - h.RemainingTime()
}

func (h *TimeoutHelper) setDeadline() {
	h.deadline = AddTime(h.clock(), h.original)
	h.deadlineSet = true
}

// CancellationToken returns a context cancelled when the remaining time
// runs out. Unbounded budgets get a context that is never cancelled, spent
// budgets a cancelled one, and everything else a context shared through
// the coalescer. The token is computed once per helper.
func (h *TimeoutHelper) CancellationToken(ctx context.Context) (context.Context, error) {
	if h.token != nil {
		return h.token, nil
	}
	remaining := h.RemainingTime()
	switch {
	case remaining >= MaxWait:
		h.token = context.Background()
	case remaining > 0:
		token, err := h.coalescer.FromTimeout(ctx, ToMilliseconds(remaining))
		if err != nil {
			return nil, err
		}
		h.token = token
	default:
		h.token = expired
	}
	return h.token, nil
}

// FromMilliseconds converts a millisecond timeout, where -1 means Infinite.
func FromMilliseconds(ms int) time.Duration {
	if ms == -1 {
		return Infinite
	}
	return time.Duration(ms) * time.Millisecond
}

// ToMilliseconds converts d to milliseconds, rounding positive fractions up
// and saturating at math.MaxInt32. Infinite converts to -1.
func ToMilliseconds(d time.Duration) int {
	if d == Infinite {
		return -1
	}
	if d <= 0 {
		return int(d / time.Millisecond)
	}
	if d >= MaxWait {
		return math.MaxInt32
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// Min returns the shorter of a and b.
func Min(a, b time.Duration) time.Duration {
	return min(a, b)
}

// Add returns a+b, saturating at Infinite and at the most negative
// duration.
func Add(a, b time.Duration) time.Duration {
	if a >= 0 && b > Infinite-a {
		return Infinite
	}
	if a < 0 && b < math.MinInt64-a {
		return math.MinInt64
	}
	return a + b
}

// AddTime returns t+d, saturating far in the future.
func AddTime(t time.Time, d time.Duration) time.Time {
	if d >= 0 && t.After(maxTime.Add(-d)) {
		return maxTime
	}
	return t.Add(d)
}

// Divide returns d/factor plus one nanosecond so the quotient never reaches
// zero. Infinite stays Infinite.
func Divide(d time.Duration, factor int) time.Duration {
	if d == Infinite {
		return Infinite
	}
	return d/time.Duration(factor) + 1
}

// IsTooLarge reports whether d is finite but exceeds MaxWait.
func IsTooLarge(d time.Duration) bool {
	return d > MaxWait && d != Infinite
}

// ValidateNonNegative returns an ArgumentError for negative durations.
func ValidateNonNegative(d time.Duration) error {
	if d < 0 {
		return argOutOfRange("timeout", d)
	}
	return nil
}

// ValidatePositive returns an ArgumentError for durations that are not
// positive.
func ValidatePositive(d time.Duration) error {
	if d <= 0 {
		return argOutOfRange("timeout", d)
	}
	return nil
}
