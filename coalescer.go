// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"
	"math/bits"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

const (
	// coalescingFactor is the bucket width, in milliseconds, for timeouts
	// shorter than segmentationFactor.
	coalescingFactor   = 15
	granularityFactor  = 2000
	segmentationFactor = coalescingFactor * granularityFactor
)

// TokenCoalescer hands out cancellation contexts for millisecond timeouts,
// sharing one context among all requests whose deadlines round up to the
// same bucket. Buckets widen as timeouts grow: 15ms below 30s, 30ms below
// 60s, 60ms below 120s, and so on.
type TokenCoalescer struct {
	clock     func() time.Time
	epoch     time.Time
	cache     sync.Map
	logger    *Logger
	hasLogger bool
	created   atomix.Uint64
	evicted   atomix.Uint64
	fallbacks atomix.Uint64
}

// CoalescerStats counts the contexts a TokenCoalescer has produced.
type CoalescerStats struct {
	Created   uint64
	Evicted   uint64
	Fallbacks uint64
}

// tokenFuture is a single-assignment cache entry: ready is closed once ctx
// is set.
type tokenFuture struct {
	ready   chan struct{}
	ctx     context.Context
	evicted atomix.Uint32
}

// NewTokenCoalescer returns an empty coalescer.
func NewTokenCoalescer(opts ...CoalescerOption) (*TokenCoalescer, error) {
	cfg, err := resolveCoalescerOptions(opts)
	if err != nil {
		return nil, err
	}
	return &TokenCoalescer{
		clock:     cfg.clock,
		epoch:     cfg.clock(),
		logger:    cfg.logger,
		hasLogger: cfg.loggerSet,
	}, nil
}

var defaultCoalescer = sync.OnceValue(func() *TokenCoalescer {
	c, err := NewTokenCoalescer()
	if err != nil {
		panic("chanrt: default coalescer: " + err.Error())
	}
	return c
})

// FromTimeout returns a context cancelled ms milliseconds from now, rounded
// up to the coalescing bucket, using the process-wide coalescer.
func FromTimeout(ctx context.Context, ms int) (context.Context, error) {
	return defaultCoalescer().FromTimeout(ctx, ms)
}

// FromTimeout returns a shared context cancelled at the end of the bucket
// containing now+ms. ms == -1 yields a context that is never cancelled;
// smaller values are rejected. ctx bounds the wait for another caller's
// in-flight creation of the same bucket.
func (c *TokenCoalescer) FromTimeout(ctx context.Context, ms int) (context.Context, error) {
	if ms < -1 {
		return nil, argOutOfRange("ms", ms)
	}
	if ms == -1 {
		return context.Background(), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := c.clock().Sub(c.epoch).Milliseconds()
	target := roundUp(now+int64(ms), coalescingSpan(ms))

	for range 2 {
		f := &tokenFuture{ready: make(chan struct{})}
		actual, loaded := c.cache.LoadOrStore(target, f)
		if !loaded {
			c.resolve(target, f, time.Duration(target-now)*time.Millisecond)
			return f.ctx, nil
		}
		existing := actual.(*tokenFuture)
		select {
		case <-existing.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if existing.evicted.LoadAcquire() == 0 && existing.ctx.Err() == nil {
			return existing.ctx, nil
		}
		// Fired but not yet evicted; clear it and try once more.
		if c.cache.CompareAndDelete(target, existing) {
			c.evicted.Add(1)
		}
	}

	c.fallbacks.Add(1)
	c.log().Debug().
		Int("ms", ms).
		Int64("bucket", target).
		Log("token coalescer lost race with eviction, using uncached token")
	token, cancel := context.WithTimeout(context.Background(), time.Duration(ms)*time.Millisecond)
	context.AfterFunc(token, cancel)
	return token, nil
}

// resolve creates the bucket's context and arranges its eviction.
func (c *TokenCoalescer) resolve(target int64, f *tokenFuture, d time.Duration) {
	token, cancel := context.WithTimeout(context.Background(), d)
	f.ctx = token
	close(f.ready)
	c.created.Add(1)
	context.AfterFunc(token, func() {
		f.evicted.StoreRelease(1)
		if c.cache.CompareAndDelete(target, f) {
			c.evicted.Add(1)
		}
		cancel()
	})
}

// Stats returns a snapshot of the coalescer's counters.
func (c *TokenCoalescer) Stats() CoalescerStats {
	return CoalescerStats{
		Created:   c.created.LoadAcquire(),
		Evicted:   c.evicted.LoadAcquire(),
		Fallbacks: c.fallbacks.LoadAcquire(),
	}
}

func (c *TokenCoalescer) log() *Logger {
	if c.hasLogger {
		return c.logger
	}
	return defaultLogger()
}

// coalescingSpan returns the bucket width in milliseconds for a timeout.
func coalescingSpan(ms int) int64 {
	return int64(coalescingFactor) << bits.Len(uint(ms/segmentationFactor))
}

func roundUp(n, interval int64) int64 {
	if r := n % interval; r > 0 {
		n += interval - r
	}
	return n
}
