// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt_test

import (
	"bytes"
	"context"
	"testing"
	"testing/quick"
	"time"

	"code.hybscloud.com/chanrt"
)

// Property: any sequence of writes within quota is extracted intact.
func TestPropertyBufferRoundTrip(t *testing.T) {
	m, err := chanrt.NewBufferManager(1<<20, 1<<14)
	if err != nil {
		t.Fatal(err)
	}
	f := func(initial uint8, writes [][]byte) bool {
		b, err := chanrt.NewBufferedOutputStream(int(initial), 1<<20, m)
		if err != nil {
			return false
		}
		defer b.Clear()
		var want []byte
		for _, p := range writes {
			if _, err := b.Write(p); err != nil {
				return false
			}
			want = append(want, p...)
		}
		out, err := b.ToArray()
		return err == nil && bytes.Equal(want, out)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

// Property: a rejected write leaves the size unchanged.
func TestPropertyQuotaRejectsWhole(t *testing.T) {
	f := func(quota uint8, first, second []byte) bool {
		b, err := chanrt.NewQuotaBufferedOutputStream(int(quota))
		if err != nil {
			return false
		}
		if _, err := b.Write(first); err != nil {
			return len(first) > int(quota) && b.Len() == 0
		}
		before := b.Len()
		_, err = b.Write(second)
		if before+len(second) > int(quota) {
			return err != nil && b.Len() == before
		}
		return err == nil && b.Len() == before+len(second)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

// Property: remaining time never increases and elapsed plus remaining is
// the original budget until expiry.
func TestPropertyTimeoutMonotonic(t *testing.T) {
	f := func(budgetMs uint16, steps []uint16) bool {
		clock := newFakeClock()
		original := time.Duration(budgetMs) * time.Millisecond
		h, err := chanrt.NewTimeoutHelper(original, chanrt.WithTimeoutClock(clock.Now))
		if err != nil {
			return false
		}
		last := h.RemainingTime()
		for _, s := range steps {
			clock.Advance(time.Duration(s) * time.Microsecond)
			r := h.RemainingTime()
			if r > last || r < 0 || h.ElapsedTime()+r != original {
				return false
			}
			last = r
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

// Property: a coalesced token never fires before the requested timeout,
// within the millisecond the clock reading truncates.
func TestPropertyCoalescedDeadlineNotEarly(t *testing.T) {
	c, err := chanrt.NewTokenCoalescer(chanrt.WithCoalescerLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	f := func(ms uint32) bool {
		ms %= 600_000
		start := time.Now()
		ctx, err := c.FromTimeout(context.Background(), int(ms))
		if err != nil {
			return false
		}
		deadline, ok := ctx.Deadline()
		return ok && !deadline.Before(start.Add(time.Duration(ms)*time.Millisecond-time.Millisecond))
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

// Property: millisecond conversions round-trip for whole milliseconds.
func TestPropertyMillisecondsRoundTrip(t *testing.T) {
	f := func(ms int32) bool {
		if ms < 0 {
			return true
		}
		return chanrt.ToMilliseconds(chanrt.FromMilliseconds(int(ms))) == int(ms)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}
