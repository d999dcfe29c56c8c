// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/chanrt"
	"code.hybscloud.com/iox"
)

func mustAcquire(t *testing.T, ctx context.Context, l *chanrt.AsyncLock) (context.Context, *chanrt.LockHandle) {
	t.Helper()
	ctx, h, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	return ctx, h
}

func mustRelease(t *testing.T, h *chanrt.LockHandle) {
	t.Helper()
	if err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestAsyncLockAcquireRelease(t *testing.T) {
	l := chanrt.NewAsyncLock()
	bg := context.Background()
	ctx, h := mustAcquire(t, bg, l)
	if ctx == bg {
		t.Fatal("Acquire returned the caller's context")
	}
	if h.Context() != ctx {
		t.Fatal("handle context differs from returned context")
	}
	if _, _, err := l.TryAcquire(bg); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("TryAcquire while held = %v, want ErrWouldBlock", err)
	}
	mustRelease(t, h)
	_, h2, err := l.TryAcquire(bg)
	if err != nil {
		t.Fatalf("TryAcquire after release: %v", err)
	}
	mustRelease(t, h2)
}

func TestAsyncLockSequentialChain(t *testing.T) {
	l := chanrt.NewAsyncLock()
	ctx := context.Background()
	var seq []int
	for i := range 100 {
		inner, h := mustAcquire(t, ctx, l)
		seq = append(seq, i)
		_, nested := mustAcquire(t, inner, l)
		seq = append(seq, i)
		mustRelease(t, nested)
		mustRelease(t, h)
	}
	for i := 1; i < len(seq); i++ {
		if seq[i] < seq[i-1] {
			t.Fatalf("sequence not monotonic at %d: %v", i, seq[i-1:i+1])
		}
	}
}

func TestAsyncLockNestedInChain(t *testing.T) {
	skipRace(t)
	l := chanrt.NewAsyncLock()
	bg := context.Background()
	outer, h := mustAcquire(t, bg, l)

	// Same chain: proceeds while the outer holder is inside.
	_, nested, err := l.TryAcquire(outer)
	if err != nil {
		t.Fatalf("nested TryAcquire: %v", err)
	}
	// Unrelated chain: waits on the semaphore the outer holder took.
	if _, _, err := l.TryAcquire(bg); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("unrelated TryAcquire = %v, want ErrWouldBlock", err)
	}
	// Siblings in the same chain exclude each other.
	if _, _, err := l.TryAcquire(outer); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("sibling TryAcquire = %v, want ErrWouldBlock", err)
	}

	released := make(chan error, 1)
	go func() { released <- h.Release() }()
	select {
	case err := <-released:
		t.Fatalf("outer Release returned %v before nested release", err)
	case <-time.After(20 * time.Millisecond):
	}
	mustRelease(t, nested)
	select {
	case err := <-released:
		if err != nil {
			t.Fatalf("outer Release: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("outer Release did not return after nested release")
	}
}

func TestAsyncLockExcludesChains(t *testing.T) {
	skipRace(t)
	l := chanrt.NewAsyncLock()
	const (
		workers = 8
		rounds  = 500
	)
	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		counter int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				_, h, err := l.Acquire(context.Background())
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				if n := inside.Add(1); n != 1 {
					t.Errorf("%d holders inside", n)
				}
				counter++
				inside.Add(-1)
				if err := h.Release(); err != nil {
					t.Errorf("Release: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if counter != workers*rounds {
		t.Fatalf("counter = %d, want %d", counter, workers*rounds)
	}
}

func TestAsyncLockNestedAcrossGoroutines(t *testing.T) {
	skipRace(t)
	l := chanrt.NewAsyncLock()
	outer, h := mustAcquire(t, context.Background(), l)
	errs := make(chan error, 1)
	go func() {
		_, nested, err := l.Acquire(outer)
		if err == nil {
			err = nested.Release()
		}
		errs <- err
	}()
	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("nested on other goroutine: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("nested acquisition on another goroutine blocked")
	}
	mustRelease(t, h)
}

func TestAsyncLockDoubleRelease(t *testing.T) {
	l := chanrt.NewAsyncLock()
	_, h := mustAcquire(t, context.Background(), l)
	mustRelease(t, h)
	if err := h.Release(); !errors.Is(err, chanrt.ErrInvalidOperation) {
		t.Fatalf("second Release = %v, want ErrInvalidOperation", err)
	}
	_, h2 := mustAcquire(t, context.Background(), l)
	mustRelease(t, h2)
}

func TestAsyncLockStaleContextAfterRelease(t *testing.T) {
	l := chanrt.NewAsyncLock()
	bg := context.Background()
	stale, h := mustAcquire(t, bg, l)
	mustRelease(t, h)

	// Another chain now holds the lock; the kept context must wait on it.
	_, other := mustAcquire(t, bg, l)
	if _, _, err := l.TryAcquire(stale); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("TryAcquire with released context = %v, want ErrWouldBlock", err)
	}
	mustRelease(t, other)

	_, again, err := l.TryAcquire(stale)
	if err != nil {
		t.Fatalf("TryAcquire with released context after unlock: %v", err)
	}
	if _, _, err := l.TryAcquire(bg); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("unrelated TryAcquire = %v, want ErrWouldBlock", err)
	}
	mustRelease(t, again)
}

func TestAsyncLockStaleNestedContext(t *testing.T) {
	l := chanrt.NewAsyncLock()
	bg := context.Background()
	outer, h := mustAcquire(t, bg, l)
	inner, nested := mustAcquire(t, outer, l)
	mustRelease(t, nested)

	// inner falls back to the outer acquisition, which is still held.
	_, again, err := l.TryAcquire(inner)
	if err != nil {
		t.Fatalf("TryAcquire with released nested context: %v", err)
	}
	if _, _, err := l.TryAcquire(outer); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("sibling TryAcquire = %v, want ErrWouldBlock", err)
	}
	mustRelease(t, again)
	mustRelease(t, h)

	_, last, err := l.TryAcquire(bg)
	if err != nil {
		t.Fatalf("TryAcquire after chain released: %v", err)
	}
	mustRelease(t, last)
}

func TestAsyncLockCancelWhileWaiting(t *testing.T) {
	l := chanrt.NewAsyncLock()
	_, h := mustAcquire(t, context.Background(), l)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire with expiring ctx = %v, want DeadlineExceeded", err)
	}
	mustRelease(t, h)
	_, h2 := mustAcquire(t, context.Background(), l)
	mustRelease(t, h2)
}

func TestAsyncLockNilContext(t *testing.T) {
	l := chanrt.NewAsyncLock()
	var ctx context.Context
	if _, _, err := l.Acquire(ctx); !errors.Is(err, chanrt.ErrArgumentNull) {
		t.Fatalf("Acquire(nil) = %v, want ErrArgumentNull", err)
	}
}

func TestAsyncLockClose(t *testing.T) {
	l := chanrt.NewAsyncLock()
	_, h := mustAcquire(t, context.Background(), l)

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Close(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Close while held = %v, want DeadlineExceeded", err)
	}
	if _, _, err := l.Acquire(context.Background()); !errors.Is(err, chanrt.ErrObjectDisposed) {
		t.Fatalf("Acquire after Close = %v, want ErrObjectDisposed", err)
	}
	if _, _, err := l.TryAcquire(context.Background()); !errors.Is(err, chanrt.ErrObjectDisposed) {
		t.Fatalf("TryAcquire after Close = %v, want ErrObjectDisposed", err)
	}
	mustRelease(t, h)
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestAsyncLockCloseRetryWaitsForHolder(t *testing.T) {
	skipRace(t)
	l := chanrt.NewAsyncLock()
	_, h := mustAcquire(t, context.Background(), l)

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Close(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Close while held = %v, want DeadlineExceeded", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- l.Close(context.Background()) }()
	select {
	case err := <-closed:
		t.Fatalf("retried Close returned %v while held", err)
	case <-time.After(20 * time.Millisecond):
	}
	mustRelease(t, h)
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("retried Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retried Close did not return after release")
	}
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close after drain: %v", err)
	}
}

func TestAsyncLockCloseNilContext(t *testing.T) {
	l := chanrt.NewAsyncLock()
	var ctx context.Context
	if err := l.Close(ctx); !errors.Is(err, chanrt.ErrArgumentNull) {
		t.Fatalf("Close(nil) = %v, want ErrArgumentNull", err)
	}
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestAsyncLockCloseWaitsForHolder(t *testing.T) {
	skipRace(t)
	l := chanrt.NewAsyncLock()
	_, h := mustAcquire(t, context.Background(), l)
	closed := make(chan error, 1)
	go func() { closed <- l.Close(context.Background()) }()
	select {
	case err := <-closed:
		t.Fatalf("Close returned %v while held", err)
	case <-time.After(20 * time.Millisecond):
	}
	mustRelease(t, h)
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after release")
	}
}

func BenchmarkAsyncLockAcquireRelease(b *testing.B) {
	l := chanrt.NewAsyncLock()
	ctx := context.Background()
	b.ReportAllocs()
	for b.Loop() {
		_, h, err := l.Acquire(ctx)
		if err != nil {
			b.Fatal(err)
		}
		_ = h.Release()
	}
}
