// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// lockKey keys a lock's innermost acquisition in a context.
type lockKey struct {
	lock *AsyncLock
}

// AsyncLock is a mutual-exclusion lock whose ownership follows a logical
// call chain carried in [context.Context].
//
// Each acquisition waits on the chain's current semaphore and installs a
// fresh one in the returned context. Code running with that context (on any
// goroutine, after any suspension) acquires against the fresh semaphore and
// therefore proceeds while the outer holder is still inside its critical
// section. Chains that do not descend from the holder's context wait on the
// semaphore the holder took.
type AsyncLock struct {
	top      *binarySemaphore
	disposed atomix.Uint32
	drained  atomix.Uint32
	returned atomix.Uint32
	closers  atomix.Uint32
}

// NewAsyncLock returns an unlocked lock.
func NewAsyncLock() *AsyncLock {
	return &AsyncLock{top: semaphores.get()}
}

// LockHandle is one acquisition of an AsyncLock. It must be released exactly
// once.
type LockHandle struct {
	parent   context.Context
	ctx      context.Context
	current  *binarySemaphore
	next     *binarySemaphore
	released atomix.Uint32
}

// Acquire blocks until the lock is available to ctx's chain or ctx is done.
// The returned context carries the acquisition and must be used for nested
// work in the same chain.
func (l *AsyncLock) Acquire(ctx context.Context) (context.Context, *LockHandle, error) {
	h, err := l.enter(ctx)
	if err != nil {
		return ctx, nil, err
	}
	if err := h.current.acquire(ctx); err != nil {
		semaphores.put(h.next)
		return ctx, nil, err
	}
	return h.ctx, h, nil
}

// TryAcquire is the non-blocking form of Acquire. It returns
// [iox.ErrWouldBlock] when the chain's current semaphore is held.
func (l *AsyncLock) TryAcquire(ctx context.Context) (context.Context, *LockHandle, error) {
	h, err := l.enter(ctx)
	if err != nil {
		return ctx, nil, err
	}
	if !h.current.tryAcquire() {
		semaphores.put(h.next)
		return ctx, nil, iox.ErrWouldBlock
	}
	return h.ctx, h, nil
}

func (l *AsyncLock) enter(ctx context.Context) (*LockHandle, error) {
	if ctx == nil {
		return nil, argNull("ctx")
	}
	if l.disposed.LoadAcquire() != 0 {
		return nil, ErrObjectDisposed
	}
	h := &LockHandle{
		parent:  ctx,
		current: l.current(ctx),
		next:    semaphores.get(),
	}
	h.ctx = context.WithValue(ctx, lockKey{l}, h)
	return h, nil
}

// current returns the semaphore an acquisition from ctx waits on. Released
// acquisitions are skipped, so a context kept past Release falls back to
// the semaphore that was current before that acquisition.
func (l *AsyncLock) current(ctx context.Context) *binarySemaphore {
	h, _ := ctx.Value(lockKey{l}).(*LockHandle)
	for h != nil {
		if h.released.LoadAcquire() == 0 {
			return h.next
		}
		h, _ = h.parent.Value(lockKey{l}).(*LockHandle)
	}
	return l.top
}

// Close marks the lock disposed and waits, bounded by ctx, for the
// outermost holder to release. Later acquisitions fail with
// [ErrObjectDisposed]. If ctx ends first, Close returns its error and may
// be called again; it returns nil once some call has seen the lock free.
func (l *AsyncLock) Close(ctx context.Context) error {
	if ctx == nil {
		return argNull("ctx")
	}
	l.disposed.StoreRelease(1)
	l.closers.Add(1)
	var err error
	if l.drained.LoadAcquire() == 0 {
		if err = l.top.acquire(ctx); err == nil {
			if l.drained.CompareAndSwapAcqRel(0, 1) {
				defaultLogger().Debug().Log("async lock disposed")
			}
			l.top.release()
		}
	}
	// The top semaphore is pooled by the last closer out after draining.
	if l.closers.Add(^uint32(0)) == 0 && l.drained.LoadAcquire() != 0 && l.returned.CompareAndSwapAcqRel(0, 1) {
		semaphores.put(l.top)
	}
	return err
}

// Context returns the context carrying this acquisition.
func (h *LockHandle) Context() context.Context {
	return h.ctx
}

// Release waits for nested holders in the chain, then hands the lock to
// the next waiter on the semaphore this acquisition took. A second call
// returns [ErrInvalidOperation].
func (h *LockHandle) Release() error {
	if !h.released.CompareAndSwapAcqRel(0, 1) {
		return ErrInvalidOperation
	}
	_ = h.next.acquire(context.Background())
	h.finish()
	return nil
}

// tryRelease is the non-blocking form of Release. It returns
// iox.ErrWouldBlock while a nested holder still owns the next semaphore.
func (h *LockHandle) tryRelease() error {
	if h.released.LoadAcquire() != 0 {
		return ErrInvalidOperation
	}
	if !h.next.tryAcquire() {
		return iox.ErrWouldBlock
	}
	if !h.released.CompareAndSwapAcqRel(0, 1) {
		h.next.release()
		return ErrInvalidOperation
	}
	h.finish()
	return nil
}

func (h *LockHandle) finish() {
	h.next.release()
	h.current.release()
	if !semaphores.put(h.next) {
		defaultLogger().Debug().Log("semaphore not returned to pool")
	}
}
