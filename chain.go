// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Serial is a monotonically increasing lock chain identifier.
// Each call to NewLockChain assigns the next serial value.
type Serial = uint32

// chainCounter is the global monotonic counter for chain serials.
var chainCounter atomix.Uint32

// LockChain is the mutable view of one logical call chain for lock
// effects. Acquire advances its context to the new acquisition; Release
// rolls it back to the context the acquisition started from.
//
// A LockChain is driven by one computation at a time.
type LockChain struct {
	ctx    context.Context
	serial Serial
}

// NewLockChain starts a chain rooted at ctx.
func NewLockChain(ctx context.Context) *LockChain {
	if ctx == nil {
		ctx = context.Background()
	}
	return &LockChain{ctx: ctx, serial: chainCounter.Add(1)}
}

// Context returns the chain's current context, carrying every acquisition
// not yet released.
func (c *LockChain) Context() context.Context {
	return c.ctx
}

// Serial returns the serial number assigned to this chain.
func (c *LockChain) Serial() Serial {
	return c.serial
}

// lockDispatcher is the structural interface for lock operations.
// DispatchLock is non-blocking: it returns iox.ErrWouldBlock while the
// lock is held by another chain or a nested holder.
type lockDispatcher interface {
	DispatchLock(c *LockChain) (kont.Resumed, error)
}

// lockHandler backs Exec and ExecExpr. It retries each lock effect until
// it stops reporting iox.ErrWouldBlock.
type lockHandler[R any] struct {
	chain *LockChain
}

func (h lockHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	lop, ok := op.(lockDispatcher)
	if !ok {
		panic("chanrt: unhandled effect in lockHandler")
	}
	return dispatchWait(h.chain, lop), true
}

// dispatchWait blocks until DispatchLock succeeds, backing off on
// iox.ErrWouldBlock with iox.Backoff.
func dispatchWait(c *LockChain, lop lockDispatcher) kont.Resumed {
	var bo iox.Backoff
	for {
		v, err := lop.DispatchLock(c)
		if err == nil {
			return v
		}
		bo.Wait()
	}
}
