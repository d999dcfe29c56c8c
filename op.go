// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"
	"errors"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Acquired is the resumption value of Acquire. Err is set, and Handle nil,
// when the lock cannot be acquired at all (for example after Close).
type Acquired struct {
	Handle *LockHandle
	Err    error
}

// Acquire is the effect operation for acquiring Lock on the chain.
// Perform(Acquire{Lock: l}) resumes with an Acquired.
type Acquire struct {
	kont.Phantom[Acquired]
	Lock *AsyncLock
}

// DispatchLock handles Acquire on the chain.
// Non-blocking: returns iox.ErrWouldBlock while the lock is held.
// Other failures resume the computation with Acquired.Err.
func (a Acquire) DispatchLock(c *LockChain) (kont.Resumed, error) {
	if a.Lock == nil {
		return Acquired{Err: argNull("lock")}, nil
	}
	ctx, h, err := a.Lock.TryAcquire(c.ctx)
	if err != nil {
		if errors.Is(err, iox.ErrWouldBlock) {
			return nil, err
		}
		return Acquired{Err: err}, nil
	}
	c.ctx = ctx
	return Acquired{Handle: h}, nil
}

// Released is the resumption value of Release. Err is
// ErrInvalidOperation when the handle was already released.
type Released struct {
	Err error
}

// Release is the effect operation for releasing Handle.
// Perform(Release{Handle: h}) resumes with a Released.
type Release struct {
	kont.Phantom[Released]
	Handle *LockHandle
}

// DispatchLock handles Release on the chain.
// Non-blocking: returns iox.ErrWouldBlock while a nested holder has not
// released yet. On success the chain's context rolls back to where the
// acquisition started.
func (r Release) DispatchLock(c *LockChain) (kont.Resumed, error) {
	if r.Handle == nil {
		return Released{Err: argNull("handle")}, nil
	}
	err := r.Handle.tryRelease()
	if errors.Is(err, iox.ErrWouldBlock) {
		return nil, err
	}
	if err != nil {
		return Released{Err: err}, nil
	}
	c.ctx = r.Handle.parent
	return releasedOK, nil
}

// releasedOK is the pre-boxed successful Release resumption.
var releasedOK kont.Resumed = Released{}

// Ambient is the effect operation for reading the chain's context.
// Perform(Ambient{}) resumes with the context carrying every live
// acquisition, for handing to blocking APIs inside a critical section.
type Ambient struct {
	kont.Phantom[context.Context]
}

// DispatchLock handles Ambient on the chain. Never blocks.
func (Ambient) DispatchLock(c *LockChain) (kont.Resumed, error) {
	return c.ctx, nil
}
