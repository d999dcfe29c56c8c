// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Go runs an Expr-world lock computation on s and returns immediately.
//
// Each run steps the computation on a scheduler worker for as long as its
// operations make progress. When one would block, the computation parks on
// the low-priority path, waits with adaptive backoff (iox.Backoff), and is
// queued again, so a held lock never occupies a dispatch worker.
// done, if not nil, receives the result on the worker that completes it.
func Go[R any](s *IOThreadScheduler, c *LockChain, protocol kont.Expr[R], done func(R)) error {
	if s == nil {
		return argNull("scheduler")
	}
	if c == nil {
		return argNull("chain")
	}
	d := &exprDriver[R]{s: s, chain: c, protocol: protocol, done: done}
	d.advanceFn = d.advance
	d.retryFn = d.retry
	return s.ScheduleCallback(d.advanceFn, nil)
}

// exprDriver carries one computation between scheduler callbacks.
// Only one callback for a driver is ever outstanding.
type exprDriver[R any] struct {
	s         *IOThreadScheduler
	chain     *LockChain
	protocol  kont.Expr[R]
	started   bool
	susp      *kont.Suspension[R]
	done      func(R)
	bo        iox.Backoff
	advanceFn func(any)
	retryFn   func(any)
}

func (d *exprDriver[R]) advance(any) {
	var result R
	susp := d.susp
	if !d.started {
		d.started = true
		result, susp = Step[R](d.protocol)
		d.protocol = kont.Expr[R]{}
	}
	for susp != nil {
		var err error
		result, susp, err = Advance(d.chain, susp)
		if err != nil {
			d.susp = susp
			d.park()
			return
		}
		d.bo.Reset()
	}
	d.susp = nil
	if d.done != nil {
		d.done(result)
	}
}

func (d *exprDriver[R]) park() {
	if err := d.s.ScheduleCallbackLowPriority(d.retryFn, nil); err != nil {
		d.abandon(err)
	}
}

func (d *exprDriver[R]) retry(any) {
	d.bo.Wait()
	if err := d.s.ScheduleCallback(d.advanceFn, nil); err != nil {
		d.abandon(err)
	}
}

func (d *exprDriver[R]) abandon(err error) {
	d.s.log().Warning().
		Err(err).
		Uint64("chain", uint64(d.chain.Serial())).
		Log("lock computation abandoned")
}
