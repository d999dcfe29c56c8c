// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"code.hybscloud.com/kont"
)

// Step runs protocol up to its first lock effect. A nil suspension means
// the computation finished and the result is final.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance tries the pending lock effect of susp on c without blocking and,
// if it goes through, resumes the computation to its next effect.
//
// While another chain or a nested holder owns the lock the error is
// iox.ErrWouldBlock and susp is returned untouched for a later retry.
func Advance[R any](c *LockChain, susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	lop, ok := susp.Op().(lockDispatcher)
	if !ok {
		panic("chanrt: unhandled effect in Advance")
	}
	v, err := lop.DispatchLock(c)
	if err != nil {
		var zero R
		return zero, susp, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}
