// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"code.hybscloud.com/kont"
)

// Loop runs step repeatedly (Cont-world), holding l for each iteration
// and releasing it in between so other chains can interleave. step is
// called only after l is held.
// step returns Left(nextState) to continue or Right(result) to finish.
// The loop stops with Left(err) if l cannot be acquired.
func Loop[S, A any](l *AsyncLock, initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[kont.Either[error, A]] {
	return AcquireBind(l, func(r Acquired) kont.Eff[kont.Either[error, A]] {
		if r.Err != nil {
			return kont.Pure(kont.Left[error, A](r.Err))
		}
		return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[kont.Either[error, A]] {
			if next, ok := e.GetLeft(); ok {
				return ReleaseThen(r.Handle, Loop(l, next, step))
			}
			a, _ := e.GetRight()
			return ReleaseThen(r.Handle, kont.Pure(kont.Right[error, A](a)))
		})
	})
}
