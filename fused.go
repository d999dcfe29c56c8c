// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"

	"code.hybscloud.com/kont"
)

// AcquireBind acquires l and passes the outcome to f.
// Fuses Perform(Acquire{Lock: l}) + Bind.
func AcquireBind[B any](l *AsyncLock, f func(Acquired) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Acquire{Lock: l}), f)
}

// ReleaseThen releases h and then continues with next.
// Fuses Perform(Release{Handle: h}) + Then.
func ReleaseThen[B any](h *LockHandle, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Release{Handle: h}), next)
}

// AmbientBind passes the chain's current context to f.
// Fuses Perform(Ambient{}) + Bind.
func AmbientBind[B any](f func(context.Context) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Ambient{}), f)
}

// WithLock runs body while holding l and releases l afterwards.
// Returns Left when l cannot be acquired, Right with body's result
// otherwise.
func WithLock[A any](l *AsyncLock, body kont.Eff[A]) kont.Eff[kont.Either[error, A]] {
	return AcquireBind(l, func(r Acquired) kont.Eff[kont.Either[error, A]] {
		if r.Err != nil {
			return kont.Pure(kont.Left[error, A](r.Err))
		}
		return kont.Bind(body, func(a A) kont.Eff[kont.Either[error, A]] {
			return ReleaseThen(r.Handle, kont.Pure(kont.Right[error, A](a)))
		})
	})
}
