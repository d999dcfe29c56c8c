// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"code.hybscloud.com/kont"
)

// Exec runs a Cont-world lock computation on c to completion. A contended
// lock is waited out on the calling goroutine with iox.Backoff.
func Exec[R any](c *LockChain, protocol kont.Eff[R]) R {
	h := lockHandler[R]{chain: c}
	return kont.Handle(protocol, h)
}

// ExecExpr is Exec for Expr-world computations.
func ExecExpr[R any](c *LockChain, protocol kont.Expr[R]) R {
	h := lockHandler[R]{chain: c}
	return kont.HandleExpr(protocol, h)
}
