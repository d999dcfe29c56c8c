// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"code.hybscloud.com/kont"
)

// Reify converts a Cont-world lock computation to Expr-world, for Step,
// Advance, ExecExpr and Go.
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Reflect converts an Expr-world lock computation to Cont-world, for Exec
// and composition with WithLock.
func Reflect[A any](m kont.Expr[A]) kont.Eff[A] {
	return kont.Reflect(m)
}
