// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package chanrt_test

import "testing"

// skipRace skips tests that hand work items through scheduler slots or
// objects through lfq-backed pools across goroutines.
// The race detector tracks per-variable happens-before and cannot
// see the cross-variable memory ordering (payload written before the
// gate or index is published, read after it is observed), producing
// false positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: scheduler slots use cross-variable memory ordering")
}
