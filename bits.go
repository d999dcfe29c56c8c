// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

// Packed 16/16 layout shared by the queue head/tail word and slot gates.
// Head/tail: high half is the head (enqueue) counter, low half the tail
// (dispatch) counter.
// Gate: low 15 bits count fill entrants and bit 15 marks fill complete;
// bits 16..30 count claim entrants and bit 31 marks claim complete.
const (
	hiShift     = 16
	hiOne       = uint32(1) << hiShift
	loHiBit     = uint32(1) << 15
	hiHiBit     = loHiBit << hiShift
	loCountMask = loHiBit - 1
	hiCountMask = loCountMask << hiShift
	loMask      = loCountMask | loHiBit
	hiMask      = loMask << hiShift
)

// idleHeadTail is the initial head/tail word: tail two past head.
const idleHeadTail = uint32(0xFFFE) << hiShift

// count returns the number of queued items encoded in a head/tail word,
// or -1 when the queue is idle.
func count(ht uint32) int {
	return int(((ht>>hiShift)-ht+2)&loMask) - 1
}

// countNoIdle is count with the idle state reading as 0.
func countNoIdle(ht uint32) int {
	return max(count(ht), 0)
}

// incrementLo advances the low half without carrying into the high half.
func incrementLo(ht uint32) uint32 {
	return ((ht + 1) & loMask) | (ht & hiMask)
}

// isComplete reports whether both halves of a gate carry the same count
// and completion bit.
func isComplete(gate uint32) bool {
	return gate&hiMask == gate<<hiShift
}
