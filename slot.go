// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import "code.hybscloud.com/atomix"

// slot is one cell of a scheduler queue.
// callback and state are published by the gate: written before the
// fill-complete bit is added, read after a claimer observes it.
type slot struct {
	gate     atomix.Uint32
	callback func(any)
	state    any
}

// tryEnqueue fills the slot. wrapped reports that another fill was already
// in progress, meaning the queue lapped itself and must grow. queued is
// false if a claimer arrived before the fill completed; the item was then
// withdrawn and must be scheduled again.
func (s *slot) tryEnqueue(callback func(any), state any) (queued, wrapped bool) {
	gate := s.gate.Add(1)

	if gate&loCountMask != 1 {
		if gate&loHiBit != 0 && isComplete(gate) {
			s.gate.CompareAndSwapAcqRel(gate, 0)
		}
		return false, true
	}

	s.state = state
	s.callback = callback

	gate = s.gate.Add(loHiBit)
	if gate&hiCountMask == 0 {
		return true, false
	}

	// A claimer came and went empty-handed; undo the fill.
	s.state = nil
	s.callback = nil

	if gate>>hiShift != gate&loCountMask || !s.gate.CompareAndSwapAcqRel(gate, 0) {
		gate = s.gate.Add(hiHiBit)
		if isComplete(gate) {
			s.gate.CompareAndSwapAcqRel(gate, 0)
		}
	}
	return false, false
}

// dequeue claims the slot. It returns a nil callback when the fill has not
// completed or another claimer won.
func (s *slot) dequeue() (callback func(any), state any) {
	gate := s.gate.Add(hiOne)

	if gate&loHiBit == 0 {
		return nil, nil
	}

	if gate&hiCountMask == hiOne {
		callback, state = s.callback, s.state
		s.callback, s.state = nil, nil

		if gate&loCountMask != 1 || !s.gate.CompareAndSwapAcqRel(gate, 0) {
			gate = s.gate.Add(hiHiBit)
			if isComplete(gate) {
				s.gate.CompareAndSwapAcqRel(gate, 0)
			}
		}
		return callback, state
	}

	if isComplete(gate) {
		s.gate.CompareAndSwapAcqRel(gate, 0)
	}
	return nil, nil
}
