// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
)

// objectPool is a bounded lock-free free list. get allocates when the list
// is empty; put drops objects that fail valid or do not fit.
type objectPool[T any] struct {
	free     lfq.Queue[T]
	alloc    func() T
	valid    func(T) bool
	rejected atomix.Uint64
}

func newObjectPool[T any](capacity int, alloc func() T, valid func(T) bool) *objectPool[T] {
	return &objectPool[T]{
		free:  lfq.BuildMPMC[T](lfq.New(capacity).Compact()),
		alloc: alloc,
		valid: valid,
	}
}

func (p *objectPool[T]) get() T {
	if v, err := p.free.Dequeue(); err == nil {
		return v
	}
	return p.alloc()
}

// put reports whether v was kept.
func (p *objectPool[T]) put(v T) bool {
	if p.valid != nil && !p.valid(v) {
		p.rejected.Add(1)
		return false
	}
	return p.free.Enqueue(&v) == nil
}

// drain discards every idle object.
func (p *objectPool[T]) drain() {
	for {
		if _, err := p.free.Dequeue(); err != nil {
			return
		}
	}
}
