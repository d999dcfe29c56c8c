// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"math/bits"
)

// BufferManager lends byte buffers. TakeBuffer returns a slice whose
// length is at least size; ReturnBuffer hands it back for reuse.
type BufferManager interface {
	TakeBuffer(size int) []byte
	ReturnBuffer(buf []byte)
	Clear()
}

const (
	minBufferClassShift = 7 // 128 bytes
	maxBuffersPerClass  = 4096
)

// NewBufferManager returns a garbage-collected manager when
// maxBufferPoolSize is 0, and a pooled one otherwise. Pooled buffers are
// kept in power-of-two size classes up to maxBufferSize, sharing
// maxBufferPoolSize bytes between the classes.
func NewBufferManager(maxBufferPoolSize int64, maxBufferSize int) (BufferManager, error) {
	if maxBufferPoolSize < 0 {
		return nil, argOutOfRange("maxBufferPoolSize", maxBufferPoolSize)
	}
	if maxBufferSize < 0 {
		return nil, argOutOfRange("maxBufferSize", maxBufferSize)
	}
	if maxBufferPoolSize == 0 {
		return gcBufferManager{}, nil
	}
	return newPooledBufferManager(maxBufferPoolSize, maxBufferSize), nil
}

// gcBufferManager allocates every buffer and lets the collector reclaim it.
type gcBufferManager struct{}

func (gcBufferManager) TakeBuffer(size int) []byte { return make([]byte, size) }
func (gcBufferManager) ReturnBuffer([]byte)        {}
func (gcBufferManager) Clear()                     {}

type pooledBufferManager struct {
	classes       []*objectPool[[]byte]
	maxBufferSize int
}

func newPooledBufferManager(maxBufferPoolSize int64, maxBufferSize int) *pooledBufferManager {
	n := 1
	if maxBufferSize > 1<<minBufferClassShift {
		n = bits.Len(uint(maxBufferSize-1)) - minBufferClassShift + 1
	}
	m := &pooledBufferManager{
		classes:       make([]*objectPool[[]byte], n),
		maxBufferSize: maxBufferSize,
	}
	perClass := maxBufferPoolSize / int64(n)
	for i := range m.classes {
		size := 1 << (minBufferClassShift + i)
		count := min(max(perClass/int64(size), 2), maxBuffersPerClass)
		m.classes[i] = newObjectPool(int(count),
			func() []byte { return make([]byte, size) },
			func(b []byte) bool { return len(b) == size },
		)
	}
	return m
}

// class returns the index of the smallest class holding size bytes, or -1.
func (m *pooledBufferManager) class(size int) int {
	if size > m.maxBufferSize {
		return -1
	}
	i := 0
	if size > 1<<minBufferClassShift {
		i = bits.Len(uint(size-1)) - minBufferClassShift
	}
	if i >= len(m.classes) {
		return -1
	}
	return i
}

func (m *pooledBufferManager) TakeBuffer(size int) []byte {
	i := m.class(size)
	if i < 0 {
		return make([]byte, size)
	}
	return m.classes[i].get()
}

// ReturnBuffer keeps buf only if its capacity is exactly one of the class
// sizes.
func (m *pooledBufferManager) ReturnBuffer(buf []byte) {
	n := cap(buf)
	if n < 1<<minBufferClassShift || n&(n-1) != 0 {
		return
	}
	i := bits.Len(uint(n)) - 1 - minBufferClassShift
	if i >= len(m.classes) {
		return
	}
	m.classes[i].put(buf[:n])
}

func (m *pooledBufferManager) Clear() {
	for _, p := range m.classes {
		p.drain()
	}
}
