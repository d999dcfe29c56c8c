// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"bytes"
	"math"

	"github.com/gammazero/deque"
)

// BufferedOutputStream accumulates written bytes in chunks borrowed from a
// BufferManager, refusing writes that would exceed its quota.
//
// Chunks never move once written; each new chunk is at least twice the
// size of the previous one. The contents are extracted once, by ToArray or
// ToMemoryStream, after which writes are rejected until Clear and
// Reinitialize. A BufferedOutputStream is not safe for concurrent use.
type BufferedOutputStream struct {
	manager             BufferManager
	chunks              deque.Deque[[]byte]
	current             []byte
	currentSize         int
	totalSize           int
	maxSize             int
	maxSizeQuota        int
	callerReturnsBuffer bool
	bufferReturned      bool
	initialized         bool
}

// NewBufferedOutputStream returns a stream whose first chunk holds
// initialSize bytes and whose total size is capped at maxSize.
func NewBufferedOutputStream(initialSize, maxSize int, manager BufferManager) (*BufferedOutputStream, error) {
	b := &BufferedOutputStream{}
	if err := b.Reinitialize(initialSize, maxSize, maxSize, manager); err != nil {
		return nil, err
	}
	return b, nil
}

// NewQuotaBufferedOutputStream returns a stream capped at maxSize that
// allocates its chunks from the garbage collector.
func NewQuotaBufferedOutputStream(maxSize int) (*BufferedOutputStream, error) {
	return NewBufferedOutputStream(0, maxSize, gcBufferManager{})
}

// Reinitialize arms a new or cleared stream. Writes are capped at
// effectiveMaxSize; rejections report maxSizeQuota, which may be larger
// when a caller reserves part of the quota for itself.
func (b *BufferedOutputStream) Reinitialize(initialSize, maxSizeQuota, effectiveMaxSize int, manager BufferManager) error {
	if b.initialized {
		return ErrInvalidOperation
	}
	if manager == nil {
		return argNull("manager")
	}
	if initialSize < 0 {
		return argOutOfRange("initialSize", initialSize)
	}
	if maxSizeQuota < 0 {
		return argOutOfRange("maxSizeQuota", maxSizeQuota)
	}
	if effectiveMaxSize < 0 {
		return argOutOfRange("effectiveMaxSize", effectiveMaxSize)
	}
	b.manager = manager
	b.maxSizeQuota = maxSizeQuota
	b.maxSize = effectiveMaxSize
	b.current = manager.TakeBuffer(initialSize)
	b.currentSize = 0
	b.totalSize = 0
	b.chunks.Clear()
	b.chunks.PushBack(b.current)
	b.callerReturnsBuffer = false
	b.bufferReturned = false
	b.initialized = true
	return nil
}

// Len returns the number of bytes written.
func (b *BufferedOutputStream) Len() int {
	return b.totalSize
}

// Write implements io.Writer. A write that would exceed the quota is
// rejected whole with a *QuotaExceededError.
func (b *BufferedOutputStream) Write(p []byte) (int, error) {
	if err := b.write(p, len(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteRange writes buffer[offset:offset+size].
func (b *BufferedOutputStream) WriteRange(buffer []byte, offset, size int) error {
	if size < 0 {
		return argOutOfRange("size", size)
	}
	if offset < 0 || offset > len(buffer) {
		return argOutOfRange("offset", offset)
	}
	if size > len(buffer)-offset {
		return argOutOfRange("size", size)
	}
	return b.write(buffer[offset:offset+size], size)
}

// WriteByte implements io.ByteWriter.
func (b *BufferedOutputStream) WriteByte(c byte) error {
	if err := b.check(1); err != nil {
		return err
	}
	if b.currentSize == len(b.current) {
		b.allocNextChunk(1)
	}
	b.current[b.currentSize] = c
	b.currentSize++
	b.totalSize++
	return nil
}

// Skip appends size zero bytes, for a field the caller fills in later
// through the extracted buffer.
func (b *BufferedOutputStream) Skip(size int) error {
	return b.write(nil, size)
}

// check validates a write of size bytes before anything is retained.
func (b *BufferedOutputStream) check(size int) error {
	if !b.initialized || b.bufferReturned {
		return ErrInvalidOperation
	}
	if size < 0 {
		return argOutOfRange("size", size)
	}
	if math.MaxInt32-size < b.totalSize || b.totalSize+size > b.maxSize {
		return &QuotaExceededError{Quota: b.maxSizeQuota}
	}
	return nil
}

// write appends size bytes from p, or zeros when p is nil.
func (b *BufferedOutputStream) write(p []byte, size int) error {
	if err := b.check(size); err != nil {
		return err
	}
	remaining := len(b.current) - b.currentSize
	if size > remaining {
		if remaining > 0 {
			fill(b.current[b.currentSize:], p)
			if p != nil {
				p = p[remaining:]
			}
			b.currentSize = len(b.current)
			b.totalSize += remaining
			size -= remaining
		}
		b.allocNextChunk(size)
	}
	fill(b.current[b.currentSize:b.currentSize+size], p)
	b.currentSize += size
	b.totalSize += size
	return nil
}

// fill copies p into dst, or zeroes dst when p is nil.
func fill(dst, p []byte) {
	if p == nil {
		clear(dst)
		return
	}
	copy(dst, p)
}

func (b *BufferedOutputStream) allocNextChunk(minimumChunkSize int) {
	var size int
	if len(b.current) > math.MaxInt32/2 {
		size = math.MaxInt32
	} else {
		size = len(b.current) * 2
	}
	size = max(size, minimumChunkSize)
	b.current = b.manager.TakeBuffer(size)
	b.currentSize = 0
	b.chunks.PushBack(b.current)
}

// ToArray returns the written bytes. With a single chunk the chunk itself
// is returned and the stream no longer returns it to the manager;
// otherwise the chunks are copied into one buffer taken from the manager.
// A second call returns ErrInvalidOperation.
func (b *BufferedOutputStream) ToArray() ([]byte, error) {
	if !b.initialized || b.bufferReturned {
		return nil, ErrInvalidOperation
	}
	var out []byte
	if b.chunks.Len() == 1 {
		out = b.current
		b.callerReturnsBuffer = true
	} else {
		out = b.manager.TakeBuffer(b.totalSize)
		n := 0
		for i := range b.chunks.Len() - 1 {
			n += copy(out[n:], b.chunks.At(i))
		}
		copy(out[n:], b.current[:b.currentSize])
	}
	b.bufferReturned = true
	return out[:b.totalSize], nil
}

// ToMemoryStream is ToArray wrapped in a reader.
func (b *BufferedOutputStream) ToMemoryStream() (*bytes.Reader, error) {
	out, err := b.ToArray()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(out), nil
}

// Clear returns the chunks to the manager, unless one was handed out by
// ToArray, and leaves the stream uninitialized.
func (b *BufferedOutputStream) Clear() {
	if !b.callerReturnsBuffer {
		for i := range b.chunks.Len() {
			b.manager.ReturnBuffer(b.chunks.At(i))
		}
	}
	b.chunks.Clear()
	b.current = nil
	b.currentSize = 0
	b.totalSize = 0
	b.callerReturnsBuffer = false
	b.bufferReturned = false
	b.initialized = false
}

// Close implements io.Closer by calling Clear.
func (b *BufferedOutputStream) Close() error {
	b.Clear()
	return nil
}
