// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// semaphorePoolCapacity bounds the idle semaphores kept process-wide.
const semaphorePoolCapacity = 1024

// binarySemaphore is a semaphore of weight one.
type binarySemaphore struct {
	w *semaphore.Weighted
}

func newBinarySemaphore() *binarySemaphore {
	return &binarySemaphore{w: semaphore.NewWeighted(1)}
}

func (s *binarySemaphore) acquire(ctx context.Context) error {
	return s.w.Acquire(ctx, 1)
}

func (s *binarySemaphore) tryAcquire() bool {
	return s.w.TryAcquire(1)
}

func (s *binarySemaphore) release() {
	s.w.Release(1)
}

// available reports whether the count is 1, without changing it.
func (s *binarySemaphore) available() bool {
	if !s.w.TryAcquire(1) {
		return false
	}
	s.w.Release(1)
	return true
}

// semaphores is the process-wide pool backing every AsyncLock.
// A semaphore is only accepted back with a count of 1.
var semaphores = newObjectPool(semaphorePoolCapacity, newBinarySemaphore, (*binarySemaphore).available)
