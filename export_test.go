// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

// Growths returns how many times s replaced its queue with a larger one.
func Growths(s *IOThreadScheduler) uint32 {
	return s.growths.LoadAcquire()
}

// SemaphorePoolRejected returns how many semaphores the process-wide pool
// refused because they were still held.
func SemaphorePoolRejected() uint64 {
	return semaphores.rejected.LoadAcquire()
}
