// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package chanrt

import (
	"encoding/binary"
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"golang.org/x/sys/unix"
)

// pendingCapacity bounds the closures waiting for a native worker.
// Overflow runs on a fresh goroutine.
const pendingCapacity = 256

// eventfdPoster wakes workers blocked on a semaphore-mode eventfd.
// Each Post adds one closure to pending and one token to the eventfd;
// each worker read consumes exactly one token and therefore owns exactly
// one closure.
type eventfdPoster struct {
	mu      sync.RWMutex
	closed  bool
	fd      int
	workers int
	pending lfq.Queue[func()]
	wg      sync.WaitGroup
}

// NewNativePoster returns a Poster woken through an eventfd in
// EFD_SEMAPHORE mode, serving closures from a lock-free MPMC queue.
func NewNativePoster(workers int) (Poster, error) {
	if workers < 1 {
		workers = 1
	}
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_SEMAPHORE)
	if err != nil {
		return nil, err
	}
	p := &eventfdPoster{
		fd:      fd,
		workers: workers,
		pending: lfq.BuildMPMC[func()](lfq.New(pendingCapacity).Compact()),
	}
	p.wg.Add(workers)
	for range workers {
		go p.run()
	}
	return p, nil
}

func (p *eventfdPoster) Post(fn func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	if err := p.pending.Enqueue(&fn); err != nil {
		go fn()
		return
	}
	p.signal(1)
}

func (p *eventfdPoster) signal(n uint64) {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], n)
	for {
		_, err := unix.Write(p.fd, buf[:])
		if err != unix.EINTR {
			return
		}
	}
}

func (p *eventfdPoster) run() {
	defer p.wg.Done()
	var buf [8]byte
	for {
		if _, err := unix.Read(p.fd, buf[:]); err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return
		}
		fn := p.take()
		if fn == nil {
			return
		}
		fn()
	}
}

// take dequeues the closure paired with a consumed token. The producer
// enqueues before signalling, so the closure is visible or about to be.
func (p *eventfdPoster) take() func() {
	var bo iox.Backoff
	for {
		fn, err := p.pending.Dequeue()
		if err == nil {
			return fn
		}
		bo.Wait()
	}
}

// Close enqueues one nil closure per worker behind the pending work,
// waits for the workers to drain and exit, then closes the eventfd.
func (p *eventfdPoster) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var stop func()
	for range p.workers {
		var bo iox.Backoff
		for p.pending.Enqueue(&stop) != nil {
			bo.Wait()
		}
	}
	p.signal(uint64(p.workers))
	p.wg.Wait()
	return unix.Close(p.fd)
}
