// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"errors"
	"sync"
)

// Poster delivers queue wake-ups to worker goroutines.
//
// Post must not block and must run fn exactly once, unless the poster has
// been closed, in which case fn is dropped. fn may itself call Post.
// Close stops the workers after the wake-ups already posted have run.
type Poster interface {
	Post(fn func())
	Close() error
}

// errNativeUnsupported is returned by NewNativePoster on platforms without
// a native completion mechanism.
var errNativeUnsupported = errors.New("chanrt: native poster not supported on this platform")

// dedicatedPoster runs wake-ups on a fixed set of goroutines fed by a
// buffered channel.
type dedicatedPoster struct {
	mu     sync.RWMutex
	closed bool
	work   chan func()
	wg     sync.WaitGroup
}

// NewDedicatedPoster returns a Poster backed by workers dedicated
// goroutines.
func NewDedicatedPoster(workers int) Poster {
	if workers < 1 {
		workers = 1
	}
	p := &dedicatedPoster{work: make(chan func(), workers*4)}
	p.wg.Add(workers)
	for range workers {
		go p.run()
	}
	return p
}

func (p *dedicatedPoster) run() {
	defer p.wg.Done()
	for fn := range p.work {
		fn()
	}
}

func (p *dedicatedPoster) Post(fn func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.work <- fn:
	default:
		// Workers posting successors must never wait on each other.
		go fn()
	}
}

func (p *dedicatedPoster) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.work)
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// newDefaultPoster prefers the native poster and falls back to dedicated
// goroutines.
func newDefaultPoster(workers int, logger *Logger) Poster {
	p, err := NewNativePoster(workers)
	if err == nil {
		return p
	}
	if !errors.Is(err, errNativeUnsupported) {
		logger.Warning().
			Err(err).
			Int("workers", workers).
			Log("native poster unavailable, using dedicated goroutines")
	}
	return NewDedicatedPoster(workers)
}
