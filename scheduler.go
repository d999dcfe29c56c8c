// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

const (
	// maximumCapacity is the largest queue the 15-bit gate counters and
	// 16-bit head/tail halves can address.
	maximumCapacity = 0x8000
	defaultCapacity = 32
)

// IOThreadScheduler dispatches callbacks on a small pool of workers through
// a lock-free circular queue.
//
// Enqueue never blocks. When a producer laps the queue the scheduler
// publishes a queue of twice the capacity and producers converge on it;
// the previous queue drains through its own pending wake-up. At most one
// wake-up is outstanding per queue: it is posted when the queue leaves
// idle, and each dispatch posts its successor before running an item.
type IOThreadScheduler struct {
	current   atomic.Pointer[schedulerQueue]
	poster    Poster
	logger    *Logger
	hasLogger bool
	growths   atomix.Uint32
	closed    atomix.Uint32
}

// NewIOThreadScheduler returns a scheduler with its own poster.
func NewIOThreadScheduler(opts ...SchedulerOption) (*IOThreadScheduler, error) {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &IOThreadScheduler{
		poster:    cfg.poster,
		logger:    cfg.logger,
		hasLogger: cfg.loggerSet,
	}
	if s.poster == nil {
		s.poster = newDefaultPoster(cfg.workers, s.log())
	}
	s.current.Store(newSchedulerQueue(s, cfg.capacity))
	return s, nil
}

var defaultScheduler = sync.OnceValue(func() *IOThreadScheduler {
	s, err := NewIOThreadScheduler()
	if err != nil {
		panic("chanrt: default scheduler: " + err.Error())
	}
	return s
})

// ScheduleCallback queues callback(state) on the process-wide scheduler.
func ScheduleCallback(callback func(any), state any) error {
	return defaultScheduler().ScheduleCallback(callback, state)
}

// ScheduleCallbackLowPriority runs callback(state) on a fresh goroutine,
// bypassing the scheduler queue.
func ScheduleCallbackLowPriority(callback func(any), state any) error {
	return defaultScheduler().ScheduleCallbackLowPriority(callback, state)
}

// ScheduleCallback queues callback(state) and returns without blocking.
// A nil callback is rejected before the queue is touched. A panic raised by
// the callback is not recovered. A call racing with Close may return nil
// for an item that never runs; see Close.
func (s *IOThreadScheduler) ScheduleCallback(callback func(any), state any) error {
	if callback == nil {
		return argNull("callback")
	}
	if s.closed.LoadAcquire() != 0 {
		return ErrObjectDisposed
	}
	for !s.current.Load().schedule(callback, state) {
	}
	return nil
}

// ScheduleCallbackLowPriority runs callback(state) on the general-purpose
// goroutine pool for latency-tolerant work.
func (s *IOThreadScheduler) ScheduleCallbackLowPriority(callback func(any), state any) error {
	if callback == nil {
		return argNull("callback")
	}
	if s.closed.LoadAcquire() != 0 {
		return ErrObjectDisposed
	}
	go callback(state)
	return nil
}

// Capacity returns the capacity of the current queue.
func (s *IOThreadScheduler) Capacity() int {
	return len(s.current.Load().slots)
}

// Pending returns an instantaneous estimate of the items queued on the
// current queue.
func (s *IOThreadScheduler) Pending() int {
	return countNoIdle(s.current.Load().headTail.LoadAcquire())
}

// Close rejects further scheduling and stops the poster. Items still
// queued are not run, including items from ScheduleCallback calls that
// passed the closed check before Close and returned nil. Pending reports
// how many were left behind.
func (s *IOThreadScheduler) Close() error {
	if !s.closed.CompareAndSwapAcqRel(0, 1) {
		return nil
	}
	return s.poster.Close()
}

func (s *IOThreadScheduler) log() *Logger {
	if s.hasLogger {
		return s.logger
	}
	return defaultLogger()
}

// grow publishes a queue of twice the capacity in place of q. Only the
// first producer to observe the wrap on q succeeds.
func (s *IOThreadScheduler) grow(q *schedulerQueue) {
	next := newSchedulerQueue(s, min(len(q.slots)*2, maximumCapacity))
	if s.current.CompareAndSwap(q, next) {
		n := s.growths.Add(1)
		s.log().Debug().
			Int("from", len(q.slots)).
			Int("to", len(next.slots)).
			Uint64("growths", uint64(n)).
			Log("scheduler queue grown")
	}
}

// schedulerQueue is one generation of the circular queue.
type schedulerQueue struct {
	headTail atomix.Uint32
	owner    *IOThreadScheduler
	slots    []slot
	mask     uint32
	wake     func()
}

func newSchedulerQueue(owner *IOThreadScheduler, capacity int) *schedulerQueue {
	q := &schedulerQueue{
		owner: owner,
		slots: make([]slot, capacity),
		mask:  uint32(capacity - 1),
	}
	q.headTail.StoreRelease(idleHeadTail)
	q.wake = q.dispatch
	return q
}

// schedule claims a head position and tries to fill its slot.
// It returns false if the item must be retried on the current queue.
func (q *schedulerQueue) schedule(callback func(any), state any) bool {
	ht := q.headTail.Add(hiOne)

	// Leaving idle takes a second increment: one for the item, one to move
	// the tail sentinel.
	wasIdle := count(ht) == 0
	if wasIdle {
		ht = q.headTail.Add(hiOne)
	}

	if count(ht) == -1 {
		q.owner.log().Crit().
			Uint64("head_tail", uint64(ht)).
			Int("capacity", len(q.slots)).
			Log("scheduler head/tail overflow")
		panic(&FatalError{Msg: "scheduler head/tail overflow"})
	}

	queued, wrapped := q.slots[(ht>>hiShift)&q.mask].tryEnqueue(callback, state)
	if wrapped {
		q.owner.grow(q)
	}

	if wasIdle {
		q.post()
	}
	return queued
}

func (q *schedulerQueue) post() {
	q.owner.poster.Post(q.wake)
}

// dispatch is the wake-up handler: it claims one position, then keeps
// claiming while items remain.
func (q *schedulerQueue) dispatch() {
	callback, state := q.complete()
	for found := true; found; {
		if callback != nil {
			callback(state)
		}
		callback, state, found = q.tryCoalesce()
	}
}

// complete advances the tail by one. If the queue was non-empty it posts
// the successor wake-up and claims the slot; if it was empty the queue is
// now idle and the next enqueue will post.
func (q *schedulerQueue) complete() (callback func(any), state any) {
	ht := q.headTail.LoadAcquire()
	for {
		wasEmpty := count(ht) == 0
		if q.headTail.CompareAndSwapAcqRel(ht, incrementLo(ht)) {
			if wasEmpty {
				return nil, nil
			}
			q.post()
			return q.slots[ht&q.mask].dequeue()
		}
		ht = q.headTail.LoadAcquire()
	}
}

// tryCoalesce claims another position while the queue holds items.
// found is false once the queue looks empty; callback may be nil when
// found is true if the claim lost a race with its producer.
func (q *schedulerQueue) tryCoalesce() (callback func(any), state any, found bool) {
	ht := q.headTail.LoadAcquire()
	for count(ht) > 0 {
		if q.headTail.CompareAndSwapAcqRel(ht, incrementLo(ht)) {
			callback, state = q.slots[ht&q.mask].dequeue()
			return callback, state, true
		}
		ht = q.headTail.LoadAcquire()
	}
	return nil, nil, false
}
