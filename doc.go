// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chanrt provides the asynchronous execution substrate beneath an
// RPC channel stack: a lock-free callback scheduler, a chained asynchronous
// lock, coalesced deadline tokens, and a quota-bounded chunked output buffer.
//
// # Architecture
//
//   - Scheduling: [IOThreadScheduler] is a growable circular queue of work items. Head and tail share one packed
//     32-bit word ([code.hybscloud.com/atomix]); each slot carries its own gate counter. Idle queues are woken through
//     a [Poster]: an eventfd-backed native poster on Linux, dedicated goroutines elsewhere.
//   - Diagnostics: [ActionItem] captures an activity identifier and the OpenTelemetry span context from
//     [context.Context] at schedule time and restores both around invocation.
//   - Locking: [AsyncLock] threads a chain of pooled binary semaphores through [context.Context]. Nested holders in
//     one chain proceed; unrelated chains serialize.
//   - Effects: [Acquire], [Release] and [Ambient] are [code.hybscloud.com/kont] operations dispatched non-blocking on a
//     [LockChain], returning [code.hybscloud.com/iox.ErrWouldBlock] when the lock is held elsewhere.
//   - Deadlines: [TimeoutHelper] fixes a deadline lazily; [TokenCoalescer] rounds target instants into buckets so that
//     concurrent callers share one cancellation context per bucket.
//   - Buffering: [BufferedOutputStream] appends into chunks drawn from a [BufferManager] and extracts without copying
//     when a single chunk suffices.
//
// # API Topologies
//
//   - Scheduling: [ScheduleCallback], [ScheduleCallbackLowPriority], [Schedule], [ScheduleAsync], [ScheduleLowPriority].
//   - Locking: [AsyncLock.Acquire], [AsyncLock.TryAcquire], [LockHandle.Release], [AsyncLock.Close].
//   - Cont-world: [AcquireBind], [ReleaseThen], [WithLock], [AmbientBind], [Loop]. Bridge via [Reify] and [Reflect].
//   - Deadlines: [NewTimeoutHelper], [TimeoutHelper.RemainingTime], [TimeoutHelper.CancellationToken].
//   - Buffering: [NewBufferedOutputStream], [BufferedOutputStream.Write], [BufferedOutputStream.ToArray].
//
// # Integration
//
//   - Stepping: [Step] and [Advance] evaluate lock computations one effect at a time. [Go] drives them on an
//     [IOThreadScheduler], re-posting through the low-priority path while the lock is held elsewhere.
//   - Blocking: [Exec] and [ExecExpr] wait past [code.hybscloud.com/iox.ErrWouldBlock] using adaptive backoff.
//
// # Example
//
//	lock := chanrt.NewAsyncLock()
//	ctx, h, err := lock.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer h.Release()
//	// ctx carries the chain: nested Acquire(ctx) calls proceed without waiting
//	// on the outer holder.
package chanrt
