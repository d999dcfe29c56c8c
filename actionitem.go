// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"context"

	"code.hybscloud.com/atomix"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// ActionItem is one scheduling request. It captures the caller's activity
// id and span context when scheduled and hands the callback a context
// carrying both when invoked. An ActionItem runs at most once.
type ActionItem struct {
	callback    func(context.Context, any)
	state       any
	activity    uuid.UUID
	hasActivity bool
	span        trace.SpanContext
	scheduler   *IOThreadScheduler
	claimed     atomix.Uint32
	done        chan struct{}
}

// NewActionItem wraps callback and state for one invocation.
func NewActionItem(callback func(context.Context, any), state any) (*ActionItem, error) {
	if callback == nil {
		return nil, argNull("callback")
	}
	return &ActionItem{
		callback: callback,
		state:    state,
		done:     make(chan struct{}),
	}, nil
}

// Schedule queues the item on the process-wide scheduler.
func (a *ActionItem) Schedule(ctx context.Context) error {
	return a.ScheduleOn(ctx, defaultScheduler())
}

// ScheduleLowPriority runs the item on the general-purpose goroutine pool.
func (a *ActionItem) ScheduleLowPriority(ctx context.Context) error {
	return a.schedule(ctx, defaultScheduler(), true)
}

// ScheduleOn queues the item on s.
func (a *ActionItem) ScheduleOn(ctx context.Context, s *IOThreadScheduler) error {
	if s == nil {
		return argNull("scheduler")
	}
	return a.schedule(ctx, s, false)
}

func (a *ActionItem) schedule(ctx context.Context, s *IOThreadScheduler, lowPriority bool) error {
	if !a.claimed.CompareAndSwapAcqRel(0, 1) {
		return ErrInvalidOperation
	}
	a.capture(ctx)
	a.scheduler = s
	if a.hasActivity {
		s.log().Trace().
			Str("activity", a.activity.String()).
			Bool("low_priority", lowPriority).
			Log("action item scheduled")
	}
	var err error
	if lowPriority {
		err = s.ScheduleCallbackLowPriority(a.invoke, nil)
	} else {
		err = s.ScheduleCallback(a.invoke, nil)
	}
	if err != nil {
		a.claimed.StoreRelease(0)
	}
	return err
}

// Invoke runs the item on the calling goroutine.
func (a *ActionItem) Invoke(ctx context.Context) error {
	if !a.claimed.CompareAndSwapAcqRel(0, 1) {
		return ErrInvalidOperation
	}
	a.capture(ctx)
	a.invoke(nil)
	return nil
}

// Done is closed after the callback returns. It is never closed for an
// item stranded in the queue of a scheduler closed before it ran.
func (a *ActionItem) Done() <-chan struct{} {
	return a.done
}

func (a *ActionItem) capture(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	_, a.activity, a.hasActivity = EnsureActivity(ctx)
	a.span = trace.SpanContextFromContext(ctx)
}

func (a *ActionItem) invoke(any) {
	ctx := context.Background()
	if a.span.IsValid() {
		ctx = trace.ContextWithSpanContext(ctx, a.span)
	}
	if a.hasActivity {
		ctx = WithActivity(ctx, a.activity)
		log := defaultLogger()
		if a.scheduler != nil {
			log = a.scheduler.log()
		}
		log.Trace().
			Str("activity", a.activity.String()).
			Log("action item invoked")
	}
	a.callback(ctx, a.state)
	close(a.done)
}

// Schedule queues callback(ctx', state) on the process-wide scheduler,
// where ctx' carries ctx's activity id.
func Schedule(ctx context.Context, callback func(context.Context, any), state any) error {
	a, err := NewActionItem(callback, state)
	if err != nil {
		return err
	}
	return a.Schedule(ctx)
}

// ScheduleLowPriority is Schedule on the general-purpose goroutine pool.
func ScheduleLowPriority(ctx context.Context, callback func(context.Context, any), state any) error {
	a, err := NewActionItem(callback, state)
	if err != nil {
		return err
	}
	return a.ScheduleLowPriority(ctx)
}

// ScheduleAsync is Schedule returning a channel closed once the callback
// has run.
func ScheduleAsync(ctx context.Context, callback func(context.Context, any), state any) (<-chan struct{}, error) {
	a, err := NewActionItem(callback, state)
	if err != nil {
		return nil, err
	}
	if err := a.Schedule(ctx); err != nil {
		return nil, err
	}
	return a.Done(), nil
}
