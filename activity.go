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

type activityKey struct{}

// activityTracing enables end-to-end activity capture for scheduled work.
var activityTracing atomix.Uint32

// SetActivityTracing turns end-to-end activity tracing on or off. When on,
// scheduled work without an activity is assigned a fresh one.
func SetActivityTracing(enabled bool) {
	var v uint32
	if enabled {
		v = 1
	}
	activityTracing.StoreRelease(v)
}

// ActivityTracing reports whether end-to-end activity tracing is on.
func ActivityTracing() bool {
	return activityTracing.LoadAcquire() != 0
}

// WithActivity returns a copy of ctx carrying the activity id.
func WithActivity(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, activityKey{}, id)
}

// ActivityFromContext returns the activity id carried by ctx. Without an
// explicit id, the trace id of ctx's OpenTelemetry span context is used.
func ActivityFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	if id, ok := ctx.Value(activityKey{}).(uuid.UUID); ok {
		return id, true
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return uuid.UUID(sc.TraceID()), true
	}
	return uuid.Nil, false
}

// EnsureActivity returns ctx and its activity id, attaching a new random id
// first when tracing is on and ctx has none. ok is false when ctx carries
// no activity and none was created.
func EnsureActivity(ctx context.Context) (_ context.Context, id uuid.UUID, ok bool) {
	if id, ok = ActivityFromContext(ctx); ok || !ActivityTracing() {
		return ctx, id, ok
	}
	id = uuid.New()
	return WithActivity(ctx, id), id, true
}
