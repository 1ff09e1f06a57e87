package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/core/ports"
)

// Bridge is a span processor that turns pipeline stage spans into renderer
// start and completion events. Spans are identified by their span id.
type Bridge struct {
	renderer ports.Renderer
}

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// NewBridge returns a Bridge reporting to renderer. A nil renderer drops every event.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// OnStart reports a stage start. The parent is taken from the context the span was started in.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	id, ok := b.stageID(s.SpanContext())
	if !ok {
		return
	}
	b.renderer.OnTaskStart(id, enclosingStage(parent), s.Name(), s.StartTime())
}

// OnEnd reports a stage completion, failed when the span carries an error status.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	id, ok := b.stageID(s.SpanContext())
	if !ok {
		return
	}
	b.renderer.OnTaskComplete(id, s.EndTime(), stageError(s.Status()))
}

// ForceFlush is a no-op: events are delivered synchronously.
func (b *Bridge) ForceFlush(context.Context) error { return nil }

// Shutdown is a no-op.
func (b *Bridge) Shutdown(context.Context) error { return nil }

func (b *Bridge) stageID(sc trace.SpanContext) (string, bool) {
	if b.renderer == nil || !sc.IsValid() {
		return "", false
	}
	return sc.SpanID().String(), true
}

func enclosingStage(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}

func stageError(status sdktrace.Status) error {
	if status.Code != codes.Error {
		return nil
	}
	if status.Description == "" {
		return errors.New("stage failed")
	}
	return errors.New(status.Description)
}
