// Package audit defines the audit event model and the Publisher contract that
// services emit to. Emission is fail-open: a sink failure is logged and never
// fails the business operation that produced the event.
package audit

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"phasegate/pkg/requestcontext"
)

// Publisher delivers audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

const defaultPublishTimeout = 2 * time.Second

// Emitter enriches events from the request context and forwards them to a
// Publisher, logging failures instead of returning them.
type Emitter struct {
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithPublishTimeout bounds each publish, independent of the request context.
func WithPublishTimeout(d time.Duration) EmitterOption {
	return func(e *Emitter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEmitter wraps publisher. A nil publisher yields an emitter that drops events.
func NewEmitter(publisher Publisher, logger *slog.Logger, opts ...EmitterOption) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Emitter{publisher: publisher, logger: logger, timeout: defaultPublishTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit fills timestamp, category, request id, client metadata and the active
// trace id, then publishes.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil || e.publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.DeviceLabel == "" {
		event.DeviceLabel = requestcontext.DeviceLabel(ctx)
	}
	if event.TraceID == "" {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			event.TraceID = sc.TraceID().String()
		}
	}
	// Detached from request cancellation, bounded by its own deadline.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()
	if err := e.publisher.Emit(publishCtx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish audit event",
			"action", event.Action,
			"profile_id", event.ProfileID,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}

// LogPublisher writes events to a structured logger. It is the default sink
// when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "audit",
		"category", event.Category,
		"action", event.Action,
		"profile_id", event.ProfileID,
		"verification_type", event.VerificationType,
		"subject", event.Subject,
		"decision", event.Decision,
		"reason", event.Reason,
		"actor_id", event.ActorID,
		"device", event.DeviceLabel,
		"request_id", event.RequestID,
	)
	return nil
}
