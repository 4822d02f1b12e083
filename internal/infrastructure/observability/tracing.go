package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "portal-server/portal-api"
)

// GetTracer returns the tracer for the portal-api service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// ConversationAttributes returns common attributes for conversation spans.
func ConversationAttributes(conversationID, clientID, viewerRole string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("conversation.id", conversationID),
		attribute.String("conversation.client_id", clientID),
		attribute.String("viewer.role", viewerRole),
	}
}

// FeedAttributes returns common attributes for notification feed spans.
func FeedAttributes(viewerRole string, sourceCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("viewer.role", viewerRole),
		attribute.Int("feed.source_count", sourceCount),
	}
}

// StartSendSpan starts a new span for a message send.
func StartSendSpan(ctx context.Context, conversationID, senderRole string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "chat.send_message",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("sender.role", senderRole),
		),
	)
	return ctx, span
}

// StartFetchSpan starts a new span for a notification feed fetch.
func StartFetchSpan(ctx context.Context, viewerRole string, sourceCount int) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "notifications.fetch_all",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(FeedAttributes(viewerRole, sourceCount)...),
	)
	return ctx, span
}

// StartReconcileSpan starts a new span for a counter reconciliation pass.
func StartReconcileSpan(ctx context.Context, conversationID string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, "chat.reconcile",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("conversation.id", conversationID)),
	)
	return ctx, span
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddDegradedSourceEvent marks a source that failed during aggregation.
func AddDegradedSourceEvent(span trace.Span, source string, err error) {
	span.AddEvent("feed.source_degraded",
		trace.WithAttributes(
			attribute.String("source.name", source),
			attribute.String("source.error", err.Error()),
		),
	)
}

// AddDriftEvent records an observed unread-counter drift.
func AddDriftEvent(span trace.Span, conversationID string, clientDelta, adminDelta int) {
	span.AddEvent("ledger.drift",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("drift.client_delta", clientDelta),
			attribute.Int("drift.admin_delta", adminDelta),
		),
	)
}
