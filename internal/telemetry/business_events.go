package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents traces domain operations above the HTTP and database layers
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{tracer: otel.Tracer("business-events")}
}

var defaultEvents = NewBusinessEvents()

// GetBusinessEvents returns the process-wide business events tracer
func GetBusinessEvents() *BusinessEvents {
	return defaultEvents
}

// TraceListing wraps a visibility-filtered listing (posts, videos, comments, likers, profiles)
func (be *BusinessEvents) TraceListing(ctx context.Context, listing, viewerID string, limit, offset int) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "listing."+listing,
		trace.WithAttributes(
			attribute.String("listing.name", listing),
			attribute.Bool("listing.anonymous", viewerID == ""),
			attribute.Int("listing.limit", limit),
			attribute.Int("listing.offset", offset),
		),
	)
}

// TraceRelationship wraps a follow or block change
func (be *BusinessEvents) TraceRelationship(ctx context.Context, action, actorID, targetID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "relationship."+action,
		trace.WithAttributes(
			attribute.String("relationship.action", action),
			attribute.String("relationship.actor_id", actorID),
			attribute.String("relationship.target_id", targetID),
		),
	)
}

// TraceEngagement wraps a like toggle, comment or hide on one content item
func (be *BusinessEvents) TraceEngagement(ctx context.Context, action, contentType string, contentID uint) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "engagement."+action,
		trace.WithAttributes(
			attribute.String("engagement.action", action),
			attribute.String("content.type", contentType),
			attribute.Int64("content.id", int64(contentID)),
		),
	)
}

// TraceMedia wraps an upload or processing stage
func (be *BusinessEvents) TraceMedia(ctx context.Context, stage, kind string, sizeBytes int64) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "media."+stage,
		trace.WithAttributes(
			attribute.String("media.kind", kind),
			attribute.Int64("media.size_bytes", sizeBytes),
		),
	)
}

// End finishes a business span, marking it failed when err is set
func End(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
