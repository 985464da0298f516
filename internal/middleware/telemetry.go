package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware wraps otelgin and tags the request span with the caller and paging parameters
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if viewer := util.ViewerID(c); viewer != "" {
			span.SetAttributes(attribute.String("user.id", viewer))
		}
		if id := requestIDFrom(c); id != "" {
			span.SetAttributes(attribute.String("request.id", id))
		}
		for _, param := range []string{"page", "limit", "offset"} {
			if v := c.Query(param); v != "" {
				span.SetAttributes(attribute.String("query."+param, v))
			}
		}
		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err)
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
