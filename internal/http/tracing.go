package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// withSpan runs fn under a child span and records its error.
func withSpan(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span, ctx2 := tracer.StartSpanFromContext(ctx, name)
	err := fn(ctx2)
	span.Finish(tracer.WithError(err))
	return err
}

// Trace opens a server span per request named after the matched route.
func Trace(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		span, ctx := tracer.StartSpanFromContext(c.Request.Context(), "http.request",
			tracer.ServiceName(service),
			tracer.SpanType(ext.SpanTypeWeb),
			tracer.ResourceName(c.Request.Method+" "+route),
			tracer.Tag(ext.HTTPMethod, c.Request.Method),
			tracer.Tag(ext.HTTPRoute, route),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetTag(ext.HTTPCode, strconv.Itoa(status))
		if status >= 500 {
			span.SetTag(ext.Error, true)
		}
		span.Finish()
	}
}
