// Package middleware gin 中间件
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"bookgen-ai-api/pkg/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// RequestContext 注入 request_id，并把路径中的书籍/章节 ID 写入日志上下文。
// 异步任务沿用这里的 request_id，便于跨进程串联日志。
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		if bookID := c.Param("bid"); bookID != "" {
			ctx = logger.WithContext(ctx, logger.BookIDKey, bookID)
		}
		if chapterID := c.Param("cid"); chapterID != "" {
			ctx = logger.WithContext(ctx, logger.ChapterIDKey, chapterID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Tracing otelgin 建 span 后把 trace_id / span_id 写入日志上下文与响应头
func Tracing(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName),
		func(c *gin.Context) {
			sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
			if sc.IsValid() {
				traceID := sc.TraceID().String()
				c.Set("trace_id", traceID)
				c.Header(TraceIDHeader, traceID)

				ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
				ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
				c.Request = c.Request.WithContext(ctx)
			}
			c.Next()
		},
	}
}
