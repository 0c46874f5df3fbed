package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey struct{}

// WithRequestID 将请求 ID 写入上下文
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFrom 读取上下文中的请求 ID
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ctx 返回携带 request_id / trace_id 的 SugaredLogger
func Ctx(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return S()
	}
	kv := make([]interface{}, 0, 4)
	if id := RequestIDFrom(ctx); id != "" {
		kv = append(kv, "request_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		kv = append(kv, "trace_id", sc.TraceID().String())
	}
	return SW(kv...)
}
