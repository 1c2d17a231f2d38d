package goAuthClient

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a correlation id to ctx. The gateway sends it as
// X-Request-ID on the original call and on its replay, so both appear under
// one id in server logs. Without it each attempt gets a fresh UUID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
