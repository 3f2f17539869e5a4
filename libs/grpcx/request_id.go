package grpcx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// RequestIDMetadataKey matches the HTTP X-Request-Id header, lowercased per gRPC metadata rules.
const RequestIDMetadataKey = "x-request-id"

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

func NewRequestID() string {
	return uuid.NewString()
}
