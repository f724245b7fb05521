package utils

import (
	"context"

	"hr-backoffice/pkg/contextkeys"
)

// GetUserIDFromCtx returns the acting user id, or nil for system actions.
func GetUserIDFromCtx(ctx context.Context) *uint64 {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok || userID == 0 {
		return nil
	}
	return &userID
}

func WithUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}

func GetRequestIDFromCtx(ctx context.Context) string {
	requestID, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	return requestID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}
