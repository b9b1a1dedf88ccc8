package middleware

import "context"

type contextKey string

const (
	ctxDriverID     contextKey = "driver_id"
	ctxDriverType   contextKey = "driver_type"
	ctxDriverStatus contextKey = "driver_status"
	ctxSessionID    contextKey = "session_id"
)

func DriverIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDriverID).(string); ok {
		return v
	}
	return ""
}

func DriverTypeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDriverType).(string); ok {
		return v
	}
	return ""
}

func DriverStatusFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDriverStatus).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// WithDriverID injects the driver identifier into the context.
func WithDriverID(ctx context.Context, driverID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDriverID, driverID)
}

// WithDriverType injects the driver compensation class into the context.
func WithDriverType(ctx context.Context, driverType string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDriverType, driverType)
}

// WithSessionID injects the session identifier used for logout.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}
