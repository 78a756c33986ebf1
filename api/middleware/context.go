package middleware

import "context"

type contextKey int

const (
	ctxUserID contextKey = iota
	ctxRole
	ctxRequestID
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// RequestIDFromContext returns the id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxRequestID) }

// UserIDFromContext returns the authenticated user id as set by Auth.
func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxUserID) }

// RoleFromContext returns the raw role claim; RequireRole validates it.
func RoleFromContext(ctx context.Context) string { return stringValue(ctx, ctxRole) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, ctxRole, role)
}

func withRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, ctxRequestID, id)
}
