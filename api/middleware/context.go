package middleware

import "context"

type contextKey string

const (
	ctxAccessToken contextKey = "access_token"
	ctxVendorID    contextKey = "vendor_id"
)

// AccessTokenFromContext returns the bearer credential RequireSession accepted.
func AccessTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessToken).(string); ok {
		return v
	}
	return ""
}

func VendorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVendorID).(string); ok {
		return v
	}
	return ""
}

// WithSession injects the access token and vendor identifier into the context.
func WithSession(ctx context.Context, token, vendorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccessToken, token)
	if vendorID != "" {
		ctx = context.WithValue(ctx, ctxVendorID, vendorID)
	}
	return ctx
}
