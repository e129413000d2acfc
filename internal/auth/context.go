package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey string

const merchantIDKey contextKey = "merchant_id"

const merchantHeader = "x-merchant-id"

func WithMerchantID(ctx context.Context, merchantID string) context.Context {
	return context.WithValue(ctx, merchantIDKey, merchantID)
}

// GetMerchantID reads the merchant set by an interceptor, falling back to
// the x-merchant-id request metadata.
func GetMerchantID(ctx context.Context) string {
	if val, ok := ctx.Value(merchantIDKey).(string); ok && val != "" {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(merchantHeader); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
