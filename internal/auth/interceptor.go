package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// ContextInterceptor lifts the merchant from request metadata into the context.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if val := md.Get(merchantHeader); len(val) > 0 && val[0] != "" {
				ctx = WithMerchantID(ctx, val[0])
			}
		}
		return handler(ctx, req)
	}
}
