package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestGetMerchantID(t *testing.T) {
	if got := GetMerchantID(context.Background()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}

	md := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-merchant-id", "m-1"))
	if got := GetMerchantID(md); got != "m-1" {
		t.Fatalf("got %q from metadata", got)
	}

	if got := GetMerchantID(WithMerchantID(md, "m-2")); got != "m-2" {
		t.Fatalf("context value should win, got %q", got)
	}
}

func TestContextInterceptor(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-merchant-id", "m-7"))

	var seen any
	_, err := ContextInterceptor()(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		seen = ctx.Value(merchantIDKey)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "m-7" {
		t.Fatalf("got %v, want m-7", seen)
	}
}
