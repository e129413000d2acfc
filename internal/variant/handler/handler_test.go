package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/engine"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubUseCase struct {
	variant.UseCase

	addInput     *dto.AddDimensionInput
	resolveInput *dto.ResolveOptionInput
	resolveErr   error
	adjustInput  *dto.AdjustOptionStockInput
}

func (s *stubUseCase) AdjustOptionStock(_ context.Context, input *dto.AdjustOptionStockInput) (*model.VariantOption, error) {
	s.adjustInput = input
	if input.QuantityChange < -5 {
		return nil, variant.ErrInsufficientStock
	}
	return &model.VariantOption{ID: input.OptionID, StockQuantity: 5 + input.QuantityChange}, nil
}

func (s *stubUseCase) AddDimension(_ context.Context, input *dto.AddDimensionInput) (*dto.VariantMatrix, error) {
	s.addInput = input
	return &dto.VariantMatrix{
		Product: model.Product{ID: input.ProductID, HasVariants: true, StockQuantity: 5},
		Options: []model.VariantOption{{ID: "opt-1", Label: "Color: red", SKU: "VAR-RED-000001-0", StockQuantity: 5}},
	}, nil
}

func (s *stubUseCase) ResolveOption(_ context.Context, input *dto.ResolveOptionInput) (*model.VariantOption, error) {
	s.resolveInput = input
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	p := decimal.NewFromInt(50)
	return &model.VariantOption{ID: "opt-1", Label: "Color: red", Price: &p, StockQuantity: 5}, nil
}

func merchantCtx() context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-merchant-id", "m-1"))
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return s
}

func TestAddDimensionDecodesRequest(t *testing.T) {
	uc := &stubUseCase{}
	h := NewVariantHandler(uc, logger.Wrap(zap.NewNop()))

	req := mustStruct(t, map[string]any{
		"product_id":  "prod-1",
		"name":        "Color",
		"is_required": true,
		"values": []any{
			map[string]any{"value": "red", "stock_quantity": 5, "custom_price": 50},
			map[string]any{"value": "blue", "stock_quantity": 2},
		},
	})
	resp, err := h.AddDimension(merchantCtx(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := uc.addInput
	if in.MerchantID != "m-1" || in.ProductID != "prod-1" || in.Name != "Color" || !in.IsRequired {
		t.Fatalf("unexpected input: %+v", in)
	}
	if len(in.Values) != 2 || in.Values[0].CustomPrice == nil || !in.Values[0].CustomPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected values: %+v", in.Values)
	}
	if in.Values[1].CustomPrice != nil || in.Values[1].StockQuantity != 2 {
		t.Fatalf("unexpected second value: %+v", in.Values[1])
	}

	options := resp.Fields["options"].GetListValue().GetValues()
	if len(options) != 1 || options[0].GetStructValue().Fields["sku"].GetStringValue() != "VAR-RED-000001-0" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestAddDimensionRequiresMerchant(t *testing.T) {
	h := NewVariantHandler(&stubUseCase{}, logger.Wrap(zap.NewNop()))
	_, err := h.AddDimension(context.Background(), mustStruct(t, map[string]any{"product_id": "prod-1"}))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("got %v, want Unauthenticated", err)
	}
}

func TestResolveOption(t *testing.T) {
	uc := &stubUseCase{}
	h := NewVariantHandler(uc, logger.Wrap(zap.NewNop()))

	resp, err := h.ResolveOption(context.Background(), mustStruct(t, map[string]any{
		"product_id": "prod-1",
		"selection":  map[string]any{"Color": "red"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uc.resolveInput.Selection["Color"] != "red" {
		t.Fatalf("selection not decoded: %+v", uc.resolveInput)
	}
	opt := resp.Fields["option"].GetStructValue()
	if opt.Fields["price"].GetStringValue() != "50" {
		t.Fatalf("unexpected price: %v", opt.Fields["price"])
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{&engine.MatchError{Kind: engine.IncompleteSelection, Missing: []string{"Size"}}, codes.FailedPrecondition},
		{&engine.MatchError{Kind: engine.NoMatchingOption}, codes.NotFound},
		{&engine.MatchError{Kind: engine.OutOfStock}, codes.FailedPrecondition},
		{&engine.ValidationError{Field: "value", Message: "bad"}, codes.InvalidArgument},
		{&engine.CombinationLimitError{Limit: 10}, codes.ResourceExhausted},
		{variant.ErrProductNotFound, codes.NotFound},
		{engine.ErrStockManagedByVariants, codes.FailedPrecondition},
		{variant.ErrBusy, codes.Unavailable},
		{fmt.Errorf("save stock adjustment: %w", variant.ErrConcurrentUpdate), codes.Aborted},
		{errors.New("db down"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewVariantHandler(&stubUseCase{resolveErr: tt.err}, logger.Wrap(zap.NewNop()))
			_, err := h.ResolveOption(context.Background(), mustStruct(t, map[string]any{"product_id": "prod-1"}))
			if got := status.Code(err); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAdjustOptionStock(t *testing.T) {
	uc := &stubUseCase{}
	h := NewVariantHandler(uc, logger.Wrap(zap.NewNop()))

	resp, err := h.AdjustOptionStock(merchantCtx(), mustStruct(t, map[string]any{
		"product_id":      "prod-1",
		"option_id":       "opt-1",
		"quantity_change": -2,
		"reason":          "Damaged",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uc.adjustInput.MerchantID != "m-1" || uc.adjustInput.QuantityChange != -2 || uc.adjustInput.Reason != "Damaged" {
		t.Fatalf("unexpected input: %+v", uc.adjustInput)
	}
	if got := resp.Fields["option"].GetStructValue().Fields["stock_quantity"].GetNumberValue(); got != 3 {
		t.Fatalf("stock = %v", got)
	}

	_, err = h.AdjustOptionStock(merchantCtx(), mustStruct(t, map[string]any{
		"product_id": "prod-1", "option_id": "opt-1", "quantity_change": -9,
	}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("got %v, want FailedPrecondition", err)
	}
}

func TestServiceDescription(t *testing.T) {
	if len(ServiceDesc.Methods) != 10 {
		t.Fatalf("got %d methods", len(ServiceDesc.Methods))
	}
	seen := map[string]bool{}
	for _, m := range ServiceDesc.Methods {
		if seen[m.MethodName] {
			t.Fatalf("duplicate method %s", m.MethodName)
		}
		seen[m.MethodName] = true
	}
}
