package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fekuna/omnipos-variant-service/internal/auth"
	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/engine"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "omnipos.variant.v1.VariantService"

type VariantHandler struct {
	uc     variant.UseCase
	logger logger.ZapLogger
}

func NewVariantHandler(uc variant.UseCase, log logger.ZapLogger) *VariantHandler {
	return &VariantHandler{
		uc:     uc,
		logger: log,
	}
}

// --- Request payloads, carried as google.protobuf.Struct ---

type dimensionRequest struct {
	ProductID         string              `json:"product_id"`
	DimensionID       string              `json:"dimension_id"`
	Name              string              `json:"name"`
	IsRequired        bool                `json:"is_required"`
	Values            []model.ValueDetail `json:"values"`
	PreserveOverrides bool                `json:"preserve_overrides"`
}

type productRequest struct {
	ProductID string `json:"product_id"`
}

type bulkEditRequest struct {
	ProductID   string   `json:"product_id"`
	SelectedIDs []string `json:"selected_ids"`
	Field       string   `json:"field"`
	Value       string   `json:"value"`
}

type resolveRequest struct {
	ProductID string            `json:"product_id"`
	Selection map[string]string `json:"selection"`
}

type adjustStockRequest struct {
	ProductID      string `json:"product_id"`
	OptionID       string `json:"option_id"`
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
	ReferenceID    string `json:"reference_id"`
}

type movementsRequest struct {
	ProductID string `json:"product_id"`
	OptionID  string `json:"option_id"`
	Limit     int    `json:"limit"`
}

type productStockRequest struct {
	ProductID     string `json:"product_id"`
	StockQuantity int    `json:"stock_quantity"`
}

// --- VariantService Server ---

func (h *VariantHandler) ListDimensions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in productRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	dims, err := h.uc.ListDimensions(ctx, merchantID, in.ProductID)
	if err != nil {
		return nil, h.toStatus("list dimensions", err)
	}
	return encode(map[string]any{"dimensions": dims})
}

func (h *VariantHandler) AddDimension(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dimensionRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	m, err := h.uc.AddDimension(ctx, &dto.AddDimensionInput{
		MerchantID:        merchantID,
		ProductID:         in.ProductID,
		Name:              in.Name,
		IsRequired:        in.IsRequired,
		Values:            in.Values,
		PreserveOverrides: in.PreserveOverrides,
	})
	if err != nil {
		return nil, h.toStatus("add dimension", err)
	}
	return encode(m)
}

func (h *VariantHandler) RemoveDimension(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dimensionRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	m, err := h.uc.RemoveDimension(ctx, &dto.RemoveDimensionInput{
		MerchantID:        merchantID,
		ProductID:         in.ProductID,
		DimensionID:       in.DimensionID,
		PreserveOverrides: in.PreserveOverrides,
	})
	if err != nil {
		return nil, h.toStatus("remove dimension", err)
	}
	return encode(m)
}

func (h *VariantHandler) EditDimensionValues(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dimensionRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	m, err := h.uc.EditDimensionValues(ctx, &dto.EditDimensionInput{
		MerchantID:        merchantID,
		ProductID:         in.ProductID,
		DimensionID:       in.DimensionID,
		Name:              in.Name,
		IsRequired:        in.IsRequired,
		Values:            in.Values,
		PreserveOverrides: in.PreserveOverrides,
	})
	if err != nil {
		return nil, h.toStatus("edit dimension", err)
	}
	return encode(m)
}

// ListOptions serves the storefront; it needs no merchant.
func (h *VariantHandler) ListOptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in productRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	options, err := h.uc.ListOptions(ctx, in.ProductID)
	if err != nil {
		return nil, h.toStatus("list options", err)
	}
	return encode(map[string]any{"options": options})
}

func (h *VariantHandler) BulkEdit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in bulkEditRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.uc.BulkEdit(ctx, &dto.BulkEditInput{
		MerchantID:  merchantID,
		ProductID:   in.ProductID,
		SelectedIDs: in.SelectedIDs,
		Field:       in.Field,
		Value:       in.Value,
	})
	if err != nil {
		return nil, h.toStatus("bulk edit", err)
	}
	return encode(res)
}

func (h *VariantHandler) ResolveOption(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in resolveRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	opt, err := h.uc.ResolveOption(ctx, &dto.ResolveOptionInput{
		ProductID: in.ProductID,
		Selection: in.Selection,
	})
	if err != nil {
		return nil, h.toStatus("resolve option", err)
	}
	return encode(map[string]any{"option": opt})
}

func (h *VariantHandler) SetProductStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in productStockRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.uc.SetProductStock(ctx, &dto.SetProductStockInput{
		MerchantID:    merchantID,
		ProductID:     in.ProductID,
		StockQuantity: in.StockQuantity,
	})
	if err != nil {
		return nil, h.toStatus("set product stock", err)
	}
	return encode(map[string]any{"product": p})
}

func (h *VariantHandler) AdjustOptionStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in adjustStockRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	opt, err := h.uc.AdjustOptionStock(ctx, &dto.AdjustOptionStockInput{
		MerchantID:     merchantID,
		ProductID:      in.ProductID,
		OptionID:       in.OptionID,
		QuantityChange: in.QuantityChange,
		Reason:         in.Reason,
		ReferenceID:    in.ReferenceID,
	})
	if err != nil {
		return nil, h.toStatus("adjust option stock", err)
	}
	return encode(map[string]any{"option": opt})
}

func (h *VariantHandler) ListStockMovements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in movementsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	merchantID, err := requireMerchant(ctx)
	if err != nil {
		return nil, err
	}
	movements, err := h.uc.ListStockMovements(ctx, &dto.ListMovementsInput{
		MerchantID: merchantID,
		ProductID:  in.ProductID,
		OptionID:   in.OptionID,
		Limit:      in.Limit,
	})
	if err != nil {
		return nil, h.toStatus("list stock movements", err)
	}
	return encode(map[string]any{"movements": movements})
}

// --- Helpers ---

func requireMerchant(ctx context.Context) (string, error) {
	merchantID := auth.GetMerchantID(ctx)
	if merchantID == "" {
		return "", status.Error(codes.Unauthenticated, "missing merchant")
	}
	return merchantID, nil
}

func decode(req *structpb.Struct, out any) error {
	data, err := protojson.Marshal(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (h *VariantHandler) toStatus(op string, err error) error {
	var (
		verr *engine.ValidationError
		merr *engine.MatchError
		lerr *engine.CombinationLimitError
	)
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.As(err, &merr):
		if merr.Kind == engine.NoMatchingOption {
			return status.Error(codes.NotFound, merr.Error())
		}
		return status.Error(codes.FailedPrecondition, merr.Error())
	case errors.As(err, &lerr):
		return status.Error(codes.ResourceExhausted, lerr.Error())
	case errors.Is(err, variant.ErrProductNotFound), errors.Is(err, variant.ErrOptionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrStockManagedByVariants), errors.Is(err, variant.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, variant.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, variant.ErrConcurrentUpdate):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	h.logger.Error("failed to "+op, zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

// --- Service registration ---

type unaryMethod func(h *VariantHandler, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func method(name string, fn unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := srv.(*VariantHandler)
			if interceptor == nil {
				return fn(h, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(h, ctx, req.(*structpb.Struct))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		method("ListDimensions", (*VariantHandler).ListDimensions),
		method("AddDimension", (*VariantHandler).AddDimension),
		method("RemoveDimension", (*VariantHandler).RemoveDimension),
		method("EditDimensionValues", (*VariantHandler).EditDimensionValues),
		method("ListOptions", (*VariantHandler).ListOptions),
		method("BulkEdit", (*VariantHandler).BulkEdit),
		method("ResolveOption", (*VariantHandler).ResolveOption),
		method("SetProductStock", (*VariantHandler).SetProductStock),
		method("AdjustOptionStock", (*VariantHandler).AdjustOptionStock),
		method("ListStockMovements", (*VariantHandler).ListStockMovements),
	},
	Streams: []grpc.StreamDesc{},
}

func Register(s grpc.ServiceRegistrar, h *VariantHandler) {
	s.RegisterService(&ServiceDesc, h)
}
