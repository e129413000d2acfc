package variant

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
)

type UseCase interface {
	ListDimensions(ctx context.Context, merchantID, productID string) ([]model.VariantDimension, error)
	AddDimension(ctx context.Context, input *dto.AddDimensionInput) (*dto.VariantMatrix, error)
	RemoveDimension(ctx context.Context, input *dto.RemoveDimensionInput) (*dto.VariantMatrix, error)
	EditDimensionValues(ctx context.Context, input *dto.EditDimensionInput) (*dto.VariantMatrix, error)

	ListOptions(ctx context.Context, productID string) ([]model.VariantOption, error)
	BulkEdit(ctx context.Context, input *dto.BulkEditInput) (*dto.BulkEditResult, error)
	ResolveOption(ctx context.Context, input *dto.ResolveOptionInput) (*model.VariantOption, error)

	// Stock ops
	AdjustOptionStock(ctx context.Context, input *dto.AdjustOptionStockInput) (*model.VariantOption, error)
	SetProductStock(ctx context.Context, input *dto.SetProductStockInput) (*model.Product, error)
	ListStockMovements(ctx context.Context, input *dto.ListMovementsInput) ([]model.StockMovement, error)
}

// Cache is the snapshot store and per-product lock used by the usecase.
// *cache.RedisClient satisfies it.
type Cache interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}
