package variant

import (
	"context"

	"github.com/fekuna/omnipos-variant-service/internal/model"
)

type Repository interface {
	ListDimensions(ctx context.Context, productID string) ([]model.VariantDimension, error)
	ListOptions(ctx context.Context, productID string) ([]model.VariantOption, error)

	// SaveMatrix replaces every dimension and option of the product and writes
	// its has_variants / stock_quantity mirror, all in one transaction.
	SaveMatrix(ctx context.Context, p *model.Product, dims []model.VariantDimension, options []model.VariantOption) error

	// SaveOptions updates price, stock, sku and images of existing options plus the product stock mirror.
	SaveOptions(ctx context.Context, p *model.Product, options []model.VariantOption) error

	// Movements / Audit
	AdjustStockWithMovement(ctx context.Context, p *model.Product, option *model.VariantOption, movement *model.StockMovement) error
	ListMovements(ctx context.Context, productID, optionID string, limit int) ([]model.StockMovement, error)
}
