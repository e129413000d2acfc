package product

import (
	"context"

	"github.com/fekuna/omnipos-variant-service/internal/model"
)

// Repository is the slice of the product catalog this service reads and writes.
type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// UpdateStock writes the stock scalar of a product without variants.
	UpdateStock(ctx context.Context, id string, quantity int) error
}
