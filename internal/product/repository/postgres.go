package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/engine"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	query := `
		SELECT id, merchant_id, sku, name, base_price, has_variants,
		       stock_quantity, is_active, created_at, updated_at
		FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) UpdateStock(ctx context.Context, id string, quantity int) error {
	// has_variants is re-checked here so a concurrent variant edit wins.
	res, err := r.DB.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = $1, updated_at = $2
		WHERE id = $3 AND has_variants = false`,
		quantity, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return engine.ErrStockManagedByVariants
	}
	return nil
}
