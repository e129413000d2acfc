package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type dimensionRow struct {
	model.VariantDimension
	ValueDetails []byte `db:"value_details"`
}

type optionRow struct {
	model.VariantOption
	ValueAssignment []byte              `db:"value_assignment"`
	PriceAmount     decimal.NullDecimal `db:"price"`
	ImageURLs       []byte              `db:"images"`
}

func (r *PGRepository) ListDimensions(ctx context.Context, productID string) ([]model.VariantDimension, error) {
	var rows []dimensionRow
	query := `
		SELECT id, product_id, name, code, sort_order, is_required, value_details, created_at, updated_at
		FROM product_variant_dimensions
		WHERE product_id = $1
		ORDER BY sort_order ASC`
	if err := r.DB.SelectContext(ctx, &rows, query, productID); err != nil {
		return nil, err
	}

	dims := make([]model.VariantDimension, 0, len(rows))
	for _, row := range rows {
		d := row.VariantDimension
		if err := json.Unmarshal(row.ValueDetails, &d.Values); err != nil {
			return nil, fmt.Errorf("decode values of dimension %s: %w", d.ID, err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func (r *PGRepository) ListOptions(ctx context.Context, productID string) ([]model.VariantOption, error) {
	var rows []optionRow
	query := `
		SELECT id, product_id, label, value_assignment, price, stock_quantity, sku, images, position, created_at, updated_at
		FROM product_variant_options
		WHERE product_id = $1
		ORDER BY position ASC`
	if err := r.DB.SelectContext(ctx, &rows, query, productID); err != nil {
		return nil, err
	}

	options := make([]model.VariantOption, 0, len(rows))
	for _, row := range rows {
		o := row.VariantOption
		if err := json.Unmarshal(row.ValueAssignment, &o.Assignment); err != nil {
			return nil, fmt.Errorf("decode assignment of option %s: %w", o.ID, err)
		}
		if err := json.Unmarshal(row.ImageURLs, &o.Images); err != nil {
			return nil, fmt.Errorf("decode images of option %s: %w", o.ID, err)
		}
		if row.PriceAmount.Valid {
			p := row.PriceAmount.Decimal
			o.Price = &p
		}
		options = append(options, o)
	}
	return options, nil
}

func (r *PGRepository) SaveMatrix(ctx context.Context, p *model.Product, dims []model.VariantDimension, options []model.VariantOption) error {
	dimRows := make([]dimensionRow, 0, len(dims))
	for _, d := range dims {
		values, err := json.Marshal(d.Values)
		if err != nil {
			return err
		}
		dimRows = append(dimRows, dimensionRow{VariantDimension: d, ValueDetails: values})
	}
	optRows, err := toOptionRows(options)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The matrix is always replaced as a whole.
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_variant_options WHERE product_id = $1`, p.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_variant_dimensions WHERE product_id = $1`, p.ID); err != nil {
		return err
	}

	if len(dimRows) > 0 {
		query := `
			INSERT INTO product_variant_dimensions (
				id, product_id, name, code, sort_order, is_required, value_details, created_at, updated_at
			)
			VALUES (
				:id, :product_id, :name, :code, :sort_order, :is_required, :value_details, :created_at, :updated_at
			)`
		if _, err := tx.NamedExecContext(ctx, query, dimRows); err != nil {
			return err
		}
	}

	if len(optRows) > 0 {
		query := `
			INSERT INTO product_variant_options (
				id, product_id, label, value_assignment, price, stock_quantity, sku, images, position, created_at, updated_at
			)
			VALUES (
				:id, :product_id, :label, :value_assignment, :price, :stock_quantity, :sku, :images, :position, :created_at, :updated_at
			)`
		if _, err := tx.NamedExecContext(ctx, query, optRows); err != nil {
			return err
		}
	}

	if err := updateProductMirror(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) SaveOptions(ctx context.Context, p *model.Product, options []model.VariantOption) error {
	optRows, err := toOptionRows(options)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE product_variant_options
		SET price = :price,
		    stock_quantity = :stock_quantity,
		    sku = :sku,
		    images = :images,
		    updated_at = :updated_at
		WHERE id = :id AND product_id = :product_id`
	for _, row := range optRows {
		res, err := tx.NamedExecContext(ctx, query, row)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("variant option %s no longer exists", row.ID)
		}
	}

	if err := updateProductMirror(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) AdjustStockWithMovement(ctx context.Context, p *model.Product, option *model.VariantOption, movement *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Guard on the read value so a concurrent writer surfaces as an error.
	res, err := tx.ExecContext(ctx, `
		UPDATE product_variant_options
		SET stock_quantity = $1, updated_at = $2
		WHERE id = $3 AND product_id = $4 AND stock_quantity = $5`,
		option.StockQuantity, option.UpdatedAt, option.ID, p.ID, movement.QuantityBefore,
	)
	if err != nil {
		return fmt.Errorf("failed to update option stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("option %s: %w", option.ID, variant.ErrConcurrentUpdate)
	}

	if err := updateProductMirror(ctx, tx, p); err != nil {
		return err
	}

	query := `
		INSERT INTO variant_stock_movements (
			id, merchant_id, product_id, option_id,
			movement_type, quantity_change, quantity_before, quantity_after,
			reference_id, notes, created_at
		)
		VALUES (
			:id, :merchant_id, :product_id, :option_id,
			:movement_type, :quantity_change, :quantity_before, :quantity_after,
			:reference_id, :notes, :created_at
		)`
	if _, err := tx.NamedExecContext(ctx, query, movement); err != nil {
		return fmt.Errorf("failed to log movement: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) ListMovements(ctx context.Context, productID, optionID string, limit int) ([]model.StockMovement, error) {
	query := `SELECT * FROM variant_stock_movements WHERE product_id = $1`
	args := []interface{}{productID}
	if optionID != "" {
		query += ` AND option_id = $2`
		args = append(args, optionID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	items := []model.StockMovement{}
	if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func updateProductMirror(ctx context.Context, tx *sqlx.Tx, p *model.Product) error {
	query := `
		UPDATE products
		SET has_variants = :has_variants,
		    stock_quantity = :stock_quantity,
		    updated_at = :updated_at
		WHERE id = :id AND merchant_id = :merchant_id`
	_, err := tx.NamedExecContext(ctx, query, p)
	return err
}

func toOptionRows(options []model.VariantOption) ([]optionRow, error) {
	rows := make([]optionRow, 0, len(options))
	for _, o := range options {
		assignment, err := json.Marshal(o.Assignment)
		if err != nil {
			return nil, err
		}
		images := o.Images
		if images == nil {
			images = []string{}
		}
		imgs, err := json.Marshal(images)
		if err != nil {
			return nil, err
		}
		row := optionRow{VariantOption: o, ValueAssignment: assignment, ImageURLs: imgs}
		if o.Price != nil {
			row.PriceAmount = decimal.NullDecimal{Decimal: *o.Price, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
