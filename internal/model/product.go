package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the host product record. It is owned by the product catalog;
// this service reads BasePrice and mirrors StockQuantity while HasVariants is set.
type Product struct {
	ID            string          `db:"id" json:"id"`
	MerchantID    string          `db:"merchant_id" json:"merchant_id"`
	SKU           string          `db:"sku" json:"sku"`
	Name          string          `db:"name" json:"name"`
	BasePrice     decimal.Decimal `db:"base_price" json:"base_price"`
	HasVariants   bool            `db:"has_variants" json:"has_variants"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"` // Read-only while HasVariants
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
