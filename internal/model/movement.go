package model

import "time"

const (
	MovementTypeSale       = "sale"
	MovementTypeAdjustment = "adjustment"
)

// StockMovement is the audit record of one change to a variant option's stock.
type StockMovement struct {
	ID             string    `db:"id" json:"id"`
	MerchantID     string    `db:"merchant_id" json:"merchant_id"`
	ProductID      string    `db:"product_id" json:"product_id"`
	OptionID       string    `db:"option_id" json:"option_id"`
	MovementType   string    `db:"movement_type" json:"movement_type"`
	QuantityChange int       `db:"quantity_change" json:"quantity_change"`
	QuantityBefore int       `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int       `db:"quantity_after" json:"quantity_after"`
	ReferenceID    *string   `db:"reference_id" json:"reference_id,omitempty"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
