package dto

import "github.com/fekuna/omnipos-variant-service/internal/model"

type AddDimensionInput struct {
	MerchantID        string
	ProductID         string
	Name              string
	IsRequired        bool
	Values            []model.ValueDetail
	PreserveOverrides bool // Carry manual option edits over to surviving combinations
}

type RemoveDimensionInput struct {
	MerchantID        string
	ProductID         string
	DimensionID       string
	PreserveOverrides bool
}

type EditDimensionInput struct {
	MerchantID        string
	ProductID         string
	DimensionID       string
	Name              string
	IsRequired        bool
	Values            []model.ValueDetail
	PreserveOverrides bool
}

type BulkEditInput struct {
	MerchantID  string
	ProductID   string
	SelectedIDs []string
	Field       string // price or stock
	Value       string // Raw operator input, parsed by the engine
}

type ResolveOptionInput struct {
	ProductID string
	Selection map[string]string // dimension name -> chosen value
}

type AdjustOptionStockInput struct {
	MerchantID     string // Optional, checked when set
	ProductID      string
	OptionID       string
	QuantityChange int
	MovementType   string // Defaults to adjustment
	Reason         string
	ReferenceID    string
}

type SetProductStockInput struct {
	MerchantID    string
	ProductID     string
	StockQuantity int
}

type ListMovementsInput struct {
	MerchantID string
	ProductID  string
	OptionID   string // Optional
	Limit      int
}
