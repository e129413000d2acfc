package dto

import "github.com/fekuna/omnipos-variant-service/internal/model"

// VariantMatrix is the state of a product's variants after an edit.
type VariantMatrix struct {
	Product    model.Product            `json:"product"`
	Dimensions []model.VariantDimension `json:"dimensions"`
	Options    []model.VariantOption    `json:"options"`
}

type BulkEditResult struct {
	Matrix  *VariantMatrix `json:"matrix"`
	Updated int            `json:"updated"`
}

// Snapshot is the cached read model served to the storefront.
type Snapshot struct {
	Dimensions []model.VariantDimension `json:"dimensions"`
	Options    []model.VariantOption    `json:"options"`
}
