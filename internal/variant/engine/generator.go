package engine

import (
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxCombinations caps the option matrix when no limit is configured.
const DefaultMaxCombinations = 1000

// Generator expands dimensions into the full option matrix.
type Generator struct {
	// MaxCombinations rejects matrices larger than this. Zero disables the cap.
	MaxCombinations int

	skus  *SKUGenerator
	newID func() string
}

func NewGenerator(maxCombinations int) *Generator {
	return &Generator{
		MaxCombinations: maxCombinations,
		skus:            NewSKUGenerator(),
		newID:           func() string { return uuid.New().String() },
	}
}

// Generate returns one option per combination of the dimensions' values, in
// dimension order then value order. No dimensions yields an empty list.
// The result always replaces whatever option list existed before.
func (g *Generator) Generate(dims []model.VariantDimension, basePrice decimal.Decimal) ([]model.VariantOption, error) {
	if len(dims) == 0 {
		return []model.VariantOption{}, nil
	}
	if err := ValidateDimensions(dims); err != nil {
		return nil, err
	}

	total := 1
	for _, d := range dims {
		total *= len(d.Values)
		if g.MaxCombinations > 0 && total > g.MaxCombinations {
			return nil, &CombinationLimitError{Limit: g.MaxCombinations}
		}
	}

	options := make([]model.VariantOption, 0, total)
	var walk func(depth int, acc model.ValueAssignment)
	walk = func(depth int, acc model.ValueAssignment) {
		if depth == len(dims) {
			assignment := acc.Clone()
			index := len(options)
			options = append(options, model.VariantOption{
				ID:            g.newID(),
				ProductID:     dims[0].ProductID,
				Label:         assignment.Label(),
				Assignment:    assignment,
				Price:         ResolvePrice(assignment, dims, basePrice),
				StockQuantity: ResolveStock(assignment, dims),
				SKU:           g.skus.OptionSKU(assignment, index),
				Images:        []string{},
				Position:      index,
			})
			return
		}
		d := dims[depth]
		for _, v := range d.Values {
			walk(depth+1, append(acc, model.AssignmentPair{Dimension: d.Name, Value: v.Value}))
		}
	}
	walk(0, make(model.ValueAssignment, 0, len(dims)))

	return options, nil
}

// MergeOverrides carries manual edits (price, stock, SKU, images) and option
// IDs from previous into regenerated for every combination present in both.
// Combinations that no longer exist are dropped; new ones keep resolved values.
func MergeOverrides(previous, regenerated []model.VariantOption) []model.VariantOption {
	byKey := make(map[string]model.VariantOption, len(previous))
	for _, o := range previous {
		byKey[o.Assignment.Key()] = o
	}

	merged := model.CloneOptions(regenerated)
	kept := make([]bool, len(merged))
	skus := make(map[string]struct{}, len(merged))
	for i := range merged {
		old, ok := byKey[merged[i].Assignment.Key()]
		if !ok {
			continue
		}
		kept[i] = true
		skus[old.SKU] = struct{}{}
		old = old.Clone()
		merged[i].ID = old.ID
		merged[i].Price = old.Price
		merged[i].StockQuantity = old.StockQuantity
		merged[i].SKU = old.SKU
		merged[i].Images = old.Images
		merged[i].CreatedAt = old.CreatedAt
	}

	// A fresh SKU may collide with a carried-over one when value tokens truncate alike.
	for i := range merged {
		if kept[i] {
			continue
		}
		if _, dup := skus[merged[i].SKU]; dup {
			merged[i].SKU = skuPrefix + "-" + randomToken()
		}
		skus[merged[i].SKU] = struct{}{}
	}
	return merged
}
