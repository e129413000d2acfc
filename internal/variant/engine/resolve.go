package engine

import (
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/shopspring/decimal"
)

// ResolvePrice picks the full price of a combination:
//  1. the custom price of the first dimension (declared order) whose chosen value has one;
//  2. otherwise basePrice, if positive;
//  3. otherwise nil, left for the operator.
//
// Custom prices are never summed across dimensions.
func ResolvePrice(assignment model.ValueAssignment, dims []model.VariantDimension, basePrice decimal.Decimal) *decimal.Decimal {
	for _, d := range dims {
		v, ok := assignment.Get(d.Name)
		if !ok {
			continue
		}
		vd, ok := d.Value(v)
		if ok && vd.CustomPrice != nil {
			p := *vd.CustomPrice
			return &p
		}
	}
	if basePrice.IsPositive() {
		p := basePrice
		return &p
	}
	return nil
}

// ResolveStock returns the smallest stock among the values taking part in the
// combination, or 0 when none of them is known.
func ResolveStock(assignment model.ValueAssignment, dims []model.VariantDimension) int {
	found := false
	least := 0
	for _, d := range dims {
		v, ok := assignment.Get(d.Name)
		if !ok {
			continue
		}
		vd, ok := d.Value(v)
		if !ok {
			continue
		}
		if !found || vd.StockQuantity < least {
			least = vd.StockQuantity
			found = true
		}
	}
	if least < 0 {
		return 0
	}
	return least
}

func TotalStock(options []model.VariantOption) int {
	total := 0
	for _, o := range options {
		total += o.StockQuantity
	}
	return total
}

// MirrorStock writes the options' total stock into the host product when it
// has variants. It reports whether the product's stock changed.
func MirrorStock(p *model.Product, options []model.VariantOption) bool {
	if p == nil || !p.HasVariants {
		return false
	}
	total := TotalStock(options)
	if p.StockQuantity == total {
		return false
	}
	p.StockQuantity = total
	return true
}

// CheckManualStockWrite guards direct edits of the product's stock scalar.
func CheckManualStockWrite(p model.Product) error {
	if p.HasVariants {
		return ErrStockManagedByVariants
	}
	return nil
}
