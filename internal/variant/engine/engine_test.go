package engine

import (
	"fmt"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/shopspring/decimal"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func values(pairs ...any) []model.ValueDetail {
	var out []model.ValueDetail
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.ValueDetail{Value: pairs[i].(string), StockQuantity: pairs[i+1].(int)})
	}
	return out
}

func dimension(id, name string, required bool, vals []model.ValueDetail) model.VariantDimension {
	return model.VariantDimension{ID: id, ProductID: "prod-1", Name: name, IsRequired: required, Values: vals}
}

// colorSize is Color{red: 5, blue: 2} x Size{S: 3, M: 9}.
func colorSize() []model.VariantDimension {
	return []model.VariantDimension{
		dimension("dim-color", "Color", true, values("red", 5, "blue", 2)),
		dimension("dim-size", "Size", true, values("S", 3, "M", 9)),
	}
}

func testGenerator() *Generator {
	g := NewGenerator(0)
	g.skus.now = func() time.Time { return time.UnixMilli(1_700_000_123_456) }
	n := 0
	g.newID = func() string {
		n++
		return fmt.Sprintf("opt-%d", n)
	}
	return g
}

func findOption(options []model.VariantOption, label string) (model.VariantOption, bool) {
	for _, o := range options {
		if o.Label == label {
			return o, true
		}
	}
	return model.VariantOption{}, false
}
