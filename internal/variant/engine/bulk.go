package engine

import (
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/shopspring/decimal"
)

type BulkField string

const (
	BulkFieldPrice BulkField = "price"
	BulkFieldStock BulkField = "stock"
)

// Selection is a caller-managed set of option IDs.
type Selection map[string]struct{}

func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips a single option in or out of the selection.
func (s Selection) Toggle(id string) {
	if s.Has(id) {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

// ToggleAll clears the selection when every option is already selected and
// selects every option otherwise.
func (s Selection) ToggleAll(options []model.VariantOption) {
	all := len(options) > 0
	for _, o := range options {
		if !s.Has(o.ID) {
			all = false
			break
		}
	}
	for id := range s {
		delete(s, id)
	}
	if all {
		return
	}
	for _, o := range options {
		s[o.ID] = struct{}{}
	}
}

func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// ApplyBulk sets field to value on every selected option and returns the
// edited copy with the number of options touched. On a validation failure the
// original slice is returned as-is together with a *ValidationError.
// Option count, SKUs and assignments never change.
func ApplyBulk(options []model.VariantOption, sel Selection, field BulkField, value string) ([]model.VariantOption, int, error) {
	if len(sel) == 0 {
		return options, 0, invalid("selected_ids", "select at least one option")
	}

	var (
		price decimal.Decimal
		stock int
	)
	raw := strings.TrimSpace(value)
	switch field {
	case BulkFieldPrice:
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return options, 0, invalid("value", "%q is not a valid price", value)
		}
		if p.IsNegative() {
			return options, 0, invalid("value", "price cannot be negative")
		}
		price = p
	case BulkFieldStock:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return options, 0, invalid("value", "%q is not a valid stock quantity", value)
		}
		if n < 0 {
			return options, 0, invalid("value", "stock cannot be negative")
		}
		stock = n
	default:
		return options, 0, invalid("field", "unknown bulk field %q", field)
	}

	out := model.CloneOptions(options)
	touched := 0
	for i := range out {
		if !sel.Has(out[i].ID) {
			continue
		}
		switch field {
		case BulkFieldPrice:
			p := price
			out[i].Price = &p
		case BulkFieldStock:
			out[i].StockQuantity = stock
		}
		touched++
	}
	return out, touched, nil
}
