package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	labelPairSeparator  = " - "
	labelValueSeparator = ": "
)

type VariantDimension struct {
	ID         string        `db:"id" json:"id"`
	ProductID  string        `db:"product_id" json:"product_id"`
	Name       string        `db:"name" json:"name"`
	Code       string        `db:"code" json:"code"` // Short SKU-safe prefix derived from Name
	SortOrder  int           `db:"sort_order" json:"sort_order"`
	IsRequired bool          `db:"is_required" json:"is_required"`
	Values     []ValueDetail `db:"-" json:"values"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// Value returns the detail for value v, if the dimension carries it.
func (d VariantDimension) Value(v string) (ValueDetail, bool) {
	for _, vd := range d.Values {
		if vd.Value == v {
			return vd, true
		}
	}
	return ValueDetail{}, false
}

type ValueDetail struct {
	Value         string           `json:"value"`
	StockQuantity int              `json:"stock_quantity"`
	CustomPrice   *decimal.Decimal `json:"custom_price,omitempty"` // Nil when the value has no price of its own
}

// AssignmentPair is one dimension/value choice inside a combination.
type AssignmentPair struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

// ValueAssignment is the ordered dimension -> value pairing of an option.
// Order follows the dimensions' declared order.
type ValueAssignment []AssignmentPair

func (a ValueAssignment) Get(dimension string) (string, bool) {
	for _, p := range a {
		if p.Dimension == dimension {
			return p.Value, true
		}
	}
	return "", false
}

// Label joins "dimension: value" pairs in assignment order, e.g. "Color: Red - Size: M".
func (a ValueAssignment) Label() string {
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = p.Dimension + labelValueSeparator + p.Value
	}
	return strings.Join(parts, labelPairSeparator)
}

// Key is an order-independent encoding of the assignment. Two assignments
// holding the same pairs produce the same key whatever their order.
func (a ValueAssignment) Key() string {
	pairs := make([]string, len(a))
	for i, p := range a {
		pairs[i] = strconv.Quote(p.Dimension) + "=" + strconv.Quote(p.Value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (a ValueAssignment) Clone() ValueAssignment {
	if a == nil {
		return nil
	}
	out := make(ValueAssignment, len(a))
	copy(out, a)
	return out
}

type VariantOption struct {
	ID            string           `db:"id" json:"id"`
	ProductID     string           `db:"product_id" json:"product_id"`
	Label         string           `db:"label" json:"label"`
	Assignment    ValueAssignment  `db:"-" json:"value_assignment"`
	Price         *decimal.Decimal `db:"-" json:"price,omitempty"` // Nil means the operator has to enter it
	StockQuantity int              `db:"stock_quantity" json:"stock_quantity"`
	SKU           string           `db:"sku" json:"sku"`
	Images        []string         `db:"-" json:"images"`
	Position      int              `db:"position" json:"position"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without touching the source list.
func (o VariantOption) Clone() VariantOption {
	out := o
	out.Assignment = o.Assignment.Clone()
	if o.Price != nil {
		p := *o.Price
		out.Price = &p
	}
	if o.Images != nil {
		out.Images = append(make([]string, 0, len(o.Images)), o.Images...)
	}
	return out
}

func CloneOptions(options []VariantOption) []VariantOption {
	if options == nil {
		return nil
	}
	out := make([]VariantOption, len(options))
	for i, o := range options {
		out[i] = o.Clone()
	}
	return out
}

func CloneDimensions(dims []VariantDimension) []VariantDimension {
	if dims == nil {
		return nil
	}
	out := make([]VariantDimension, len(dims))
	for i, d := range dims {
		out[i] = d
		out[i].Values = make([]ValueDetail, len(d.Values))
		for j, v := range d.Values {
			out[i].Values[j] = v
			if v.CustomPrice != nil {
				p := *v.CustomPrice
				out[i].Values[j].CustomPrice = &p
			}
		}
	}
	return out
}
