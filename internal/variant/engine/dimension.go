package engine

import (
	"strings"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/google/uuid"
)

// DimensionInput is the operator-entered state of one dimension.
type DimensionInput struct {
	ProductID  string
	Name       string
	IsRequired bool
	Values     []model.ValueDetail
}

// AddDimension appends a new dimension after the existing ones. The input
// slice is left untouched; on error no dimension is added.
func AddDimension(dims []model.VariantDimension, in DimensionInput) ([]model.VariantDimension, error) {
	d, err := buildDimension(in)
	if err != nil {
		return nil, err
	}
	if err := checkNameFree(dims, d.Name, ""); err != nil {
		return nil, err
	}
	d.ID = uuid.New().String()
	if d.ProductID == "" && len(dims) > 0 {
		d.ProductID = dims[0].ProductID
	}

	out := append(model.CloneDimensions(dims), d)
	reorder(out)
	return out, nil
}

// RemoveDimension drops the dimension with the given id.
func RemoveDimension(dims []model.VariantDimension, id string) ([]model.VariantDimension, error) {
	idx := indexOf(dims, id)
	if idx < 0 {
		return nil, invalid("dimension_id", "dimension %q not found", id)
	}
	out := model.CloneDimensions(dims)
	out = append(out[:idx], out[idx+1:]...)
	reorder(out)
	return out, nil
}

// EditDimensionValues replaces the name, required flag and value list of the
// dimension with the given id.
func EditDimensionValues(dims []model.VariantDimension, id string, in DimensionInput) ([]model.VariantDimension, error) {
	idx := indexOf(dims, id)
	if idx < 0 {
		return nil, invalid("dimension_id", "dimension %q not found", id)
	}
	d, err := buildDimension(in)
	if err != nil {
		return nil, err
	}
	if err := checkNameFree(dims, d.Name, id); err != nil {
		return nil, err
	}

	out := model.CloneDimensions(dims)
	cur := &out[idx]
	cur.Name = d.Name
	cur.Code = d.Code
	cur.IsRequired = d.IsRequired
	cur.Values = d.Values
	return out, nil
}

// ValidateDimensions checks a full dimension list: non-empty unique names,
// non-empty value lists with unique non-empty values, no negative stock or price.
func ValidateDimensions(dims []model.VariantDimension) error {
	seen := make(map[string]struct{}, len(dims))
	for _, d := range dims {
		if err := validateDimension(d.Name, d.Values); err != nil {
			return err
		}
		key := foldName(d.Name)
		if _, dup := seen[key]; dup {
			return invalid("name", "dimension %q is defined more than once", d.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func buildDimension(in DimensionInput) (model.VariantDimension, error) {
	name := strings.TrimSpace(in.Name)
	values := make([]model.ValueDetail, len(in.Values))
	for i, v := range in.Values {
		values[i] = v
		values[i].Value = strings.TrimSpace(v.Value)
		if v.CustomPrice != nil {
			p := *v.CustomPrice
			values[i].CustomPrice = &p
		}
	}
	if err := validateDimension(name, values); err != nil {
		return model.VariantDimension{}, err
	}
	return model.VariantDimension{
		ProductID:  in.ProductID,
		Name:       name,
		Code:       NormalizePrefix(name),
		IsRequired: in.IsRequired,
		Values:     values,
	}, nil
}

func validateDimension(name string, values []model.ValueDetail) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "dimension name is required")
	}
	if len(values) == 0 {
		return invalid("values", "dimension %q needs at least one value", name)
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if strings.TrimSpace(v.Value) == "" {
			return invalid("values", "dimension %q has an empty value", name)
		}
		if v.StockQuantity < 0 {
			return invalid("stock_quantity", "value %q has negative stock", v.Value)
		}
		if v.CustomPrice != nil && v.CustomPrice.IsNegative() {
			return invalid("custom_price", "value %q has a negative price", v.Value)
		}
		key := foldName(v.Value)
		if _, dup := seen[key]; dup {
			return invalid("values", "value %q is listed more than once in %q", v.Value, name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func checkNameFree(dims []model.VariantDimension, name, exceptID string) error {
	key := foldName(name)
	for _, d := range dims {
		if d.ID != exceptID && foldName(d.Name) == key {
			return invalid("name", "dimension %q already exists", name)
		}
	}
	return nil
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func indexOf(dims []model.VariantDimension, id string) int {
	for i, d := range dims {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func reorder(dims []model.VariantDimension) {
	for i := range dims {
		dims[i].SortOrder = i
	}
}
