package engine

import (
	"strings"

	"github.com/fekuna/omnipos-variant-service/internal/model"
)

// Resolve turns a buyer's per-dimension selection into exactly one orderable
// option. Failures come back as *MatchError:
//   - IncompleteSelection when a required dimension has no value selected;
//   - NoMatchingOption when the selected combination is not in the option set;
//   - OutOfStock when the matched option has no stock left.
//
// Selections for dimensions that no option carries are ignored. Neither
// options nor dimensions are modified.
func Resolve(options []model.VariantOption, dims []model.VariantDimension, selection map[string]string) (model.VariantOption, error) {
	var missing []string
	for _, d := range dims {
		if d.IsRequired && strings.TrimSpace(selection[d.Name]) == "" {
			missing = append(missing, d.Name)
		}
	}
	if len(missing) > 0 {
		return model.VariantOption{}, &MatchError{Kind: IncompleteSelection, Missing: missing}
	}

	present := presentDimensions(options)
	wanted := make(model.ValueAssignment, 0, len(present))
	for _, d := range dims {
		if _, ok := present[d.Name]; !ok {
			continue
		}
		v, ok := selection[d.Name]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		wanted = append(wanted, model.AssignmentPair{Dimension: d.Name, Value: v})
	}
	label := wanted.Label()

	key := wanted.Key()
	for _, o := range options {
		if o.Assignment.Key() != key {
			continue
		}
		if o.StockQuantity <= 0 {
			return model.VariantOption{}, &MatchError{Kind: OutOfStock, Label: label}
		}
		return o.Clone(), nil
	}
	return model.VariantOption{}, &MatchError{Kind: NoMatchingOption, Label: label}
}

func presentDimensions(options []model.VariantOption) map[string]struct{} {
	present := make(map[string]struct{})
	for _, o := range options {
		for _, p := range o.Assignment {
			present[p.Dimension] = struct{}{}
		}
	}
	return present
}
