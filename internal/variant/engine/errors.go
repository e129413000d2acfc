package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStockManagedByVariants is returned when something other than the stock
// aggregator tries to write the host product's stock while it has variants.
var ErrStockManagedByVariants = errors.New("product stock is derived from its variant options")

// ValidationError reports rejected operator input. The operation it came from
// applied no mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// CombinationLimitError is returned when the cartesian product of the
// dimensions would exceed the generator's ceiling.
type CombinationLimitError struct {
	Limit int
}

func (e *CombinationLimitError) Error() string {
	return fmt.Sprintf("variant combinations exceed the limit of %d", e.Limit)
}

type MatchErrorKind string

const (
	IncompleteSelection MatchErrorKind = "incomplete_selection"
	NoMatchingOption    MatchErrorKind = "no_matching_option"
	OutOfStock          MatchErrorKind = "out_of_stock"
)

// Sentinels for errors.Is checks against a *MatchError of the same kind.
var (
	ErrIncompleteSelection = &MatchError{Kind: IncompleteSelection}
	ErrNoMatchingOption    = &MatchError{Kind: NoMatchingOption}
	ErrOutOfStock          = &MatchError{Kind: OutOfStock}
)

// MatchError is the typed failure of Resolve. None of its kinds may proceed to
// order placement.
type MatchError struct {
	Kind    MatchErrorKind
	Missing []string // Required dimensions absent from the selection
	Label   string   // Label built from the selection, if it got that far
}

func (e *MatchError) Error() string {
	switch e.Kind {
	case IncompleteSelection:
		if len(e.Missing) > 0 {
			return "please select: " + strings.Join(e.Missing, ", ")
		}
		return "please complete your selection"
	case NoMatchingOption:
		if e.Label != "" {
			return fmt.Sprintf("no option available for %q", e.Label)
		}
		return "no option available for this selection"
	case OutOfStock:
		if e.Label != "" {
			return fmt.Sprintf("%q is out of stock", e.Label)
		}
		return "selected option is out of stock"
	}
	return string(e.Kind)
}

func (e *MatchError) Is(target error) bool {
	t, ok := target.(*MatchError)
	return ok && t.Kind == e.Kind
}
