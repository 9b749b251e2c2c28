package validator

import (
	"fmt"
	"slices"
)

// OneOf validates that value is one of options.
func OneOf[T comparable](field string, value T, options []T) Rule {
	return Rule{
		Check: func() bool {
			return slices.Contains(options, value)
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of: %v", options),
			Key:     "validation.one_of",
		},
	}
}

// RequiredSlice validates that a slice has at least one element.
func RequiredSlice[T any](field string, value []T) Rule {
	return Rule{
		Check: func() bool {
			return len(value) > 0
		},
		Error: ValidationError{
			Field:   field,
			Message: "must contain at least one item",
			Key:     "validation.required",
		},
	}
}

// Range validates min <= value <= max.
func Range[T Numeric](field string, value, min, max T) Rule {
	return Rule{
		Check: func() bool {
			return value >= min && value <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %v and %v", min, max),
			Key:     "validation.range",
		},
	}
}

// Min validates value >= min.
func Min[T Numeric](field string, value, min T) Rule {
	return Rule{
		Check: func() bool {
			return value >= min
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %v", min),
			Key:     "validation.min",
		},
	}
}
