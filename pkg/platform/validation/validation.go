// Package validation holds the field checks request structs share.
// Every failure is a CodeValidation domain error naming the field.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// Field limits used across request structs.
const (
	MaxNameLength  = 255
	MaxTitleLength = 255
	MaxEmailLength = 255
	MaxPhoneLength = 50
	MaxCodeLength  = 50
	MaxTextLength  = 10000
)

// Required fails when value is blank.
func Required(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	return nil
}

// MaxLength fails when value has more than max characters.
func MaxLength(value string, max int, field string) error {
	if utf8.RuneCountInString(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}

// MinLength fails when value has fewer than min characters.
func MinLength(value string, min int, field string) error {
	if utf8.RuneCountInString(value) < min {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be at least %d characters", field, min))
	}
	return nil
}

// RequiredMax combines Required and MaxLength.
func RequiredMax(value string, max int, field string) error {
	if err := Required(value, field); err != nil {
		return err
	}
	return MaxLength(value, max, field)
}

// OneOf fails when value is not among allowed.
func OneOf(value string, allowed []string, field string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// Range fails when value is outside [lo, hi].
func Range[T int | float64](value, lo, hi T, field string) error {
	if value < lo || value > hi {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be between %v and %v", field, lo, hi))
	}
	return nil
}

// First returns the first non-nil error, in argument order.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
