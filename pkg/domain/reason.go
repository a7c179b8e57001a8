package domain

import (
	"strings"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// MaxReasonLength bounds rejection, failure and revocation notes.
const MaxReasonLength = 1000

// ValidateReason checks a required free-text reason and returns it trimmed.
func ValidateReason(reason, field string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len([]rune(reason)) > MaxReasonLength {
		return "", dErrors.New(dErrors.CodeValidation, field+" must be at most 1000 characters")
	}
	return reason, nil
}

// ValidateOptionalNote checks an optional note against the same bound.
func ValidateOptionalNote(note, field string) (string, error) {
	note = strings.TrimSpace(note)
	if len([]rune(note)) > MaxReasonLength {
		return "", dErrors.New(dErrors.CodeValidation, field+" must be at most 1000 characters")
	}
	return note, nil
}
