// Package email normalizes and checks email addresses.
package email

import (
	"net/mail"
	"strings"
	"unicode"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// Normalize trims and lower-cases an address.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Validate normalizes addr and checks it is a bare address (no display name).
func Validate(addr, field string) (string, error) {
	addr = Normalize(addr)
	if addr == "" {
		return "", dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr || !strings.Contains(addr[strings.IndexByte(addr, '@')+1:], ".") {
		return "", dErrors.New(dErrors.CodeValidation, field+" must be a valid email address")
	}
	return addr, nil
}

// NameFromAddress builds a display name from the local part, so
// "aida.bekova@example.kg" becomes "Aida Bekova". Tags after '+' are ignored.
func NameFromAddress(addr string) string {
	local, _, _ := strings.Cut(addr, "@")
	local, _, _ = strings.Cut(local, "+")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
