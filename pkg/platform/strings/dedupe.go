// Package strings holds helpers for list-valued query parameters.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value such as "pending,Reviewing, pending"
// into lowercased, trimmed, distinct items in first-seen order. Blank items are
// dropped; an all-blank input yields nil.
func SplitList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		item := strings.ToLower(strings.TrimSpace(part))
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
