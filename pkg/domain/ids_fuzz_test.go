package domain

import (
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

func FuzzParseUserID(f *testing.F) {
	for _, seed := range []string{
		"",
		"3f1c9a52-7a4e-4c1b-9d2e-8b5f0e6a7c10",
		uuid.Nil.String(),
		"{3f1c9a52-7a4e-4c1b-9d2e-8b5f0e6a7c10}",
		"3F1C9A52-7A4E-4C1B-9D2E-8B5F0E6A7C10",
		"3f1c9a52-7a4e-4c1b-9d2e-8b5f0e6a7c10\x00",
		"member",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		got, err := ParseUserID(input)
		if err != nil {
			return
		}
		if got.IsNil() {
			t.Fatalf("accepted nil id from %q", input)
		}
		if !utf8.ValidString(input) {
			t.Fatalf("accepted invalid utf-8 %q", input)
		}
		again, err := ParseUserID(got.String())
		if err != nil || again != got {
			t.Fatalf("round trip of %q changed: %v", input, err)
		}
	})
}

// Every tagged id shares one parser, so acceptance must agree across kinds.
func FuzzParseIDKindsAgree(f *testing.F) {
	f.Add("3f1c9a52-7a4e-4c1b-9d2e-8b5f0e6a7c10")
	f.Add("")
	f.Add("urn:uuid:3f1c9a52-7a4e-4c1b-9d2e-8b5f0e6a7c10")

	f.Fuzz(func(t *testing.T, input string) {
		_, base := ParseUserID(input)
		parsers := map[string]func(string) error{
			"application":   func(s string) error { _, err := ParseApplicationID(s); return err },
			"activity":      func(s string) error { _, err := ParseActivityID(s); return err },
			"certification": func(s string) error { _, err := ParseCertificationID(s); return err },
			"event":         func(s string) error { _, err := ParseEventID(s); return err },
			"registration":  func(s string) error { _, err := ParseRegistrationID(s); return err },
			"program":       func(s string) error { _, err := ParseProgramID(s); return err },
			"enrollment":    func(s string) error { _, err := ParseEnrollmentID(s); return err },
		}
		for kind, parse := range parsers {
			if err := parse(input); (err == nil) != (base == nil) {
				t.Fatalf("%s disagrees with user id on %q", kind, input)
			}
		}
	})
}

func FuzzParseRole(f *testing.F) {
	for _, seed := range []string{"", "guest", "user", "member", "admin", "Admin", "root"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		r, err := ParseRole(input)
		if err == nil && (string(r) != input || !r.IsValid()) {
			t.Fatalf("ParseRole(%q) = %q", input, r)
		}
	})
}
