package validator

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Required validates that a string is not empty after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:   field,
			Message: "field is required",
			Key:     "validation.required",
		},
	}
}

// MaxLen counts runes, not bytes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return utf8.RuneCountInString(value) <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters long", max),
			Key:     "validation.max_length",
		},
	}
}

// ValidLink accepts an absolute http(s) URL or a site-relative path starting with "/".
// Protocol-relative values ("//host") are rejected.
func ValidLink(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if value == "" || strings.ContainsAny(value, " \t\r\n") {
				return false
			}
			if strings.HasPrefix(value, "/") {
				return !strings.HasPrefix(value, "//")
			}
			u, err := url.ParseRequestURI(value)
			if err != nil {
				return false
			}
			return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be an http(s) URL or a path starting with /",
			Key:     "validation.link",
		},
	}
}
