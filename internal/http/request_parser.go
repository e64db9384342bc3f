package http

import (
	"net/http"
	"net/url"
	"strings"

	"tally/internal/core"
)

// sanitizeInput removes control characters (except tab/newline/CR) and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// formField returns the sanitized value of a form field.
func formField(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

// optionalField returns a pointer to the sanitized value when the field was
// submitted at all, nil when it was absent. Distinguishing absent from empty
// matters for partial updates.
func optionalField(form url.Values, key string) *string {
	if !form.Has(key) {
		return nil
	}
	v := sanitizeInput(form.Get(key))
	return &v
}

// parseDateField parses an optional YYYY-MM-DD form field. An absent field
// yields a zero date; a malformed value is an error.
func parseDateField(form url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}
