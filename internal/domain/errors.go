package domain

import (
	"sort"
	"strings"
)

// FieldErrors maps form fields to validation messages. Handlers render
// it as the `fields` object of a 400 response, so a failed submission
// carries per-field messages back the same way the form would.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Add sets a message for a field, keeping the first one on conflict.
func (e FieldErrors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// OrNil returns the map as an error, or nil when it is empty.
func (e FieldErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
