// Package fielderr carries per-field validation failures from the domain
// layer up to HTTP handlers, which render them as a {"field": "message"}
// JSON object with a 4xx status.
package fielderr

import (
	"sort"
	"strings"
)

// Fields maps a field name to a human-readable message.
type Fields map[string]string

// Error joins the messages in field order so the type satisfies error.
func (f Fields) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// Add records a message for a field, keeping the first message when the
// field already failed.
func (f Fields) Add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

// OrNil returns the map as an error, or nil when no field failed.
func (f Fields) OrNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// New builds a single-field error.
func New(field, message string) Fields {
	return Fields{field: message}
}
