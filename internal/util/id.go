package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID, optionally prefixed with "prefix_".
func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// ValidID reports whether value is a UUID as issued by NewID without a
// prefix. Used to keep user ids safe as path segments.
func ValidID(value string) bool {
	if strings.TrimSpace(value) != value || value == "" {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
