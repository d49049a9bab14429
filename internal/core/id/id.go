// Package id generates the identifiers attached to requests and traces.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7. Ids sort by creation time, which keeps
// request ids in log output roughly chronological.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// NewString returns New as its canonical string form.
func NewString() string {
	return New().String()
}

// NewSpanID returns 16 hex characters from a random UUID.
func NewSpanID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}
