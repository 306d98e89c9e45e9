// Package uuidx standardizes on time-ordered (v7) UUIDs for run, turn and
// subscription identifiers.
package uuidx

import "github.com/google/uuid"

// New returns a fresh v7 UUID. It panics when the random source fails, which
// only happens when the OS entropy pool is broken.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh v7 UUID in string form.
func NewString() string {
	return New().String()
}
