package util

import "github.com/google/uuid"

// NewID returns a random UUIDv4 string used for message and turn identifiers.
func NewID() string {
	return uuid.NewString()
}
