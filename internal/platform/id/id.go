// Package id issues unique identifiers for events, commands, and correlations.
package id

import "github.com/google/uuid"

// New returns a new random identifier.
func New() string {
	return uuid.NewString()
}

// Valid reports whether value parses as an identifier issued by New.
func Valid(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
