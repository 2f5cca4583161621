// Package utils provides shared helpers used across the application.
package utils

import (
	"github.com/google/uuid"
)

// GenerateTripID creates a new UUID v4 string naming a trip in memory.
//
// Go Learning Note - "github.com/google/uuid":
// Trips have no natural key in the flat-file schema (national IDs identify
// people, not rides), so each trip gets a random RFC 4122 id when it is
// published or loaded. The id is a session handle for API callers; it is
// never written to the trip file, which is why a reload hands out new ones.
func GenerateTripID() string {
	return uuid.New().String()
}

// IsTripID reports whether s parses as an id produced by GenerateTripID.
func IsTripID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
