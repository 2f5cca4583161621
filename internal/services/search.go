package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"carpool/internal/domain/entities"
)

// TripFilter narrows SearchAvailableTrips. Empty fields match everything and
// a nil MaxPrice sets no ceiling.
type TripFilter struct {
	DepartureContains string
	ArrivalContains   string
	MaxPrice          *float64
}

// Go Learning Note - Text Folding:
// "Sfax" should find "SFAX" and "Ariana" should find "Arianá". Lower-casing
// handles the first. For the second the string is decomposed (NFD) so that
// "á" becomes "a" followed by a combining accent, the combining marks (class
// Mn) are removed, and the result is recomposed. A transform.Chain is not
// safe for concurrent use, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

type compiledFilter struct {
	departure string
	arrival   string
	maxPrice  *float64
}

func (f TripFilter) compile() compiledFilter {
	return compiledFilter{
		departure: fold(strings.TrimSpace(f.DepartureContains)),
		arrival:   fold(strings.TrimSpace(f.ArrivalContains)),
		maxPrice:  f.MaxPrice,
	}
}

// matches reports whether a trip is open for reservation and satisfies every
// predicate. Callers hold the engine's read lock.
func (f compiledFilter) matches(t *entities.Trip) bool {
	if t.IsFinished() || t.AvailableSeats() <= 0 {
		return false
	}
	if f.maxPrice != nil && t.Price > *f.maxPrice {
		return false
	}
	if f.departure != "" && !strings.Contains(fold(t.Departure), f.departure) {
		return false
	}
	if f.arrival != "" && !strings.Contains(fold(t.Arrival), f.arrival) {
		return false
	}
	return true
}
