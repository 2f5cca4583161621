// Package validation holds the field checks applied before any identity or
// trip enters the engine. Every function is pure and reports failures as an
// *entities.ValidationError naming the field and the value received.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"carpool/internal/domain/entities"
)

const (
	NationalIDLength  = 8
	PhoneLength       = 8
	MinPasswordLength = 8
	MinSeatCapacity   = 1
	MaxSeatCapacity   = 8
	MaxPrice          = 1000.0

	// PasswordSymbols is the set a password draws its mandatory symbol from.
	PasswordSymbols = "!@#$%^&*()-_=+[]{};:,.?/"
)

var (
	namePattern  = regexp.MustCompile(`^[\p{L}][\p{L}' -]*$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@(gmail\.com|([A-Za-z0-9-]+\.)+tn)$`)
	platePattern = regexp.MustCompile(`^[0-9]{1,3}TU[0-9]{4}$`)
)

func invalid(field, value string) error {
	return &entities.ValidationError{Field: field, Value: value}
}

func digits(field, value string, length int) error {
	if len(value) != length {
		return invalid(field, value)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return invalid(field, value)
		}
	}
	return nil
}

func NationalID(id string) error {
	return digits("nationalId", id, NationalIDLength)
}

func Phone(phone string) error {
	return digits("phone", phone, PhoneLength)
}

// Name accepts letters (accented ones included), spaces, hyphens and
// apostrophes. field is "name" or "surname".
func Name(field, value string) error {
	if !namePattern.MatchString(value) {
		return invalid(field, value)
	}
	return nil
}

// Email accepts addresses at gmail.com or under the .tn national domain.
func Email(email string) error {
	if !emailPattern.MatchString(strings.ToLower(email)) {
		return invalid("email", email)
	}
	return nil
}

// PlateNumber validates a national plate such as 123TU4567 and returns it
// upper-cased, the form in which it is stored.
func PlateNumber(plate string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(plate))
	if !platePattern.MatchString(normalized) {
		return "", invalid("plateNumber", plate)
	}
	return normalized, nil
}

func SeatCapacity(seats int) error {
	if seats < MinSeatCapacity || seats > MaxSeatCapacity {
		return invalid("seatCapacity", strconv.Itoa(seats))
	}
	return nil
}

// Password checks strength only. The value is deliberately left out of the
// returned error.
func Password(password string) error {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	if len(password) < MinPasswordLength || !lower || !upper || !digit || !symbol {
		return invalid("password", "")
	}
	return nil
}

// Required rejects blank free-text fields.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, value)
	}
	return nil
}

// Duration requires at least one whole minute.
func Duration(d time.Duration) error {
	if d < time.Minute {
		return invalid("duration", d.String())
	}
	return nil
}

func Price(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 || price > MaxPrice {
		return invalid("price", strconv.FormatFloat(price, 'f', -1, 64))
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
