package entities

import (
	"fmt"
	"slices"
	"time"
)

// TripStatus is the observable lifecycle state of a trip.
//
// Go Learning Note - Derived State:
// The status is never stored next to the data it describes. Status() computes
// it from the finished flag and the two passenger lists, so a trip can never
// claim PENDING while its seats are all taken, or IN_PROGRESS with nobody
// aboard. The only asserted state is "finished", which is terminal:
//
//	PENDING ⇄ PENDING_APPROVAL ⇄ IN_PROGRESS → FINISHED
type TripStatus string

const (
	TripStatusPending         TripStatus = "PENDING"
	TripStatusPendingApproval TripStatus = "PENDING_APPROVAL"
	TripStatusInProgress      TripStatus = "IN_PROGRESS"
	TripStatusFinished        TripStatus = "FINISHED"
)

// ParseTripStatus validates a status read from outside the engine.
func ParseTripStatus(s string) (TripStatus, error) {
	switch st := TripStatus(s); st {
	case TripStatusPending, TripStatusPendingApproval, TripStatusInProgress, TripStatusFinished:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Value: s}
}

// Trip is a driver-published route with a fixed number of seats. Pending
// requests and accepted passengers are kept in insertion order and are only
// changed through the methods below, which keep these invariants:
//
//   - len(accepted) <= MaxSeats
//   - a passenger appears at most once across pending and accepted
//   - a finished trip is never mutated again
type Trip struct {
	ID        string        `json:"id"`
	Departure string        `json:"departure"`
	Arrival   string        `json:"arrival"`
	Duration  time.Duration `json:"duration"`
	Price     float64       `json:"price"`
	MaxSeats  int           `json:"max_seats"`
	Driver    *Driver       `json:"-"`

	pending  []*Passenger
	accepted []*Passenger
	finished bool
}

// NewTrip creates an empty trip whose capacity is the driver's seat capacity.
// Field validation is the caller's job.
func NewTrip(id string, driver *Driver, departure, arrival string, duration time.Duration, price float64) *Trip {
	return &Trip{
		ID:        id,
		Departure: departure,
		Arrival:   arrival,
		Duration:  duration,
		Price:     price,
		MaxSeats:  driver.SeatCapacity,
		Driver:    driver,
	}
}

// AvailableSeats is the only capacity gate for new requests and approvals.
func (t *Trip) AvailableSeats() int {
	return t.MaxSeats - len(t.accepted)
}

func (t *Trip) Status() TripStatus {
	switch {
	case t.finished:
		return TripStatusFinished
	case len(t.pending) > 0:
		return TripStatusPendingApproval
	case len(t.accepted) > 0:
		return TripStatusInProgress
	default:
		return TripStatusPending
	}
}

func (t *Trip) IsFinished() bool {
	return t.finished
}

// DriverID returns the owning driver's key, or "" when the trip has none.
func (t *Trip) DriverID() string {
	if t.Driver == nil {
		return ""
	}
	return t.Driver.NationalID
}

// Pending returns a copy of the pending requests in arrival order.
func (t *Trip) Pending() []*Passenger {
	return slices.Clone(t.pending)
}

// Accepted returns a copy of the accepted passengers in approval order.
func (t *Trip) Accepted() []*Passenger {
	return slices.Clone(t.accepted)
}

func (t *Trip) IsPending(passengerID string) bool {
	return indexOf(t.pending, passengerID) >= 0
}

func (t *Trip) IsAccepted(passengerID string) bool {
	return indexOf(t.accepted, passengerID) >= 0
}

// AddRequest appends p to the pending requests.
func (t *Trip) AddRequest(p *Passenger) error {
	if t.finished {
		return ErrTripClosed
	}
	if t.IsPending(p.NationalID) || t.IsAccepted(p.NationalID) {
		return ErrDuplicateRequest
	}
	if t.AvailableSeats() <= 0 {
		return ErrTripFull
	}
	t.pending = append(t.pending, p)
	return nil
}

// Approve moves a pending passenger to the accepted list. The seat check runs
// again here because seats may have filled since the request was made.
func (t *Trip) Approve(passengerID string) (*Passenger, error) {
	if t.finished {
		return nil, ErrTripClosed
	}
	i := indexOf(t.pending, passengerID)
	if i < 0 {
		return nil, ErrRequestNotFound
	}
	if t.AvailableSeats() <= 0 {
		return nil, ErrTripFull
	}
	p := t.pending[i]
	t.pending = slices.Delete(t.pending, i, i+1)
	t.accepted = append(t.accepted, p)
	p.SeekingRide = false
	return p, nil
}

// RemoveRequest drops a pending request. It serves both a driver's denial and
// a passenger's cancellation.
func (t *Trip) RemoveRequest(passengerID string) (*Passenger, error) {
	if t.finished {
		return nil, ErrTripClosed
	}
	i := indexOf(t.pending, passengerID)
	if i < 0 {
		return nil, ErrRequestNotFound
	}
	p := t.pending[i]
	t.pending = slices.Delete(t.pending, i, i+1)
	return p, nil
}

// Finish locks the trip. Every accepted passenger goes back to seeking a ride
// and requests that were never decided are dropped. The accepted passengers
// are returned so the caller can notify them.
func (t *Trip) Finish() ([]*Passenger, error) {
	if t.finished {
		return nil, ErrTripClosed
	}
	if len(t.accepted) == 0 {
		return nil, ErrNotInProgress
	}
	for _, p := range t.accepted {
		p.SeekingRide = true
	}
	t.pending = nil
	t.finished = true
	return t.Accepted(), nil
}

// TripSnapshot is a value copy of a trip for rendering outside the engine.
type TripSnapshot struct {
	ID              string     `json:"id"`
	Departure       string     `json:"departure"`
	Arrival         string     `json:"arrival"`
	DurationMinutes int        `json:"duration_minutes"`
	Price           float64    `json:"price"`
	MaxSeats        int        `json:"max_seats"`
	AvailableSeats  int        `json:"available_seats"`
	Status          TripStatus `json:"status"`
	DriverID        string     `json:"driver_id"`
	AcceptedIDs     []string   `json:"accepted_ids"`
	PendingIDs      []string   `json:"pending_ids"`
}

func (t *Trip) Snapshot() TripSnapshot {
	return TripSnapshot{
		ID:              t.ID,
		Departure:       t.Departure,
		Arrival:         t.Arrival,
		DurationMinutes: int(t.Duration / time.Minute),
		Price:           t.Price,
		MaxSeats:        t.MaxSeats,
		AvailableSeats:  t.AvailableSeats(),
		Status:          t.Status(),
		DriverID:        t.DriverID(),
		AcceptedIDs:     nationalIDs(t.accepted),
		PendingIDs:      nationalIDs(t.pending),
	}
}

// TripState is everything needed to rebuild a trip from persisted data.
type TripState struct {
	ID        string
	Departure string
	Arrival   string
	Duration  time.Duration
	Price     float64
	MaxSeats  int
	Driver    *Driver
	Accepted  []*Passenger
	Pending   []*Passenger
	Finished  bool
}

// RestoreTrip rebuilds a trip from persisted state. Entries that would break
// an invariant are dropped and described in the returned warnings: nil
// references, repeated passengers, acceptances beyond MaxSeats and pending
// requests on a finished trip.
func RestoreTrip(s TripState) (*Trip, []string, error) {
	if s.MaxSeats < 1 {
		return nil, nil, &ValidationError{Field: "maxSeats", Value: fmt.Sprint(s.MaxSeats)}
	}
	t := &Trip{
		ID:        s.ID,
		Departure: s.Departure,
		Arrival:   s.Arrival,
		Duration:  s.Duration,
		Price:     s.Price,
		MaxSeats:  s.MaxSeats,
		Driver:    s.Driver,
		finished:  s.Finished,
	}
	var warnings []string
	seen := make(map[string]bool)
	for _, p := range s.Accepted {
		switch {
		case p == nil:
			continue
		case seen[p.NationalID]:
			warnings = append(warnings, fmt.Sprintf("passenger %s listed twice", p.NationalID))
		case len(t.accepted) >= t.MaxSeats:
			warnings = append(warnings, fmt.Sprintf("passenger %s exceeds %d seats", p.NationalID, t.MaxSeats))
		default:
			seen[p.NationalID] = true
			t.accepted = append(t.accepted, p)
		}
	}
	for _, p := range s.Pending {
		switch {
		case p == nil:
			continue
		case s.Finished:
			warnings = append(warnings, fmt.Sprintf("pending passenger %s on finished trip", p.NationalID))
		case seen[p.NationalID]:
			warnings = append(warnings, fmt.Sprintf("passenger %s listed twice", p.NationalID))
		default:
			seen[p.NationalID] = true
			t.pending = append(t.pending, p)
		}
	}
	return t, warnings, nil
}

func indexOf(list []*Passenger, nationalID string) int {
	return slices.IndexFunc(list, func(p *Passenger) bool {
		return p.NationalID == nationalID
	})
}

func nationalIDs(list []*Passenger) []string {
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.NationalID)
	}
	return ids
}
