package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"carpool/internal/domain/entities"
	"carpool/internal/domain/validation"
	"carpool/internal/repository"
	"carpool/pkg/utils"
)

var ErrNotTripOwner = errors.New("trip belongs to another driver")

// ReservationService owns the identity/trip graph and every mutation of it.
//
// Go Learning Note - One Lock For The Graph:
// A request touches a trip and a passenger at the same time (approving sets
// the passenger's SeekingRide flag, finishing resets it for everyone aboard),
// so per-object locks would need a lock ordering to avoid deadlocks. Instead
// one sync.RWMutex guards the whole graph: mutations take the write lock,
// reads take the read lock. The repositories keep their own locks for their
// maps, which are always acquired after mu and never the other way round.
// Notifications are sent while mu is still held, so the notifier reads the
// trip exactly as the operation left it.
type ReservationService struct {
	mu         sync.RWMutex
	identities repository.IdentityRepository
	trips      repository.TripRepository
	notifier   *NotificationService
}

func NewReservationService(
	identities repository.IdentityRepository,
	trips repository.TripRepository,
	notifier *NotificationService,
) *ReservationService {
	return &ReservationService{
		identities: identities,
		trips:      trips,
		notifier:   notifier,
	}
}

// PendingRequest is one entry of a driver's inbox.
type PendingRequest struct {
	Trip      entities.TripSnapshot `json:"trip"`
	Passenger entities.Passenger    `json:"passenger"`
}

// RegisterIdentity validates and inserts a driver or passenger. National IDs
// are unique across both kinds.
func (s *ReservationService) RegisterIdentity(ctx context.Context, identity entities.Identity) error {
	if identity.IsZero() {
		return entities.ErrWrongIdentityKind
	}
	if err := validateIdentity(identity); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identities.Create(ctx, identity)
}

func validateIdentity(identity entities.Identity) error {
	p := identity.Profile()
	err := validation.First(
		validation.NationalID(p.NationalID),
		validation.Name("name", p.Name),
		validation.Name("surname", p.Surname),
		validation.Phone(p.Phone),
		validation.Email(p.Email),
	)
	if err != nil {
		return err
	}
	d, ok := identity.AsDriver()
	if !ok {
		return nil
	}
	plate, err := validation.PlateNumber(d.PlateNumber)
	if err != nil {
		return err
	}
	d.PlateNumber = plate
	return validation.SeatCapacity(d.SeatCapacity)
}

func (s *ReservationService) LookupIdentity(ctx context.Context, nationalID string) (entities.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identities.GetByID(ctx, nationalID)
}

// LookupDriver fails with ErrWrongIdentityKind when the ID belongs to a
// passenger.
func (s *ReservationService) LookupDriver(ctx context.Context, nationalID string) (*entities.Driver, error) {
	identity, err := s.LookupIdentity(ctx, nationalID)
	if err != nil {
		return nil, err
	}
	d, ok := identity.AsDriver()
	if !ok {
		return nil, entities.ErrWrongIdentityKind
	}
	return d, nil
}

func (s *ReservationService) LookupPassenger(ctx context.Context, nationalID string) (*entities.Passenger, error) {
	identity, err := s.LookupIdentity(ctx, nationalID)
	if err != nil {
		return nil, err
	}
	p, ok := identity.AsPassenger()
	if !ok {
		return nil, entities.ErrWrongIdentityKind
	}
	return p, nil
}

// PublishTrip creates a trip for a registered driver. Its capacity is the
// driver's seat capacity at this moment and never changes afterwards.
func (s *ReservationService) PublishTrip(ctx context.Context, driverID, departure, arrival string, duration time.Duration, price float64) (*entities.Trip, error) {
	departure, arrival = strings.TrimSpace(departure), strings.TrimSpace(arrival)
	err := validation.First(
		validation.Required("departure", departure),
		validation.Required("arrival", arrival),
		validation.Duration(duration),
		validation.Price(price),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrInvalidTripParameters, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	driver, err := s.driver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	trip := entities.NewTrip(utils.GenerateTripID(), driver, departure, arrival, duration.Truncate(time.Minute), price)
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *ReservationService) driver(ctx context.Context, id string) (*entities.Driver, error) {
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d, ok := identity.AsDriver()
	if !ok {
		return nil, entities.ErrWrongIdentityKind
	}
	return d, nil
}

func (s *ReservationService) passenger(ctx context.Context, id string) (*entities.Passenger, error) {
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, ok := identity.AsPassenger()
	if !ok {
		return nil, entities.ErrWrongIdentityKind
	}
	return p, nil
}

// SubmitRequest adds the passenger to the trip's pending requests.
func (s *ReservationService) SubmitRequest(ctx context.Context, tripID, passengerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	p, err := s.passenger(ctx, passengerID)
	if err != nil {
		return err
	}
	if err := trip.AddRequest(p); err != nil {
		return err
	}
	s.notifier.NotifyDriverOfRequest(trip, p)
	return nil
}

// ApproveRequest moves a pending passenger aboard. It fails with
// ErrTripFull when the last seat went to someone else in the meantime.
func (s *ReservationService) ApproveRequest(ctx context.Context, tripID, passengerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	p, err := trip.Approve(passengerID)
	if err != nil {
		return err
	}
	s.notifier.NotifyPassengerApproved(trip, p)
	return nil
}

// DenyRequest is the driver declining a pending request.
func (s *ReservationService) DenyRequest(ctx context.Context, tripID, passengerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	p, err := trip.RemoveRequest(passengerID)
	if err != nil {
		return err
	}
	s.notifier.NotifyPassengerDenied(trip, p)
	return nil
}

// CancelRequest is the passenger withdrawing their own pending request.
func (s *ReservationService) CancelRequest(ctx context.Context, tripID, passengerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	p, err := trip.RemoveRequest(passengerID)
	if err != nil {
		return err
	}
	s.notifier.NotifyDriverOfCancellation(trip, p)
	return nil
}

// FinishTrip closes the trip for good and frees its passengers to look for
// another ride.
func (s *ReservationService) FinishTrip(ctx context.Context, tripID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	riders, err := trip.Finish()
	if err != nil {
		return err
	}
	s.notifier.NotifyTripFinished(trip, riders)
	return nil
}

// RemoveTrip drops a trip from the graph. It no longer appears in searches
// or in the next save. Passengers aboard an unfinished trip lose their seat
// and go back to seeking a ride.
func (s *ReservationService) RemoveTrip(ctx context.Context, tripID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, tripID); err != nil {
		return err
	}
	var affected []*entities.Passenger
	if !trip.IsFinished() {
		affected = append(trip.Accepted(), trip.Pending()...)
		for _, p := range trip.Accepted() {
			p.SeekingRide = true
		}
	}
	s.notifier.NotifyTripRemoved(trip, affected)
	return nil
}

// SearchAvailableTrips yields the open trips matching filter in publication
// order.
//
// Go Learning Note - Lazy Sequences:
// The returned iter.Seq does no work until it is ranged over, and each range
// starts from the beginning again. Every trip is checked under the read lock
// just before it is yielded and the lock is released before yield runs, so
// the loop body may call back into the service (to submit a request, say)
// without deadlocking. A trip that fills up mid-iteration is simply not
// yielded.
func (s *ReservationService) SearchAvailableTrips(ctx context.Context, filter TripFilter) iter.Seq[*entities.Trip] {
	cf := filter.compile()
	return func(yield func(*entities.Trip) bool) {
		trips, err := s.trips.List(ctx)
		if err != nil {
			return
		}
		for _, t := range trips {
			if ctx.Err() != nil {
				return
			}
			s.mu.RLock()
			ok := cf.matches(t)
			s.mu.RUnlock()
			if ok && !yield(t) {
				return
			}
		}
	}
}

func (s *ReservationService) GetTrip(ctx context.Context, tripID string) (*entities.Trip, error) {
	return s.trips.GetByID(ctx, tripID)
}

// Describe copies a trip's current state for rendering.
func (s *ReservationService) Describe(t *entities.Trip) entities.TripSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return t.Snapshot()
}

// DriverInbox lists the pending requests across the driver's open trips,
// trip by trip in publication order.
func (s *ReservationService) DriverInbox(ctx context.Context, driverID string) ([]PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.driver(ctx, driverID); err != nil {
		return nil, err
	}
	trips, err := s.trips.GetByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	var inbox []PendingRequest
	for _, t := range trips {
		if t.IsFinished() {
			continue
		}
		snap := t.Snapshot()
		for _, p := range t.Pending() {
			inbox = append(inbox, PendingRequest{Trip: snap, Passenger: *p})
		}
	}
	return inbox, nil
}

// TripsByDriver returns every trip the driver published, finished ones
// included.
func (s *ReservationService) TripsByDriver(ctx context.Context, driverID string) ([]entities.TripSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trips, err := s.trips.GetByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.TripSnapshot, 0, len(trips))
	for _, t := range trips {
		out = append(out, t.Snapshot())
	}
	return out, nil
}

// TripsForPassenger returns the trips where the passenger is pending or
// aboard.
func (s *ReservationService) TripsForPassenger(ctx context.Context, passengerID string) ([]entities.TripSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []entities.TripSnapshot
	for _, t := range trips {
		if t.IsPending(passengerID) || t.IsAccepted(passengerID) {
			out = append(out, t.Snapshot())
		}
	}
	return out, nil
}

// Snapshot returns a deep copy of the graph. The copy shares nothing with
// the live engine, so it can be saved or exported without holding the lock.
func (s *ReservationService) Snapshot(ctx context.Context) (*entities.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drivers, err := s.identities.Drivers(ctx)
	if err != nil {
		return nil, err
	}
	passengers, err := s.identities.Passengers(ctx)
	if err != nil {
		return nil, err
	}
	trips, err := s.trips.List(ctx)
	if err != nil {
		return nil, err
	}

	g := &entities.Graph{}
	driverCopies := make(map[*entities.Driver]*entities.Driver, len(drivers))
	for _, d := range drivers {
		c := *d
		driverCopies[d] = &c
		g.Drivers = append(g.Drivers, &c)
	}
	passengerCopies := make(map[*entities.Passenger]*entities.Passenger, len(passengers))
	for _, p := range passengers {
		c := *p
		passengerCopies[p] = &c
		g.Passengers = append(g.Passengers, &c)
	}
	copyAll := func(ps []*entities.Passenger) []*entities.Passenger {
		out := make([]*entities.Passenger, 0, len(ps))
		for _, p := range ps {
			if c, ok := passengerCopies[p]; ok {
				out = append(out, c)
			}
		}
		return out
	}

	for _, t := range trips {
		trip, _, err := entities.RestoreTrip(entities.TripState{
			ID:        t.ID,
			Departure: t.Departure,
			Arrival:   t.Arrival,
			Duration:  t.Duration,
			Price:     t.Price,
			MaxSeats:  t.MaxSeats,
			Driver:    driverCopies[t.Driver],
			Accepted:  copyAll(t.Accepted()),
			Pending:   copyAll(t.Pending()),
			Finished:  t.IsFinished(),
		})
		if err != nil {
			return nil, fmt.Errorf("copying trip %s: %w", t.ID, err)
		}
		g.Trips = append(g.Trips, trip)
	}
	return g, nil
}

// Restore replaces the whole graph, typically with what the store loaded at
// startup. The graph's objects are adopted, not copied.
func (s *ReservationService) Restore(ctx context.Context, g *entities.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.identities.Reset(ctx); err != nil {
		return err
	}
	if err := s.trips.Reset(ctx); err != nil {
		return err
	}
	for _, d := range g.Drivers {
		if err := s.identities.Create(ctx, entities.DriverIdentity(d)); err != nil {
			return fmt.Errorf("restoring driver %s: %w", d.NationalID, err)
		}
	}
	for _, p := range g.Passengers {
		if err := s.identities.Create(ctx, entities.PassengerIdentity(p)); err != nil {
			return fmt.Errorf("restoring passenger %s: %w", p.NationalID, err)
		}
	}
	for _, t := range g.Trips {
		if t.ID == "" {
			t.ID = utils.GenerateTripID()
		}
		if err := s.trips.Create(ctx, t); err != nil {
			return fmt.Errorf("restoring trip %s: %w", t.ID, err)
		}
	}
	return nil
}
