package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"carpool/internal/domain/entities"
)

var ErrTripExists = errors.New("trip already exists")

// TripRepository stores trips in memory. A map gives O(1) lookup by ID while
// the slice preserves insertion order, which is the order searches and saves
// observe.
type TripRepository struct {
	mu    sync.RWMutex
	trips map[string]*entities.Trip
	order []*entities.Trip
}

func NewTripRepository() *TripRepository {
	return &TripRepository{
		trips: make(map[string]*entities.Trip),
	}
}

func (r *TripRepository) Create(ctx context.Context, trip *entities.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trips[trip.ID]; exists {
		return ErrTripExists
	}
	r.trips[trip.ID] = trip
	r.order = append(r.order, trip)
	return nil
}

func (r *TripRepository) GetByID(ctx context.Context, id string) (*entities.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trip, exists := r.trips[id]
	if !exists {
		return nil, entities.ErrTripNotFound
	}
	return trip, nil
}

func (r *TripRepository) List(ctx context.Context) ([]*entities.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order), nil
}

// GetByDriverID returns all trips of a driver. This is an O(n) scan; the
// trip count of a single deployment keeps that cheap.
func (r *TripRepository) GetByDriverID(ctx context.Context, driverID string) ([]*entities.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var trips []*entities.Trip
	for _, trip := range r.order {
		if trip.DriverID() == driverID {
			trips = append(trips, trip)
		}
	}
	return trips, nil
}

func (r *TripRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, exists := r.trips[id]
	if !exists {
		return entities.ErrTripNotFound
	}
	delete(r.trips, id)
	r.order = slices.DeleteFunc(r.order, func(t *entities.Trip) bool { return t == trip })
	return nil
}

func (r *TripRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trips = make(map[string]*entities.Trip)
	r.order = nil
	return nil
}
