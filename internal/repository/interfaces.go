package repository

import (
	"context"

	"carpool/internal/domain/entities"
)

// IdentityRepository stores drivers and passengers under one key space:
// a national ID belongs to at most one identity of either kind.
type IdentityRepository interface {
	Create(ctx context.Context, identity entities.Identity) error
	GetByID(ctx context.Context, nationalID string) (entities.Identity, error)
	Drivers(ctx context.Context) ([]*entities.Driver, error)
	Passengers(ctx context.Context) ([]*entities.Passenger, error)
	Reset(ctx context.Context) error
}

// TripRepository keeps trips in insertion order; List and GetByDriverID
// return them in that order.
type TripRepository interface {
	Create(ctx context.Context, trip *entities.Trip) error
	GetByID(ctx context.Context, id string) (*entities.Trip, error)
	List(ctx context.Context) ([]*entities.Trip, error)
	GetByDriverID(ctx context.Context, driverID string) ([]*entities.Trip, error)
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context) error
}
