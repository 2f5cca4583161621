package memory

import (
	"context"
	"sync"

	"carpool/internal/domain/entities"
)

// IdentityRepository indexes identities by national ID and remembers the
// registration order of each kind so that saves are deterministic.
type IdentityRepository struct {
	mu         sync.RWMutex
	byID       map[string]entities.Identity
	drivers    []*entities.Driver
	passengers []*entities.Passenger
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID: make(map[string]entities.Identity),
	}
}

func (r *IdentityRepository) Create(ctx context.Context, identity entities.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := identity.NationalID()
	if _, exists := r.byID[id]; exists {
		return entities.ErrDuplicateIdentity
	}
	if d, ok := identity.AsDriver(); ok {
		r.drivers = append(r.drivers, d)
	} else if p, ok := identity.AsPassenger(); ok {
		r.passengers = append(r.passengers, p)
	} else {
		return entities.ErrWrongIdentityKind
	}
	r.byID[id] = identity
	return nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, nationalID string) (entities.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, exists := r.byID[nationalID]
	if !exists {
		return entities.Identity{}, entities.ErrIdentityNotFound
	}
	return identity, nil
}

func (r *IdentityRepository) Drivers(ctx context.Context) ([]*entities.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Driver, len(r.drivers))
	copy(out, r.drivers)
	return out, nil
}

func (r *IdentityRepository) Passengers(ctx context.Context) ([]*entities.Passenger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Passenger, len(r.passengers))
	copy(out, r.passengers)
	return out, nil
}

func (r *IdentityRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]entities.Identity)
	r.drivers = nil
	r.passengers = nil
	return nil
}
