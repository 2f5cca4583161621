package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpool/internal/domain/entities"
)

func testDriver(id string) *entities.Driver {
	return &entities.Driver{Profile: entities.Profile{NationalID: id}, SeatCapacity: 2}
}

func TestIdentityRepository_CreateAndGet(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	d := testDriver("11111111")
	p := entities.NewPassenger(entities.Profile{NationalID: "22222222"})
	require.NoError(t, repo.Create(ctx, entities.DriverIdentity(d)))
	require.NoError(t, repo.Create(ctx, entities.PassengerIdentity(p)))

	got, err := repo.GetByID(ctx, "11111111")
	require.NoError(t, err)
	gotDriver, ok := got.AsDriver()
	assert.True(t, ok)
	assert.Same(t, d, gotDriver)

	_, err = repo.GetByID(ctx, "33333333")
	assert.ErrorIs(t, err, entities.ErrIdentityNotFound)
}

func TestIdentityRepository_DuplicateAcrossKinds(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, entities.DriverIdentity(testDriver("11111111"))))
	err := repo.Create(ctx, entities.PassengerIdentity(entities.NewPassenger(entities.Profile{NationalID: "11111111"})))
	assert.ErrorIs(t, err, entities.ErrDuplicateIdentity)

	passengers, _ := repo.Passengers(ctx)
	assert.Empty(t, passengers)
}

func TestIdentityRepository_RejectsZeroIdentity(t *testing.T) {
	repo := NewIdentityRepository()
	assert.ErrorIs(t, repo.Create(context.Background(), entities.Identity{}), entities.ErrWrongIdentityKind)
}

func TestIdentityRepository_KeepsOrder(t *testing.T) {
	repo := NewIdentityRepository()
	ctx := context.Background()
	for _, id := range []string{"30000000", "10000000", "20000000"} {
		require.NoError(t, repo.Create(ctx, entities.DriverIdentity(testDriver(id))))
	}

	drivers, err := repo.Drivers(ctx)
	require.NoError(t, err)
	require.Len(t, drivers, 3)
	assert.Equal(t, "30000000", drivers[0].NationalID)
	assert.Equal(t, "10000000", drivers[1].NationalID)
	assert.Equal(t, "20000000", drivers[2].NationalID)

	require.NoError(t, repo.Reset(ctx))
	drivers, _ = repo.Drivers(ctx)
	assert.Empty(t, drivers)
}

func TestTripRepository(t *testing.T) {
	repo := NewTripRepository()
	ctx := context.Background()
	d1 := testDriver("11111111")
	d2 := testDriver("22222222")

	t1 := entities.NewTrip("t1", d1, "Tunis", "Sousse", time.Hour, 10)
	t2 := entities.NewTrip("t2", d2, "Sfax", "Gabes", time.Hour, 10)
	t3 := entities.NewTrip("t3", d1, "Sousse", "Tunis", time.Hour, 10)
	for _, trip := range []*entities.Trip{t1, t2, t3} {
		require.NoError(t, repo.Create(ctx, trip))
	}
	assert.ErrorIs(t, repo.Create(ctx, t1), ErrTripExists)

	got, err := repo.GetByID(ctx, "t2")
	require.NoError(t, err)
	assert.Same(t, t2, got)

	byDriver, err := repo.GetByDriverID(ctx, "11111111")
	require.NoError(t, err)
	assert.Equal(t, []*entities.Trip{t1, t3}, byDriver)

	require.NoError(t, repo.Delete(ctx, "t1"))
	assert.ErrorIs(t, repo.Delete(ctx, "t1"), entities.ErrTripNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*entities.Trip{t2, t3}, all)

	_, err = repo.GetByID(ctx, "t1")
	assert.ErrorIs(t, err, entities.ErrTripNotFound)
}
