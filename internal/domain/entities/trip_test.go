package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(seats int) *Driver {
	return &Driver{
		Profile:      Profile{NationalID: "11111111", Name: "Amine", Surname: "Ben Salah"},
		VehicleName:  "Clio",
		VehicleMake:  "Renault",
		PlateNumber:  "123TU4567",
		SeatCapacity: seats,
	}
}

func newTestPassenger(id string) *Passenger {
	return NewPassenger(Profile{NationalID: id, Name: "Passenger " + id})
}

func newTestTrip(seats int) *Trip {
	return NewTrip("trip-1", newTestDriver(seats), "Tunis", "Sousse", 90*time.Minute, 12.5)
}

func TestNewTrip_CopiesDriverCapacity(t *testing.T) {
	trip := newTestTrip(3)

	assert.Equal(t, 3, trip.MaxSeats)
	assert.Equal(t, 3, trip.AvailableSeats())
	assert.Equal(t, TripStatusPending, trip.Status())
	assert.Equal(t, "11111111", trip.DriverID())
	assert.Empty(t, trip.Pending())
	assert.Empty(t, trip.Accepted())
}

func TestTrip_StatusIsDerived(t *testing.T) {
	trip := newTestTrip(2)
	p1 := newTestPassenger("20000001")
	p2 := newTestPassenger("20000002")

	require.NoError(t, trip.AddRequest(p1))
	assert.Equal(t, TripStatusPendingApproval, trip.Status())

	_, err := trip.Approve(p1.NationalID)
	require.NoError(t, err)
	assert.Equal(t, TripStatusInProgress, trip.Status())

	require.NoError(t, trip.AddRequest(p2))
	assert.Equal(t, TripStatusPendingApproval, trip.Status())

	_, err = trip.RemoveRequest(p2.NationalID)
	require.NoError(t, err)
	assert.Equal(t, TripStatusInProgress, trip.Status())

	_, err = trip.Finish()
	require.NoError(t, err)
	assert.Equal(t, TripStatusFinished, trip.Status())
}

func TestTrip_AddRequest_Duplicate(t *testing.T) {
	trip := newTestTrip(2)
	p := newTestPassenger("20000001")

	require.NoError(t, trip.AddRequest(p))
	assert.ErrorIs(t, trip.AddRequest(p), ErrDuplicateRequest)

	_, err := trip.Approve(p.NationalID)
	require.NoError(t, err)
	assert.ErrorIs(t, trip.AddRequest(p), ErrDuplicateRequest)
	assert.Len(t, trip.Accepted(), 1)
	assert.Empty(t, trip.Pending())
}

func TestTrip_AddRequest_Full(t *testing.T) {
	trip := newTestTrip(1)
	p1 := newTestPassenger("20000001")
	require.NoError(t, trip.AddRequest(p1))
	_, err := trip.Approve(p1.NationalID)
	require.NoError(t, err)

	assert.ErrorIs(t, trip.AddRequest(newTestPassenger("20000002")), ErrTripFull)
	assert.Empty(t, trip.Pending())
}

func TestTrip_Approve_BeyondCapacity(t *testing.T) {
	trip := newTestTrip(1)
	p1 := newTestPassenger("20000001")
	p2 := newTestPassenger("20000002")
	require.NoError(t, trip.AddRequest(p1))
	require.NoError(t, trip.AddRequest(p2))

	_, err := trip.Approve(p1.NationalID)
	require.NoError(t, err)
	assert.False(t, p1.SeekingRide)

	_, err = trip.Approve(p2.NationalID)
	assert.ErrorIs(t, err, ErrTripFull)
	assert.True(t, trip.IsPending(p2.NationalID))
	assert.Equal(t, 0, trip.AvailableSeats())
}

func TestTrip_Approve_NotPending(t *testing.T) {
	trip := newTestTrip(2)
	_, err := trip.Approve("29999999")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestTrip_RemoveRequest(t *testing.T) {
	trip := newTestTrip(2)
	p := newTestPassenger("20000001")
	require.NoError(t, trip.AddRequest(p))

	removed, err := trip.RemoveRequest(p.NationalID)
	require.NoError(t, err)
	assert.Same(t, p, removed)

	_, err = trip.RemoveRequest(p.NationalID)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestTrip_Finish(t *testing.T) {
	trip := newTestTrip(3)
	p1 := newTestPassenger("20000001")
	p2 := newTestPassenger("20000002")
	p3 := newTestPassenger("20000003")
	for _, p := range []*Passenger{p1, p2, p3} {
		require.NoError(t, trip.AddRequest(p))
	}
	_, err := trip.Approve(p1.NationalID)
	require.NoError(t, err)
	_, err = trip.Approve(p2.NationalID)
	require.NoError(t, err)

	finished, err := trip.Finish()
	require.NoError(t, err)
	assert.Len(t, finished, 2)
	assert.True(t, p1.SeekingRide)
	assert.True(t, p2.SeekingRide)
	assert.Empty(t, trip.Pending())
	assert.True(t, trip.IsFinished())

	_, err = trip.Finish()
	assert.ErrorIs(t, err, ErrTripClosed)
	assert.ErrorIs(t, trip.AddRequest(newTestPassenger("20000004")), ErrTripClosed)
	_, err = trip.Approve(p3.NationalID)
	assert.ErrorIs(t, err, ErrTripClosed)
	_, err = trip.RemoveRequest(p3.NationalID)
	assert.ErrorIs(t, err, ErrTripClosed)
}

func TestTrip_Finish_NeverUsed(t *testing.T) {
	trip := newTestTrip(2)
	require.NoError(t, trip.AddRequest(newTestPassenger("20000001")))

	_, err := trip.Finish()
	assert.ErrorIs(t, err, ErrNotInProgress)
	assert.False(t, trip.IsFinished())
	assert.Len(t, trip.Pending(), 1)
}

func TestTrip_PendingReturnsCopy(t *testing.T) {
	trip := newTestTrip(2)
	require.NoError(t, trip.AddRequest(newTestPassenger("20000001")))

	pending := trip.Pending()
	pending[0] = nil

	assert.NotNil(t, trip.Pending()[0])
}

func TestTrip_Snapshot(t *testing.T) {
	trip := newTestTrip(2)
	p1 := newTestPassenger("20000001")
	p2 := newTestPassenger("20000002")
	require.NoError(t, trip.AddRequest(p1))
	require.NoError(t, trip.AddRequest(p2))
	_, err := trip.Approve(p1.NationalID)
	require.NoError(t, err)

	snap := trip.Snapshot()
	assert.Equal(t, 90, snap.DurationMinutes)
	assert.Equal(t, 1, snap.AvailableSeats)
	assert.Equal(t, []string{"20000001"}, snap.AcceptedIDs)
	assert.Equal(t, []string{"20000002"}, snap.PendingIDs)
	assert.Equal(t, TripStatusPendingApproval, snap.Status)
}

func TestParseTripStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "PENDING_APPROVAL", "IN_PROGRESS", "FINISHED"} {
		st, err := ParseTripStatus(s)
		assert.NoError(t, err)
		assert.Equal(t, TripStatus(s), st)
	}

	_, err := ParseTripStatus("pending")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
	assert.Equal(t, "pending", verr.Value)
}

func TestRestoreTrip_DropsInvariantBreakers(t *testing.T) {
	driver := newTestDriver(2)
	p1 := newTestPassenger("20000001")
	p2 := newTestPassenger("20000002")
	p3 := newTestPassenger("20000003")
	p4 := newTestPassenger("20000004")

	trip, warnings, err := RestoreTrip(TripState{
		ID:        "trip-9",
		Departure: "Tunis",
		Arrival:   "Bizerte",
		Duration:  time.Hour,
		Price:     8,
		MaxSeats:  2,
		Driver:    driver,
		Accepted:  []*Passenger{p1, nil, p1, p2, p3},
		Pending:   []*Passenger{p2, p4},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"20000001", "20000002"}, trip.Snapshot().AcceptedIDs)
	assert.Equal(t, []string{"20000004"}, trip.Snapshot().PendingIDs)
	assert.Len(t, warnings, 3)
}

func TestRestoreTrip_Finished(t *testing.T) {
	p1 := newTestPassenger("20000001")
	trip, warnings, err := RestoreTrip(TripState{
		MaxSeats: 1,
		Driver:   newTestDriver(1),
		Accepted: []*Passenger{p1},
		Pending:  []*Passenger{newTestPassenger("20000002")},
		Finished: true,
	})
	require.NoError(t, err)

	assert.True(t, trip.IsFinished())
	assert.Empty(t, trip.Pending())
	assert.Len(t, warnings, 1)
}

func TestRestoreTrip_RejectsZeroSeats(t *testing.T) {
	_, _, err := RestoreTrip(TripState{MaxSeats: 0})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
