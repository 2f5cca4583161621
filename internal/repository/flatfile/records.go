package flatfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"carpool/internal/domain/entities"
)

var (
	driverColumns = []string{
		"nationalId", "name", "surname", "phone", "academicYear", "address", "email", "passwordHash",
		"vehicleName", "vehicleMake", "plateNumber", "seatCapacity",
	}
	passengerColumns = []string{
		"nationalId", "name", "surname", "phone", "academicYear", "address", "email", "passwordHash",
		"seekingRide",
	}
	tripColumns = []string{
		"departure", "arrival", "durationMinutes", "status", "price", "driverId", "legacyPassengerId",
		"maxSeats", "acceptedIdsCsv", "pendingIdsCsv",
	}
)

const (
	legacyTripColumns = 7
	idListSeparator   = ","
)

func profileFields(p *entities.Profile) []string {
	return []string{p.NationalID, p.Name, p.Surname, p.Phone, p.AcademicYear, p.Address, p.Email, p.PasswordHash}
}

func profileFromFields(f []string) (entities.Profile, error) {
	if strings.TrimSpace(f[0]) == "" {
		return entities.Profile{}, &entities.ValidationError{Field: "nationalId", Value: f[0]}
	}
	return entities.Profile{
		NationalID:   f[0],
		Name:         f[1],
		Surname:      f[2],
		Phone:        f[3],
		AcademicYear: f[4],
		Address:      f[5],
		Email:        f[6],
		PasswordHash: f[7],
	}, nil
}

func encodeDriver(d *entities.Driver) []string {
	return append(profileFields(&d.Profile),
		d.VehicleName, d.VehicleMake, d.PlateNumber, strconv.Itoa(d.SeatCapacity))
}

func decodeDriver(f []string) (*entities.Driver, error) {
	if len(f) != len(driverColumns) {
		return nil, fieldCountError(len(driverColumns), len(f))
	}
	profile, err := profileFromFields(f)
	if err != nil {
		return nil, err
	}
	seats, err := strconv.Atoi(f[11])
	if err != nil || seats < 1 {
		return nil, &entities.ValidationError{Field: "seatCapacity", Value: f[11]}
	}
	return &entities.Driver{
		Profile:      profile,
		VehicleName:  f[8],
		VehicleMake:  f[9],
		PlateNumber:  strings.ToUpper(f[10]),
		SeatCapacity: seats,
	}, nil
}

func encodePassenger(p *entities.Passenger) []string {
	return append(profileFields(&p.Profile), strconv.FormatBool(p.SeekingRide))
}

func decodePassenger(f []string) (*entities.Passenger, error) {
	if len(f) != len(passengerColumns) {
		return nil, fieldCountError(len(passengerColumns), len(f))
	}
	profile, err := profileFromFields(f)
	if err != nil {
		return nil, err
	}
	seeking, err := strconv.ParseBool(f[8])
	if err != nil {
		return nil, &entities.ValidationError{Field: "seekingRide", Value: f[8]}
	}
	return &entities.Passenger{Profile: profile, SeekingRide: seeking}, nil
}

// encodeTrip writes the extended schema. The legacy column carries the first
// accepted passenger so that readers of the narrow schema still see one.
func encodeTrip(t *entities.Trip) []string {
	snap := t.Snapshot()
	legacy := ""
	if len(snap.AcceptedIDs) > 0 {
		legacy = snap.AcceptedIDs[0]
	}
	return []string{
		t.Departure,
		t.Arrival,
		strconv.Itoa(snap.DurationMinutes),
		string(snap.Status),
		strconv.FormatFloat(t.Price, 'f', -1, 64),
		snap.DriverID,
		legacy,
		strconv.Itoa(t.MaxSeats),
		strings.Join(snap.AcceptedIDs, idListSeparator),
		strings.Join(snap.PendingIDs, idListSeparator),
	}
}

// identityIndex resolves national IDs against the identities loaded so far.
type identityIndex struct {
	drivers    map[string]*entities.Driver
	passengers map[string]*entities.Passenger
}

func newIdentityIndex(drivers []*entities.Driver, passengers []*entities.Passenger) identityIndex {
	idx := identityIndex{
		drivers:    make(map[string]*entities.Driver, len(drivers)),
		passengers: make(map[string]*entities.Passenger, len(passengers)),
	}
	for _, d := range drivers {
		idx.drivers[d.NationalID] = d
	}
	for _, p := range passengers {
		idx.passengers[p.NationalID] = p
	}
	return idx
}

// decodedTrip is a trip record resolved against the identity index, plus the
// references it had to omit.
type decodedTrip struct {
	state    entities.TripState
	warnings []string
}

// decodeTrip accepts the narrow legacy schema (seven columns, one passenger)
// and the extended schema. Unknown IDs are omitted with a warning.
func decodeTrip(f []string, idx identityIndex) (*decodedTrip, error) {
	if len(f) != legacyTripColumns && len(f) != len(tripColumns) {
		return nil, fmt.Errorf("expected %d or %d fields, got %d", legacyTripColumns, len(tripColumns), len(f))
	}
	minutes, err := strconv.Atoi(f[2])
	if err != nil || minutes < 1 {
		return nil, &entities.ValidationError{Field: "durationMinutes", Value: f[2]}
	}
	status, err := entities.ParseTripStatus(f[3])
	if err != nil {
		return nil, err
	}
	price, err := strconv.ParseFloat(f[4], 64)
	if err != nil || price < 0 {
		return nil, &entities.ValidationError{Field: "price", Value: f[4]}
	}

	out := &decodedTrip{}
	driver := idx.drivers[f[5]]
	if driver == nil && f[5] != "" {
		out.warnings = append(out.warnings, fmt.Sprintf("unknown driver %s omitted", f[5]))
	}

	acceptedIDs := splitIDs(f[6])
	var pendingIDs []string
	maxSeats := 0
	if len(f) == len(tripColumns) {
		if f[7] != "" {
			maxSeats, err = strconv.Atoi(f[7])
			if err != nil || maxSeats < 0 {
				return nil, &entities.ValidationError{Field: "maxSeats", Value: f[7]}
			}
		}
		if ids := splitIDs(f[8]); len(ids) > 0 {
			acceptedIDs = ids
		}
		pendingIDs = splitIDs(f[9])
	}

	accepted := out.resolve(acceptedIDs, idx)
	if maxSeats == 0 {
		maxSeats = defaultMaxSeats(driver, len(accepted))
	}

	out.state = entities.TripState{
		Departure: f[0],
		Arrival:   f[1],
		Duration:  time.Duration(minutes) * time.Minute,
		Price:     price,
		MaxSeats:  maxSeats,
		Driver:    driver,
		Accepted:  accepted,
		Pending:   out.resolve(pendingIDs, idx),
		Finished:  status == entities.TripStatusFinished,
	}
	return out, nil
}

func (d *decodedTrip) resolve(ids []string, idx identityIndex) []*entities.Passenger {
	var out []*entities.Passenger
	for _, id := range ids {
		p, ok := idx.passengers[id]
		if !ok {
			d.warnings = append(d.warnings, fmt.Sprintf("unknown passenger %s omitted", id))
			continue
		}
		out = append(out, p)
	}
	return out
}

// defaultMaxSeats is used when a record predates the maxSeats column.
func defaultMaxSeats(driver *entities.Driver, accepted int) int {
	seats := 1
	if driver != nil {
		seats = driver.SeatCapacity
	}
	return max(seats, accepted)
}

func splitIDs(csv string) []string {
	var ids []string
	for _, id := range strings.Split(csv, idListSeparator) {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func fieldCountError(want, got int) error {
	return fmt.Errorf("expected %d fields, got %d", want, got)
}
