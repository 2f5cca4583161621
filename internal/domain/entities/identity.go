// Package entities defines the core domain models of the carpool system:
// drivers, passengers and the trips they share. These structs live in the
// innermost layer of the architecture and have no dependencies on files,
// HTTP, or logging.
//
// Go Learning Note - Closed Variant Sets:
// Go has no sum types. A common way to model "either a Driver or a
// Passenger" without falling back to type switches on interface{} is a small
// tagged struct: a Kind discriminator plus one pointer per variant, with
// constructor functions that guarantee exactly one pointer is set. Callers
// ask for a capability (AsDriver, AsPassenger) and get a comma-ok answer.
package entities

// Kind discriminates the Identity variants.
type Kind string

const (
	KindDriver    Kind = "driver"
	KindPassenger Kind = "passenger"
)

// Profile is the attribute set shared by every identity. NationalID is the
// primary key for all lookups and cross-references and never changes once
// the identity is registered.
type Profile struct {
	NationalID   string `json:"national_id"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Phone        string `json:"phone"`
	AcademicYear string `json:"academic_year"`
	Address      string `json:"address"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// FullName joins name and surname for display by collaborators.
func (p *Profile) FullName() string {
	if p.Surname == "" {
		return p.Name
	}
	return p.Name + " " + p.Surname
}

// Driver owns a vehicle and publishes trips. SeatCapacity is the vehicle's
// capacity copied into each trip the driver publishes; the driver carries no
// running seat counter.
type Driver struct {
	Profile
	VehicleName  string `json:"vehicle_name"`
	VehicleMake  string `json:"vehicle_make"`
	PlateNumber  string `json:"plate_number"`
	SeatCapacity int    `json:"seat_capacity"`
}

// Passenger requests seats on trips. SeekingRide is true while the passenger
// is looking for a seat.
type Passenger struct {
	Profile
	SeekingRide bool `json:"seeking_ride"`
}

// NewPassenger returns a passenger who is seeking a ride.
func NewPassenger(profile Profile) *Passenger {
	return &Passenger{Profile: profile, SeekingRide: true}
}

// Identity is either a Driver or a Passenger. The zero value holds neither
// and reports an empty Kind.
type Identity struct {
	kind      Kind
	driver    *Driver
	passenger *Passenger
}

// DriverIdentity wraps d.
func DriverIdentity(d *Driver) Identity {
	return Identity{kind: KindDriver, driver: d}
}

// PassengerIdentity wraps p.
func PassengerIdentity(p *Passenger) Identity {
	return Identity{kind: KindPassenger, passenger: p}
}

func (i Identity) Kind() Kind {
	return i.kind
}

// IsZero reports whether the identity wraps nothing.
func (i Identity) IsZero() bool {
	return i.driver == nil && i.passenger == nil
}

// Profile returns the shared attributes, or nil for the zero Identity.
func (i Identity) Profile() *Profile {
	switch i.kind {
	case KindDriver:
		return &i.driver.Profile
	case KindPassenger:
		return &i.passenger.Profile
	default:
		return nil
	}
}

// NationalID returns the profile key, or "" for the zero Identity.
func (i Identity) NationalID() string {
	if p := i.Profile(); p != nil {
		return p.NationalID
	}
	return ""
}

func (i Identity) AsDriver() (*Driver, bool) {
	return i.driver, i.kind == KindDriver
}

func (i Identity) AsPassenger() (*Passenger, bool) {
	return i.passenger, i.kind == KindPassenger
}
