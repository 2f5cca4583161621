package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"carpool/internal/domain/entities"
	"carpool/internal/domain/validation"
)

var ErrInvalidCredentials = errors.New("invalid national id or password")

// ProfileInput carries the registration fields shared by both kinds. The
// password is plaintext here and nowhere else.
type ProfileInput struct {
	NationalID   string `json:"national_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Surname      string `json:"surname" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	AcademicYear string `json:"academic_year"`
	Address      string `json:"address"`
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

type DriverInput struct {
	ProfileInput
	VehicleName  string `json:"vehicle_name"`
	VehicleMake  string `json:"vehicle_make"`
	PlateNumber  string `json:"plate_number" binding:"required"`
	SeatCapacity int    `json:"seat_capacity" binding:"required"`
}

type PassengerInput struct {
	ProfileInput
}

// AuthService turns registration input into identities and checks
// credentials against the stored digest.
//
// Go Learning Note - bcrypt:
// bcrypt.GenerateFromPassword salts and hashes in one call, and the salt and
// cost are encoded in the digest itself, so CompareHashAndPassword needs
// nothing but the digest and the candidate. The cost doubles the work per
// step; tests use bcrypt.MinCost to stay fast.
type AuthService struct {
	engine *ReservationService
	cost   int
}

func NewAuthService(engine *ReservationService, cost int) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{engine: engine, cost: cost}
}

func (s *AuthService) profile(in ProfileInput) (entities.Profile, error) {
	if err := validation.Password(in.Password); err != nil {
		return entities.Profile{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return entities.Profile{}, err
	}
	return entities.Profile{
		NationalID:   strings.TrimSpace(in.NationalID),
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Phone:        strings.TrimSpace(in.Phone),
		AcademicYear: strings.TrimSpace(in.AcademicYear),
		Address:      strings.TrimSpace(in.Address),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
	}, nil
}

// NewDriver validates the input, hashes the password and registers the
// driver with the engine.
func (s *AuthService) NewDriver(ctx context.Context, in DriverInput) (*entities.Driver, error) {
	profile, err := s.profile(in.ProfileInput)
	if err != nil {
		return nil, err
	}
	d := &entities.Driver{
		Profile:      profile,
		VehicleName:  strings.TrimSpace(in.VehicleName),
		VehicleMake:  strings.TrimSpace(in.VehicleMake),
		PlateNumber:  strings.TrimSpace(in.PlateNumber),
		SeatCapacity: in.SeatCapacity,
	}
	if err := s.engine.RegisterIdentity(ctx, entities.DriverIdentity(d)); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *AuthService) NewPassenger(ctx context.Context, in PassengerInput) (*entities.Passenger, error) {
	profile, err := s.profile(in.ProfileInput)
	if err != nil {
		return nil, err
	}
	p := entities.NewPassenger(profile)
	if err := s.engine.RegisterIdentity(ctx, entities.PassengerIdentity(p)); err != nil {
		return nil, err
	}
	return p, nil
}

// Authenticate returns the identity whose digest matches password. Unknown
// IDs and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, nationalID, password string) (entities.Identity, error) {
	identity, err := s.engine.LookupIdentity(ctx, strings.TrimSpace(nationalID))
	if errors.Is(err, entities.ErrIdentityNotFound) {
		return entities.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return entities.Identity{}, err
	}
	hash := identity.Profile().PasswordHash
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return entities.Identity{}, ErrInvalidCredentials
	}
	return identity, nil
}
