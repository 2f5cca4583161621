package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"carpool/internal/domain/entities"
)

func setupAuthService() (*AuthService, *ReservationService) {
	engine := setupReservationService()
	return NewAuthService(engine, bcrypt.MinCost), engine
}

func validProfileInput(id string) ProfileInput {
	return ProfileInput{
		NationalID: id,
		Name:       "Youssef",
		Surname:    "Trabelsi",
		Phone:      "98765432",
		Email:      "Youssef@ENIT.rnu.tn",
		Password:   "S3cure!pass",
	}
}

func TestAuthService_NewDriverHashesPassword(t *testing.T) {
	auth, engine := setupAuthService()
	ctx := context.Background()

	d, err := auth.NewDriver(ctx, DriverInput{
		ProfileInput: validProfileInput("12345678"),
		VehicleName:  "208",
		VehicleMake:  "Peugeot",
		PlateNumber:  "45tu1234",
		SeatCapacity: 4,
	})
	require.NoError(t, err)

	assert.NotEqual(t, "S3cure!pass", d.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte("S3cure!pass")))
	assert.Equal(t, "youssef@enit.rnu.tn", d.Email)
	assert.Equal(t, "45TU1234", d.PlateNumber)

	found, err := engine.LookupDriver(ctx, "12345678")
	require.NoError(t, err)
	assert.Same(t, d, found)
}

func TestAuthService_NewPassenger(t *testing.T) {
	auth, _ := setupAuthService()
	ctx := context.Background()

	p, err := auth.NewPassenger(ctx, PassengerInput{ProfileInput: validProfileInput("12345678")})
	require.NoError(t, err)
	assert.True(t, p.SeekingRide)

	_, err = auth.NewPassenger(ctx, PassengerInput{ProfileInput: validProfileInput("12345678")})
	assert.ErrorIs(t, err, entities.ErrDuplicateIdentity)
}

func TestAuthService_RejectsInvalidInput(t *testing.T) {
	auth, _ := setupAuthService()
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(*DriverInput)
		field string
	}{
		{"weak password", func(in *DriverInput) { in.Password = "password" }, "password"},
		{"bad email domain", func(in *DriverInput) { in.Email = "someone@yahoo.fr" }, "email"},
		{"short phone", func(in *DriverInput) { in.Phone = "1234" }, "phone"},
		{"digits in name", func(in *DriverInput) { in.Name = "R2D2" }, "name"},
		{"foreign plate", func(in *DriverInput) { in.PlateNumber = "AB-123-CD" }, "plateNumber"},
		{"too many seats", func(in *DriverInput) { in.SeatCapacity = 12 }, "seatCapacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DriverInput{
				ProfileInput: validProfileInput("12345678"),
				PlateNumber:  "1TU0001",
				SeatCapacity: 3,
			}
			tt.edit(&in)
			_, err := auth.NewDriver(ctx, in)
			var verr *entities.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	auth, _ := setupAuthService()
	ctx := context.Background()
	_, err := auth.NewPassenger(ctx, PassengerInput{ProfileInput: validProfileInput("12345678")})
	require.NoError(t, err)

	identity, err := auth.Authenticate(ctx, "12345678", "S3cure!pass")
	require.NoError(t, err)
	assert.Equal(t, entities.KindPassenger, identity.Kind())

	_, err = auth.Authenticate(ctx, "12345678", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate(ctx, "87654321", "S3cure!pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
