package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain/entities"
	"carpool/internal/services"
	"carpool/pkg/utils"
)

// statusFor maps engine errors to HTTP status codes. Every handler reports
// failures through respondError so the mapping lives in one place.
func statusFor(err error) int {
	var verr *entities.ValidationError
	switch {
	case errors.Is(err, entities.ErrInvalidTripParameters), errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrIdentityNotFound),
		errors.Is(err, entities.ErrTripNotFound),
		errors.Is(err, entities.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrDuplicateIdentity),
		errors.Is(err, entities.ErrDuplicateRequest),
		errors.Is(err, entities.ErrTripFull),
		errors.Is(err, entities.ErrTripClosed),
		errors.Is(err, entities.ErrNotInProgress):
		return http.StatusConflict
	case errors.Is(err, entities.ErrWrongIdentityKind), errors.Is(err, services.ErrNotTripOwner):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var verr *entities.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}

// lookupTrip resolves the :id path parameter. Anything that is not a trip
// handle is reported as not found without consulting the engine.
func lookupTrip(c *gin.Context, reservationService *services.ReservationService) (*entities.Trip, bool) {
	id := c.Param("id")
	if !utils.IsTripID(id) {
		respondError(c, entities.ErrTripNotFound)
		return nil, false
	}
	trip, err := reservationService.GetTrip(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return trip, true
}
