package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carpool/internal/api/middleware"
	"carpool/internal/domain/entities"
	"carpool/internal/services"
)

// TripHandler serves trip search and the passenger side of a reservation.
type TripHandler struct {
	reservationService *services.ReservationService
}

func NewTripHandler(reservationService *services.ReservationService) *TripHandler {
	return &TripHandler{reservationService: reservationService}
}

// SearchTrips handles GET /trips?departure=&arrival=&max_price=.
// Only trips with a free seat that are not finished are listed, in the
// order they were published.
func (h *TripHandler) SearchTrips(c *gin.Context) {
	filter := services.TripFilter{
		DepartureContains: c.Query("departure"),
		ArrivalContains:   c.Query("arrival"),
	}
	if raw := c.Query("max_price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_price must be a number"})
			return
		}
		filter.MaxPrice = &price
	}

	trips := []entities.TripSnapshot{}
	for trip := range h.reservationService.SearchAvailableTrips(c.Request.Context(), filter) {
		trips = append(trips, h.reservationService.Describe(trip))
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// GetTrip handles GET /trips/:id.
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, ok := lookupTrip(c, h.reservationService)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.reservationService.Describe(trip))
}

// SubmitRequest handles POST /trips/:id/requests for the current passenger.
func (h *TripHandler) SubmitRequest(c *gin.Context) {
	passenger := middleware.CurrentPassenger(c)
	ctx := c.Request.Context()

	if err := h.reservationService.SubmitRequest(ctx, c.Param("id"), passenger.NationalID); err != nil {
		respondError(c, err)
		return
	}
	h.respondTrip(c, http.StatusCreated)
}

// CancelRequest handles DELETE /trips/:id/requests.
func (h *TripHandler) CancelRequest(c *gin.Context) {
	passenger := middleware.CurrentPassenger(c)
	ctx := c.Request.Context()

	if err := h.reservationService.CancelRequest(ctx, c.Param("id"), passenger.NationalID); err != nil {
		respondError(c, err)
		return
	}
	h.respondTrip(c, http.StatusOK)
}

// PassengerTrips handles GET /passenger/trips.
func (h *TripHandler) PassengerTrips(c *gin.Context) {
	passenger := middleware.CurrentPassenger(c)
	trips, err := h.reservationService.TripsForPassenger(c.Request.Context(), passenger.NationalID)
	if err != nil {
		respondError(c, err)
		return
	}
	if trips == nil {
		trips = []entities.TripSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func (h *TripHandler) respondTrip(c *gin.Context, status int) {
	trip, ok := lookupTrip(c, h.reservationService)
	if !ok {
		return
	}
	c.JSON(status, h.reservationService.Describe(trip))
}
