package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/api/middleware"
	"carpool/internal/domain/entities"
	"carpool/internal/services"
)

// DriverHandler groups the driver-facing endpoints: publishing trips,
// deciding on requests and finishing trips. It keeps no reservation state of
// its own; every decision is made by the reservation service.
type DriverHandler struct {
	reservationService *services.ReservationService
}

func NewDriverHandler(reservationService *services.ReservationService) *DriverHandler {
	return &DriverHandler{reservationService: reservationService}
}

// PublishTripRequest is the JSON body of POST /trips. Price has no
// `binding:"required"` because zero is a legal price.
type PublishTripRequest struct {
	Departure       string  `json:"departure" binding:"required"`
	Arrival         string  `json:"arrival" binding:"required"`
	DurationMinutes int     `json:"duration_minutes" binding:"required"`
	Price           float64 `json:"price"`
}

// PublishTrip handles POST /trips.
func (h *DriverHandler) PublishTrip(c *gin.Context) {
	var req PublishTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver := middleware.CurrentDriver(c)
	trip, err := h.reservationService.PublishTrip(
		c.Request.Context(),
		driver.NationalID,
		req.Departure,
		req.Arrival,
		time.Duration(req.DurationMinutes)*time.Minute,
		req.Price,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.reservationService.Describe(trip))
}

// ownTrip loads the trip named in the path and checks that the current
// driver published it. A trip's driver never changes, so the check stays
// valid for the rest of the request.
func (h *DriverHandler) ownTrip(c *gin.Context) (*entities.Trip, bool) {
	trip, ok := lookupTrip(c, h.reservationService)
	if !ok {
		return nil, false
	}
	if trip.DriverID() != middleware.CurrentDriver(c).NationalID {
		respondError(c, services.ErrNotTripOwner)
		return nil, false
	}
	return trip, true
}

// ApproveRequest handles POST /trips/:id/requests/:pid/approve.
func (h *DriverHandler) ApproveRequest(c *gin.Context) {
	trip, ok := h.ownTrip(c)
	if !ok {
		return
	}
	if err := h.reservationService.ApproveRequest(c.Request.Context(), trip.ID, c.Param("pid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.reservationService.Describe(trip))
}

// DenyRequest handles POST /trips/:id/requests/:pid/deny.
func (h *DriverHandler) DenyRequest(c *gin.Context) {
	trip, ok := h.ownTrip(c)
	if !ok {
		return
	}
	if err := h.reservationService.DenyRequest(c.Request.Context(), trip.ID, c.Param("pid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.reservationService.Describe(trip))
}

// FinishTrip handles POST /trips/:id/finish.
func (h *DriverHandler) FinishTrip(c *gin.Context) {
	trip, ok := h.ownTrip(c)
	if !ok {
		return
	}
	if err := h.reservationService.FinishTrip(c.Request.Context(), trip.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.reservationService.Describe(trip))
}

// RemoveTrip handles DELETE /trips/:id.
func (h *DriverHandler) RemoveTrip(c *gin.Context) {
	trip, ok := h.ownTrip(c)
	if !ok {
		return
	}
	if err := h.reservationService.RemoveTrip(c.Request.Context(), trip.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Inbox handles GET /driver/inbox: pending requests across the driver's
// open trips.
func (h *DriverHandler) Inbox(c *gin.Context) {
	driver := middleware.CurrentDriver(c)
	inbox, err := h.reservationService.DriverInbox(c.Request.Context(), driver.NationalID)
	if err != nil {
		respondError(c, err)
		return
	}
	if inbox == nil {
		inbox = []services.PendingRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"requests": inbox})
}

// Trips handles GET /driver/trips.
func (h *DriverHandler) Trips(c *gin.Context) {
	driver := middleware.CurrentDriver(c)
	trips, err := h.reservationService.TripsByDriver(c.Request.Context(), driver.NationalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}
