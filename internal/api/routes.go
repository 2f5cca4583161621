package api

import (
	"github.com/gin-gonic/gin"

	"carpool/internal/api/handlers"
	"carpool/internal/api/middleware"
	"carpool/internal/services"
)

type Router struct {
	reservationService *services.ReservationService
	accountHandler     *handlers.AccountHandler
	tripHandler        *handlers.TripHandler
	driverHandler      *handlers.DriverHandler
}

func NewRouter(
	reservationService *services.ReservationService,
	accountHandler *handlers.AccountHandler,
	tripHandler *handlers.TripHandler,
	driverHandler *handlers.DriverHandler,
) *Router {
	return &Router{
		reservationService: reservationService,
		accountHandler:     accountHandler,
		tripHandler:        tripHandler,
		driverHandler:      driverHandler,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public endpoints
	engine.POST("/drivers", r.accountHandler.RegisterDriver)
	engine.POST("/passengers", r.accountHandler.RegisterPassenger)
	engine.POST("/login", r.accountHandler.Login)
	engine.GET("/trips", r.tripHandler.SearchTrips)
	engine.GET("/trips/:id", r.tripHandler.GetTrip)

	// Protected routes
	api := engine.Group("/")
	api.Use(middleware.Authenticate(r.reservationService))
	{
		// Driver endpoints
		driverRoutes := api.Group("/")
		driverRoutes.Use(middleware.RequireDriver())
		{
			driverRoutes.POST("/trips", r.driverHandler.PublishTrip)
			driverRoutes.POST("/trips/:id/requests/:pid/approve", r.driverHandler.ApproveRequest)
			driverRoutes.POST("/trips/:id/requests/:pid/deny", r.driverHandler.DenyRequest)
			driverRoutes.POST("/trips/:id/finish", r.driverHandler.FinishTrip)
			driverRoutes.DELETE("/trips/:id", r.driverHandler.RemoveTrip)
			driverRoutes.GET("/driver/inbox", r.driverHandler.Inbox)
			driverRoutes.GET("/driver/trips", r.driverHandler.Trips)
		}

		// Passenger endpoints
		passengerRoutes := api.Group("/")
		passengerRoutes.Use(middleware.RequirePassenger())
		{
			passengerRoutes.POST("/trips/:id/requests", r.tripHandler.SubmitRequest)
			passengerRoutes.DELETE("/trips/:id/requests", r.tripHandler.CancelRequest)
			passengerRoutes.GET("/passenger/trips", r.tripHandler.PassengerTrips)
		}
	}
}
