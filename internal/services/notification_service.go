package services

import (
	"github.com/sirupsen/logrus"

	"carpool/internal/domain/entities"
)

// NotificationService announces reservation lifecycle events. Delivery is a
// structured log line for now; a push or mail client would hang off the same
// methods.
type NotificationService struct {
	log *logrus.Logger
}

func NewNotificationService(log *logrus.Logger) *NotificationService {
	return &NotificationService{log: log}
}

func (s *NotificationService) event(trip *entities.Trip, event string) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"event":     event,
		"trip_id":   trip.ID,
		"driver_id": trip.DriverID(),
		"departure": trip.Departure,
		"arrival":   trip.Arrival,
	})
}

// NotifyDriverOfRequest tells the driver a passenger asked for a seat.
func (s *NotificationService) NotifyDriverOfRequest(trip *entities.Trip, passenger *entities.Passenger) {
	s.event(trip, "request_submitted").
		WithField("passenger_id", passenger.NationalID).
		Infof("driver %s: new seat request from %s", trip.DriverID(), passenger.FullName())
}

// NotifyPassengerApproved tells the passenger the driver accepted them.
func (s *NotificationService) NotifyPassengerApproved(trip *entities.Trip, passenger *entities.Passenger) {
	s.event(trip, "request_approved").
		WithFields(logrus.Fields{
			"passenger_id":    passenger.NationalID,
			"available_seats": trip.AvailableSeats(),
		}).
		Infof("passenger %s: your seat is confirmed", passenger.NationalID)
}

func (s *NotificationService) NotifyPassengerDenied(trip *entities.Trip, passenger *entities.Passenger) {
	s.event(trip, "request_denied").
		WithField("passenger_id", passenger.NationalID).
		Infof("passenger %s: your request was declined", passenger.NationalID)
}

func (s *NotificationService) NotifyDriverOfCancellation(trip *entities.Trip, passenger *entities.Passenger) {
	s.event(trip, "request_cancelled").
		WithField("passenger_id", passenger.NationalID).
		Infof("driver %s: %s withdrew their request", trip.DriverID(), passenger.FullName())
}

// NotifyTripFinished tells every passenger who rode that the trip is over.
func (s *NotificationService) NotifyTripFinished(trip *entities.Trip, passengers []*entities.Passenger) {
	entry := s.event(trip, "trip_finished")
	for _, p := range passengers {
		entry.WithField("passenger_id", p.NationalID).
			Infof("passenger %s: trip completed, you can look for a new ride", p.NationalID)
	}
}

// NotifyTripRemoved tells the passengers of a withdrawn trip that it is gone.
func (s *NotificationService) NotifyTripRemoved(trip *entities.Trip, passengers []*entities.Passenger) {
	entry := s.event(trip, "trip_removed")
	if len(passengers) == 0 {
		entry.Info("trip removed")
		return
	}
	for _, p := range passengers {
		entry.WithField("passenger_id", p.NationalID).
			Infof("passenger %s: the trip was withdrawn by its driver", p.NationalID)
	}
}
