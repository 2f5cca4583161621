package entities

// Graph is the complete in-memory object graph: every registered identity
// and every trip, in insertion order. Trips point into the same Driver and
// Passenger values that the identity lists hold.
type Graph struct {
	Drivers    []*Driver
	Passengers []*Passenger
	Trips      []*Trip
}
