package event

import "time"

// Event is the read-only view of a catalog event used by admission, scanning and analytics.
type Event struct {
	ID          int64
	Name        string
	Capacity    int
	Price       *float64
	StartsAt    time.Time
	CreatorID   int64
	SalesPaused bool
}

// UnitPrice returns the ticket price, or 0 for events without one.
func (e *Event) UnitPrice() float64 {
	if e.Price == nil {
		return 0
	}
	return *e.Price
}

// AssignedTeam is a team granted scanning rights over an event.
type AssignedTeam struct {
	ID       int64
	Name     string
	LeaderID int64
}
