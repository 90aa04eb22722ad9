package ticket

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrSalesPaused         = errors.New("ticket sales are paused for this event")
	ErrSalesClosed         = errors.New("ticket sales have closed for this event")
	ErrEventFinished       = errors.New("event has already started")
	ErrCapacityExceeded    = errors.New("not enough tickets available")
	ErrGenerationExhausted = errors.New("could not generate a unique ticket code")
	ErrCodeCollision       = errors.New("ticket code collided on insert")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketNotUsed       = errors.New("ticket has not been used")
	ErrForbidden           = errors.New("not allowed to manage this ticket")
)

// CapacityError reports how many tickets were left when a purchase was rejected.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d available", e.Remaining)
}

// Is makes errors.Is(err, ErrCapacityExceeded) match.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
