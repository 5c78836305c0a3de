package booking

import (
	"errors"
	"fmt"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrNoPassengers     = errors.New("passenger list is empty")
	ErrBookingNotFound  = errors.New("booking not found")
	// ErrSeatsConflict means a concurrent purchase grabbed one of the
	// assigned seats between the availability read and the commit.
	ErrSeatsConflict = errors.New("seats already taken")
)

// InsufficientSeatsError reports how many seats the schedule still has so the
// caller can shrink the request.
type InsufficientSeatsError struct {
	Available int
}

func (e InsufficientSeatsError) Error() string {
	return fmt.Sprintf("not enough seats: only %d available", e.Available)
}
