package accounts

import "errors"

var (
	// ErrNotFound is returned when the requested profile does not exist.
	ErrNotFound = errors.New("profile not found")

	// ErrHasBookings is returned when a customer with booking history
	// is deleted.
	ErrHasBookings = errors.New("customer has bookings")
)
