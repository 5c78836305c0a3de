package catalog

import "errors"

var (
	// ErrTrainNotFound is returned when the referenced train does not exist.
	ErrTrainNotFound = errors.New("train not found")

	// ErrWagonNotFound is returned when the referenced wagon does not exist.
	ErrWagonNotFound = errors.New("wagon not found")

	// ErrSeatNotFound is returned when the referenced seat does not exist.
	ErrSeatNotFound = errors.New("seat not found")

	// ErrScheduleNotFound is returned when the referenced schedule does not
	// exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrInvalidClass is returned when a train class is not one of the
	// known values.
	ErrInvalidClass = errors.New("invalid train class")

	// ErrInvalidCapacity is returned when a wagon capacity is not positive.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrInvalidTimes is returned when a schedule would arrive before it
	// departs.
	ErrInvalidTimes = errors.New("departure must precede arrival")

	// ErrInUse is returned when a catalog entity with booking history is
	// deleted.
	ErrInUse = errors.New("entity is referenced by bookings")
)
