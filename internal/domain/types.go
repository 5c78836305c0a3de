package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

type TrainClass string

const (
	ClassEconomy   TrainClass = "economy"
	ClassBusiness  TrainClass = "business"
	ClassExecutive TrainClass = "executive"
	ClassLuxury    TrainClass = "luxury"
)

func (c TrainClass) Valid() bool {
	switch c {
	case ClassEconomy, ClassBusiness, ClassExecutive, ClassLuxury:
		return true
	}
	return false
}

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatBooked    SeatStatus = "booked"
)

type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

type Customer struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	NationalID string
	Name       string
	Address    string
	Phone      string
}

type Staff struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Name    string
	Address string
	Phone   string
}

type Train struct {
	ID          uuid.UUID
	Name        string
	Description string
	Class       TrainClass
	CreatedAt   time.Time
}

type TrainWithWagons struct {
	Train
	Wagons []Wagon
}

type Wagon struct {
	ID        uuid.UUID
	TrainID   uuid.UUID
	Name      string
	Capacity  int
	CreatedAt time.Time
}

type WagonWithSeats struct {
	Wagon
	Seats []Seat
}

type Seat struct {
	ID      uuid.UUID
	WagonID uuid.UUID
	Number  int
}

// SeatWithWagon carries the wagon context a client needs to display a seat.
type SeatWithWagon struct {
	Seat
	WagonName string
}

// SeatWithStatus is the catalog view of a seat. Status reflects whether any
// booking detail references the seat on any schedule; per-schedule
// availability is the booking service's AvailableSeats.
type SeatWithStatus struct {
	SeatWithWagon
	Status SeatStatus
}

type Schedule struct {
	ID          uuid.UUID
	TrainID     uuid.UUID
	Origin      string
	Destination string
	DepartsAt   time.Time
	ArrivesAt   time.Time
	Price       int64
}

type ScheduleWithTrain struct {
	Schedule
	Train Train
}

// Passenger is one entry of a purchase request, in caller order.
type Passenger struct {
	NationalID string
	Name       string
}

type Booking struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	ScheduleID uuid.UUID
	CreatedAt  time.Time
}

// BookingDetail binds one passenger to one seat within a booking. ScheduleID
// is denormalized from the parent booking so that storage can enforce
// uniqueness of (schedule, seat).
type BookingDetail struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	ScheduleID    uuid.UUID
	SeatID        uuid.UUID
	NationalID    string
	PassengerName string
}

type DetailWithSeat struct {
	BookingDetail
	Seat      Seat
	WagonName string
}

type BookingWithDetails struct {
	Booking
	Schedule Schedule
	Train    Train
	Details  []DetailWithSeat
}

// TicketReport is the staff listing of bookings plus the revenue they earned.
type TicketReport struct {
	Bookings    []BookingWithDetails
	TotalIncome int64
}
