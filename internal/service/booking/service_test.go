package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kirinyoku/rail-go/internal/domain"
	"github.com/kirinyoku/rail-go/internal/repository"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Schedule(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schedule), args.Error(1)
}

func (m *mockStore) Customer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockStore) TrainSeats(ctx context.Context, trainID uuid.UUID) ([]domain.SeatWithWagon, error) {
	args := m.Called(ctx, trainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatWithWagon), args.Error(1)
}

func (m *mockStore) BookedSeatIDs(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockStore) CreateBooking(ctx context.Context, b domain.Booking, details []domain.BookingDetail) error {
	args := m.Called(ctx, b, details)
	return args.Error(0)
}

func (m *mockStore) BookingWithDetails(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingWithDetails), args.Error(1)
}

func (m *mockStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.BookingWithDetails, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BookingWithDetails), args.Error(1)
}

func (m *mockStore) ListAll(ctx context.Context, from, to *time.Time) ([]domain.BookingWithDetails, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BookingWithDetails), args.Error(1)
}

func fixtureSchedule() *domain.Schedule {
	return &domain.Schedule{
		ID:          uuid.New(),
		TrainID:     uuid.New(),
		Origin:      "Jakarta",
		Destination: "Bandung",
		DepartsAt:   time.Now().Add(24 * time.Hour),
		ArrivesAt:   time.Now().Add(27 * time.Hour),
		Price:       150000,
	}
}

func fixtureCustomer() *domain.Customer {
	return &domain.Customer{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		NationalID: "3171000000000001",
		Name:       "Customer",
	}
}

func fixtureSeats(wagon string, n int) []domain.SeatWithWagon {
	wagonID := uuid.New()
	out := make([]domain.SeatWithWagon, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.SeatWithWagon{
			Seat: domain.Seat{
				ID:      uuid.New(),
				WagonID: wagonID,
				Number:  i,
			},
			WagonName: wagon,
		})
	}
	return out
}

func TestService_AvailableSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("excludes seats booked for the schedule", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		seats := fixtureSeats("A", 4)

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).
			Return([]uuid.UUID{seats[1].ID, seats[3].ID}, nil)

		out, err := svc.AvailableSeats(ctx, sch.ID)

		assert.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, seats[0].ID, out[0].ID)
		assert.Equal(t, seats[2].ID, out[1].ID)
		store.AssertExpectations(t)
	})

	t.Run("preserves wagon then seat order", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		seats := append(fixtureSeats("A", 2), fixtureSeats("B", 2)...)

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).Return([]uuid.UUID{}, nil)

		out, err := svc.AvailableSeats(ctx, sch.ID)

		assert.NoError(t, err)
		assert.Len(t, out, 4)
		for i := range seats {
			assert.Equal(t, seats[i].ID, out[i].ID)
		}
	})

	t.Run("unknown schedule", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		id := uuid.New()
		store.On("Schedule", ctx, id).Return(nil, repository.ErrNotFound)

		_, err := svc.AvailableSeats(ctx, id)

		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})
}

func TestService_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns seats positionally and commits all details", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		cust := fixtureCustomer()
		seats := fixtureSeats("A", 3)

		passengers := []domain.Passenger{
			{NationalID: "111", Name: "First"},
			{NationalID: "222", Name: "Second"},
		}

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, cust.ID).Return(cust, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).Return([]uuid.UUID{}, nil)

		var captured []domain.BookingDetail
		store.On("CreateBooking", ctx, mock.AnythingOfType("domain.Booking"), mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(2).([]domain.BookingDetail)
			}).
			Return(nil)

		created := &domain.BookingWithDetails{
			Booking:  domain.Booking{CustomerID: cust.ID, ScheduleID: sch.ID},
			Schedule: *sch,
		}
		store.On("BookingWithDetails", ctx, mock.AnythingOfType("uuid.UUID")).Return(created, nil)

		out, err := svc.Purchase(ctx, cust.ID, sch.ID, passengers, "")

		assert.NoError(t, err)
		assert.Equal(t, created, out)
		assert.Len(t, captured, 2)
		assert.Equal(t, seats[0].ID, captured[0].SeatID)
		assert.Equal(t, "First", captured[0].PassengerName)
		assert.Equal(t, seats[1].ID, captured[1].SeatID)
		assert.Equal(t, "Second", captured[1].PassengerName)
		for _, d := range captured {
			assert.Equal(t, sch.ID, d.ScheduleID)
		}
		store.AssertExpectations(t)
	})

	t.Run("fills the train exactly to capacity", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		cust := fixtureCustomer()
		seats := fixtureSeats("A", 2)

		passengers := []domain.Passenger{
			{NationalID: "111", Name: "One"},
			{NationalID: "222", Name: "Two"},
		}

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, cust.ID).Return(cust, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).Return([]uuid.UUID{}, nil)
		store.On("CreateBooking", ctx, mock.Anything, mock.Anything).Return(nil)
		store.On("BookingWithDetails", ctx, mock.Anything).
			Return(&domain.BookingWithDetails{}, nil)

		_, err := svc.Purchase(ctx, cust.ID, sch.ID, passengers, "")

		assert.NoError(t, err)
	})

	t.Run("one passenger over capacity reports exact available count", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		cust := fixtureCustomer()
		seats := fixtureSeats("A", 2)

		passengers := []domain.Passenger{
			{NationalID: "111", Name: "One"},
			{NationalID: "222", Name: "Two"},
			{NationalID: "333", Name: "Three"},
		}

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, cust.ID).Return(cust, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).Return([]uuid.UUID{}, nil)

		_, err := svc.Purchase(ctx, cust.ID, sch.ID, passengers, "")

		var insufficient InsufficientSeatsError
		assert.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 2, insufficient.Available)
		store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("counts only seats free on this schedule", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		cust := fixtureCustomer()
		seats := fixtureSeats("A", 3)

		passengers := []domain.Passenger{
			{NationalID: "111", Name: "One"},
			{NationalID: "222", Name: "Two"},
		}

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, cust.ID).Return(cust, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).
			Return([]uuid.UUID{seats[0].ID, seats[1].ID}, nil)

		_, err := svc.Purchase(ctx, cust.ID, sch.ID, passengers, "")

		var insufficient InsufficientSeatsError
		assert.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 1, insufficient.Available)
	})

	t.Run("empty passenger list", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		cust := fixtureCustomer()

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, cust.ID).Return(cust, nil)

		_, err := svc.Purchase(ctx, cust.ID, sch.ID, nil, "")

		assert.ErrorIs(t, err, ErrNoPassengers)
		store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		id := uuid.New()
		store.On("Schedule", ctx, id).Return(nil, repository.ErrNotFound)

		_, err := svc.Purchase(ctx, uuid.New(), id, []domain.Passenger{{NationalID: "1", Name: "P"}}, "")

		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})

	t.Run("unknown customer", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		custID := uuid.New()

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, custID).Return(nil, repository.ErrNotFound)

		_, err := svc.Purchase(ctx, custID, sch.ID, []domain.Passenger{{NationalID: "1", Name: "P"}}, "")

		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})

	t.Run("losing a seat race surfaces as conflict", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		cust := fixtureCustomer()
		seats := fixtureSeats("A", 1)

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, cust.ID).Return(cust, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).Return([]uuid.UUID{}, nil)
		store.On("CreateBooking", ctx, mock.Anything, mock.Anything).
			Return(repository.ErrConflict)

		_, err := svc.Purchase(ctx, cust.ID, sch.ID, []domain.Passenger{{NationalID: "1", Name: "P"}}, "")

		assert.ErrorIs(t, err, ErrSeatsConflict)
	})

	t.Run("storage failure leaves no booking", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		sch := fixtureSchedule()
		cust := fixtureCustomer()
		seats := fixtureSeats("A", 2)

		boom := errors.New("insert failed")

		store.On("Schedule", ctx, sch.ID).Return(sch, nil)
		store.On("Customer", ctx, cust.ID).Return(cust, nil)
		store.On("TrainSeats", ctx, sch.TrainID).Return(seats, nil)
		store.On("BookedSeatIDs", ctx, sch.ID).Return([]uuid.UUID{}, nil)
		store.On("CreateBooking", ctx, mock.Anything, mock.Anything).Return(boom)

		out, err := svc.Purchase(ctx, cust.ID, sch.ID, []domain.Passenger{{NationalID: "1", Name: "P"}}, "")

		assert.Nil(t, out)
		assert.ErrorIs(t, err, boom)
		store.AssertNotCalled(t, "BookingWithDetails", mock.Anything, mock.Anything)
	})
}

func TestService_Tickets(t *testing.T) {
	ctx := context.Background()

	t.Run("ticket not found", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		id := uuid.New()
		store.On("BookingWithDetails", ctx, id).Return(nil, repository.ErrNotFound)

		_, err := svc.Ticket(ctx, id)

		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("report sums price per passenger", func(t *testing.T) {
		store := &mockStore{}
		svc := New(store, nil, nil, nil, Config{})

		bookings := []domain.BookingWithDetails{
			{
				Schedule: domain.Schedule{Price: 100},
				Details:  make([]domain.DetailWithSeat, 2),
			},
			{
				Schedule: domain.Schedule{Price: 250},
				Details:  make([]domain.DetailWithSeat, 1),
			},
		}

		store.On("ListAll", ctx, (*time.Time)(nil), (*time.Time)(nil)).Return(bookings, nil)

		report, err := svc.AllTickets(ctx, nil, nil)

		assert.NoError(t, err)
		assert.Equal(t, int64(450), report.TotalIncome)
		assert.Len(t, report.Bookings, 2)
	})
}
