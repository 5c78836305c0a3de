package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/rail-go/internal/domain"
	redisx "github.com/kirinyoku/rail-go/internal/redis"
	"github.com/kirinyoku/rail-go/internal/repository"
	redisrepo "github.com/kirinyoku/rail-go/internal/repository/redis"
)

// Store is the persistence surface the booking service needs. The postgres
// BookingRepo implements it; tests substitute a mock.
type Store interface {
	Schedule(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	Customer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	TrainSeats(ctx context.Context, trainID uuid.UUID) ([]domain.SeatWithWagon, error)
	BookedSeatIDs(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error)
	CreateBooking(ctx context.Context, b domain.Booking, details []domain.BookingDetail) error
	BookingWithDetails(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.BookingWithDetails, error)
	ListAll(ctx context.Context, from, to *time.Time) ([]domain.BookingWithDetails, error)
}

type Config struct {
	AvailabilityTTL time.Duration
}

type Service struct {
	store   Store
	cache   *redisrepo.Cache
	pubsub  *redisx.SchedulesPubSub
	limiter *redisrepo.SlidingWindowLimiter
	cfg     Config
}

func New(
	store Store,
	cache *redisrepo.Cache,
	pubsub *redisx.SchedulesPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		cfg:     cfg,
	}
}

// AvailableSeats computes the seats of the schedule's train not yet bound to
// a booking detail on that schedule, ordered by wagon and then seat number.
// The read goes through the cache when one is configured; purchases always
// recompute from the store.
//
// Returns:
//   - []domain.SeatWithWagon: the available seats, stable order.
//   - error: booking.ErrScheduleNotFound if the schedule does not exist.
func (s *Service) AvailableSeats(ctx context.Context, scheduleID uuid.UUID) ([]domain.SeatWithWagon, error) {
	const op = "service.booking.AvailableSeats"

	if s.cache == nil {
		seats, err := s.availableSeats(ctx, scheduleID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return seats, nil
	}

	key := redisrepo.KeyScheduleAvailability(scheduleID)

	seats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) ([]domain.SeatWithWagon, error) {
			return s.availableSeats(ctx, scheduleID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return seats, nil
}

// Purchase books seats for the passengers on the given schedule.
//
// Seats are assigned positionally from the available sequence and the booking
// row plus all detail rows are committed as one atomic unit. The availability
// snapshot and the commit are separate steps; a concurrent purchase racing
// for the same seats loses at commit time on the (schedule, seat) uniqueness
// constraint and surfaces as ErrSeatsConflict.
//
// Returns:
//   - *domain.BookingWithDetails: the created booking with seat and wagon detail.
//   - error: booking.ErrScheduleNotFound, booking.ErrCustomerNotFound,
//     booking.ErrNoPassengers, booking.InsufficientSeatsError (carrying the
//     exact available count), or booking.ErrSeatsConflict.
func (s *Service) Purchase(
	ctx context.Context,
	customerID, scheduleID uuid.UUID,
	passengers []domain.Passenger,
	rlKey string,
) (*domain.BookingWithDetails, error) {
	const op = "service.booking.Purchase"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: rate limited, retry in %s", op, retry)
		}
	}

	sch, err := s.store.Schedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrScheduleNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.store.Customer(ctx, customerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrCustomerNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(passengers) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoPassengers)
	}

	available, err := s.availableSeatsFor(ctx, sch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(available) < len(passengers) {
		return nil, fmt.Errorf("%s: %w", op, InsufficientSeatsError{Available: len(available)})
	}

	bindings := assign(available, passengers)

	b := domain.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		ScheduleID: scheduleID,
	}

	details := make([]domain.BookingDetail, len(bindings))
	for i, bind := range bindings {
		details[i] = domain.BookingDetail{
			ID:            uuid.New(),
			BookingID:     b.ID,
			ScheduleID:    scheduleID,
			SeatID:        bind.Seat.ID,
			NationalID:    bind.Passenger.NationalID,
			PassengerName: bind.Passenger.Name,
		}
	}

	if err := s.store.CreateBooking(ctx, b, details); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrSeatsConflict)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateSchedule(ctx, scheduleID)
	}

	if s.pubsub != nil {
		_ = s.pubsub.PublishScheduleChanged(ctx, scheduleID)
	}

	created, err := s.store.BookingWithDetails(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

// Ticket retrieves one booking with full seat detail.
//
// Returns:
//   - error: booking.ErrBookingNotFound if the booking does not exist.
func (s *Service) Ticket(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	const op = "service.booking.Ticket"

	b, err := s.store.BookingWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// MyTickets lists a customer's bookings, newest first.
func (s *Service) MyTickets(ctx context.Context, customerID uuid.UUID) ([]domain.BookingWithDetails, error) {
	const op = "service.booking.MyTickets"

	out, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// AllTickets lists bookings created within [from, to) together with the
// revenue they earned (schedule price times passenger count, summed).
func (s *Service) AllTickets(ctx context.Context, from, to *time.Time) (*domain.TicketReport, error) {
	const op = "service.booking.AllTickets"

	bookings, err := s.store.ListAll(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &domain.TicketReport{Bookings: bookings}
	for _, b := range bookings {
		report.TotalIncome += b.Schedule.Price * int64(len(b.Details))
	}

	return report, nil
}

func (s *Service) availableSeats(ctx context.Context, scheduleID uuid.UUID) ([]domain.SeatWithWagon, error) {
	sch, err := s.store.Schedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}

		return nil, err
	}

	return s.availableSeatsFor(ctx, sch)
}

func (s *Service) availableSeatsFor(ctx context.Context, sch *domain.Schedule) ([]domain.SeatWithWagon, error) {
	seats, err := s.store.TrainSeats(ctx, sch.TrainID)
	if err != nil {
		return nil, err
	}

	bookedIDs, err := s.store.BookedSeatIDs(ctx, sch.ID)
	if err != nil {
		return nil, err
	}

	booked := make(map[uuid.UUID]struct{}, len(bookedIDs))
	for _, id := range bookedIDs {
		booked[id] = struct{}{}
	}

	available := make([]domain.SeatWithWagon, 0, len(seats))
	for _, seat := range seats {
		if _, ok := booked[seat.ID]; !ok {
			available = append(available, seat)
		}
	}

	return available, nil
}
