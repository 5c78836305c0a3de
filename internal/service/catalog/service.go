package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/rail-go/internal/domain"
	redisx "github.com/kirinyoku/rail-go/internal/redis"
	"github.com/kirinyoku/rail-go/internal/repository"
	postgresrepo "github.com/kirinyoku/rail-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/rail-go/internal/repository/redis"
	"github.com/kirinyoku/rail-go/internal/uow"
)

const scheduleSummaryTTL = 60 * time.Second

// Service manages the rolling-stock catalog: trains, wagons, seats and
// schedules. Schedule mutations invalidate cached availability and notify
// other instances.
type Service struct {
	store  *postgresrepo.Store
	uow    *uow.UoW
	cache  *redisrepo.Cache
	pubsub *redisx.SchedulesPubSub
}

// New builds a catalog service. cache and pubsub may be nil; invalidation is
// skipped when they are.
func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisx.SchedulesPubSub) *Service {
	return &Service{
		store:  store,
		uow:    uow.NewUoW(store),
		cache:  cache,
		pubsub: pubsub,
	}
}

type TrainInput struct {
	Name        string
	Description string
	Class       domain.TrainClass
}

func (s *Service) CreateTrain(ctx context.Context, in TrainInput) (*domain.Train, error) {
	const op = "service.catalog.CreateTrain"

	if !in.Class.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidClass)
	}

	t := domain.Train{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Class:       in.Class,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Catalog().CreateTrain(ctx, t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

func (s *Service) Train(ctx context.Context, id uuid.UUID) (*domain.TrainWithWagons, error) {
	const op = "service.catalog.Train"

	t, err := s.store.Catalog().TrainByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTrainNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func (s *Service) Trains(ctx context.Context) ([]domain.TrainWithWagons, error) {
	const op = "service.catalog.Trains"

	out, err := s.store.Catalog().ListTrains(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) UpdateTrain(ctx context.Context, id uuid.UUID, in TrainInput) (*domain.Train, error) {
	const op = "service.catalog.UpdateTrain"

	if !in.Class.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidClass)
	}

	t := domain.Train{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Class:       in.Class,
	}

	if err := s.store.Catalog().UpdateTrain(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTrainNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

// DeleteTrain removes a train that has no booking history. Wagons, seats and
// bookingless schedules go with it.
//
// Returns:
//   - error: catalog.ErrInUse while any booking references the train.
//   - error: catalog.ErrTrainNotFound if no such train exists.
func (s *Service) DeleteTrain(ctx context.Context, id uuid.UUID) error {
	const op = "service.catalog.DeleteTrain"

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Catalog().With(tx)

		booked, err := repo.TrainHasBookings(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if booked {
			return fmt.Errorf("%s: %w", op, ErrInUse)
		}

		schedules, err := repo.DeleteSchedulesByTrain(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		wagons, err := repo.ListWagons(ctx, &id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		for _, w := range wagons {
			if err := repo.DeleteWagon(ctx, w.ID); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		if err := repo.DeleteTrain(ctx, id); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("%s: %w", op, ErrTrainNotFound)
			case errors.Is(err, repository.ErrReferenced):
				return fmt.Errorf("%s: %w", op, ErrInUse)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			for _, scheduleID := range schedules {
				s.invalidateSchedule(ctx, scheduleID)
			}
		})

		return nil
	})
}

type WagonInput struct {
	TrainID  uuid.UUID
	Name     string
	Capacity int
}

// CreateWagon creates a wagon and its seats, numbered 1 through Capacity,
// in one transaction.
//
// Returns:
//   - error: catalog.ErrInvalidCapacity when the capacity is not positive.
//   - error: catalog.ErrTrainNotFound when the train does not exist.
func (s *Service) CreateWagon(ctx context.Context, in WagonInput) (*domain.WagonWithSeats, error) {
	const op = "service.catalog.CreateWagon"

	if in.Capacity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCapacity)
	}

	w := domain.Wagon{
		ID:        uuid.New(),
		TrainID:   in.TrainID,
		Name:      in.Name,
		Capacity:  in.Capacity,
		CreatedAt: time.Now(),
	}

	seats := make([]domain.Seat, 0, in.Capacity)
	for n := 1; n <= in.Capacity; n++ {
		seats = append(seats, domain.Seat{
			ID:      uuid.New(),
			WagonID: w.ID,
			Number:  n,
		})
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Catalog().With(tx)

		if err := repo.CreateWagon(ctx, w); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return fmt.Errorf("%s: %w", op, ErrTrainNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := repo.BatchCreateSeats(ctx, seats); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.WagonWithSeats{Wagon: w, Seats: seats}, nil
}

func (s *Service) Wagon(ctx context.Context, id uuid.UUID) (*domain.WagonWithSeats, error) {
	const op = "service.catalog.Wagon"

	w, err := s.store.Catalog().WagonByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrWagonNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return w, nil
}

func (s *Service) Wagons(ctx context.Context, trainID *uuid.UUID) ([]domain.Wagon, error) {
	const op = "service.catalog.Wagons"

	out, err := s.store.Catalog().ListWagons(ctx, trainID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) UpdateWagon(ctx context.Context, id uuid.UUID, name string, trainID uuid.UUID) error {
	const op = "service.catalog.UpdateWagon"

	if err := s.store.Catalog().UpdateWagon(ctx, id, name, trainID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s: %w", op, ErrWagonNotFound)
		case errors.Is(err, repository.ErrReferenced):
			return fmt.Errorf("%s: %w", op, ErrTrainNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteWagon removes a wagon and its seats unless any of them has been
// booked.
//
// Returns:
//   - error: catalog.ErrInUse while any seat of the wagon is booked.
//   - error: catalog.ErrWagonNotFound if no such wagon exists.
func (s *Service) DeleteWagon(ctx context.Context, id uuid.UUID) error {
	const op = "service.catalog.DeleteWagon"

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Catalog().With(tx)

		booked, err := repo.WagonHasBookedSeats(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if booked {
			return fmt.Errorf("%s: %w", op, ErrInUse)
		}

		if err := repo.DeleteWagon(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrWagonNotFound)
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
}

func (s *Service) Seats(ctx context.Context, wagonID *uuid.UUID) ([]domain.SeatWithStatus, error) {
	const op = "service.catalog.Seats"

	out, err := s.store.Catalog().ListSeats(ctx, wagonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) Seat(ctx context.Context, id uuid.UUID) (*domain.SeatWithStatus, error) {
	const op = "service.catalog.Seat"

	st, err := s.store.Catalog().SeatByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrSeatNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

type ScheduleInput struct {
	TrainID     uuid.UUID
	Origin      string
	Destination string
	DepartsAt   time.Time
	ArrivesAt   time.Time
	Price       int64
}

func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (*domain.Schedule, error) {
	const op = "service.catalog.CreateSchedule"

	if !in.DepartsAt.Before(in.ArrivesAt) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidTimes)
	}

	sc := domain.Schedule{
		ID:          uuid.New(),
		TrainID:     in.TrainID,
		Origin:      in.Origin,
		Destination: in.Destination,
		DepartsAt:   in.DepartsAt,
		ArrivesAt:   in.ArrivesAt,
		Price:       in.Price,
	}

	if err := s.store.Catalog().CreateSchedule(ctx, sc); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, fmt.Errorf("%s: %w", op, ErrTrainNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &sc, nil
}

func (s *Service) Schedule(ctx context.Context, id uuid.UUID) (*domain.ScheduleWithTrain, error) {
	const op = "service.catalog.Schedule"

	load := func(ctx context.Context) (*domain.ScheduleWithTrain, error) {
		return s.store.Catalog().ScheduleByID(ctx, id)
	}

	var sc *domain.ScheduleWithTrain
	var err error

	if s.cache != nil {
		sc, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyScheduleSummary(id), scheduleSummaryTTL, load)
	} else {
		sc, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrScheduleNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sc, nil
}

func (s *Service) SearchSchedules(ctx context.Context, f postgresrepo.ScheduleFilter) ([]domain.ScheduleWithTrain, error) {
	const op = "service.catalog.SearchSchedules"

	out, err := s.store.Catalog().SearchSchedules(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, in ScheduleInput) (*domain.Schedule, error) {
	const op = "service.catalog.UpdateSchedule"

	if !in.DepartsAt.Before(in.ArrivesAt) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidTimes)
	}

	sc := domain.Schedule{
		ID:          id,
		TrainID:     in.TrainID,
		Origin:      in.Origin,
		Destination: in.Destination,
		DepartsAt:   in.DepartsAt,
		ArrivesAt:   in.ArrivesAt,
		Price:       in.Price,
	}

	if err := s.store.Catalog().UpdateSchedule(ctx, sc); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrScheduleNotFound)
		case errors.Is(err, repository.ErrReferenced):
			return nil, fmt.Errorf("%s: %w", op, ErrTrainNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateSchedule(ctx, id)

	return &sc, nil
}

// DeleteSchedule removes a schedule that has no bookings.
//
// Returns:
//   - error: catalog.ErrInUse while bookings reference the schedule.
//   - error: catalog.ErrScheduleNotFound if no such schedule exists.
func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	const op = "service.catalog.DeleteSchedule"

	if err := s.store.Catalog().DeleteSchedule(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s: %w", op, ErrScheduleNotFound)
		case errors.Is(err, repository.ErrReferenced):
			return fmt.Errorf("%s: %w", op, ErrInUse)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateSchedule(ctx, id)

	return nil
}

func (s *Service) invalidateSchedule(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateSchedule(ctx, id)
	}

	if s.pubsub != nil {
		_ = s.pubsub.PublishScheduleChanged(ctx, id)
	}
}
