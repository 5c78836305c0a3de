package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/rail-go/internal/domain"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) CreateTrain(ctx context.Context, t domain.Train) error {
	const op = "postgres.CatalogRepo.CreateTrain"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO trains(id, name, description, class)
		 VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.Description, t.Class,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// TrainByID retrieves a train with its wagons.
//
// Returns:
//   - error: repository.ErrNotFound if the train does not exist.
func (r *CatalogRepo) TrainByID(ctx context.Context, id uuid.UUID) (*domain.TrainWithWagons, error) {
	const op = "postgres.CatalogRepo.TrainByID"

	db := r.handle()

	var out domain.TrainWithWagons
	err := db.QueryRow(ctx,
		`SELECT id, name, description, class, created_at
		 FROM trains WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.Name, &out.Description, &out.Class, &out.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT id, train_id, name, capacity, created_at
		 FROM wagons
		 WHERE train_id = $1
		 ORDER BY name, id`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var w domain.Wagon
		if err := rows.Scan(&w.ID, &w.TrainID, &w.Name, &w.Capacity, &w.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out.Wagons = append(out.Wagons, w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &out, nil
}

func (r *CatalogRepo) ListTrains(ctx context.Context) ([]domain.TrainWithWagons, error) {
	const op = "postgres.CatalogRepo.ListTrains"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name, description, class, created_at
		 FROM trains
		 ORDER BY name, id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.TrainWithWagons
	byID := make(map[uuid.UUID]int)

	for rows.Next() {
		var t domain.TrainWithWagons
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Class, &t.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}

		byID[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	wrows, err := db.Query(ctx,
		`SELECT id, train_id, name, capacity, created_at
		 FROM wagons
		 ORDER BY name, id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer wrows.Close()

	for wrows.Next() {
		var w domain.Wagon
		if err := wrows.Scan(&w.ID, &w.TrainID, &w.Name, &w.Capacity, &w.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}

		if i, ok := byID[w.TrainID]; ok {
			out[i].Wagons = append(out[i].Wagons, w)
		}
	}
	if err := wrows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) UpdateTrain(ctx context.Context, t domain.Train) error {
	const op = "postgres.CatalogRepo.UpdateTrain"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE trains SET name = $2, description = $3, class = $4 WHERE id = $1`,
		t.ID, t.Name, t.Description, t.Class,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// TrainHasBookings reports whether any booking references the train, either
// through one of its schedules or through a booked seat in one of its wagons.
func (r *CatalogRepo) TrainHasBookings(ctx context.Context, trainID uuid.UUID) (bool, error) {
	const op = "postgres.CatalogRepo.TrainHasBookings"

	db := r.handle()

	var booked bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM bookings b
		    JOIN schedules sc ON sc.id = b.schedule_id
		    WHERE sc.train_id = $1
		 ) OR EXISTS (
		    SELECT 1 FROM booking_details d
		    JOIN seats s ON s.id = d.seat_id
		    JOIN wagons w ON w.id = s.wagon_id
		    WHERE w.train_id = $1
		 )`,
		trainID,
	).Scan(&booked)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return booked, nil
}

func (r *CatalogRepo) DeleteTrain(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.CatalogRepo.DeleteTrain"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM trains WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// DeleteSchedulesByTrain removes every schedule of the train and returns the
// ids of the removed schedules, so callers can invalidate per-schedule caches.
func (r *CatalogRepo) DeleteSchedulesByTrain(ctx context.Context, trainID uuid.UUID) ([]uuid.UUID, error) {
	const op = "postgres.CatalogRepo.DeleteSchedulesByTrain"

	db := r.handle()

	rows, err := db.Query(ctx,
		`DELETE FROM schedules WHERE train_id = $1 RETURNING id`,
		trainID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}

		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

func (r *CatalogRepo) CreateWagon(ctx context.Context, w domain.Wagon) error {
	const op = "postgres.CatalogRepo.CreateWagon"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO wagons(id, train_id, name, capacity)
		 VALUES ($1, $2, $3, $4)`,
		w.ID, w.TrainID, w.Name, w.Capacity,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) BatchCreateSeats(ctx context.Context, seats []domain.Seat) error {
	const op = "postgres.CatalogRepo.BatchCreateSeats"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO seats(id, wagon_id, seat_number)
			 VALUES ($1, $2, $3)`,
			s.ID, s.WagonID, s.Number,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// WagonByID retrieves a wagon with its seats, ordered by seat number.
//
// Returns:
//   - error: repository.ErrNotFound if the wagon does not exist.
func (r *CatalogRepo) WagonByID(ctx context.Context, id uuid.UUID) (*domain.WagonWithSeats, error) {
	const op = "postgres.CatalogRepo.WagonByID"

	db := r.handle()

	var out domain.WagonWithSeats
	err := db.QueryRow(ctx,
		`SELECT id, train_id, name, capacity, created_at
		 FROM wagons WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.TrainID, &out.Name, &out.Capacity, &out.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT id, wagon_id, seat_number
		 FROM seats
		 WHERE wagon_id = $1
		 ORDER BY seat_number`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.WagonID, &s.Number); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out.Seats = append(out.Seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &out, nil
}

// ListWagons lists wagons, optionally filtered by train.
func (r *CatalogRepo) ListWagons(ctx context.Context, trainID *uuid.UUID) ([]domain.Wagon, error) {
	const op = "postgres.CatalogRepo.ListWagons"

	db := r.handle()

	var rows pgx.Rows
	var err error

	if trainID != nil {
		rows, err = db.Query(ctx,
			`SELECT id, train_id, name, capacity, created_at
			 FROM wagons
			 WHERE train_id = $1
			 ORDER BY name, id`,
			*trainID,
		)
	} else {
		rows, err = db.Query(ctx,
			`SELECT id, train_id, name, capacity, created_at
			 FROM wagons
			 ORDER BY name, id`,
		)
	}
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Wagon
	for rows.Next() {
		var w domain.Wagon
		if err := rows.Scan(&w.ID, &w.TrainID, &w.Name, &w.Capacity, &w.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) UpdateWagon(ctx context.Context, id uuid.UUID, name string, trainID uuid.UUID) error {
	const op = "postgres.CatalogRepo.UpdateWagon"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE wagons SET name = $2, train_id = $3 WHERE id = $1`,
		id, name, trainID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// WagonHasBookedSeats reports whether any seat of the wagon appears in a
// booking detail on any schedule.
func (r *CatalogRepo) WagonHasBookedSeats(ctx context.Context, wagonID uuid.UUID) (bool, error) {
	const op = "postgres.CatalogRepo.WagonHasBookedSeats"

	db := r.handle()

	var booked bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM booking_details d
		    JOIN seats s ON s.id = d.seat_id
		    WHERE s.wagon_id = $1
		 )`,
		wagonID,
	).Scan(&booked)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return booked, nil
}

func (r *CatalogRepo) DeleteWagon(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.CatalogRepo.DeleteWagon"

	db := r.handle()

	if _, err := db.Exec(ctx, `DELETE FROM seats WHERE wagon_id = $1`, id); err != nil {
		return wrapDBErr(op, err)
	}

	tag, err := db.Exec(ctx, `DELETE FROM wagons WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// ListSeats lists seats with their wagon name and a global booked flag,
// optionally filtered by wagon. The flag is true when any booking detail on
// any schedule references the seat.
func (r *CatalogRepo) ListSeats(ctx context.Context, wagonID *uuid.UUID) ([]domain.SeatWithStatus, error) {
	const op = "postgres.CatalogRepo.ListSeats"

	db := r.handle()

	q := `SELECT s.id, s.wagon_id, s.seat_number, w.name,
	             EXISTS (SELECT 1 FROM booking_details d WHERE d.seat_id = s.id)
	      FROM seats s
	      JOIN wagons w ON w.id = s.wagon_id`

	var rows pgx.Rows
	var err error

	if wagonID != nil {
		rows, err = db.Query(ctx, q+` WHERE s.wagon_id = $1 ORDER BY w.name, w.id, s.seat_number`, *wagonID)
	} else {
		rows, err = db.Query(ctx, q+` ORDER BY w.name, w.id, s.seat_number`)
	}
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.SeatWithStatus
	for rows.Next() {
		var s domain.SeatWithStatus
		var booked bool

		if err := rows.Scan(&s.ID, &s.WagonID, &s.Number, &s.WagonName, &booked); err != nil {
			return nil, wrapDBErr(op, err)
		}

		s.Status = domain.SeatAvailable
		if booked {
			s.Status = domain.SeatBooked
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) SeatByID(ctx context.Context, id uuid.UUID) (*domain.SeatWithStatus, error) {
	const op = "postgres.CatalogRepo.SeatByID"

	db := r.handle()

	var s domain.SeatWithStatus
	var booked bool

	err := db.QueryRow(ctx,
		`SELECT s.id, s.wagon_id, s.seat_number, w.name,
		        EXISTS (SELECT 1 FROM booking_details d WHERE d.seat_id = s.id)
		 FROM seats s
		 JOIN wagons w ON w.id = s.wagon_id
		 WHERE s.id = $1`,
		id,
	).Scan(&s.ID, &s.WagonID, &s.Number, &s.WagonName, &booked)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	s.Status = domain.SeatAvailable
	if booked {
		s.Status = domain.SeatBooked
	}

	return &s, nil
}

func (r *CatalogRepo) CreateSchedule(ctx context.Context, sc domain.Schedule) error {
	const op = "postgres.CatalogRepo.CreateSchedule"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO schedules(id, train_id, origin, destination, departs_at, arrives_at, price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sc.ID, sc.TrainID, sc.Origin, sc.Destination, sc.DepartsAt, sc.ArrivesAt, sc.Price,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ScheduleByID retrieves a schedule with its train.
//
// Returns:
//   - error: repository.ErrNotFound if the schedule does not exist.
func (r *CatalogRepo) ScheduleByID(ctx context.Context, id uuid.UUID) (*domain.ScheduleWithTrain, error) {
	const op = "postgres.CatalogRepo.ScheduleByID"

	db := r.handle()

	var out domain.ScheduleWithTrain
	err := db.QueryRow(ctx,
		`SELECT sc.id, sc.train_id, sc.origin, sc.destination, sc.departs_at, sc.arrives_at, sc.price,
		        t.id, t.name, t.description, t.class, t.created_at
		 FROM schedules sc
		 JOIN trains t ON t.id = sc.train_id
		 WHERE sc.id = $1`,
		id,
	).Scan(
		&out.ID, &out.TrainID, &out.Origin, &out.Destination, &out.DepartsAt, &out.ArrivesAt, &out.Price,
		&out.Train.ID, &out.Train.Name, &out.Train.Description, &out.Train.Class, &out.Train.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &out, nil
}

// ScheduleFilter narrows SearchSchedules. Zero values mean "no filter".
type ScheduleFilter struct {
	Origin      string
	Destination string
	Date        *time.Time
	Class       domain.TrainClass
}

// SearchSchedules lists schedules matching the filter, ordered by departure
// time. Origin and destination match as case-insensitive substrings; Date
// matches the calendar day of departure.
func (r *CatalogRepo) SearchSchedules(ctx context.Context, f ScheduleFilter) ([]domain.ScheduleWithTrain, error) {
	const op = "postgres.CatalogRepo.SearchSchedules"

	db := r.handle()

	q := `SELECT sc.id, sc.train_id, sc.origin, sc.destination, sc.departs_at, sc.arrives_at, sc.price,
	             t.id, t.name, t.description, t.class, t.created_at
	      FROM schedules sc
	      JOIN trains t ON t.id = sc.train_id`

	var conds []string
	var args []any

	if f.Origin != "" {
		args = append(args, "%"+f.Origin+"%")
		conds = append(conds, fmt.Sprintf("sc.origin ILIKE $%d", len(args)))
	}

	if f.Destination != "" {
		args = append(args, "%"+f.Destination+"%")
		conds = append(conds, fmt.Sprintf("sc.destination ILIKE $%d", len(args)))
	}

	if f.Date != nil {
		day := f.Date.Truncate(24 * time.Hour)
		args = append(args, day)
		conds = append(conds, fmt.Sprintf("sc.departs_at >= $%d", len(args)))
		args = append(args, day.Add(24*time.Hour))
		conds = append(conds, fmt.Sprintf("sc.departs_at < $%d", len(args)))
	}

	if f.Class != "" {
		args = append(args, f.Class)
		conds = append(conds, fmt.Sprintf("t.class = $%d", len(args)))
	}

	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	q += " ORDER BY sc.departs_at"

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ScheduleWithTrain
	for rows.Next() {
		var s domain.ScheduleWithTrain
		if err := rows.Scan(
			&s.ID, &s.TrainID, &s.Origin, &s.Destination, &s.DepartsAt, &s.ArrivesAt, &s.Price,
			&s.Train.ID, &s.Train.Name, &s.Train.Description, &s.Train.Class, &s.Train.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) UpdateSchedule(ctx context.Context, sc domain.Schedule) error {
	const op = "postgres.CatalogRepo.UpdateSchedule"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE schedules
		 SET train_id = $2, origin = $3, destination = $4, departs_at = $5, arrives_at = $6, price = $7
		 WHERE id = $1`,
		sc.ID, sc.TrainID, sc.Origin, sc.Destination, sc.DepartsAt, sc.ArrivesAt, sc.Price,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// DeleteSchedule removes a schedule.
//
// Returns:
//   - error: repository.ErrReferenced while bookings reference the schedule.
//   - error: repository.ErrNotFound if no such schedule exists.
func (r *CatalogRepo) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.CatalogRepo.DeleteSchedule"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}
