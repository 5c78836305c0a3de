package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/rail-go/internal/domain"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Schedule retrieves a bare schedule row.
//
// Returns:
//   - error: repository.ErrNotFound if the schedule does not exist.
func (r *BookingRepo) Schedule(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	const op = "postgres.BookingRepo.Schedule"

	db := r.handle()

	var sc domain.Schedule
	err := db.QueryRow(ctx,
		`SELECT id, train_id, origin, destination, departs_at, arrives_at, price
		 FROM schedules WHERE id = $1`,
		id,
	).Scan(&sc.ID, &sc.TrainID, &sc.Origin, &sc.Destination, &sc.DepartsAt, &sc.ArrivesAt, &sc.Price)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &sc, nil
}

// Customer retrieves a customer row.
//
// Returns:
//   - error: repository.ErrNotFound if the customer does not exist.
func (r *BookingRepo) Customer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	const op = "postgres.BookingRepo.Customer"

	db := r.handle()

	var c domain.Customer
	err := db.QueryRow(ctx,
		`SELECT id, user_id, national_id, name, address, phone
		 FROM customers WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.UserID, &c.NationalID, &c.Name, &c.Address, &c.Phone)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

// TrainSeats lists every seat of the train with its wagon name, ordered by
// wagon (name, id) and then seat number. The ordering is what makes seat
// allocation deterministic, so it must not change.
func (r *BookingRepo) TrainSeats(ctx context.Context, trainID uuid.UUID) ([]domain.SeatWithWagon, error) {
	const op = "postgres.BookingRepo.TrainSeats"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT s.id, s.wagon_id, s.seat_number, w.name
		 FROM seats s
		 JOIN wagons w ON w.id = s.wagon_id
		 WHERE w.train_id = $1
		 ORDER BY w.name, w.id, s.seat_number`,
		trainID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.SeatWithWagon
	for rows.Next() {
		var s domain.SeatWithWagon
		if err := rows.Scan(&s.ID, &s.WagonID, &s.Number, &s.WagonName); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// BookedSeatIDs lists the seat IDs already bound to a booking detail on the
// given schedule.
func (r *BookingRepo) BookedSeatIDs(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	const op = "postgres.BookingRepo.BookedSeatIDs"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT seat_id FROM booking_details WHERE schedule_id = $1`,
		scheduleID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CreateBooking inserts the booking row and all of its details as one
// transaction: either every row commits or none does. A racing purchase that
// grabbed one of the seats first trips the unique (schedule_id, seat_id)
// index and surfaces as repository.ErrConflict.
func (r *BookingRepo) CreateBooking(
	ctx context.Context,
	b domain.Booking,
	details []domain.BookingDetail,
) error {
	const op = "postgres.BookingRepo.CreateBooking"

	if r.db != nil {
		if err := r.createBookingCore(ctx, r.db, b, details); err != nil {
			return wrapDBErr(op, err)
		}
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	if err := r.createBookingCore(ctx, tx, b, details); err != nil {
		return wrapDBErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) createBookingCore(
	ctx context.Context,
	db DB,
	b domain.Booking,
	details []domain.BookingDetail,
) error {
	if _, err := db.Exec(ctx,
		`INSERT INTO bookings(id, customer_id, schedule_id)
		 VALUES ($1, $2, $3)`,
		b.ID, b.CustomerID, b.ScheduleID,
	); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, d := range details {
		batch.Queue(
			`INSERT INTO booking_details(id, booking_id, schedule_id, seat_id, national_id, passenger_name)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.BookingID, d.ScheduleID, d.SeatID, d.NationalID, d.PassengerName,
		)
	}

	return db.SendBatch(ctx, batch).Close()
}

// BookingWithDetails retrieves one booking with its schedule, train and
// per-passenger seat details.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) BookingWithDetails(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	const op = "postgres.BookingRepo.BookingWithDetails"

	db := r.handle()

	var out domain.BookingWithDetails
	err := db.QueryRow(ctx,
		`SELECT b.id, b.customer_id, b.schedule_id, b.created_at,
		        sc.id, sc.train_id, sc.origin, sc.destination, sc.departs_at, sc.arrives_at, sc.price,
		        t.id, t.name, t.description, t.class, t.created_at
		 FROM bookings b
		 JOIN schedules sc ON sc.id = b.schedule_id
		 JOIN trains t ON t.id = sc.train_id
		 WHERE b.id = $1`,
		id,
	).Scan(
		&out.ID, &out.CustomerID, &out.ScheduleID, &out.CreatedAt,
		&out.Schedule.ID, &out.Schedule.TrainID, &out.Schedule.Origin, &out.Schedule.Destination,
		&out.Schedule.DepartsAt, &out.Schedule.ArrivesAt, &out.Schedule.Price,
		&out.Train.ID, &out.Train.Name, &out.Train.Description, &out.Train.Class, &out.Train.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	details, err := r.detailsByBooking(ctx, db, []uuid.UUID{id})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out.Details = details[id]

	return &out, nil
}

// ListByCustomer lists a customer's bookings, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.BookingWithDetails, error) {
	const op = "postgres.BookingRepo.ListByCustomer"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT b.id, b.customer_id, b.schedule_id, b.created_at,
		        sc.id, sc.train_id, sc.origin, sc.destination, sc.departs_at, sc.arrives_at, sc.price,
		        t.id, t.name, t.description, t.class, t.created_at
		 FROM bookings b
		 JOIN schedules sc ON sc.id = b.schedule_id
		 JOIN trains t ON t.id = sc.train_id
		 WHERE b.customer_id = $1
		 ORDER BY b.created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := r.scanBookings(ctx, db, rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ListAll lists bookings created within [from, to), newest first. Nil bounds
// mean unbounded.
func (r *BookingRepo) ListAll(ctx context.Context, from, to *time.Time) ([]domain.BookingWithDetails, error) {
	const op = "postgres.BookingRepo.ListAll"

	db := r.handle()

	q := `SELECT b.id, b.customer_id, b.schedule_id, b.created_at,
	             sc.id, sc.train_id, sc.origin, sc.destination, sc.departs_at, sc.arrives_at, sc.price,
	             t.id, t.name, t.description, t.class, t.created_at
	      FROM bookings b
	      JOIN schedules sc ON sc.id = b.schedule_id
	      JOIN trains t ON t.id = sc.train_id`

	var args []any
	switch {
	case from != nil && to != nil:
		q += ` WHERE b.created_at >= $1 AND b.created_at < $2`
		args = append(args, *from, *to)
	case from != nil:
		q += ` WHERE b.created_at >= $1`
		args = append(args, *from)
	case to != nil:
		q += ` WHERE b.created_at < $1`
		args = append(args, *to)
	}

	q += ` ORDER BY b.created_at DESC`

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := r.scanBookings(ctx, db, rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *BookingRepo) scanBookings(ctx context.Context, db DB, rows pgx.Rows) ([]domain.BookingWithDetails, error) {
	defer rows.Close()

	var out []domain.BookingWithDetails
	var ids []uuid.UUID

	for rows.Next() {
		var b domain.BookingWithDetails
		if err := rows.Scan(
			&b.ID, &b.CustomerID, &b.ScheduleID, &b.CreatedAt,
			&b.Schedule.ID, &b.Schedule.TrainID, &b.Schedule.Origin, &b.Schedule.Destination,
			&b.Schedule.DepartsAt, &b.Schedule.ArrivesAt, &b.Schedule.Price,
			&b.Train.ID, &b.Train.Name, &b.Train.Description, &b.Train.Class, &b.Train.CreatedAt,
		); err != nil {
			return nil, err
		}

		ids = append(ids, b.ID)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return out, nil
	}

	details, err := r.detailsByBooking(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Details = details[out[i].ID]
	}

	return out, nil
}

// detailsByBooking loads details grouped by booking. Ordering by wagon and
// seat matches the order seats were assigned in, so within a booking the
// details come back in passenger input order.
func (r *BookingRepo) detailsByBooking(
	ctx context.Context,
	db DB,
	bookingIDs []uuid.UUID,
) (map[uuid.UUID][]domain.DetailWithSeat, error) {
	rows, err := db.Query(ctx,
		`SELECT d.id, d.booking_id, d.schedule_id, d.seat_id, d.national_id, d.passenger_name,
		        s.id, s.wagon_id, s.seat_number, w.name
		 FROM booking_details d
		 JOIN seats s ON s.id = d.seat_id
		 JOIN wagons w ON w.id = s.wagon_id
		 WHERE d.booking_id = ANY($1)
		 ORDER BY w.name, w.id, s.seat_number`,
		bookingIDs,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make(map[uuid.UUID][]domain.DetailWithSeat, len(bookingIDs))
	for rows.Next() {
		var d domain.DetailWithSeat
		if err := rows.Scan(
			&d.ID, &d.BookingID, &d.ScheduleID, &d.SeatID, &d.NationalID, &d.PassengerName,
			&d.Seat.ID, &d.Seat.WagonID, &d.Seat.Number, &d.WagonName,
		); err != nil {
			return nil, err
		}

		out[d.BookingID] = append(out[d.BookingID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
