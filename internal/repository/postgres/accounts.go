package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/rail-go/internal/domain"
	"github.com/kirinyoku/rail-go/internal/repository"
)

type AccountsRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AccountsRepo) With(db DB) *AccountsRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AccountsRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateUser inserts a user row.
//
// Returns:
//   - error: repository.ErrConflict if the username is taken.
func (r *AccountsRepo) CreateUser(ctx context.Context, u domain.User) error {
	const op = "postgres.AccountsRepo.CreateUser"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO users(id, username, password_hash, role)
		 VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.Role,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// UserByUsername retrieves a user by username.
//
// Returns:
//   - error: repository.ErrNotFound if no such user exists.
func (r *AccountsRepo) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const op = "postgres.AccountsRepo.UserByUsername"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

// UserByID retrieves a user by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if no such user exists.
func (r *AccountsRepo) UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "postgres.AccountsRepo.UserByID"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

func (r *AccountsRepo) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	const op = "postgres.AccountsRepo.UpdatePasswordHash"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, hash,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// CreateCustomer inserts a customer profile.
//
// Returns:
//   - error: repository.ErrConflict if the national ID is already registered.
func (r *AccountsRepo) CreateCustomer(ctx context.Context, c domain.Customer) error {
	const op = "postgres.AccountsRepo.CreateCustomer"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO customers(id, user_id, national_id, name, address, phone)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.NationalID, c.Name, c.Address, c.Phone,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *AccountsRepo) CustomerByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	const op = "postgres.AccountsRepo.CustomerByID"

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

func (r *AccountsRepo) CustomerByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	const op = "postgres.AccountsRepo.CustomerByUserID"

	db := r.handle()

	var c domain.Customer
	err := db.QueryRow(ctx,
		`SELECT id, user_id, national_id, name, address, phone
		 FROM customers WHERE user_id = $1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.NationalID, &c.Name, &c.Address, &c.Phone)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *AccountsRepo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	const op = "postgres.AccountsRepo.ListCustomers"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, user_id, national_id, name, address, phone
		 FROM customers
		 ORDER BY name`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.UserID, &c.NationalID, &c.Name, &c.Address, &c.Phone); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *AccountsRepo) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	const op = "postgres.AccountsRepo.UpdateCustomer"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE customers
		 SET national_id = $2, name = $3, address = $4, phone = $5
		 WHERE id = $1`,
		c.ID, c.NationalID, c.Name, c.Address, c.Phone,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

// DeleteCustomer removes a customer and its user row.
//
// Returns:
//   - error: repository.ErrReferenced while the customer has bookings.
//   - error: repository.ErrNotFound if no such customer exists.
func (r *AccountsRepo) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.AccountsRepo.DeleteCustomer"

	db := r.handle()

	var booked bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE customer_id = $1)`,
		id,
	).Scan(&booked)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if booked {
		return wrapDBErr(op, repository.ErrReferenced)
	}

	var userID uuid.UUID
	err = db.QueryRow(ctx,
		`DELETE FROM customers WHERE id = $1 RETURNING user_id`,
		id,
	).Scan(&userID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *AccountsRepo) CreateStaff(ctx context.Context, s domain.Staff) error {
	const op = "postgres.AccountsRepo.CreateStaff"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO staff(id, user_id, name, address, phone)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.Name, s.Address, s.Phone,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *AccountsRepo) StaffByID(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	const op = "postgres.AccountsRepo.StaffByID"

	db := r.handle()

	var s domain.Staff
	err := db.QueryRow(ctx,
		`SELECT id, user_id, name, address, phone
		 FROM staff WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.UserID, &s.Name, &s.Address, &s.Phone)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

func (r *AccountsRepo) StaffByUserID(ctx context.Context, userID uuid.UUID) (*domain.Staff, error) {
	const op = "postgres.AccountsRepo.StaffByUserID"

	db := r.handle()

	var s domain.Staff
	err := db.QueryRow(ctx,
		`SELECT id, user_id, name, address, phone
		 FROM staff WHERE user_id = $1`,
		userID,
	).Scan(&s.ID, &s.UserID, &s.Name, &s.Address, &s.Phone)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

func (r *AccountsRepo) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	const op = "postgres.AccountsRepo.ListStaff"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, user_id, name, address, phone
		 FROM staff
		 ORDER BY name`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Staff
	for rows.Next() {
		var s domain.Staff
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Address, &s.Phone); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *AccountsRepo) UpdateStaff(ctx context.Context, s domain.Staff) error {
	const op = "postgres.AccountsRepo.UpdateStaff"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE staff SET name = $2, address = $3, phone = $4 WHERE id = $1`,
		s.ID, s.Name, s.Address, s.Phone,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, pgx.ErrNoRows)
	}

	return nil
}

func (r *AccountsRepo) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.AccountsRepo.DeleteStaff"

	db := r.handle()

	var userID uuid.UUID
	err := db.QueryRow(ctx,
		`DELETE FROM staff WHERE id = $1 RETURNING user_id`,
		id,
	).Scan(&userID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
