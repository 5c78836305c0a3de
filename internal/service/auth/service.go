package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirinyoku/rail-go/internal/domain"
	"github.com/kirinyoku/rail-go/internal/repository"
	postgresrepo "github.com/kirinyoku/rail-go/internal/repository/postgres"
	"github.com/kirinyoku/rail-go/internal/token"
	"github.com/kirinyoku/rail-go/internal/uow"
)

const bcryptCost = 10

type Service struct {
	store  *postgresrepo.Store
	tokens *token.Manager
	uow    *uow.UoW
}

func New(store *postgresrepo.Store, tokens *token.Manager) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		uow:    uow.NewUoW(store),
	}
}

// Session is the result of a successful registration or login.
type Session struct {
	Token    string
	User     domain.User
	Customer *domain.Customer
	Staff    *domain.Staff
}

type RegisterInput struct {
	Username   string
	Password   string
	NationalID string
	Name       string
	Address    string
	Phone      string
}

// Register creates a customer account: the user row and the customer profile
// commit together or not at all.
//
// Returns:
//   - error: auth.ErrUsernameTaken or auth.ErrNationalIDTaken on duplicates.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	const op = "service.auth.Register"

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := domain.User{
		ID:           uuid.New(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
	}

	c := domain.Customer{
		ID:         uuid.New(),
		UserID:     u.ID,
		NationalID: in.NationalID,
		Name:       in.Name,
		Address:    in.Address,
		Phone:      in.Phone,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Accounts().With(tx).CreateUser(ctx, u); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrUsernameTaken)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.store.Accounts().With(tx).CreateCustomer(ctx, c); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrNationalIDTaken)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	signed, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Session{Token: signed, User: u, Customer: &c}, nil
}

type StaffInput struct {
	Username string
	Password string
	Name     string
	Address  string
	Phone    string
}

// RegisterStaff creates a staff account. Callers must have verified the
// requester's staff role already.
//
// Returns:
//   - error: auth.ErrUsernameTaken on a duplicate username.
func (s *Service) RegisterStaff(ctx context.Context, in StaffInput) (*Session, error) {
	const op = "service.auth.RegisterStaff"

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := domain.User{
		ID:           uuid.New(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         domain.RoleStaff,
	}

	st := domain.Staff{
		ID:      uuid.New(),
		UserID:  u.ID,
		Name:    in.Name,
		Address: in.Address,
		Phone:   in.Phone,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Accounts().With(tx).CreateUser(ctx, u); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrUsernameTaken)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.store.Accounts().With(tx).CreateStaff(ctx, st); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	signed, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Session{Token: signed, User: u, Staff: &st}, nil
}

// Login verifies the credentials and issues a token. A missing user and a
// wrong password are indistinguishable to the caller.
//
// Returns:
//   - error: auth.ErrInvalidCredentials on any credential mismatch.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	const op = "service.auth.Login"

	u, err := s.store.Accounts().UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	signed, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session := &Session{Token: signed, User: *u}

	switch u.Role {
	case domain.RoleCustomer:
		if c, err := s.store.Accounts().CustomerByUserID(ctx, u.ID); err == nil {
			session.Customer = c
		}
	case domain.RoleStaff:
		if st, err := s.store.Accounts().StaffByUserID(ctx, u.ID); err == nil {
			session.Staff = st
		}
	}

	return session, nil
}

// UpdatePassword replaces the user's password after verifying the current one.
//
// Returns:
//   - error: auth.ErrUserNotFound or auth.ErrWrongPassword.
func (s *Service) UpdatePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	const op = "service.auth.UpdatePassword"

	u, err := s.store.Accounts().UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("%s: %w", op, ErrWrongPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Accounts().UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
