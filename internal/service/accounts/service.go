package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirinyoku/rail-go/internal/domain"
	"github.com/kirinyoku/rail-go/internal/repository"
	postgresrepo "github.com/kirinyoku/rail-go/internal/repository/postgres"
)

type Service struct {
	store *postgresrepo.Store
}

func New(store *postgresrepo.Store) *Service {
	return &Service{store: store}
}

// Profile is the role-specific view of a user account.
type Profile struct {
	User     domain.User
	Customer *domain.Customer
	Staff    *domain.Staff
}

// Profile resolves the account profile for the given user.
//
// Returns:
//   - error: accounts.ErrNotFound if the user does not exist.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	const op = "service.accounts.Profile"

	u, err := s.store.Accounts().UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := &Profile{User: *u}

	switch u.Role {
	case domain.RoleCustomer:
		c, err := s.store.Accounts().CustomerByUserID(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.Customer = c
	case domain.RoleStaff:
		st, err := s.store.Accounts().StaffByUserID(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.Staff = st
	}

	return p, nil
}

func (s *Service) Customers(ctx context.Context) ([]domain.Customer, error) {
	const op = "service.accounts.Customers"

	out, err := s.store.Accounts().ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) Customer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	const op = "service.accounts.Customer"

	c, err := s.store.Accounts().CustomerByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

type CustomerUpdate struct {
	NationalID string
	Name       string
	Address    string
	Phone      string
}

func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, in CustomerUpdate) (*domain.Customer, error) {
	const op = "service.accounts.UpdateCustomer"

	c, err := s.store.Accounts().CustomerByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.NationalID = in.NationalID
	c.Name = in.Name
	c.Address = in.Address
	c.Phone = in.Phone

	if err := s.store.Accounts().UpdateCustomer(ctx, *c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// DeleteCustomer removes a customer account along with its login.
//
// Returns:
//   - error: accounts.ErrHasBookings while the customer has booking history.
//   - error: accounts.ErrNotFound if no such customer exists.
func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	const op = "service.accounts.DeleteCustomer"

	if err := s.store.Accounts().DeleteCustomer(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrReferenced):
			return fmt.Errorf("%s: %w", op, ErrHasBookings)
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) StaffMembers(ctx context.Context) ([]domain.Staff, error) {
	const op = "service.accounts.StaffMembers"

	out, err := s.store.Accounts().ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) StaffMember(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	const op = "service.accounts.StaffMember"

	st, err := s.store.Accounts().StaffByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

type StaffUpdate struct {
	Name    string
	Address string
	Phone   string
}

func (s *Service) UpdateStaff(ctx context.Context, id uuid.UUID, in StaffUpdate) (*domain.Staff, error) {
	const op = "service.accounts.UpdateStaff"

	st, err := s.store.Accounts().StaffByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st.Name = in.Name
	st.Address = in.Address
	st.Phone = in.Phone

	if err := s.store.Accounts().UpdateStaff(ctx, *st); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	const op = "service.accounts.DeleteStaff"

	if err := s.store.Accounts().DeleteStaff(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
