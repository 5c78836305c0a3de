package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/rail-go/internal/domain"
)

func TestManager_Roundtrip(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	u := domain.User{
		ID:       uuid.New(),
		Username: "rider",
		Role:     domain.RoleCustomer,
	}

	raw, err := m.Issue(u)
	require.NoError(t, err)

	claims, err := m.Verify(raw)
	require.NoError(t, err)

	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.Username, claims.Username)
	assert.Equal(t, domain.RoleCustomer, claims.Role)
}

func TestManager_StaffRolePreserved(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	raw, err := m.Issue(domain.User{ID: uuid.New(), Username: "ops", Role: domain.RoleStaff})
	require.NoError(t, err)

	claims, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, claims.Role)
}

func TestManager_Expired(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	m.ttl = -time.Minute

	raw, err := m.Issue(domain.User{ID: uuid.New(), Username: "late", Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_WrongSecret(t *testing.T) {
	issuer, err := NewManager("one", time.Hour)
	require.NoError(t, err)

	verifier, err := NewManager("two", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(domain.User{ID: uuid.New(), Username: "x", Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Garbage(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	_, err = m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManager_EmptySecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)
}
