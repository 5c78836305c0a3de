package httpgin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/rail-go/internal/domain"
	"github.com/kirinyoku/rail-go/internal/service/accounts"
)

func TestReportRange(t *testing.T) {
	t.Run("date spans one day", func(t *testing.T) {
		from, to, err := reportRange("2026-03-05", "")
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), *from)
		assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), *to)
	})

	t.Run("month spans one month", func(t *testing.T) {
		from, to, err := reportRange("", "2026-12")
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), *from)
		assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), *to)
	})

	t.Run("no filter means no bounds", func(t *testing.T) {
		from, to, err := reportRange("", "")
		require.NoError(t, err)

		assert.Nil(t, from)
		assert.Nil(t, to)
	})

	t.Run("date and month together rejected", func(t *testing.T) {
		_, _, err := reportRange("2026-03-05", "2026-03")
		assert.Error(t, err)
	})

	t.Run("malformed values rejected", func(t *testing.T) {
		_, _, err := reportRange("05.03.2026", "")
		assert.Error(t, err)

		_, _, err = reportRange("", "march")
		assert.Error(t, err)
	})
}

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/tickets/my", nil)

	return c, w
}

func TestResolveCustomer(t *testing.T) {
	t.Run("store failure is not a 403", func(t *testing.T) {
		c, w := testContext(t)

		load := func(context.Context, uuid.UUID) (*accounts.Profile, error) {
			return nil, errors.New("connection reset")
		}

		_, ok := resolveCustomer(c, load, uuid.New())

		assert.False(t, ok)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("unknown user maps to 404", func(t *testing.T) {
		c, w := testContext(t)

		load := func(context.Context, uuid.UUID) (*accounts.Profile, error) {
			return nil, fmt.Errorf("service.accounts.Profile: %w", accounts.ErrNotFound)
		}

		_, ok := resolveCustomer(c, load, uuid.New())

		assert.False(t, ok)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("staff-only account gets 403", func(t *testing.T) {
		c, w := testContext(t)

		load := func(context.Context, uuid.UUID) (*accounts.Profile, error) {
			return &accounts.Profile{}, nil
		}

		_, ok := resolveCustomer(c, load, uuid.New())

		assert.False(t, ok)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("customer passes through", func(t *testing.T) {
		c, _ := testContext(t)
		want := uuid.New()

		load := func(context.Context, uuid.UUID) (*accounts.Profile, error) {
			return &accounts.Profile{Customer: &domain.Customer{ID: want}}, nil
		}

		got, ok := resolveCustomer(c, load, uuid.New())

		require.True(t, ok)
		assert.Equal(t, want, got.ID)
	})
}
