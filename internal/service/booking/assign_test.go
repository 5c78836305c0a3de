package booking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/rail-go/internal/domain"
)

func seatIn(wagon string, number int) domain.SeatWithWagon {
	return domain.SeatWithWagon{
		Seat: domain.Seat{
			ID:      uuid.New(),
			WagonID: uuid.New(),
			Number:  number,
		},
		WagonName: wagon,
	}
}

func TestAssign_Positional(t *testing.T) {
	seats := []domain.SeatWithWagon{
		seatIn("A", 1),
		seatIn("A", 2),
		seatIn("B", 1),
	}

	passengers := []domain.Passenger{
		{NationalID: "111", Name: "First"},
		{NationalID: "222", Name: "Second"},
	}

	out := assign(seats, passengers)

	assert.Len(t, out, 2)
	assert.Equal(t, passengers[0], out[0].Passenger)
	assert.Equal(t, seats[0].ID, out[0].Seat.ID)
	assert.Equal(t, passengers[1], out[1].Passenger)
	assert.Equal(t, seats[1].ID, out[1].Seat.ID)
}

func TestAssign_Deterministic(t *testing.T) {
	seats := []domain.SeatWithWagon{
		seatIn("A", 1),
		seatIn("A", 2),
		seatIn("B", 1),
		seatIn("B", 2),
	}

	passengers := []domain.Passenger{
		{NationalID: "111", Name: "One"},
		{NationalID: "222", Name: "Two"},
		{NationalID: "333", Name: "Three"},
	}

	first := assign(seats, passengers)
	second := assign(seats, passengers)

	assert.Equal(t, first, second)
}

func TestAssign_AllSeats(t *testing.T) {
	seats := []domain.SeatWithWagon{
		seatIn("A", 1),
		seatIn("A", 2),
	}

	passengers := []domain.Passenger{
		{NationalID: "111", Name: "One"},
		{NationalID: "222", Name: "Two"},
	}

	out := assign(seats, passengers)

	assert.Len(t, out, 2)
	for i := range out {
		assert.Equal(t, seats[i].ID, out[i].Seat.ID)
	}
}

func TestAssign_NoPassengers(t *testing.T) {
	seats := []domain.SeatWithWagon{seatIn("A", 1)}

	out := assign(seats, nil)

	assert.Empty(t, out)
}
