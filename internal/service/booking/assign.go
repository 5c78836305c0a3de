package booking

import "github.com/kirinyoku/rail-go/internal/domain"

// SeatBinding pairs one passenger with the seat allocated to it.
type SeatBinding struct {
	Passenger domain.Passenger
	Seat      domain.SeatWithWagon
}

// assign maps passengers to seats positionally: passenger i receives seat i
// of the available sequence, preserving both input orders. The caller must
// have verified len(passengers) <= len(seats).
func assign(seats []domain.SeatWithWagon, passengers []domain.Passenger) []SeatBinding {
	out := make([]SeatBinding, len(passengers))
	for i, p := range passengers {
		out[i] = SeatBinding{Passenger: p, Seat: seats[i]}
	}

	return out
}
