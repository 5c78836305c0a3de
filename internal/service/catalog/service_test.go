package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/rail-go/internal/domain"
)

func TestCreateTrain_InvalidClass(t *testing.T) {
	svc := New(nil, nil, nil)

	_, err := svc.CreateTrain(context.Background(), TrainInput{
		Name:  "Argo",
		Class: domain.TrainClass("sleeper"),
	})

	assert.ErrorIs(t, err, ErrInvalidClass)
}

func TestCreateWagon_InvalidCapacity(t *testing.T) {
	svc := New(nil, nil, nil)

	for _, capacity := range []int{0, -4} {
		_, err := svc.CreateWagon(context.Background(), WagonInput{
			TrainID:  uuid.New(),
			Name:     "W1",
			Capacity: capacity,
		})

		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestCreateSchedule_InvalidTimes(t *testing.T) {
	svc := New(nil, nil, nil)

	departs := time.Now().Add(24 * time.Hour)

	for _, arrives := range []time.Time{departs, departs.Add(-time.Hour)} {
		_, err := svc.CreateSchedule(context.Background(), ScheduleInput{
			TrainID:     uuid.New(),
			Origin:      "Jakarta",
			Destination: "Surabaya",
			DepartsAt:   departs,
			ArrivesAt:   arrives,
			Price:       100000,
		})

		assert.ErrorIs(t, err, ErrInvalidTimes)
	}
}
