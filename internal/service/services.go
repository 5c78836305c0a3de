package service

import (
	redisx "github.com/kirinyoku/rail-go/internal/redis"
	postgres "github.com/kirinyoku/rail-go/internal/repository/postgres"
	redis "github.com/kirinyoku/rail-go/internal/repository/redis"
	"github.com/kirinyoku/rail-go/internal/service/accounts"
	"github.com/kirinyoku/rail-go/internal/service/auth"
	"github.com/kirinyoku/rail-go/internal/service/booking"
	"github.com/kirinyoku/rail-go/internal/service/catalog"
	"github.com/kirinyoku/rail-go/internal/token"
)

type Services struct {
	Auth     *auth.Service
	Accounts *accounts.Service
	Catalog  *catalog.Service
	Booking  *booking.Service
}

type Config struct {
	Booking booking.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.SchedulesPubSub,
	limiter *redis.SlidingWindowLimiter,
	tokens *token.Manager,
	cfg Config,
) *Services {
	return &Services{
		Auth:     auth.New(store, tokens),
		Accounts: accounts.New(store),
		Catalog:  catalog.New(store, cache, pubsub),
		Booking:  booking.New(store.Bookings(), cache, pubsub, limiter, cfg.Booking),
	}
}
