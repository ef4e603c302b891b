package service

import (
	postgres "github.com/velychko/bookgo/internal/repository/postgres"
	redis "github.com/velychko/bookgo/internal/repository/redis"
	"github.com/velychko/bookgo/internal/service/admin"
	"github.com/velychko/bookgo/internal/service/leaderboard"
	"github.com/velychko/bookgo/internal/service/query"
	"github.com/velychko/bookgo/internal/service/reservation"
)

type Services struct {
	Reservation *reservation.Service
	Leaderboard *leaderboard.Service
	Query       *query.Service
	Admin       *admin.Service
}

type Config struct {
	Leaderboard leaderboard.Config
	Query       query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.BookingsPubSub,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	return &Services{
		Reservation: reservation.New(store.Bookings(), cache, pubsub, limiter),
		Leaderboard: leaderboard.New(store.Leaderboard(), cache, cfg.Leaderboard),
		Query:       query.New(store, cache, cfg.Query),
		Admin:       admin.New(store, cache, pubsub),
	}
}
