package service

import (
	redisx "github.com/bookit-platform/bookit/internal/redis"
	postgres "github.com/bookit-platform/bookit/internal/repository/postgres"
	redis "github.com/bookit-platform/bookit/internal/repository/redis"
	"github.com/bookit-platform/bookit/internal/service/booking"
	"github.com/bookit-platform/bookit/internal/service/catalog"
	"github.com/bookit-platform/bookit/internal/service/promo"
)

type Services struct {
	Booking *booking.Service
	Catalog *catalog.Service
	Promo   *promo.Service
}

type Config struct {
	Booking booking.Config
	Catalog catalog.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.SlotsPubSub,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	return &Services{
		Booking: booking.New(booking.NewPostgresStores(store), cache, pubsub, limiter, cfg.Booking),
		Catalog: catalog.New(store, cache, cfg.Catalog),
		Promo:   promo.New(),
	}
}
