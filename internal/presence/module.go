package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// RedisConfig is the subset of config the presence store needs to dial
// Redis. Populated by the config package and supplied through fx.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func newRedisClient(lc fx.Lifecycle, cfg RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("presence: ping redis: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

var Module = fx.Module("presence",
	fx.Provide(
		newRedisClient,
		fx.Annotate(
			NewRedisStore,
			fx.As(new(Store)),
		),
	),
)
