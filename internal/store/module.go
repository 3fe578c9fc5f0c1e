package store

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

// Config is the subset of config the message store needs.
type Config struct {
	Path string
}

func newSQLiteStore(lc fx.Lifecycle, cfg Config, logger *slog.Logger) (*SQLiteStore, error) {
	s, err := NewSQLite(cfg.Path, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}

var Module = fx.Module("store",
	fx.Provide(
		newSQLiteStore,
		fx.Annotate(
			func(s *SQLiteStore) MessageStore { return s },
			fx.As(new(MessageStore)),
		),
	),
)
