package service

import (
	"log/slog"

	"go.uber.org/fx"
)

// AuthConfig carries the shared HMAC secret the stand-in Auther
// verifies tokens against (spec.md §1 "auth collaborator").
type AuthConfig struct {
	Secret []byte
}

func newAuther(cfg AuthConfig) *hmacAuther {
	return NewHMACAuther(cfg.Secret)
}

var Module = fx.Module(
	"service",

	fx.Provide(
		fx.Annotate(
			newAuther,
			fx.As(new(Auther)),
		),
		fx.Annotate(
			NewDeliveryService,
			fx.ParamTags(``, ``, ``, ``, `optional:"true"`, ``),
			fx.As(new(Deliverer)),
		),
		fx.Annotate(
			NewPeerEnricherService,
			fx.As(new(Enricher)),
		),
		fx.Annotate(
			NewPresenceController,
			fx.As(new(Heartbeat)),
		),
		fx.Annotate(
			NewOfflineFlushService,
			fx.As(new(OfflineFlush)),
		),
	),

	// Intercept Enricher to add cross-cutting logging.
	fx.Decorate(func(orig Enricher, logger *slog.Logger) Enricher {
		return &enricherMiddleware{
			next:   orig,
			logger: logger,
		}
	}),
)
