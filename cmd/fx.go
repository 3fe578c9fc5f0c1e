package cmd

import (
	"go.uber.org/fx"

	"github.com/Merrick1307/chat-core/config"
	"github.com/Merrick1307/chat-core/internal/adapter/pubsub"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
	amqphandler "github.com/Merrick1307/chat-core/internal/handler/amqp"
	chathttp "github.com/Merrick1307/chat-core/internal/handler/http"
	"github.com/Merrick1307/chat-core/internal/handler/lp"
	"github.com/Merrick1307/chat-core/internal/handler/ws"
	"github.com/Merrick1307/chat-core/internal/presence"
	"github.com/Merrick1307/chat-core/internal/service"
	"github.com/Merrick1307/chat-core/internal/store"
)

// providePresenceConfig, provideStoreConfig, provideAuthConfig, and
// providePubSubConfig narrow *config.Config down to the slice each leaf
// module actually needs, mirroring the teacher's own ProvideSD/
// ProvidePubSub split in the original cmd/fx.go.
func providePresenceConfig(cfg *config.Config) presence.RedisConfig {
	return presence.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
}

func provideStoreConfig(cfg *config.Config) store.Config {
	return store.Config{Path: cfg.Store.Path}
}

func provideAuthConfig(cfg *config.Config) service.AuthConfig {
	return service.AuthConfig{Secret: []byte(cfg.Auth.Secret)}
}

func providePubSubConfig(cfg *config.Config) pubsub.Config {
	return pubsub.Config{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange, NodeID: cfg.NodeID}
}

// NewApp assembles the fx.App for the `server` subcommand: the
// Connection Registry (C3), Presence Store (C1), Message Store (C2),
// the Delivery/Heartbeat/Offline-Flush services (C5/C6/C7), all three
// client-facing transports, and — only when cfg.AMQP.Enabled — the
// cross-process fan-out consumer. Replaces the teacher's gRPC-specific
// wiring (grpcsrv.Module, postgres.Module, discovery.DiscoveryProvider)
// entirely; this module has no service-discovery component and no
// generated gRPC stubs to serve (DESIGN.md "Dropped teacher
// dependencies").
func NewApp(cfg *config.Config) *fx.App {
	opts := []fx.Option{
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideTracerProvider,
			providePresenceConfig,
			provideStoreConfig,
			provideAuthConfig,
		),

		registry.Module,
		presence.Module,
		store.Module,
		service.Module,

		ws.Module,
		lp.Module,
		chathttp.Module,

		fx.Provide(newRootMux),
		fx.Invoke(runHTTPServer, runMonitorServer),
	}

	// cfg.AMQP.Enabled == false (the default): no Exporter is provided
	// anywhere in the graph, so service.Module's optional Exporter
	// param resolves to nil and exportIfRemote becomes a no-op — a
	// correct single-node deployment (spec.md §9).
	if cfg.AMQP.Enabled {
		opts = append(opts,
			fx.Provide(providePubSubConfig),
			amqphandler.Module,
		)
	}

	return fx.New(opts...)
}
