package amqp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/Merrick1307/chat-core/internal/adapter/pubsub"
	"github.com/Merrick1307/chat-core/internal/service"
)

func newRouter(logger *slog.Logger) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("amqp: new router: %w", err)
	}
	return router, nil
}

func runRouter(lc fx.Lifecycle, router *message.Router, sub message.Subscriber, h *MessageHandler) {
	RegisterHandlers(router, sub, h)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(context.Background()); err != nil {
					h.logger.Error("ROUTER_STOPPED", "err", err)
				}
			}()
			<-router.Running()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})
}

// Module wires the cross-process fan-out consumer side: the shared
// publisher/subscriber from pubsub.Module, the per-topic Bind[T]
// handlers, and the message.Router that drives them. A single-node
// deployment omits this module entirely (SPEC_FULL.md §16) — there is
// no config flag checked here because the decision to include it is
// made by the caller assembling the fx.App.
var Module = fx.Module(
	"amqp",

	pubsub.Module,

	fx.Provide(
		NewMessageHandler,
		newRouter,
		fx.Annotate(
			pubsub.NewEventDispatcher,
			fx.As(new(service.Exporter)),
		),
	),

	fx.Invoke(runRouter),
)
