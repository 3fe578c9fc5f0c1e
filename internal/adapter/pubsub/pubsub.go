// Package pubsub wires the cross-process fan-out bus directly on
// watermill + watermill-amqp/v3 (SPEC_FULL.md §16). The teacher's own
// infra/pubsub + infra/pubsub/factory indirection depended on a
// generated config layer that was never retrieved with it, so this
// talks to watermill-amqp directly instead of through that missing
// factory.
package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wmamqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

// Config carries the AMQP connection this node's fan-out bus dials.
// NodeID names this node's own queue so every node gets its own copy of
// the fan-out topic (SPEC_FULL.md §16 "per-node queue").
type Config struct {
	URL      string
	Exchange string
	NodeID   string
}

func amqpConfig(cfg Config) wmamqp.Config {
	c := wmamqp.NewDurablePubSubConfig(cfg.URL, wmamqp.GenerateQueueNameTopicNameWithSuffix(cfg.NodeID))
	c.Exchange.GenerateName = func(topic string) string { return cfg.Exchange }
	c.Exchange.Type = "topic"
	c.Queue.GenerateName = func(topic string) string { return fmt.Sprintf("%s.%s", topic, cfg.NodeID) }
	return c
}

func NewPublisher(lc fx.Lifecycle, cfg Config, logger *slog.Logger) (message.Publisher, error) {
	pub, err := wmamqp.NewPublisher(amqpConfig(cfg), watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("pubsub: new publisher: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return pub.Close() }})
	return pub, nil
}

func NewSubscriber(lc fx.Lifecycle, cfg Config, logger *slog.Logger) (message.Subscriber, error) {
	sub, err := wmamqp.NewSubscriber(amqpConfig(cfg), watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("pubsub: new subscriber: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return sub.Close() }})
	return sub, nil
}

// Module provides the raw publisher/subscriber pair. NewEventDispatcher
// is provided separately by internal/handler/amqp.Module, annotated as
// service.Exporter, since nothing outside that module needs the
// concrete *EventDispatcher type.
var Module = fx.Module("pubsub", fx.Provide(NewPublisher, NewSubscriber))
