package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/handler/frame"
)

// topicFor maps an event kind onto the fixed, cluster-wide topic every
// node's per-node queue binds to. Whether an event is exported at all is
// decided here, by kind alone: kinds without a topic are dropped, and the
// per-user GetRoutingKey() of the event is not consulted. The AMQP
// routing key is this fixed topic, with the target user carried in
// message metadata instead, since fan-out here is "every node gets a
// copy, filters locally" rather than per-user routing.
func topicFor(kind event.EventKind) (topic string, exportable bool) {
	switch kind {
	case event.KindMessageNew:
		return "chat.message.new", true
	case event.KindGroupMessageNew:
		return "chat.message.group.new", true
	default:
		return "", false
	}
}

// EventDispatcher publishes an event to the fan-out exchange so every
// node's per-node queue can inspect it and deliver to its own local
// connections.
type EventDispatcher struct {
	publisher message.Publisher
}

func NewEventDispatcher(publisher message.Publisher) *EventDispatcher {
	return &EventDispatcher{publisher: publisher}
}

// Publish implements service.Exporter.
func (d *EventDispatcher) Publish(ctx context.Context, ev event.Eventer) error {
	topic, ok := topicFor(ev.GetKind())
	if !ok {
		return nil
	}

	payload, err := frame.Marshal(ev)
	if err != nil {
		return fmt.Errorf("pubsub: marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("user_id", ev.GetUserID().String())
	msg.SetContext(ctx)

	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("pubsub: publish to %s: %w", topic, err)
	}
	return nil
}
