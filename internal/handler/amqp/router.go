package amqp

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// RegisterHandlers binds this node's copy of each fan-out topic to its
// DomainHandler via Bind[T] (SPEC_FULL.md §16). The Router itself calls
// sub.Subscribe(ctx, topic) internally per handler; no manual
// subscription is needed here.
func RegisterHandlers(router *message.Router, sub message.Subscriber, h *MessageHandler) {
	routes := []struct {
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{topic: "chat.message.new", handler: Bind(h, h.OnMessageNew)},
		{topic: "chat.message.group.new", handler: Bind(h, h.OnGroupMessageNew)},
	}

	for _, r := range routes {
		router.AddNoPublisherHandler(r.topic+"_executor", r.topic, sub, r.handler)
	}
}
