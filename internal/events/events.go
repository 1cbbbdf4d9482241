// Package events provides broker-agnostic publish/subscribe used to fan
// identity-sync work out to worker processes.
package events

import (
	"context"
	"fmt"

	"github.com/nexora-chat/apiserver/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Broker defines the operations the app needs from a message broker.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// New constructs the broker selected by config. Backend must be one of
// "rabbitmq" or "pubsub".
func New(ctx context.Context, cfg config.EventsConfig) (Broker, error) {
	switch cfg.Backend {
	case "rabbitmq":
		return NewRabbitMQBroker(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
