package infrastructure

import (
	"gambler/raffle/domain/events"
)

// NoopEventPublisher is an event publisher that does nothing.
// Operator commands use it when no NATS server is configured.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
