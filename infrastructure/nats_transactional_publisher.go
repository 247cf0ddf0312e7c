package infrastructure

import (
	"context"
	"sync"

	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until flush, then publishes them.
// Flush runs after the database commit and Discard after a rollback.
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	mu            sync.Mutex
	pending       []events.Event
	localHandlers map[events.EventType][]func(context.Context, events.Event) error
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
		localHandlers: make(map[events.EventType][]func(context.Context, events.Event) error),
	}
}

// Publish stores an event in the pending queue without immediately publishing
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Adding event to transactional publisher pending queue")

	p.pending = append(p.pending, event)
	return nil
}

// RegisterLocalHandler registers a handler that runs at flush time, before the event goes to NATS
func (p *NATSTransactionalPublisher) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
}

// Flush publishes all pending events. Individual failures are logged and do not stop the rest.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = make([]events.Event, 0)
	p.mu.Unlock()

	log.WithField("pendingEventCount", len(pending)).Debug("Flushing pending events from transactional publisher")

	for _, event := range pending {
		for _, handler := range p.localHandlers[event.Type()] {
			if err := handler(ctx, event); err != nil {
				log.WithFields(log.Fields{
					"eventType": event.Type(),
					"error":     err,
				}).Error("Local event handler failed during flush")
			}
		}

		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	return nil
}

// Discard clears all pending events without publishing them
func (p *NATSTransactionalPublisher) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.WithField("discardedEventCount", len(p.pending)).Debug("Discarding pending events from transactional publisher")
	p.pending = p.pending[:0]
}

// PendingCount returns the number of queued events
func (p *NATSTransactionalPublisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
