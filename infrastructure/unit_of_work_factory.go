package infrastructure

import (
	"context"
	"sync"

	"gambler/raffle/application"
	"gambler/raffle/database"
	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/repository"
)

// UnitOfWorkFactory implements application.UnitOfWorkFactory.
// Each unit of work queues its events and publishes them only after commit.
type UnitOfWorkFactory struct {
	repoFactory    *repository.UnitOfWorkFactory
	eventPublisher interfaces.EventPublisher
	mu             sync.RWMutex
	localHandlers  map[events.EventType][]func(context.Context, events.Event) error
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
		localHandlers:  make(map[events.EventType][]func(context.Context, events.Event) error),
	}
}

// RegisterLocalHandler registers an in-process handler run after every commit that emitted eventType
func (f *UnitOfWorkFactory) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localHandlers[eventType] = append(f.localHandlers[eventType], handler)
}

// Create creates a new UnitOfWork with its own transactional publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	transactionalPublisher := NewNATSTransactionalPublisher(f.eventPublisher)

	f.mu.RLock()
	for eventType, handlers := range f.localHandlers {
		for _, handler := range handlers {
			transactionalPublisher.RegisterLocalHandler(eventType, handler)
		}
	}
	f.mu.RUnlock()

	return &unitOfWork{
		inner:                  f.repoFactory.CreateWithPublisher(transactionalPublisher),
		transactionalPublisher: transactionalPublisher,
	}
}
