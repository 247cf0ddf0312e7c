package application

import (
	"context"

	"gambler/raffle/application/dto"
	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	RaffleRepository() interfaces.RaffleRepository
	EntryRepository() interfaces.EntryRepository
	RandomnessRequestRepository() interfaces.RandomnessRequestRepository
	RaffleWinnerRepository() interfaces.RaffleWinnerRepository
	AccountRepository() interfaces.AccountRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// EventSubscriber delivers domain events published by any raffle process
type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error
}

// FulfillmentHandler consumes randomness fulfillments delivered by the oracle.
// Implemented by the application layer and called by the infrastructure layer.
type FulfillmentHandler interface {
	HandleRandomWordsFulfilled(ctx context.Context, fulfilled dto.RandomWordsFulfilled) error
}

// RaffleAnnouncer posts round results to a chat channel
type RaffleAnnouncer interface {
	AnnounceWinner(ctx context.Context, event events.WinnerPickedEvent) error
	AnnounceRoundReset(ctx context.Context, event events.RoundResetEvent) error
}

// StuckRoundReporter receives the watchdog's verdict for each raffle
type StuckRoundReporter interface {
	SetStuck(raffleID int64, stuck bool)
}
