package interfaces

import (
	"context"
	"math/big"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/events"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleRepository defines the interface for raffle data access.
// Loaded raffles carry the participants of their current round in entry order.
type RaffleRepository interface {
	// Create inserts a raffle with the given ID; an existing row is left untouched
	Create(ctx context.Context, raffle *entities.Raffle) error

	// GetByID retrieves a raffle by its ID, nil if not found
	GetByID(ctx context.Context, id int64) (*entities.Raffle, error)

	// GetByIDForUpdate retrieves a raffle and locks its row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error)

	// Update persists the mutable round state of a raffle
	Update(ctx context.Context, raffle *entities.Raffle) error

	// ListIDs returns the IDs of all raffles
	ListIDs(ctx context.Context) ([]int64, error)
}

// EntryRepository defines the interface for raffle entry data access
type EntryRepository interface {
	// Create records a new entry; Seq must be the entry's position within its round
	Create(ctx context.Context, entry *entities.Entry) error

	// GetByRound returns the entries of one round ordered by Seq
	GetByRound(ctx context.Context, raffleID, roundNumber int64) ([]*entities.Entry, error)
}

// RandomnessRequestRepository defines the interface for randomness request data access
type RandomnessRequestRepository interface {
	Create(ctx context.Context, request *entities.RandomnessRequest) error

	// GetByRequestID retrieves a request, nil if it was never issued by this service
	GetByRequestID(ctx context.Context, requestID common.Hash) (*entities.RandomnessRequest, error)

	// Update persists status, random word and fulfillment time
	Update(ctx context.Context, request *entities.RandomnessRequest) error
}

// RaffleWinnerRepository defines the interface for settlement records
type RaffleWinnerRepository interface {
	Create(ctx context.Context, winner *entities.RaffleWinner) error
	GetRecentByRaffle(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error)
}

// AccountRepository defines the interface for payout account data access
type AccountRepository interface {
	// GetOrCreateForUpdate returns the account for address, creating an empty one if needed,
	// and locks it for the rest of the transaction
	GetOrCreateForUpdate(ctx context.Context, address common.Address) (*entities.Account, error)

	// UpdateBalance sets the account balance
	UpdateBalance(ctx context.Context, address common.Address, newBalance *big.Int) error

	// SetFrozen blocks or unblocks payouts to an account
	SetFrozen(ctx context.Context, address common.Address, frozen bool) error
}

// BalanceHistoryRepository defines the interface for ledger history data access
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry and sets its ID
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByAddress returns the most recent history entries for an address
	GetByAddress(ctx context.Context, address common.Address, limit int) ([]*entities.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
