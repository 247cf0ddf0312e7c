package interfaces

import (
	"context"
	"math/big"
	"time"

	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// RandomWordsRequest is the request sent to the randomness coordinator
type RandomWordsRequest struct {
	KeyHash              common.Hash
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	Consumer             common.Address
}

// RandomnessCoordinator issues randomness requests. The fulfillment arrives later
// and independently through the fulfillment subscription.
type RandomnessCoordinator interface {
	// RequestRandomWords registers the request and returns its ID.
	// An error means no request was issued.
	RequestRandomWords(ctx context.Context, req *RandomWordsRequest) (common.Hash, error)
}

// Payout describes a pool transfer to a round winner
type Payout struct {
	RaffleID    int64
	RoundNumber int64
	RequestID   common.Hash
	Recipient   common.Address
	Amount      *big.Int
}

// PayoutSender transfers funds to a winner.
// Returning an error must leave no trace of the transfer.
type PayoutSender interface {
	Send(ctx context.Context, payout *Payout) (*entities.BalanceHistory, error)
}

// RaffleService defines the interface for raffle operations
type RaffleService interface {
	// GetOrCreateRaffle loads a raffle or creates it open and empty with the given configuration.
	// Configuration of an existing raffle is never changed.
	GetOrCreateRaffle(ctx context.Context, id int64, consumer common.Address, entranceFee *big.Int, interval time.Duration) (*entities.Raffle, error)

	// Enter records one paid entry into the open round
	Enter(ctx context.Context, raffleID int64, participant common.Address, amount *big.Int) (*entities.Entry, error)

	// CheckUpkeep evaluates the settlement predicate without side effects.
	// performData echoes checkData.
	CheckUpkeep(ctx context.Context, raffleID int64, checkData []byte) (upkeepNeeded bool, performData []byte, err error)

	// PerformUpkeep issues one randomness request and moves the raffle to settling
	PerformUpkeep(ctx context.Context, raffleID int64, performData []byte) (*entities.RandomnessRequest, error)

	// FulfillRandomWords resolves the pending request: picks the winner, pays the pool
	// and reopens the raffle
	FulfillRandomWords(ctx context.Context, requestID common.Hash, randomWords []*big.Int) (*SettlementResult, error)

	// GetRoundStatus returns a snapshot of the raffle. stuckAfter <= 0 disables the stuck verdict.
	GetRoundStatus(ctx context.Context, raffleID int64, stuckAfter time.Duration) (*RoundStatus, error)

	// GetParticipant returns the entry at index in the current round
	GetParticipant(ctx context.Context, raffleID int64, index int) (common.Address, error)

	// ResetStuckRound abandons a pending request older than timeout and reopens the round
	// with its participants and pool intact
	ResetStuckRound(ctx context.Context, raffleID int64, timeout time.Duration) (*RoundResetResult, error)
}

// RoundStatus is a read-only snapshot of a raffle
type RoundStatus struct {
	RaffleID             int64
	Phase                entities.RafflePhase
	RoundNumber          int64
	EntranceFee          *big.Int
	Interval             time.Duration
	Pool                 *big.Int
	ParticipantCount     int
	LastSettledAt        time.Time
	RecentWinner         *common.Address
	PendingRequestID     *common.Hash
	PendingSince         *time.Time
	TimeSinceRequest     time.Duration
	Upkeep               entities.UpkeepCheck
	Stuck                bool
	NumWords             uint32
	RequestConfirmations uint16
}

// SettlementResult contains the outcome of a fulfilled randomness request
type SettlementResult struct {
	RaffleID         int64
	RoundNumber      int64 // Round that was settled
	RequestID        common.Hash
	Winner           common.Address
	WinnerIndex      int
	Amount           *big.Int
	RandomWord       *big.Int
	ParticipantCount int
	RequestedAt      time.Time
	SettledAt        time.Time
}

// RoundResetResult contains the outcome of a stuck-round reset
type RoundResetResult struct {
	RaffleID           int64
	RoundNumber        int64
	AbandonedRequestID common.Hash
	PendingFor         time.Duration
	ParticipantCount   int
	Pool               *big.Int
}
