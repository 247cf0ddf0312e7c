package entities

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RafflePhase represents whether a raffle is accepting entries or drawing a winner
type RafflePhase string

const (
	PhaseOpen     RafflePhase = "open"
	PhaseSettling RafflePhase = "settling"
)

// Raffle is the long-lived state of one raffle instance.
// Participants holds the entries of the current round in insertion order;
// duplicates are separate entries.
type Raffle struct {
	ID               int64          `db:"id"`
	ConsumerAddress  common.Address `db:"consumer_address"` // Identity toward the randomness coordinator
	EntranceFee      *big.Int       `db:"entrance_fee"`     // Immutable, wei
	Interval         time.Duration  `db:"interval_seconds"` // Immutable, minimum time between settlements
	Phase            RafflePhase    `db:"phase"`
	RoundNumber      int64          `db:"round_number"`
	Pool             *big.Int       `db:"pool"`
	Participants     []common.Address
	LastSettledAt    time.Time       `db:"last_settled_at"`
	PendingRequestID *common.Hash    `db:"pending_request_id"` // Set iff Phase == PhaseSettling
	PendingSince     *time.Time      `db:"pending_since"`
	RecentWinner     *common.Address `db:"recent_winner"`
	CreatedAt        time.Time       `db:"created_at"`
}

// NewRaffle creates an open raffle with an empty pool whose interval starts now
func NewRaffle(id int64, consumer common.Address, entranceFee *big.Int, interval time.Duration, now time.Time) *Raffle {
	return &Raffle{
		ID:              id,
		ConsumerAddress: consumer,
		EntranceFee:     new(big.Int).Set(entranceFee),
		Interval:        interval,
		Phase:           PhaseOpen,
		RoundNumber:     1,
		Pool:            new(big.Int),
		Participants:    make([]common.Address, 0),
		LastSettledAt:   now,
		CreatedAt:       now,
	}
}

// IsOpen returns true if the raffle accepts entries
func (r *Raffle) IsOpen() bool {
	return r.Phase == PhaseOpen
}

// IsSettling returns true if a randomness request is in flight
func (r *Raffle) IsSettling() bool {
	return r.Phase == PhaseSettling
}

// ParticipantCount returns the number of entries in the current round
func (r *Raffle) ParticipantCount() int {
	return len(r.Participants)
}

// PoolAmount returns a copy of the pool balance
func (r *Raffle) PoolAmount() *big.Int {
	if r.Pool == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.Pool)
}

// UpkeepCheck is the breakdown of the settlement predicate
type UpkeepCheck struct {
	IsOpen          bool
	TimePassed      bool
	HasParticipants bool
	HasBalance      bool
}

// Needed returns true only when every condition holds
func (c UpkeepCheck) Needed() bool {
	return c.IsOpen && c.TimePassed && c.HasParticipants && c.HasBalance
}

// Reason lists the failed conditions
func (c UpkeepCheck) Reason() string {
	if c.Needed() {
		return "upkeep needed"
	}
	var failed []string
	if !c.IsOpen {
		failed = append(failed, "not open")
	}
	if !c.TimePassed {
		failed = append(failed, "interval not elapsed")
	}
	if !c.HasParticipants {
		failed = append(failed, "no participants")
	}
	if !c.HasBalance {
		failed = append(failed, "empty pool")
	}
	return strings.Join(failed, ", ")
}

// CheckUpkeep evaluates the settlement predicate at now without side effects
func (r *Raffle) CheckUpkeep(now time.Time) UpkeepCheck {
	return UpkeepCheck{
		IsOpen:          r.IsOpen(),
		TimePassed:      now.Sub(r.LastSettledAt) >= r.Interval,
		HasParticipants: len(r.Participants) > 0,
		HasBalance:      r.Pool != nil && r.Pool.Sign() > 0,
	}
}

// NeedsSettlement reports whether a round may be settled at now
func (r *Raffle) NeedsSettlement(now time.Time) bool {
	return r.CheckUpkeep(now).Needed()
}

// Enter records one entry. The amount must equal the entrance fee exactly.
func (r *Raffle) Enter(participant common.Address, amount *big.Int) error {
	if amount == nil || amount.Cmp(r.EntranceFee) != 0 {
		sent := "0"
		if amount != nil {
			sent = amount.String()
		}
		return fmt.Errorf("%w: sent %s, required %s", ErrInsufficientAmount, sent, r.EntranceFee.String())
	}
	if !r.IsOpen() {
		return ErrRoundNotOpen
	}
	if participant == (common.Address{}) {
		return ErrInvalidParticipant
	}

	r.Participants = append(r.Participants, participant)
	r.Pool = new(big.Int).Add(r.PoolAmount(), amount)
	return nil
}

// BeginSettlement flips the raffle to settling with the given pending request
func (r *Raffle) BeginSettlement(requestID common.Hash, now time.Time) error {
	check := r.CheckUpkeep(now)
	if !check.Needed() {
		return r.upkeepNotNeeded(check)
	}

	id := requestID
	since := now
	r.Phase = PhaseSettling
	r.PendingRequestID = &id
	r.PendingSince = &since
	return nil
}

// UpkeepNotNeeded builds the rejection for a failed predicate
func (r *Raffle) UpkeepNotNeeded(now time.Time) error {
	return r.upkeepNotNeeded(r.CheckUpkeep(now))
}

func (r *Raffle) upkeepNotNeeded(check UpkeepCheck) error {
	return &UpkeepNotNeededError{
		Pool:             r.PoolAmount(),
		ParticipantCount: len(r.Participants),
		Phase:            r.Phase,
		Check:            check,
	}
}

// MatchesPendingRequest returns true if requestID is the in-flight request
func (r *Raffle) MatchesPendingRequest(requestID common.Hash) bool {
	return r.IsSettling() && r.PendingRequestID != nil && *r.PendingRequestID == requestID
}

// SelectWinner picks participants[randomWord mod len(participants)]
func (r *Raffle) SelectWinner(randomWord *big.Int) (int, common.Address, error) {
	if randomWord == nil || randomWord.Sign() < 0 {
		return 0, common.Address{}, ErrNoRandomWords
	}
	if len(r.Participants) == 0 {
		return 0, common.Address{}, ErrNoParticipants
	}

	count := big.NewInt(int64(len(r.Participants)))
	index := int(new(big.Int).Mod(randomWord, count).Int64())
	return index, r.Participants[index], nil
}

// CompleteSettlement resets the raffle for the next round after the winner was paid
func (r *Raffle) CompleteSettlement(requestID common.Hash, winner common.Address, now time.Time) error {
	if !r.MatchesPendingRequest(requestID) {
		return ErrUnknownRequest
	}

	w := winner
	r.RecentWinner = &w
	r.Participants = make([]common.Address, 0)
	r.Pool = new(big.Int)
	r.RoundNumber++
	if now.After(r.LastSettledAt) {
		r.LastSettledAt = now
	}
	r.Phase = PhaseOpen
	r.PendingRequestID = nil
	r.PendingSince = nil
	return nil
}

// TimeSinceRequest returns how long the pending request has been in flight
func (r *Raffle) TimeSinceRequest(now time.Time) time.Duration {
	if !r.IsSettling() || r.PendingSince == nil {
		return 0
	}
	return now.Sub(*r.PendingSince)
}

// IsStuck returns true if the pending request is older than timeout
func (r *Raffle) IsStuck(now time.Time, timeout time.Duration) bool {
	return r.IsSettling() && timeout > 0 && r.TimeSinceRequest(now) >= timeout
}

// AbandonPendingRequest reopens a stuck round. Participants and pool carry over
// so the next request draws from the same entries.
func (r *Raffle) AbandonPendingRequest(now time.Time, timeout time.Duration) (common.Hash, error) {
	if !r.IsStuck(now, timeout) {
		return common.Hash{}, ErrRoundNotStuck
	}

	abandoned := *r.PendingRequestID
	r.Phase = PhaseOpen
	r.PendingRequestID = nil
	r.PendingSince = nil
	return abandoned, nil
}
