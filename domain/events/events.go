package events

import (
	"math/big"
	"time"

	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeEntryRecorded EventType = "entry_recorded"
	EventTypeRoundSettling EventType = "round_settling"
	EventTypeWinnerPicked  EventType = "winner_picked"
	EventTypeRoundReset    EventType = "round_reset"
	EventTypeBalanceChange EventType = "balance_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// EntryRecordedEvent is emitted for every accepted entry
type EntryRecordedEvent struct {
	RaffleID    int64          `json:"raffle_id"`
	RoundNumber int64          `json:"round_number"`
	Participant common.Address `json:"participant"`
	Amount      *big.Int       `json:"amount"`
	Pool        *big.Int       `json:"pool"`
	EntryCount  int            `json:"entry_count"`
}

func (e EntryRecordedEvent) Type() EventType {
	return EventTypeEntryRecorded
}

// RoundSettlingEvent is emitted when a randomness request has been issued
type RoundSettlingEvent struct {
	RaffleID         int64       `json:"raffle_id"`
	RoundNumber      int64       `json:"round_number"`
	RequestID        common.Hash `json:"request_id"`
	Pool             *big.Int    `json:"pool"`
	ParticipantCount int         `json:"participant_count"`
	RequestedAt      time.Time   `json:"requested_at"`
}

func (e RoundSettlingEvent) Type() EventType {
	return EventTypeRoundSettling
}

// WinnerPickedEvent is emitted after the pool was paid out
type WinnerPickedEvent struct {
	RaffleID         int64          `json:"raffle_id"`
	RoundNumber      int64          `json:"round_number"`
	RequestID        common.Hash    `json:"request_id"`
	Winner           common.Address `json:"winner"`
	Amount           *big.Int       `json:"amount"`
	RandomWord       *big.Int       `json:"random_word"`
	WinnerIndex      int            `json:"winner_index"`
	ParticipantCount int            `json:"participant_count"`
	SettledAt        time.Time      `json:"settled_at"`
}

func (e WinnerPickedEvent) Type() EventType {
	return EventTypeWinnerPicked
}

// RoundResetEvent is emitted when a stuck round was reopened
type RoundResetEvent struct {
	RaffleID           int64         `json:"raffle_id"`
	RoundNumber        int64         `json:"round_number"`
	AbandonedRequestID common.Hash   `json:"abandoned_request_id"`
	PendingFor         time.Duration `json:"pending_for"`
}

func (e RoundResetEvent) Type() EventType {
	return EventTypeRoundReset
}

// BalanceChangeEvent represents a ledger balance change
type BalanceChangeEvent struct {
	Address         common.Address           `json:"address"`
	OldBalance      *big.Int                 `json:"old_balance"`
	NewBalance      *big.Int                 `json:"new_balance"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	ChangeAmount    *big.Int                 `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}
