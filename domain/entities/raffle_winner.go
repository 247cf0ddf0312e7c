package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleWinner represents a settled round
type RaffleWinner struct {
	ID               int64          `db:"id"`
	RaffleID         int64          `db:"raffle_id"`
	RoundNumber      int64          `db:"round_number"`
	Winner           common.Address `db:"winner"`
	Amount           *big.Int       `db:"amount"`
	RequestID        common.Hash    `db:"request_id"`
	RandomWord       *big.Int       `db:"random_word"`
	WinnerIndex      int            `db:"winner_index"`
	ParticipantCount int            `db:"participant_count"`
	BalanceHistoryID int64          `db:"balance_history_id"`
	CreatedAt        time.Time      `db:"created_at"`
}
