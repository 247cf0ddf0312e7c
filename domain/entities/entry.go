package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Entry represents one accepted raffle entry
type Entry struct {
	ID          int64          `db:"id"`
	RaffleID    int64          `db:"raffle_id"`
	RoundNumber int64          `db:"round_number"`
	Seq         int            `db:"seq"` // Position in the round's participant list
	Participant common.Address `db:"participant"`
	Amount      *big.Int       `db:"amount"`
	CreatedAt   time.Time      `db:"created_at"`
}
