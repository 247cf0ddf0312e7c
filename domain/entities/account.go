package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a payout destination in the raffle ledger.
// A frozen account cannot receive funds.
type Account struct {
	Address   common.Address `db:"address"`
	Balance   *big.Int       `db:"balance"`
	Frozen    bool           `db:"frozen"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// CanReceive returns true if funds may be credited to this account
func (a *Account) CanReceive() bool {
	return !a.Frozen
}
