package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionType represents the kind of ledger movement
type TransactionType string

const (
	TransactionTypeRafflePayout TransactionType = "raffle_payout"
	TransactionTypeAdjustment   TransactionType = "adjustment"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	Address             common.Address  `db:"address"`
	BalanceBefore       *big.Int        `db:"balance_before"`
	BalanceAfter        *big.Int        `db:"balance_after"`
	ChangeAmount        *big.Int        `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}

// IsPositiveChange returns true if the change amount is positive
func (bh *BalanceHistory) IsPositiveChange() bool {
	return bh.ChangeAmount != nil && bh.ChangeAmount.Sign() > 0
}
