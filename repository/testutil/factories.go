package testutil

import (
	"math/big"
	"time"

	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// EntranceFee is 0.1 ether
var EntranceFee = big.NewInt(100_000_000_000_000_000)

// Address returns a deterministic non-zero test address
func Address(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + n)))
}

// RequestID returns a deterministic test request ID
func RequestID(n int) common.Hash {
	return common.BigToHash(big.NewInt(int64(0xabc000 + n)))
}

// CreateTestRaffle creates an open raffle with default values
func CreateTestRaffle(id int64) *entities.Raffle {
	return entities.NewRaffle(id, Address(0), EntranceFee, 30*time.Second, time.Now().UTC().Truncate(time.Microsecond))
}

// CreateTestEntry creates an entry paying the default fee
func CreateTestEntry(raffle *entities.Raffle, seq int, participant common.Address) *entities.Entry {
	return &entities.Entry{
		RaffleID:    raffle.ID,
		RoundNumber: raffle.RoundNumber,
		Seq:         seq,
		Participant: participant,
		Amount:      new(big.Int).Set(raffle.EntranceFee),
	}
}

// CreateTestRandomnessRequest creates a pending request for the raffle's current round
func CreateTestRandomnessRequest(raffle *entities.Raffle, requestID common.Hash) *entities.RandomnessRequest {
	return &entities.RandomnessRequest{
		RequestID:            requestID,
		RaffleID:             raffle.ID,
		RoundNumber:          raffle.RoundNumber,
		KeyHash:              common.HexToHash("0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"),
		SubscriptionID:       1,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             entities.NumWords,
		Status:               entities.RequestStatusPending,
		RequestedAt:          time.Now().UTC().Truncate(time.Microsecond),
	}
}

// CreateTestBalanceHistory creates a payout history entry
func CreateTestBalanceHistory(address common.Address, before, change int64) *entities.BalanceHistory {
	return &entities.BalanceHistory{
		Address:         address,
		BalanceBefore:   big.NewInt(before),
		BalanceAfter:    big.NewInt(before + change),
		ChangeAmount:    big.NewInt(change),
		TransactionType: entities.TransactionTypeRafflePayout,
		TransactionMetadata: map[string]interface{}{
			"test": true,
		},
	}
}
