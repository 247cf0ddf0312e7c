package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RequestStatus represents the lifecycle of a randomness request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusAbandoned RequestStatus = "abandoned"
)

// NumWords is the number of random words requested per round
const NumWords uint32 = 1

// VRFConfig holds the request parameters sent to the randomness coordinator
type VRFConfig struct {
	KeyHash              common.Hash // Gas lane
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
}

// RandomnessRequest records a request issued to the randomness coordinator
type RandomnessRequest struct {
	RequestID            common.Hash   `db:"request_id"`
	RaffleID             int64         `db:"raffle_id"`
	RoundNumber          int64         `db:"round_number"`
	KeyHash              common.Hash   `db:"key_hash"`
	SubscriptionID       uint64        `db:"subscription_id"`
	RequestConfirmations uint16        `db:"request_confirmations"`
	CallbackGasLimit     uint32        `db:"callback_gas_limit"`
	NumWords             uint32        `db:"num_words"`
	Status               RequestStatus `db:"status"`
	RandomWord           *big.Int      `db:"random_word"` // NULL until fulfilled
	RequestedAt          time.Time     `db:"requested_at"`
	FulfilledAt          *time.Time    `db:"fulfilled_at"`
}

// IsPending returns true if the request is still waiting for the coordinator
func (r *RandomnessRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// MarkFulfilled records the delivered word
func (r *RandomnessRequest) MarkFulfilled(word *big.Int, now time.Time) {
	r.Status = RequestStatusFulfilled
	r.RandomWord = new(big.Int).Set(word)
	r.FulfilledAt = &now
}

// MarkAbandoned records that the round was reopened without this request
func (r *RandomnessRequest) MarkAbandoned() {
	r.Status = RequestStatusAbandoned
}
