package dto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Randomness oracle subjects
const (
	// RandomWordsRequestSubject carries request/reply randomness requests
	RandomWordsRequestSubject = "vrf.requests"
	// FulfillmentStream holds fulfillments until the consumer acknowledges them
	FulfillmentStream = "vrf_fulfillments"
	// FulfillmentSubjectPrefix is followed by the consumer address
	FulfillmentSubjectPrefix = "vrf.fulfillments."
)

// FulfillmentSubject returns the subject fulfillments for consumer are published on
func FulfillmentSubject(consumer common.Address) string {
	return FulfillmentSubjectPrefix + consumer.Hex()
}

// RandomWordsRequest is sent by the raffle to the coordinator
type RandomWordsRequest struct {
	KeyHash              common.Hash    `json:"key_hash"`
	SubscriptionID       uint64         `json:"subscription_id"`
	RequestConfirmations uint16         `json:"request_confirmations"`
	CallbackGasLimit     uint32         `json:"callback_gas_limit"`
	NumWords             uint32         `json:"num_words"`
	Consumer             common.Address `json:"consumer"`
}

// RandomWordsRequestAck is the coordinator's synchronous answer; Error is set on rejection
type RandomWordsRequestAck struct {
	RequestID common.Hash `json:"request_id"`
	Error     string      `json:"error,omitempty"`
}

// RandomWordsFulfilled is delivered to the consumer once words are available.
// Words are decimal strings so full 256-bit values survive JSON.
type RandomWordsFulfilled struct {
	RequestID   common.Hash `json:"request_id"`
	RandomWords []string    `json:"random_words"`
}

// NewRandomWordsFulfilled encodes words for the wire
func NewRandomWordsFulfilled(requestID common.Hash, words []*big.Int) RandomWordsFulfilled {
	encoded := make([]string, len(words))
	for i, w := range words {
		encoded[i] = w.String()
	}
	return RandomWordsFulfilled{RequestID: requestID, RandomWords: encoded}
}

// Words decodes the random words
func (f RandomWordsFulfilled) Words() ([]*big.Int, error) {
	words := make([]*big.Int, len(f.RandomWords))
	for i, s := range f.RandomWords {
		w, ok := new(big.Int).SetString(s, 10)
		if !ok || w.Sign() < 0 {
			return nil, fmt.Errorf("invalid random word %d: %q", i, s)
		}
		words[i] = w
	}
	return words, nil
}
