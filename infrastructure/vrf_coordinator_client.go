package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gambler/raffle/application/dto"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// requester is the part of NATSClient the coordinator client needs
type requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// NATSVRFCoordinator issues randomness requests to the oracle over NATS request/reply.
// The reply carries the request id; words arrive later on the fulfillment subject.
type NATSVRFCoordinator struct {
	client  requester
	timeout time.Duration
}

// NewNATSVRFCoordinator creates a coordinator client; timeout bounds the wait for the acknowledgement
func NewNATSVRFCoordinator(client requester, timeout time.Duration) *NATSVRFCoordinator {
	return &NATSVRFCoordinator{client: client, timeout: timeout}
}

var _ interfaces.RandomnessCoordinator = (*NATSVRFCoordinator)(nil)

// RequestRandomWords sends the request and returns the coordinator-assigned id
func (c *NATSVRFCoordinator) RequestRandomWords(ctx context.Context, req *interfaces.RandomWordsRequest) (common.Hash, error) {
	payload, err := json.Marshal(dto.RandomWordsRequest{
		KeyHash:              req.KeyHash,
		SubscriptionID:       req.SubscriptionID,
		RequestConfirmations: req.RequestConfirmations,
		CallbackGasLimit:     req.CallbackGasLimit,
		NumWords:             req.NumWords,
		Consumer:             req.Consumer,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to marshal random words request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.client.Request(ctx, dto.RandomWordsRequestSubject, payload)
	if err != nil {
		return common.Hash{}, err
	}

	var ack dto.RandomWordsRequestAck
	if err := json.Unmarshal(reply, &ack); err != nil {
		return common.Hash{}, fmt.Errorf("failed to unmarshal random words acknowledgement: %w", err)
	}
	if ack.Error != "" {
		return common.Hash{}, fmt.Errorf("coordinator rejected request: %s", ack.Error)
	}
	if ack.RequestID == (common.Hash{}) {
		return common.Hash{}, errors.New("coordinator returned an empty request id")
	}

	log.WithFields(log.Fields{
		"requestID":      ack.RequestID.Hex(),
		"consumer":       req.Consumer.Hex(),
		"subscriptionID": req.SubscriptionID,
	}).Debug("Randomness request acknowledged")

	return ack.RequestID, nil
}
