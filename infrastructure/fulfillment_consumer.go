package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"gambler/raffle/application"
	"gambler/raffle/application/dto"
	"gambler/raffle/infrastructure/observability"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// FulfillmentConsumer binds the oracle's fulfillment subject for one consumer address
// to the application's fulfillment handler
type FulfillmentConsumer struct {
	natsClient *NATSClient
	consumer   common.Address
	handler    application.FulfillmentHandler
}

// NewFulfillmentConsumer creates a new fulfillment consumer
func NewFulfillmentConsumer(natsClient *NATSClient, consumer common.Address, handler application.FulfillmentHandler) *FulfillmentConsumer {
	return &FulfillmentConsumer{
		natsClient: natsClient,
		consumer:   consumer,
		handler:    handler,
	}
}

// Start ensures the fulfillment stream exists and subscribes durably
func (c *FulfillmentConsumer) Start() error {
	if err := EnsureFulfillmentStream(c.natsClient); err != nil {
		return err
	}

	subject := dto.FulfillmentSubject(c.consumer)
	if err := c.natsClient.Subscribe(subject, func(data []byte) error {
		return c.HandleMessage(context.Background(), data)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to fulfillments: %w", err)
	}

	log.WithField("subject", subject).Info("Listening for randomness fulfillments")
	return nil
}

// HandleMessage decodes one fulfillment. Undecodable messages are acknowledged and dropped.
func (c *FulfillmentConsumer) HandleMessage(ctx context.Context, data []byte) error {
	observability.GetMetrics().RecordNATSMessageReceived("random_words_fulfilled")

	var fulfilled dto.RandomWordsFulfilled
	if err := json.Unmarshal(data, &fulfilled); err != nil {
		log.WithFields(log.Fields{
			"consumer": c.consumer.Hex(),
			"error":    err,
		}).Error("Failed to unmarshal fulfillment")
		return nil
	}

	log.WithFields(log.Fields{
		"requestID": fulfilled.RequestID.Hex(),
		"numWords":  len(fulfilled.RandomWords),
	}).Debug("Processing randomness fulfillment")

	return c.handler.HandleRandomWordsFulfilled(ctx, fulfilled)
}

// EnsureFulfillmentStream creates the stream holding fulfillments for all consumers
func EnsureFulfillmentStream(natsClient *NATSClient) error {
	return natsClient.EnsureStream(dto.FulfillmentStream, []string{dto.FulfillmentSubjectPrefix + "*"}, "Randomness oracle fulfillments")
}
