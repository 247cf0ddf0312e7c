package application

import (
	"context"
	"errors"
	"math/big"

	"gambler/raffle/application/dto"
	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// RandomnessFulfiller settles rounds from oracle callbacks
type RandomnessFulfiller interface {
	FulfillRandomWords(ctx context.Context, requestID common.Hash, randomWords []*big.Int) (*interfaces.SettlementResult, error)
}

// fulfillmentHandler turns oracle deliveries into settlements.
// Returning an error asks the transport to redeliver; permanent rejections return nil.
type fulfillmentHandler struct {
	fulfiller RandomnessFulfiller
}

// NewFulfillmentHandler creates the oracle callback handler
func NewFulfillmentHandler(fulfiller RandomnessFulfiller) FulfillmentHandler {
	return &fulfillmentHandler{fulfiller: fulfiller}
}

// HandleRandomWordsFulfilled settles the round waiting on the delivered request
func (h *fulfillmentHandler) HandleRandomWordsFulfilled(ctx context.Context, fulfilled dto.RandomWordsFulfilled) error {
	fields := log.Fields{
		"requestID": fulfilled.RequestID.Hex(),
		"numWords":  len(fulfilled.RandomWords),
	}

	words, err := fulfilled.Words()
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Dropping malformed fulfillment")
		return nil
	}

	result, err := h.fulfiller.FulfillRandomWords(ctx, fulfilled.RequestID, words)
	switch {
	case errors.Is(err, entities.ErrRequestNotRecorded):
		log.WithFields(fields).WithError(err).Warn("Fulfillment arrived before its request was committed, retrying")
		return err
	case errors.Is(err, entities.ErrUnknownRequest):
		log.WithFields(fields).WithError(err).Warn("Ignoring fulfillment for unknown request")
		return nil
	case errors.Is(err, entities.ErrNoRandomWords):
		log.WithFields(fields).WithError(err).Error("Dropping fulfillment without random words")
		return nil
	case err != nil:
		// Rolled back; the round stays settling and redelivery retries the payout
		log.WithFields(fields).WithError(err).Error("Failed to settle round")
		return err
	}

	log.WithFields(log.Fields{
		"requestID": fulfilled.RequestID.Hex(),
		"raffleID":  result.RaffleID,
		"round":     result.RoundNumber,
		"winner":    result.Winner.Hex(),
		"amount":    result.Amount.String(),
	}).Info("Fulfillment settled round")
	return nil
}
