package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"gambler/raffle/application/dto"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// RequestHandler serves core request/reply subjects
type RequestHandler interface {
	Handle(subject string, handler func([]byte) []byte) error
}

// StreamPublisher publishes to a persisted stream
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSFulfillmentPublisher delivers fulfillments on the consumer's fulfillment subject
type NATSFulfillmentPublisher struct {
	publisher StreamPublisher
}

// NewNATSFulfillmentPublisher creates a publisher backed by a JetStream client
func NewNATSFulfillmentPublisher(publisher StreamPublisher) *NATSFulfillmentPublisher {
	return &NATSFulfillmentPublisher{publisher: publisher}
}

// PublishFulfillment publishes fulfilled to vrf.fulfillments.<consumer>
func (p *NATSFulfillmentPublisher) PublishFulfillment(ctx context.Context, consumer common.Address, fulfilled dto.RandomWordsFulfilled) error {
	data, err := json.Marshal(fulfilled)
	if err != nil {
		return fmt.Errorf("failed to marshal fulfillment: %w", err)
	}
	return p.publisher.Publish(ctx, dto.FulfillmentSubject(consumer), data)
}

// Server exposes a coordinator on the randomness request subject
type Server struct {
	coordinator interfaces.RandomnessCoordinator
}

// NewServer creates a request server for coordinator
func NewServer(coordinator interfaces.RandomnessCoordinator) *Server {
	return &Server{coordinator: coordinator}
}

// Start begins answering requests on vrf.requests
func (s *Server) Start(handler RequestHandler) error {
	if err := handler.Handle(dto.RandomWordsRequestSubject, s.HandleRequest); err != nil {
		return fmt.Errorf("failed to serve randomness requests: %w", err)
	}
	log.WithField("subject", dto.RandomWordsRequestSubject).Info("Randomness coordinator serving requests")
	return nil
}

// HandleRequest decodes a request, forwards it to the coordinator and encodes the acknowledgement.
// Rejections are reported in the acknowledgement's Error field.
func (s *Server) HandleRequest(data []byte) []byte {
	var ack dto.RandomWordsRequestAck

	var req dto.RandomWordsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ack.Error = fmt.Sprintf("malformed request: %v", err)
	} else {
		id, err := s.coordinator.RequestRandomWords(context.Background(), &interfaces.RandomWordsRequest{
			KeyHash:              req.KeyHash,
			SubscriptionID:       req.SubscriptionID,
			RequestConfirmations: req.RequestConfirmations,
			CallbackGasLimit:     req.CallbackGasLimit,
			NumWords:             req.NumWords,
			Consumer:             req.Consumer,
		})
		if err != nil {
			ack.Error = err.Error()
		} else {
			ack.RequestID = id
		}
	}

	if ack.Error != "" {
		log.WithField("error", ack.Error).Warn("Rejected randomness request")
	}

	reply, err := json.Marshal(ack)
	if err != nil {
		log.WithError(err).Error("Failed to marshal acknowledgement")
		return []byte(`{"error":"internal error"}`)
	}
	return reply
}

// Deploy creates a subscription for consumer, funds it and registers the consumer,
// returning the subscription id
func Deploy(m *MockCoordinator, owner, consumer common.Address, fundAmount *big.Int) (uint64, error) {
	subID := m.CreateSubscription(owner)
	if err := m.FundSubscription(subID, fundAmount); err != nil {
		return 0, fmt.Errorf("failed to fund subscription: %w", err)
	}
	if err := m.AddConsumer(subID, consumer); err != nil {
		return 0, fmt.Errorf("failed to add consumer: %w", err)
	}
	return subID, nil
}
