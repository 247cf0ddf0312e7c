package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"gambler/raffle/domain/events"
	"gambler/raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// NATSEventSubscriber subscribes to NATS subjects and deserializes events for application handlers
type NATSEventSubscriber struct {
	natsClient    *NATSClient
	subjectMapper *EventSubjectMapper
	handlers      map[string]func(context.Context, events.Event) error
}

// NewNATSEventSubscriber creates a new NATS event subscriber
func NewNATSEventSubscriber(natsClient *NATSClient, subjectMapper *EventSubjectMapper) *NATSEventSubscriber {
	return &NATSEventSubscriber{
		natsClient:    natsClient,
		subjectMapper: subjectMapper,
		handlers:      make(map[string]func(context.Context, events.Event) error),
	}
}

// Subscribe registers a handler for a specific event type
func (s *NATSEventSubscriber) Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error {
	subject := s.subjectMapper.MapEventTypeToSubject(eventType)
	s.handlers[subject] = handler

	log.WithFields(log.Fields{
		"eventType": eventType,
		"subject":   subject,
	}).Info("Registering event handler for subject")

	return s.natsClient.Subscribe(subject, func(data []byte) error {
		return s.handleMessage(subject, data)
	})
}

// handleMessage deserializes a NATS message and routes it to the registered handler
func (s *NATSEventSubscriber) handleMessage(subject string, data []byte) error {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Error("Failed to unmarshal event envelope")
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	eventType := events.EventType(envelope.EventType)
	observability.GetMetrics().RecordNATSMessageReceived(envelope.EventType)

	event, err := deserializeEvent(eventType, envelope.Payload)
	if err != nil {
		log.WithFields(log.Fields{
			"subject":     subject,
			"eventType":   eventType,
			"eventId":     envelope.EventID,
			"error":       err,
			"payloadSize": len(envelope.Payload),
		}).Error("Failed to deserialize event payload")
		return fmt.Errorf("failed to deserialize event payload: %w", err)
	}

	handler, exists := s.handlers[subject]
	if !exists {
		return fmt.Errorf("no handler registered for subject %s", subject)
	}

	if err := handler(context.Background(), event); err != nil {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": eventType,
			"eventId":   envelope.EventID,
			"error":     err,
		}).Error("Event handler failed")
		return err
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"eventType": eventType,
		"eventId":   envelope.EventID,
	}).Debug("Successfully processed NATS event")

	return nil
}

// deserializeEvent decodes the payload into the concrete event value for eventType
func deserializeEvent(eventType events.EventType, payload []byte) (events.Event, error) {
	switch eventType {
	case events.EventTypeEntryRecorded:
		return decodeEvent[events.EntryRecordedEvent](payload)
	case events.EventTypeRoundSettling:
		return decodeEvent[events.RoundSettlingEvent](payload)
	case events.EventTypeWinnerPicked:
		return decodeEvent[events.WinnerPickedEvent](payload)
	case events.EventTypeRoundReset:
		return decodeEvent[events.RoundResetEvent](payload)
	case events.EventTypeBalanceChange:
		return decodeEvent[events.BalanceChangeEvent](payload)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

func decodeEvent[T events.Event](payload []byte) (events.Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return event, nil
}
