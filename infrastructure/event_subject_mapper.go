package infrastructure

import (
	"fmt"

	"gambler/raffle/domain/events"
)

// RaffleEventStream is the JetStream stream holding raffle domain events
const RaffleEventStream = "raffle_events"

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.MapEventTypeToSubject(event.Type())
}

// MapEventTypeToSubject converts an event type to its NATS subject
func (m *EventSubjectMapper) MapEventTypeToSubject(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeEntryRecorded:
		return "raffle.entry_recorded"
	case events.EventTypeRoundSettling:
		return "raffle.round_settling"
	case events.EventTypeWinnerPicked:
		return "raffle.winner_picked"
	case events.EventTypeRoundReset:
		return "raffle.round_reset"
	case events.EventTypeBalanceChange:
		return "accounts.balance_changed"
	default:
		return fmt.Sprintf("unknown.%s", eventType)
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "raffle.entry_recorded":
		return events.EventTypeEntryRecorded
	case "raffle.round_settling":
		return events.EventTypeRoundSettling
	case "raffle.winner_picked":
		return events.EventTypeWinnerPicked
	case "raffle.round_reset":
		return events.EventTypeRoundReset
	case "accounts.balance_changed":
		return events.EventTypeBalanceChange
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"raffle.entry_recorded",
		"raffle.round_settling",
		"raffle.winner_picked",
		"raffle.round_reset",
		"accounts.balance_changed",
	}
}
