package application

import (
	"fmt"

	"gambler/raffle/domain/events"
)

// AssertEventType asserts an event to a concrete type, accepting both values and pointers
func AssertEventType[T events.Event](event events.Event, expectedTypeName string) (T, error) {
	var zero T

	if e, ok := event.(T); ok {
		return e, nil
	}
	if p, ok := any(event).(*T); ok && p != nil {
		return *p, nil
	}

	return zero, fmt.Errorf("event type assertion failed: expected %s, got %T", expectedTypeName, event)
}
