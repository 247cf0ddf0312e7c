package infrastructure

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"gambler/raffle/domain/events"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher collects published events
type recordingPublisher struct {
	PublishedEvents []events.Event
	PublishError    error
}

func (m *recordingPublisher) Publish(event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

func testWinnerPicked() events.WinnerPickedEvent {
	return events.WinnerPickedEvent{
		RaffleID:         1,
		RoundNumber:      3,
		RequestID:        common.HexToHash("0x01"),
		Winner:           common.HexToAddress("0x06"),
		Amount:           big.NewInt(600),
		RandomWord:       big.NewInt(17),
		WinnerIndex:      5,
		ParticipantCount: 6,
	}
}

func TestNATSTransactionalPublisher_LocalHandlers(t *testing.T) {
	mockPublisher := &recordingPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	handlerCalled := false
	var receivedEvent events.Event
	transPublisher.RegisterLocalHandler(events.EventTypeWinnerPicked, func(ctx context.Context, event events.Event) error {
		handlerCalled = true
		receivedEvent = event
		return nil
	})

	testEvent := testWinnerPicked()
	require.NoError(t, transPublisher.Publish(testEvent))

	// Queued only
	assert.False(t, handlerCalled)
	assert.Empty(t, mockPublisher.PublishedEvents)
	assert.Equal(t, 1, transPublisher.PendingCount())

	require.NoError(t, transPublisher.Flush(context.Background()))

	assert.True(t, handlerCalled)
	assert.Equal(t, testEvent, receivedEvent)
	require.Len(t, mockPublisher.PublishedEvents, 1)
	assert.Equal(t, testEvent, mockPublisher.PublishedEvents[0])
	assert.Zero(t, transPublisher.PendingCount())
}

func TestNATSTransactionalPublisher_MultipleLocalHandlers(t *testing.T) {
	transPublisher := NewNATSTransactionalPublisher(&recordingPublisher{})

	handler1Called := false
	handler2Called := false
	transPublisher.RegisterLocalHandler(events.EventTypeWinnerPicked, func(ctx context.Context, event events.Event) error {
		handler1Called = true
		return errors.New("handler failure does not stop the next one")
	})
	transPublisher.RegisterLocalHandler(events.EventTypeWinnerPicked, func(ctx context.Context, event events.Event) error {
		handler2Called = true
		return nil
	})

	require.NoError(t, transPublisher.Publish(testWinnerPicked()))
	require.NoError(t, transPublisher.Flush(context.Background()))

	assert.True(t, handler1Called)
	assert.True(t, handler2Called)
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	mockPublisher := &recordingPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	handlerCalled := false
	transPublisher.RegisterLocalHandler(events.EventTypeWinnerPicked, func(ctx context.Context, event events.Event) error {
		handlerCalled = true
		return nil
	})

	require.NoError(t, transPublisher.Publish(testWinnerPicked()))
	transPublisher.Discard()
	require.NoError(t, transPublisher.Flush(context.Background()))

	assert.False(t, handlerCalled)
	assert.Empty(t, mockPublisher.PublishedEvents)
}

func TestNATSTransactionalPublisher_FlushContinuesOnPublishError(t *testing.T) {
	mockPublisher := &recordingPublisher{PublishError: errors.New("nats down")}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, transPublisher.Publish(testWinnerPicked()))
	require.NoError(t, transPublisher.Publish(events.RoundResetEvent{RaffleID: 1}))

	assert.NoError(t, transPublisher.Flush(context.Background()))
	assert.Zero(t, transPublisher.PendingCount())
}
