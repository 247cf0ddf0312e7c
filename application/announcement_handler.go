package application

import (
	"context"

	"gambler/raffle/domain/events"
)

// AnnouncementHandler forwards round results to the chat announcer
type AnnouncementHandler struct {
	announcer RaffleAnnouncer
}

// NewAnnouncementHandler creates a new announcement handler
func NewAnnouncementHandler(announcer RaffleAnnouncer) *AnnouncementHandler {
	return &AnnouncementHandler{announcer: announcer}
}

// HandleWinnerPicked announces a settled round
func (h *AnnouncementHandler) HandleWinnerPicked(ctx context.Context, event events.Event) error {
	winnerPicked, err := AssertEventType[events.WinnerPickedEvent](event, "WinnerPickedEvent")
	if err != nil {
		return err
	}
	return h.announcer.AnnounceWinner(ctx, winnerPicked)
}

// HandleRoundReset announces a reopened round
func (h *AnnouncementHandler) HandleRoundReset(ctx context.Context, event events.Event) error {
	reset, err := AssertEventType[events.RoundResetEvent](event, "RoundResetEvent")
	if err != nil {
		return err
	}
	return h.announcer.AnnounceRoundReset(ctx, reset)
}

// RegisterApplicationSubscriptions subscribes the announcement handler to round results
func RegisterApplicationSubscriptions(subscriber EventSubscriber, announcer RaffleAnnouncer) error {
	handler := NewAnnouncementHandler(announcer)

	if err := subscriber.Subscribe(events.EventTypeWinnerPicked, handler.HandleWinnerPicked); err != nil {
		return err
	}
	return subscriber.Subscribe(events.EventTypeRoundReset, handler.HandleRoundReset)
}
