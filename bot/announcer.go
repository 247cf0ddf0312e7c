package bot

import (
	"bytes"
	"context"
	"fmt"

	"gambler/raffle/application"
	"gambler/raffle/domain/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// MessageSender is the part of a discord session the announcer posts through
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer posts raffle results to a discord channel
type DiscordAnnouncer struct {
	session   MessageSender
	channelID string
	cards     *ResultCardGenerator
}

var _ application.RaffleAnnouncer = (*DiscordAnnouncer)(nil)

// NewDiscordAnnouncer creates an announcer for channelID. cards may be nil to post embeds only.
func NewDiscordAnnouncer(session MessageSender, channelID string, cards *ResultCardGenerator) *DiscordAnnouncer {
	return &DiscordAnnouncer{
		session:   session,
		channelID: channelID,
		cards:     cards,
	}
}

// Connect opens a bot session with the given token
func Connect(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening discord connection: %w", err)
	}
	return dg, nil
}

// AnnounceWinner posts the winner embed with the result card attached
func (a *DiscordAnnouncer) AnnounceWinner(ctx context.Context, event events.WinnerPickedEvent) error {
	message := &discordgo.MessageSend{}

	cardName := ""
	if a.cards != nil {
		card, err := a.cards.Generate(event)
		if err != nil {
			// Post without the image rather than not at all
			log.WithFields(log.Fields{
				"raffleID": event.RaffleID,
				"round":    event.RoundNumber,
				"error":    err,
			}).Warn("Failed to generate result card")
		} else {
			cardName = CardName(event.RaffleID, event.RoundNumber)
			message.Files = []*discordgo.File{{
				Name:        cardName,
				ContentType: "image/png",
				Reader:      bytes.NewReader(card),
			}}
		}
	}
	message.Embeds = []*discordgo.MessageEmbed{CreateWinnerEmbed(event, cardName)}

	msg, err := a.session.ChannelMessageSendComplex(a.channelID, message, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post raffle winner: %w", err)
	}

	log.WithFields(log.Fields{
		"raffleID":   event.RaffleID,
		"round":      event.RoundNumber,
		"winner":     event.Winner.Hex(),
		"channel_id": a.channelID,
		"message_id": msg.ID,
	}).Info("Posted raffle winner to Discord")
	return nil
}

// AnnounceRoundReset posts the reset notice
func (a *DiscordAnnouncer) AnnounceRoundReset(ctx context.Context, event events.RoundResetEvent) error {
	msg, err := a.session.ChannelMessageSendComplex(a.channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{CreateRoundResetEmbed(event)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post round reset: %w", err)
	}

	log.WithFields(log.Fields{
		"raffleID":   event.RaffleID,
		"round":      event.RoundNumber,
		"channel_id": a.channelID,
		"message_id": msg.ID,
	}).Info("Posted raffle round reset to Discord")
	return nil
}
