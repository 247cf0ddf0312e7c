package bot

import (
	"fmt"

	"gambler/raffle/domain/events"
	"gambler/raffle/domain/utils"

	"github.com/bwmarrin/discordgo"
)

// CreateWinnerEmbed creates the announcement for a settled round.
// cardName, when set, references an attached result card image.
func CreateWinnerEmbed(event events.WinnerPickedEvent, cardName string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Raffle #%d - Round %d settled", event.RaffleID, event.RoundNumber),
		Color:       ColorSuccess,
		Description: fmt.Sprintf("`%s` won **%s ETH**", event.Winner.Hex(), utils.FormatEther(event.Amount)),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Participants",
				Value:  fmt.Sprintf("%d", event.ParticipantCount),
				Inline: true,
			},
			{
				Name:   "Winning Index",
				Value:  fmt.Sprintf("%d", event.WinnerIndex),
				Inline: true,
			},
			{
				Name:   "Request",
				Value:  fmt.Sprintf("`%s`", shortHash(event.RequestID.Hex())),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Winner = participants[randomWord mod participants]",
		},
	}
	if !event.SettledAt.IsZero() {
		embed.Timestamp = event.SettledAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if cardName != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + cardName}
	}
	return embed
}

// CreateRoundResetEmbed creates the notice for a round reopened after a lost fulfillment
func CreateRoundResetEmbed(event events.RoundResetEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Raffle #%d - Round %d reopened", event.RaffleID, event.RoundNumber),
		Color:       ColorWarning,
		Description: "The randomness request went unanswered. Entries carry over and a new draw will be requested.",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Abandoned Request",
				Value:  fmt.Sprintf("`%s`", shortHash(event.AbandonedRequestID.Hex())),
				Inline: true,
			},
			{
				Name:   "Pending For",
				Value:  event.PendingFor.Round(1e9).String(),
				Inline: true,
			},
		},
	}
}

func shortHash(hex string) string {
	if len(hex) <= 14 {
		return hex
	}
	return hex[:10] + "…" + hex[len(hex)-4:]
}
