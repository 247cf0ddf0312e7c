package api

import (
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"
)

type entryResponse struct {
	RaffleID    int64  `json:"raffleId"`
	RoundNumber int64  `json:"roundNumber"`
	Index       int    `json:"index"`
	Participant string `json:"participant"`
	Amount      string `json:"amount"`
}

type upkeepResponse struct {
	Needed          bool `json:"needed"`
	IsOpen          bool `json:"isOpen"`
	TimePassed      bool `json:"timePassed"`
	HasParticipants bool `json:"hasParticipants"`
	HasBalance      bool `json:"hasBalance"`
}

type statusResponse struct {
	RaffleID             int64          `json:"raffleId"`
	State                string         `json:"state"`
	RoundNumber          int64          `json:"roundNumber"`
	EntranceFee          string         `json:"entranceFee"`
	IntervalSeconds      int64          `json:"intervalSeconds"`
	Pool                 string         `json:"pool"`
	NumberOfPlayers      int            `json:"numberOfPlayers"`
	LatestTimestamp      time.Time      `json:"latestTimestamp"`
	RecentWinner         string         `json:"recentWinner,omitempty"`
	PendingRequestID     string         `json:"pendingRequestId,omitempty"`
	PendingSince         *time.Time     `json:"pendingSince,omitempty"`
	PendingSeconds       float64        `json:"pendingSeconds"`
	Stuck                bool           `json:"stuck"`
	NumWords             uint32         `json:"numWords"`
	RequestConfirmations uint16         `json:"requestConfirmations"`
	Upkeep               upkeepResponse `json:"upkeep"`
}

func newStatusResponse(s *interfaces.RoundStatus) statusResponse {
	resp := statusResponse{
		RaffleID:             s.RaffleID,
		State:                string(s.Phase),
		RoundNumber:          s.RoundNumber,
		EntranceFee:          s.EntranceFee.String(),
		IntervalSeconds:      int64(s.Interval / time.Second),
		Pool:                 s.Pool.String(),
		NumberOfPlayers:      s.ParticipantCount,
		LatestTimestamp:      s.LastSettledAt,
		PendingSince:         s.PendingSince,
		PendingSeconds:       s.TimeSinceRequest.Seconds(),
		Stuck:                s.Stuck,
		NumWords:             s.NumWords,
		RequestConfirmations: s.RequestConfirmations,
		Upkeep: upkeepResponse{
			Needed:          s.Upkeep.Needed(),
			IsOpen:          s.Upkeep.IsOpen,
			TimePassed:      s.Upkeep.TimePassed,
			HasParticipants: s.Upkeep.HasParticipants,
			HasBalance:      s.Upkeep.HasBalance,
		},
	}
	if s.RecentWinner != nil {
		resp.RecentWinner = s.RecentWinner.Hex()
	}
	if s.PendingRequestID != nil {
		resp.PendingRequestID = s.PendingRequestID.Hex()
	}
	return resp
}

type winnerResponse struct {
	RoundNumber      int64     `json:"roundNumber"`
	Winner           string    `json:"winner"`
	Amount           string    `json:"amount"`
	RequestID        string    `json:"requestId"`
	RandomWord       string    `json:"randomWord"`
	WinnerIndex      int       `json:"winnerIndex"`
	ParticipantCount int       `json:"participantCount"`
	SettledAt        time.Time `json:"settledAt"`
}

func newWinnerResponse(w *entities.RaffleWinner) winnerResponse {
	return winnerResponse{
		RoundNumber:      w.RoundNumber,
		Winner:           w.Winner.Hex(),
		Amount:           w.Amount.String(),
		RequestID:        w.RequestID.Hex(),
		RandomWord:       w.RandomWord.String(),
		WinnerIndex:      w.WinnerIndex,
		ParticipantCount: w.ParticipantCount,
		SettledAt:        w.CreatedAt,
	}
}
