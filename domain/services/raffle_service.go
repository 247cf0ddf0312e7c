package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// raffleService implements business logic for raffle rounds.
// Every mutating method expects to run inside a transaction and locks the raffle row first.
type raffleService struct {
	raffleRepo     interfaces.RaffleRepository
	entryRepo      interfaces.EntryRepository
	requestRepo    interfaces.RandomnessRequestRepository
	winnerRepo     interfaces.RaffleWinnerRepository
	coordinator    interfaces.RandomnessCoordinator
	payoutSender   interfaces.PayoutSender
	eventPublisher interfaces.EventPublisher
	vrfConfig      entities.VRFConfig
	now            func() time.Time
}

// NewRaffleService creates a new raffle service
func NewRaffleService(
	raffleRepo interfaces.RaffleRepository,
	entryRepo interfaces.EntryRepository,
	requestRepo interfaces.RandomnessRequestRepository,
	winnerRepo interfaces.RaffleWinnerRepository,
	coordinator interfaces.RandomnessCoordinator,
	payoutSender interfaces.PayoutSender,
	eventPublisher interfaces.EventPublisher,
	vrfConfig entities.VRFConfig,
) interfaces.RaffleService {
	return &raffleService{
		raffleRepo:     raffleRepo,
		entryRepo:      entryRepo,
		requestRepo:    requestRepo,
		winnerRepo:     winnerRepo,
		coordinator:    coordinator,
		payoutSender:   payoutSender,
		eventPublisher: eventPublisher,
		vrfConfig:      vrfConfig,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// GetOrCreateRaffle loads the raffle or creates it with the given configuration
func (s *raffleService) GetOrCreateRaffle(ctx context.Context, id int64, consumer common.Address, entranceFee *big.Int, interval time.Duration) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}

	if raffle != nil {
		if raffle.EntranceFee.Cmp(entranceFee) != 0 || raffle.Interval != interval || raffle.ConsumerAddress != consumer {
			log.WithFields(log.Fields{
				"raffleID":           id,
				"storedEntranceFee":  raffle.EntranceFee.String(),
				"configEntranceFee":  entranceFee.String(),
				"storedInterval":     raffle.Interval,
				"configInterval":     interval,
				"storedConsumer":     raffle.ConsumerAddress.Hex(),
				"configuredConsumer": consumer.Hex(),
			}).Warn("Raffle configuration differs from stored raffle, keeping stored values")
		}
		return raffle, nil
	}

	if entranceFee == nil || entranceFee.Sign() <= 0 {
		return nil, errors.New("entrance fee must be positive")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}

	if err := s.raffleRepo.Create(ctx, entities.NewRaffle(id, consumer, entranceFee, interval, s.now())); err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	// Reload: a concurrent creator may have won the insert
	raffle, err = s.raffleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound
	}

	log.WithFields(log.Fields{
		"raffleID":    id,
		"entranceFee": raffle.EntranceFee.String(),
		"interval":    raffle.Interval,
		"consumer":    raffle.ConsumerAddress.Hex(),
	}).Info("Created raffle")

	return raffle, nil
}

// Enter records one paid entry into the open round
func (s *raffleService) Enter(ctx context.Context, raffleID int64, participant common.Address, amount *big.Int) (*entities.Entry, error) {
	raffle, err := s.lockRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	seq := raffle.ParticipantCount()
	if err := raffle.Enter(participant, amount); err != nil {
		return nil, err
	}

	entry := &entities.Entry{
		RaffleID:    raffle.ID,
		RoundNumber: raffle.RoundNumber,
		Seq:         seq,
		Participant: participant,
		Amount:      new(big.Int).Set(amount),
		CreatedAt:   s.now(),
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	event := events.EntryRecordedEvent{
		RaffleID:    raffle.ID,
		RoundNumber: raffle.RoundNumber,
		Participant: participant,
		Amount:      entry.Amount,
		Pool:        raffle.PoolAmount(),
		EntryCount:  raffle.ParticipantCount(),
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish entry recorded event")
	}

	log.WithFields(log.Fields{
		"raffleID":    raffle.ID,
		"round":       raffle.RoundNumber,
		"participant": participant.Hex(),
		"pool":        raffle.Pool.String(),
		"entries":     raffle.ParticipantCount(),
	}).Debug("Raffle entry recorded")

	return entry, nil
}

// CheckUpkeep evaluates the settlement predicate without locking or mutating anything
func (s *raffleService) CheckUpkeep(ctx context.Context, raffleID int64, checkData []byte) (bool, []byte, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return false, nil, entities.ErrRaffleNotFound
	}

	return raffle.NeedsSettlement(s.now()), checkData, nil
}

// PerformUpkeep issues a randomness request and moves the raffle to settling.
// performData is accepted for compatibility and not interpreted.
func (s *raffleService) PerformUpkeep(ctx context.Context, raffleID int64, performData []byte) (*entities.RandomnessRequest, error) {
	raffle, err := s.lockRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !raffle.NeedsSettlement(now) {
		return nil, raffle.UpkeepNotNeeded(now)
	}

	requestID, err := s.coordinator.RequestRandomWords(ctx, &interfaces.RandomWordsRequest{
		KeyHash:              s.vrfConfig.KeyHash,
		SubscriptionID:       s.vrfConfig.SubscriptionID,
		RequestConfirmations: s.vrfConfig.RequestConfirmations,
		CallbackGasLimit:     s.vrfConfig.CallbackGasLimit,
		NumWords:             entities.NumWords,
		Consumer:             raffle.ConsumerAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request random words: %w", err)
	}

	if err := raffle.BeginSettlement(requestID, now); err != nil {
		return nil, err
	}

	request := &entities.RandomnessRequest{
		RequestID:            requestID,
		RaffleID:             raffle.ID,
		RoundNumber:          raffle.RoundNumber,
		KeyHash:              s.vrfConfig.KeyHash,
		SubscriptionID:       s.vrfConfig.SubscriptionID,
		RequestConfirmations: s.vrfConfig.RequestConfirmations,
		CallbackGasLimit:     s.vrfConfig.CallbackGasLimit,
		NumWords:             entities.NumWords,
		Status:               entities.RequestStatusPending,
		RequestedAt:          now,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create randomness request: %w", err)
	}

	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	event := events.RoundSettlingEvent{
		RaffleID:         raffle.ID,
		RoundNumber:      raffle.RoundNumber,
		RequestID:        requestID,
		Pool:             raffle.PoolAmount(),
		ParticipantCount: raffle.ParticipantCount(),
		RequestedAt:      now,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish round settling event")
	}

	log.WithFields(log.Fields{
		"raffleID":     raffle.ID,
		"round":        raffle.RoundNumber,
		"requestID":    requestID.Hex(),
		"participants": raffle.ParticipantCount(),
		"pool":         raffle.Pool.String(),
	}).Info("Requested raffle winner")

	return request, nil
}

// FulfillRandomWords resolves the pending request of a raffle
func (s *raffleService) FulfillRandomWords(ctx context.Context, requestID common.Hash, randomWords []*big.Int) (*interfaces.SettlementResult, error) {
	if len(randomWords) == 0 || randomWords[0] == nil {
		return nil, entities.ErrNoRandomWords
	}

	request, err := s.requestRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get randomness request: %w", err)
	}
	if request == nil {
		// The request row commits after the coordinator accepts it, so a fast delivery can beat it
		return nil, fmt.Errorf("%w: %w: %s", entities.ErrRequestNotRecorded, entities.ErrUnknownRequest, requestID.Hex())
	}
	if !request.IsPending() {
		return nil, fmt.Errorf("%w: %s is %s", entities.ErrUnknownRequest, requestID.Hex(), request.Status)
	}

	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, request.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock raffle: %w", err)
	}
	if raffle == nil || !raffle.MatchesPendingRequest(requestID) {
		return nil, fmt.Errorf("%w: %s is not pending", entities.ErrUnknownRequest, requestID.Hex())
	}

	now := s.now()
	word := randomWords[0]
	index, winner, err := raffle.SelectWinner(word)
	if err != nil {
		return nil, fmt.Errorf("failed to select winner: %w", err)
	}

	result := &interfaces.SettlementResult{
		RaffleID:         raffle.ID,
		RoundNumber:      raffle.RoundNumber,
		RequestID:        requestID,
		Winner:           winner,
		WinnerIndex:      index,
		Amount:           raffle.PoolAmount(),
		RandomWord:       new(big.Int).Set(word),
		ParticipantCount: raffle.ParticipantCount(),
		RequestedAt:      request.RequestedAt,
		SettledAt:        now,
	}

	history, err := s.payoutSender.Send(ctx, &interfaces.Payout{
		RaffleID:    raffle.ID,
		RoundNumber: raffle.RoundNumber,
		RequestID:   requestID,
		Recipient:   winner,
		Amount:      result.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pay winner: %w", err)
	}

	if err := raffle.CompleteSettlement(requestID, winner, now); err != nil {
		return nil, err
	}

	request.MarkFulfilled(word, now)
	if err := s.requestRepo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update randomness request: %w", err)
	}

	record := &entities.RaffleWinner{
		RaffleID:         result.RaffleID,
		RoundNumber:      result.RoundNumber,
		Winner:           winner,
		Amount:           result.Amount,
		RequestID:        requestID,
		RandomWord:       result.RandomWord,
		WinnerIndex:      index,
		ParticipantCount: result.ParticipantCount,
		CreatedAt:        now,
	}
	if history != nil {
		record.BalanceHistoryID = history.ID
	}
	if err := s.winnerRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create raffle winner record: %w", err)
	}

	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	event := events.WinnerPickedEvent{
		RaffleID:         result.RaffleID,
		RoundNumber:      result.RoundNumber,
		RequestID:        requestID,
		Winner:           winner,
		Amount:           result.Amount,
		RandomWord:       result.RandomWord,
		WinnerIndex:      index,
		ParticipantCount: result.ParticipantCount,
		SettledAt:        now,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish winner picked event")
	}

	log.WithFields(log.Fields{
		"raffleID":     result.RaffleID,
		"round":        result.RoundNumber,
		"requestID":    requestID.Hex(),
		"winner":       winner.Hex(),
		"winnerIndex":  index,
		"participants": result.ParticipantCount,
		"amount":       result.Amount.String(),
	}).Info("Raffle winner picked")

	return result, nil
}

// GetRoundStatus returns a snapshot of the raffle
func (s *raffleService) GetRoundStatus(ctx context.Context, raffleID int64, stuckAfter time.Duration) (*interfaces.RoundStatus, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound
	}

	now := s.now()
	return &interfaces.RoundStatus{
		RaffleID:             raffle.ID,
		Phase:                raffle.Phase,
		RoundNumber:          raffle.RoundNumber,
		EntranceFee:          new(big.Int).Set(raffle.EntranceFee),
		Interval:             raffle.Interval,
		Pool:                 raffle.PoolAmount(),
		ParticipantCount:     raffle.ParticipantCount(),
		LastSettledAt:        raffle.LastSettledAt,
		RecentWinner:         raffle.RecentWinner,
		PendingRequestID:     raffle.PendingRequestID,
		PendingSince:         raffle.PendingSince,
		TimeSinceRequest:     raffle.TimeSinceRequest(now),
		Upkeep:               raffle.CheckUpkeep(now),
		Stuck:                raffle.IsStuck(now, stuckAfter),
		NumWords:             entities.NumWords,
		RequestConfirmations: s.vrfConfig.RequestConfirmations,
	}, nil
}

// GetParticipant returns the entry at index in the current round
func (s *raffleService) GetParticipant(ctx context.Context, raffleID int64, index int) (common.Address, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return common.Address{}, entities.ErrRaffleNotFound
	}
	if index < 0 || index >= raffle.ParticipantCount() {
		return common.Address{}, fmt.Errorf("%w: %d of %d", entities.ErrParticipantNotFound, index, raffle.ParticipantCount())
	}
	return raffle.Participants[index], nil
}

// ResetStuckRound abandons a pending request older than timeout.
// A fulfillment arriving later for the abandoned request is rejected as unknown.
func (s *raffleService) ResetStuckRound(ctx context.Context, raffleID int64, timeout time.Duration) (*interfaces.RoundResetResult, error) {
	raffle, err := s.lockRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pendingFor := raffle.TimeSinceRequest(now)
	abandonedID, err := raffle.AbandonPendingRequest(now, timeout)
	if err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByRequestID(ctx, abandonedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get randomness request: %w", err)
	}
	if request != nil {
		request.MarkAbandoned()
		if err := s.requestRepo.Update(ctx, request); err != nil {
			return nil, fmt.Errorf("failed to update randomness request: %w", err)
		}
	}

	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	event := events.RoundResetEvent{
		RaffleID:           raffle.ID,
		RoundNumber:        raffle.RoundNumber,
		AbandonedRequestID: abandonedID,
		PendingFor:         pendingFor,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish round reset event")
	}

	log.WithFields(log.Fields{
		"raffleID":     raffle.ID,
		"round":        raffle.RoundNumber,
		"requestID":    abandonedID.Hex(),
		"pendingFor":   pendingFor,
		"participants": raffle.ParticipantCount(),
	}).Warn("Reset stuck raffle round")

	return &interfaces.RoundResetResult{
		RaffleID:           raffle.ID,
		RoundNumber:        raffle.RoundNumber,
		AbandonedRequestID: abandonedID,
		PendingFor:         pendingFor,
		ParticipantCount:   raffle.ParticipantCount(),
		Pool:               raffle.PoolAmount(),
	}, nil
}

func (s *raffleService) lockRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock raffle: %w", err)
	}
	if raffle == nil {
		return nil, entities.ErrRaffleNotFound
	}
	return raffle, nil
}
