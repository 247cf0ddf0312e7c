package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/domain/services"
	"gambler/raffle/infrastructure/observability"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleOperations runs each raffle operation in its own unit of work.
// Mutations commit on success and roll back on any error, so rejected calls leave no trace.
type RaffleOperations struct {
	uowFactory  UnitOfWorkFactory
	coordinator interfaces.RandomnessCoordinator
	vrfConfig   entities.VRFConfig
	newService  func(uow UnitOfWork) interfaces.RaffleService
}

// NewRaffleOperations creates raffle operations backed by uowFactory
func NewRaffleOperations(uowFactory UnitOfWorkFactory, coordinator interfaces.RandomnessCoordinator, vrfConfig entities.VRFConfig) *RaffleOperations {
	o := &RaffleOperations{
		uowFactory:  uowFactory,
		coordinator: coordinator,
		vrfConfig:   vrfConfig,
	}
	o.newService = o.createService
	return o
}

func (o *RaffleOperations) createService(uow UnitOfWork) interfaces.RaffleService {
	payoutSender := services.NewLedgerPayoutSender(
		uow.AccountRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
	)
	return services.NewRaffleService(
		uow.RaffleRepository(),
		uow.EntryRepository(),
		uow.RandomnessRequestRepository(),
		uow.RaffleWinnerRepository(),
		o.coordinator,
		payoutSender,
		uow.EventBus(),
		o.vrfConfig,
	)
}

// inUnitOfWork runs fn in a fresh unit of work, committing only when commit is set and fn succeeded
func inUnitOfWork[T any](ctx context.Context, o *RaffleOperations, commit bool, fn func(svc interfaces.RaffleService, uow UnitOfWork) (T, error)) (T, error) {
	var zero T

	uow := o.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := fn(o.newService(uow), uow)
	if err != nil {
		return zero, err
	}

	if commit {
		if err := uow.Commit(); err != nil {
			return zero, fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	return result, nil
}

// EnsureRaffle loads the raffle, creating it with the given configuration on first start
func (o *RaffleOperations) EnsureRaffle(ctx context.Context, raffleID int64, consumer common.Address, entranceFee *big.Int, interval time.Duration) (*entities.Raffle, error) {
	return inUnitOfWork(ctx, o, true, func(svc interfaces.RaffleService, _ UnitOfWork) (*entities.Raffle, error) {
		return svc.GetOrCreateRaffle(ctx, raffleID, consumer, entranceFee, interval)
	})
}

// Enter records a paid entry
func (o *RaffleOperations) Enter(ctx context.Context, raffleID int64, participant common.Address, amount *big.Int) (*entities.Entry, error) {
	entry, err := inUnitOfWork(ctx, o, true, func(svc interfaces.RaffleService, _ UnitOfWork) (*entities.Entry, error) {
		return svc.Enter(ctx, raffleID, participant, amount)
	})

	metrics := observability.GetMetrics()
	if err != nil {
		if reason := entryRejectionReason(err); reason != "" {
			metrics.RecordEntryRejected(raffleID, reason)
		}
		return nil, err
	}
	metrics.RecordEntry(raffleID)
	return entry, nil
}

// CheckUpkeep evaluates the settlement predicate; it never writes
func (o *RaffleOperations) CheckUpkeep(ctx context.Context, raffleID int64, checkData []byte) (bool, []byte, error) {
	type upkeep struct {
		needed      bool
		performData []byte
	}
	result, err := inUnitOfWork(ctx, o, false, func(svc interfaces.RaffleService, _ UnitOfWork) (upkeep, error) {
		needed, performData, err := svc.CheckUpkeep(ctx, raffleID, checkData)
		return upkeep{needed, performData}, err
	})
	return result.needed, result.performData, err
}

// PerformUpkeep requests randomness for a due round
func (o *RaffleOperations) PerformUpkeep(ctx context.Context, raffleID int64, performData []byte) (*entities.RandomnessRequest, error) {
	request, err := inUnitOfWork(ctx, o, true, func(svc interfaces.RaffleService, _ UnitOfWork) (*entities.RandomnessRequest, error) {
		return svc.PerformUpkeep(ctx, raffleID, performData)
	})

	metrics := observability.GetMetrics()
	switch {
	case errors.Is(err, entities.ErrUpkeepNotNeeded):
		metrics.RecordUpkeepSkipped(raffleID)
	case err == nil:
		metrics.RecordUpkeepPerformed(raffleID)
	}
	return request, err
}

// FulfillRandomWords settles the round waiting on requestID
func (o *RaffleOperations) FulfillRandomWords(ctx context.Context, requestID common.Hash, randomWords []*big.Int) (*interfaces.SettlementResult, error) {
	result, err := inUnitOfWork(ctx, o, true, func(svc interfaces.RaffleService, _ UnitOfWork) (*interfaces.SettlementResult, error) {
		return svc.FulfillRandomWords(ctx, requestID, randomWords)
	})

	metrics := observability.GetMetrics()
	switch {
	case errors.Is(err, entities.ErrRequestNotRecorded):
		metrics.RecordFulfillment(observability.FulfillmentResultEarly)
	case errors.Is(err, entities.ErrUnknownRequest):
		metrics.RecordFulfillment(observability.FulfillmentResultUnknownRequest)
	case err != nil:
		metrics.RecordFulfillment(observability.FulfillmentResultFailed)
	default:
		metrics.RecordFulfillment(observability.FulfillmentResultSettled)
		metrics.RecordSettlement(result.RaffleID, result.SettledAt.Sub(result.RequestedAt))
	}
	return result, err
}

// GetRoundStatus returns a snapshot of the raffle; stuckAfter decides the Stuck flag
func (o *RaffleOperations) GetRoundStatus(ctx context.Context, raffleID int64, stuckAfter time.Duration) (*interfaces.RoundStatus, error) {
	return inUnitOfWork(ctx, o, false, func(svc interfaces.RaffleService, _ UnitOfWork) (*interfaces.RoundStatus, error) {
		return svc.GetRoundStatus(ctx, raffleID, stuckAfter)
	})
}

// GetParticipant returns the participant at index in the current round
func (o *RaffleOperations) GetParticipant(ctx context.Context, raffleID int64, index int) (common.Address, error) {
	return inUnitOfWork(ctx, o, false, func(svc interfaces.RaffleService, _ UnitOfWork) (common.Address, error) {
		return svc.GetParticipant(ctx, raffleID, index)
	})
}

// ResetStuckRound reopens a round whose randomness request has been pending longer than timeout
func (o *RaffleOperations) ResetStuckRound(ctx context.Context, raffleID int64, timeout time.Duration) (*interfaces.RoundResetResult, error) {
	result, err := inUnitOfWork(ctx, o, true, func(svc interfaces.RaffleService, _ UnitOfWork) (*interfaces.RoundResetResult, error) {
		return svc.ResetStuckRound(ctx, raffleID, timeout)
	})
	if err == nil {
		observability.GetMetrics().RecordRoundReset(raffleID)
	}
	return result, err
}

// RecentWinners returns the latest settled rounds, newest first
func (o *RaffleOperations) RecentWinners(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error) {
	return inUnitOfWork(ctx, o, false, func(_ interfaces.RaffleService, uow UnitOfWork) ([]*entities.RaffleWinner, error) {
		winners, err := uow.RaffleWinnerRepository().GetRecentByRaffle(ctx, raffleID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent winners: %w", err)
		}
		return winners, nil
	})
}

// RoundEntries returns the entries of one round in entry order
func (o *RaffleOperations) RoundEntries(ctx context.Context, raffleID, roundNumber int64) ([]*entities.Entry, error) {
	return inUnitOfWork(ctx, o, false, func(_ interfaces.RaffleService, uow UnitOfWork) ([]*entities.Entry, error) {
		entries, err := uow.EntryRepository().GetByRound(ctx, raffleID, roundNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to get round entries: %w", err)
		}
		return entries, nil
	})
}

// SetAccountFrozen blocks or unblocks payouts to address. A round whose winner is frozen
// stays settling until the account is unfrozen and the fulfillment redelivered.
func (o *RaffleOperations) SetAccountFrozen(ctx context.Context, address common.Address, frozen bool) error {
	_, err := inUnitOfWork(ctx, o, true, func(_ interfaces.RaffleService, uow UnitOfWork) (struct{}, error) {
		return struct{}{}, uow.AccountRepository().SetFrozen(ctx, address, frozen)
	})
	return err
}

// AccountHistory returns the latest ledger movements of address, newest first
func (o *RaffleOperations) AccountHistory(ctx context.Context, address common.Address, limit int) ([]*entities.BalanceHistory, error) {
	return inUnitOfWork(ctx, o, false, func(_ interfaces.RaffleService, uow UnitOfWork) ([]*entities.BalanceHistory, error) {
		history, err := uow.BalanceHistoryRepository().GetByAddress(ctx, address, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance history: %w", err)
		}
		return history, nil
	})
}

// ListRaffleIDs returns every known raffle
func (o *RaffleOperations) ListRaffleIDs(ctx context.Context) ([]int64, error) {
	return inUnitOfWork(ctx, o, false, func(_ interfaces.RaffleService, uow UnitOfWork) ([]int64, error) {
		ids, err := uow.RaffleRepository().ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list raffles: %w", err)
		}
		return ids, nil
	})
}

func entryRejectionReason(err error) string {
	switch {
	case errors.Is(err, entities.ErrInsufficientAmount):
		return "insufficient_amount"
	case errors.Is(err, entities.ErrRoundNotOpen):
		return "round_not_open"
	case errors.Is(err, entities.ErrInvalidParticipant):
		return "invalid_participant"
	case errors.Is(err, entities.ErrRaffleNotFound):
		return "raffle_not_found"
	default:
		return ""
	}
}
