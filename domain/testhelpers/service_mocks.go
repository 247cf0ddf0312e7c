package testhelpers

import (
	"context"
	"math/big"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockRaffleService is a mock implementation of interfaces.RaffleService
type MockRaffleService struct {
	mock.Mock
}

func (m *MockRaffleService) GetOrCreateRaffle(ctx context.Context, id int64, consumer common.Address, entranceFee *big.Int, interval time.Duration) (*entities.Raffle, error) {
	args := m.Called(ctx, id, consumer, entranceFee, interval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleService) Enter(ctx context.Context, raffleID int64, participant common.Address, amount *big.Int) (*entities.Entry, error) {
	args := m.Called(ctx, raffleID, participant, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Entry), args.Error(1)
}

func (m *MockRaffleService) CheckUpkeep(ctx context.Context, raffleID int64, checkData []byte) (bool, []byte, error) {
	args := m.Called(ctx, raffleID, checkData)
	var performData []byte
	if args.Get(1) != nil {
		performData = args.Get(1).([]byte)
	}
	return args.Bool(0), performData, args.Error(2)
}

func (m *MockRaffleService) PerformUpkeep(ctx context.Context, raffleID int64, performData []byte) (*entities.RandomnessRequest, error) {
	args := m.Called(ctx, raffleID, performData)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RandomnessRequest), args.Error(1)
}

func (m *MockRaffleService) FulfillRandomWords(ctx context.Context, requestID common.Hash, randomWords []*big.Int) (*interfaces.SettlementResult, error) {
	args := m.Called(ctx, requestID, randomWords)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SettlementResult), args.Error(1)
}

func (m *MockRaffleService) GetRoundStatus(ctx context.Context, raffleID int64, stuckAfter time.Duration) (*interfaces.RoundStatus, error) {
	args := m.Called(ctx, raffleID, stuckAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RoundStatus), args.Error(1)
}

func (m *MockRaffleService) GetParticipant(ctx context.Context, raffleID int64, index int) (common.Address, error) {
	args := m.Called(ctx, raffleID, index)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *MockRaffleService) ResetStuckRound(ctx context.Context, raffleID int64, timeout time.Duration) (*interfaces.RoundResetResult, error) {
	args := m.Called(ctx, raffleID, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RoundResetResult), args.Error(1)
}
