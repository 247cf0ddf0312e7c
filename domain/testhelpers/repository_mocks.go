package testhelpers

import (
	"context"
	"math/big"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockRaffleRepository is a mock implementation of RaffleRepository
type MockRaffleRepository struct {
	mock.Mock
}

func (m *MockRaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) ListIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *entities.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) GetByRound(ctx context.Context, raffleID, roundNumber int64) ([]*entities.Entry, error) {
	args := m.Called(ctx, raffleID, roundNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Entry), args.Error(1)
}

// MockRandomnessRequestRepository is a mock implementation of RandomnessRequestRepository
type MockRandomnessRequestRepository struct {
	mock.Mock
}

func (m *MockRandomnessRequestRepository) Create(ctx context.Context, request *entities.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRandomnessRequestRepository) GetByRequestID(ctx context.Context, requestID common.Hash) (*entities.RandomnessRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RandomnessRequest), args.Error(1)
}

func (m *MockRandomnessRequestRepository) Update(ctx context.Context, request *entities.RandomnessRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

// MockRaffleWinnerRepository is a mock implementation of RaffleWinnerRepository
type MockRaffleWinnerRepository struct {
	mock.Mock
}

func (m *MockRaffleWinnerRepository) Create(ctx context.Context, winner *entities.RaffleWinner) error {
	args := m.Called(ctx, winner)
	return args.Error(0)
}

func (m *MockRaffleWinnerRepository) GetRecentByRaffle(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error) {
	args := m.Called(ctx, raffleID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleWinner), args.Error(1)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetOrCreateForUpdate(ctx context.Context, address common.Address) (*entities.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, address common.Address, newBalance *big.Int) error {
	args := m.Called(ctx, address, newBalance)
	return args.Error(0)
}

func (m *MockAccountRepository) SetFrozen(ctx context.Context, address common.Address, frozen bool) error {
	args := m.Called(ctx, address, frozen)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAddress(ctx context.Context, address common.Address, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockRandomnessCoordinator is a mock implementation of RandomnessCoordinator
type MockRandomnessCoordinator struct {
	mock.Mock
}

func (m *MockRandomnessCoordinator) RequestRandomWords(ctx context.Context, req *interfaces.RandomWordsRequest) (common.Hash, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(common.Hash), args.Error(1)
}

// MockPayoutSender is a mock implementation of PayoutSender
type MockPayoutSender struct {
	mock.Mock
}

func (m *MockPayoutSender) Send(ctx context.Context, payout *interfaces.Payout) (*entities.BalanceHistory, error) {
	args := m.Called(ctx, payout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BalanceHistory), args.Error(1)
}
