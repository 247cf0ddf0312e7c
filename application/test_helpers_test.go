package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/domain/testhelpers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// fakeUnitOfWork records transaction lifecycle calls
type fakeUnitOfWork struct {
	beginErr  error
	commitErr error
	begun     int
	committed int
	rolled    int
	winners   *testhelpers.MockRaffleWinnerRepository
	raffles   *testhelpers.MockRaffleRepository
	entries   *testhelpers.MockEntryRepository
	accounts  *testhelpers.MockAccountRepository
	history   *testhelpers.MockBalanceHistoryRepository
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.begun++
	return u.beginErr
}

func (u *fakeUnitOfWork) Commit() error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed++
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.rolled++
	return nil
}

func (u *fakeUnitOfWork) RaffleRepository() interfaces.RaffleRepository { return u.raffles }
func (u *fakeUnitOfWork) EntryRepository() interfaces.EntryRepository   { return u.entries }
func (u *fakeUnitOfWork) RandomnessRequestRepository() interfaces.RandomnessRequestRepository {
	return new(testhelpers.MockRandomnessRequestRepository)
}
func (u *fakeUnitOfWork) RaffleWinnerRepository() interfaces.RaffleWinnerRepository { return u.winners }
func (u *fakeUnitOfWork) AccountRepository() interfaces.AccountRepository           { return u.accounts }
func (u *fakeUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return u.history
}
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher {
	return new(testhelpers.MockEventPublisher)
}

type fakeUnitOfWorkFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeUnitOfWorkFactory) Create() UnitOfWork { return f.uow }

// newTestOperations wires RaffleOperations to a fake unit of work and a mocked service
func newTestOperations() (*RaffleOperations, *fakeUnitOfWork, *testhelpers.MockRaffleService) {
	uow := &fakeUnitOfWork{
		winners:  new(testhelpers.MockRaffleWinnerRepository),
		raffles:  new(testhelpers.MockRaffleRepository),
		entries:  new(testhelpers.MockEntryRepository),
		accounts: new(testhelpers.MockAccountRepository),
		history:  new(testhelpers.MockBalanceHistoryRepository),
	}
	svc := new(testhelpers.MockRaffleService)
	ops := NewRaffleOperations(&fakeUnitOfWorkFactory{uow: uow}, new(testhelpers.MockRandomnessCoordinator), entities.VRFConfig{})
	ops.newService = func(UnitOfWork) interfaces.RaffleService { return svc }
	return ops, uow, svc
}

type mockUpkeepPerformer struct {
	mock.Mock
}

func (m *mockUpkeepPerformer) CheckUpkeep(ctx context.Context, raffleID int64, checkData []byte) (bool, []byte, error) {
	args := m.Called(ctx, raffleID, checkData)
	var performData []byte
	if args.Get(1) != nil {
		performData = args.Get(1).([]byte)
	}
	return args.Bool(0), performData, args.Error(2)
}

func (m *mockUpkeepPerformer) PerformUpkeep(ctx context.Context, raffleID int64, performData []byte) (*entities.RandomnessRequest, error) {
	args := m.Called(ctx, raffleID, performData)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RandomnessRequest), args.Error(1)
}

type mockFulfiller struct {
	mock.Mock
}

func (m *mockFulfiller) FulfillRandomWords(ctx context.Context, requestID common.Hash, randomWords []*big.Int) (*interfaces.SettlementResult, error) {
	args := m.Called(ctx, requestID, randomWords)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SettlementResult), args.Error(1)
}

type mockSupervisor struct {
	mock.Mock
}

func (m *mockSupervisor) GetRoundStatus(ctx context.Context, raffleID int64, stuckAfter time.Duration) (*interfaces.RoundStatus, error) {
	args := m.Called(ctx, raffleID, stuckAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RoundStatus), args.Error(1)
}

func (m *mockSupervisor) ResetStuckRound(ctx context.Context, raffleID int64, timeout time.Duration) (*interfaces.RoundResetResult, error) {
	args := m.Called(ctx, raffleID, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RoundResetResult), args.Error(1)
}

// recordingReporter keeps the last stuck verdict per raffle
type recordingReporter struct {
	mu    sync.Mutex
	stuck map[int64]bool
}

func (r *recordingReporter) SetStuck(raffleID int64, stuck bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stuck == nil {
		r.stuck = make(map[int64]bool)
	}
	r.stuck[raffleID] = stuck
}

func (r *recordingReporter) get(raffleID int64) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.stuck[raffleID]
	return v, ok
}

type mockAnnouncer struct {
	mock.Mock
}

func (m *mockAnnouncer) AnnounceWinner(ctx context.Context, event events.WinnerPickedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockAnnouncer) AnnounceRoundReset(ctx context.Context, event events.RoundResetEvent) error {
	return m.Called(ctx, event).Error(0)
}

// captureSubscriber keeps registered handlers so tests can invoke them
type captureSubscriber struct {
	handlers map[events.EventType]func(context.Context, events.Event) error
	failOn   events.EventType
}

func (s *captureSubscriber) Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error {
	if eventType == s.failOn {
		return errors.New("subscribe failed")
	}
	if s.handlers == nil {
		s.handlers = make(map[events.EventType]func(context.Context, events.Event) error)
	}
	s.handlers[eventType] = handler
	return nil
}

func participant(n int64) common.Address {
	return common.BigToAddress(big.NewInt(0x1000 + n))
}
