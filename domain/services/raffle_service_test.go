package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/domain/testhelpers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	// 0.1 ether
	testEntranceFee = big.NewInt(100_000_000_000_000_000)
	testInterval    = 30 * time.Second
	testStart       = time.Date(2026, 3, 6, 14, 0, 0, 0, time.UTC)
	testConsumer    = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testVRFConfig   = entities.VRFConfig{
		KeyHash:              common.HexToHash("0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"),
		SubscriptionID:       1,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
	}
)

type raffleServiceMocks struct {
	raffleRepo     *testhelpers.MockRaffleRepository
	entryRepo      *testhelpers.MockEntryRepository
	requestRepo    *testhelpers.MockRandomnessRequestRepository
	winnerRepo     *testhelpers.MockRaffleWinnerRepository
	coordinator    *testhelpers.MockRandomnessCoordinator
	payoutSender   *testhelpers.MockPayoutSender
	eventPublisher *testhelpers.MockEventPublisher
}

// newTestRaffleService creates a service whose clock is fixed at now
func newTestRaffleService(now time.Time) (*raffleService, *raffleServiceMocks) {
	m := &raffleServiceMocks{
		raffleRepo:     new(testhelpers.MockRaffleRepository),
		entryRepo:      new(testhelpers.MockEntryRepository),
		requestRepo:    new(testhelpers.MockRandomnessRequestRepository),
		winnerRepo:     new(testhelpers.MockRaffleWinnerRepository),
		coordinator:    new(testhelpers.MockRandomnessCoordinator),
		payoutSender:   new(testhelpers.MockPayoutSender),
		eventPublisher: new(testhelpers.MockEventPublisher),
	}
	svc := NewRaffleService(
		m.raffleRepo, m.entryRepo, m.requestRepo, m.winnerRepo,
		m.coordinator, m.payoutSender, m.eventPublisher, testVRFConfig,
	).(*raffleService)
	svc.now = func() time.Time { return now }
	return svc, m
}

func (m *raffleServiceMocks) assertExpectations(t *testing.T) {
	m.raffleRepo.AssertExpectations(t)
	m.entryRepo.AssertExpectations(t)
	m.requestRepo.AssertExpectations(t)
	m.winnerRepo.AssertExpectations(t)
	m.coordinator.AssertExpectations(t)
	m.payoutSender.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

func participant(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x100 + n)))
}

func fee() *big.Int {
	return new(big.Int).Set(testEntranceFee)
}

// createTestRaffle builds an open raffle with the given number of entries
func createTestRaffle(entries int) *entities.Raffle {
	raffle := entities.NewRaffle(1, testConsumer, testEntranceFee, testInterval, testStart)
	for i := 0; i < entries; i++ {
		if err := raffle.Enter(participant(i), fee()); err != nil {
			panic(err)
		}
	}
	return raffle
}

// createSettlingRaffle builds a raffle waiting on requestID
func createSettlingRaffle(entries int, requestID common.Hash) *entities.Raffle {
	raffle := createTestRaffle(entries)
	if err := raffle.BeginSettlement(requestID, testStart.Add(testInterval)); err != nil {
		panic(err)
	}
	return raffle
}

func pendingRequest(requestID common.Hash) *entities.RandomnessRequest {
	return &entities.RandomnessRequest{
		RequestID:   requestID,
		RaffleID:    1,
		RoundNumber: 1,
		Status:      entities.RequestStatusPending,
		NumWords:    entities.NumWords,
		RequestedAt: testStart.Add(testInterval),
	}
}

func TestRaffleService_GetOrCreateRaffle(t *testing.T) {
	t.Parallel()

	t.Run("creates missing raffle", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart)
		ctx := context.Background()

		created := createTestRaffle(0)
		m.raffleRepo.On("GetByID", ctx, int64(1)).Return(nil, nil).Once()
		m.raffleRepo.On("Create", ctx, mock.MatchedBy(func(r *entities.Raffle) bool {
			return r.ID == 1 && r.EntranceFee.Cmp(testEntranceFee) == 0 &&
				r.Interval == testInterval && r.IsOpen() && r.LastSettledAt.Equal(testStart)
		})).Return(nil)
		m.raffleRepo.On("GetByID", ctx, int64(1)).Return(created, nil).Once()

		raffle, err := svc.GetOrCreateRaffle(ctx, 1, testConsumer, testEntranceFee, testInterval)

		require.NoError(t, err)
		assert.Same(t, created, raffle)
		m.assertExpectations(t)
	})

	t.Run("keeps stored configuration", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart)
		ctx := context.Background()

		stored := createTestRaffle(2)
		m.raffleRepo.On("GetByID", ctx, int64(1)).Return(stored, nil)

		raffle, err := svc.GetOrCreateRaffle(ctx, 1, testConsumer, big.NewInt(5), time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 0, raffle.EntranceFee.Cmp(testEntranceFee))
		assert.Equal(t, testInterval, raffle.Interval)
		m.raffleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects non-positive fee", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart)
		ctx := context.Background()

		m.raffleRepo.On("GetByID", ctx, int64(1)).Return(nil, nil)

		_, err := svc.GetOrCreateRaffle(ctx, 1, testConsumer, big.NewInt(0), testInterval)

		assert.ErrorContains(t, err, "entrance fee must be positive")
		m.raffleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRaffleService_Enter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raffle      func() *entities.Raffle
		amount      *big.Int
		wantErr     error
		wantSeq     int
		wantEntries int
	}{
		{
			name:        "first entry",
			raffle:      func() *entities.Raffle { return createTestRaffle(0) },
			amount:      fee(),
			wantSeq:     0,
			wantEntries: 1,
		},
		{
			name:        "entry appended after existing",
			raffle:      func() *entities.Raffle { return createTestRaffle(3) },
			amount:      fee(),
			wantSeq:     3,
			wantEntries: 4,
		},
		{
			name:    "wrong amount",
			raffle:  func() *entities.Raffle { return createTestRaffle(1) },
			amount:  big.NewInt(1),
			wantErr: entities.ErrInsufficientAmount,
		},
		{
			name:    "zero amount",
			raffle:  func() *entities.Raffle { return createTestRaffle(0) },
			amount:  big.NewInt(0),
			wantErr: entities.ErrInsufficientAmount,
		},
		{
			name:    "settling",
			raffle:  func() *entities.Raffle { return createSettlingRaffle(2, common.HexToHash("0x01")) },
			amount:  fee(),
			wantErr: entities.ErrRoundNotOpen,
		},
		{
			name:    "raffle not found",
			raffle:  func() *entities.Raffle { return nil },
			amount:  fee(),
			wantErr: entities.ErrRaffleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, m := newTestRaffleService(testStart.Add(time.Second))
			ctx := context.Background()

			raffle := tt.raffle()
			if raffle == nil {
				m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(nil, nil)
			} else {
				m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)
			}

			if tt.wantErr == nil {
				m.entryRepo.On("Create", ctx, mock.MatchedBy(func(e *entities.Entry) bool {
					return e.Seq == tt.wantSeq && e.Participant == participant(99) && e.Amount.Cmp(testEntranceFee) == 0
				})).Return(nil)
				m.raffleRepo.On("Update", ctx, raffle).Return(nil)
				m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
					recorded, ok := e.(events.EntryRecordedEvent)
					return ok && recorded.EntryCount == tt.wantEntries
				})).Return(nil)
			}

			entry, err := svc.Enter(ctx, 1, participant(99), tt.amount)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, entry)
				m.entryRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				m.eventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantSeq, entry.Seq)
			assert.Len(t, raffle.Participants, tt.wantEntries)
			assert.Equal(t, participant(99), raffle.Participants[tt.wantEntries-1])
			assert.Equal(t, 0, raffle.Pool.Cmp(new(big.Int).Mul(testEntranceFee, big.NewInt(int64(tt.wantEntries)))))
			m.assertExpectations(t)
		})
	}
}

func TestRaffleService_CheckUpkeep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raffle  func() *entities.Raffle
		elapsed time.Duration
		want    bool
	}{
		{"no participants", func() *entities.Raffle { return createTestRaffle(0) }, time.Hour, false},
		{"interval not elapsed", func() *entities.Raffle { return createTestRaffle(1) }, testInterval - time.Second, false},
		{"interval elapsed", func() *entities.Raffle { return createTestRaffle(1) }, testInterval + time.Second, true},
		{"exactly at interval", func() *entities.Raffle { return createTestRaffle(1) }, testInterval, true},
		{"settling", func() *entities.Raffle { return createSettlingRaffle(1, common.HexToHash("0x01")) }, time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, m := newTestRaffleService(testStart.Add(tt.elapsed))
			ctx := context.Background()
			checkData := []byte{0xde, 0xad}

			m.raffleRepo.On("GetByID", ctx, int64(1)).Return(tt.raffle(), nil)

			needed, performData, err := svc.CheckUpkeep(ctx, 1, checkData)

			require.NoError(t, err)
			assert.Equal(t, tt.want, needed)
			assert.Equal(t, checkData, performData)
			m.raffleRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
			m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestRaffleService_PerformUpkeep(t *testing.T) {
	t.Parallel()

	t.Run("requests randomness and moves to settling", func(t *testing.T) {
		t.Parallel()
		now := testStart.Add(testInterval + time.Second)
		svc, m := newTestRaffleService(now)
		ctx := context.Background()
		raffle := createTestRaffle(2)
		requestID := common.HexToHash("0xfeed")

		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)
		m.coordinator.On("RequestRandomWords", ctx, &interfaces.RandomWordsRequest{
			KeyHash:              testVRFConfig.KeyHash,
			SubscriptionID:       1,
			RequestConfirmations: 3,
			CallbackGasLimit:     500000,
			NumWords:             1,
			Consumer:             testConsumer,
		}).Return(requestID, nil).Once()
		m.requestRepo.On("Create", ctx, mock.MatchedBy(func(r *entities.RandomnessRequest) bool {
			return r.RequestID == requestID && r.IsPending() && r.RequestedAt.Equal(now)
		})).Return(nil)
		m.raffleRepo.On("Update", ctx, raffle).Return(nil)
		m.eventPublisher.On("Publish", events.RoundSettlingEvent{
			RaffleID:         1,
			RoundNumber:      1,
			RequestID:        requestID,
			Pool:             new(big.Int).Mul(testEntranceFee, big.NewInt(2)),
			ParticipantCount: 2,
			RequestedAt:      now,
		}).Return(nil)

		request, err := svc.PerformUpkeep(ctx, 1, nil)

		require.NoError(t, err)
		assert.Equal(t, requestID, request.RequestID)
		assert.Equal(t, entities.PhaseSettling, raffle.Phase)
		require.NotNil(t, raffle.PendingRequestID)
		assert.Equal(t, requestID, *raffle.PendingRequestID)
		assert.Equal(t, 2, raffle.ParticipantCount())
		m.assertExpectations(t)
	})

	t.Run("predicate false", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Second))
		ctx := context.Background()
		raffle := createTestRaffle(3)

		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)

		_, err := svc.PerformUpkeep(ctx, 1, nil)

		require.ErrorIs(t, err, entities.ErrUpkeepNotNeeded)
		var detail *entities.UpkeepNotNeededError
		require.True(t, errors.As(err, &detail))
		assert.Equal(t, 3, detail.ParticipantCount)
		assert.Equal(t, entities.PhaseOpen, detail.Phase)
		assert.Equal(t, 0, detail.Pool.Cmp(new(big.Int).Mul(testEntranceFee, big.NewInt(3))))
		m.coordinator.AssertNotCalled(t, "RequestRandomWords", mock.Anything, mock.Anything)
		m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("already settling", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Hour))
		ctx := context.Background()
		raffle := createSettlingRaffle(2, common.HexToHash("0x01"))

		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)

		_, err := svc.PerformUpkeep(ctx, 1, nil)

		assert.ErrorIs(t, err, entities.ErrUpkeepNotNeeded)
		assert.Equal(t, common.HexToHash("0x01"), *raffle.PendingRequestID)
		m.coordinator.AssertNotCalled(t, "RequestRandomWords", mock.Anything, mock.Anything)
	})

	t.Run("coordinator failure leaves round open", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Hour))
		ctx := context.Background()
		raffle := createTestRaffle(1)

		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)
		m.coordinator.On("RequestRandomWords", ctx, mock.Anything).Return(common.Hash{}, errors.New("subscription not funded"))

		_, err := svc.PerformUpkeep(ctx, 1, nil)

		assert.ErrorContains(t, err, "failed to request random words")
		assert.True(t, raffle.IsOpen())
		assert.Nil(t, raffle.PendingRequestID)
		m.requestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestRaffleService_FulfillRandomWords(t *testing.T) {
	t.Parallel()

	t.Run("six entrants, word 17 picks the sixth", func(t *testing.T) {
		t.Parallel()
		now := testStart.Add(2 * time.Minute)
		svc, m := newTestRaffleService(now)
		ctx := context.Background()
		requestID := common.HexToHash("0x11")
		raffle := createSettlingRaffle(6, requestID)
		request := pendingRequest(requestID)
		sixTenths := big.NewInt(600_000_000_000_000_000)
		history := &entities.BalanceHistory{ID: 77}

		m.requestRepo.On("GetByRequestID", ctx, requestID).Return(request, nil)
		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)
		m.payoutSender.On("Send", ctx, &interfaces.Payout{
			RaffleID:    1,
			RoundNumber: 1,
			RequestID:   requestID,
			Recipient:   participant(5),
			Amount:      sixTenths,
		}).Return(history, nil)
		m.requestRepo.On("Update", ctx, request).Return(nil)
		m.winnerRepo.On("Create", ctx, mock.MatchedBy(func(w *entities.RaffleWinner) bool {
			return w.Winner == participant(5) && w.Amount.Cmp(sixTenths) == 0 &&
				w.WinnerIndex == 5 && w.ParticipantCount == 6 && w.BalanceHistoryID == 77
		})).Return(nil)
		m.raffleRepo.On("Update", ctx, raffle).Return(nil)
		m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
			picked, ok := e.(events.WinnerPickedEvent)
			return ok && picked.Winner == participant(5) && picked.Amount.Cmp(sixTenths) == 0
		})).Return(nil)

		result, err := svc.FulfillRandomWords(ctx, requestID, []*big.Int{big.NewInt(17)})

		require.NoError(t, err)
		assert.Equal(t, participant(5), result.Winner)
		assert.Equal(t, 5, result.WinnerIndex)
		assert.Equal(t, 0, result.Amount.Cmp(sixTenths))
		assert.Equal(t, int64(1), result.RoundNumber)

		assert.True(t, raffle.IsOpen())
		assert.Empty(t, raffle.Participants)
		assert.Equal(t, 0, raffle.Pool.Sign())
		assert.Equal(t, now, raffle.LastSettledAt)
		assert.Nil(t, raffle.PendingRequestID)
		assert.Equal(t, participant(5), *raffle.RecentWinner)
		assert.Equal(t, int64(2), raffle.RoundNumber)
		assert.Equal(t, entities.RequestStatusFulfilled, request.Status)
		assert.Equal(t, 0, request.RandomWord.Cmp(big.NewInt(17)))
		m.assertExpectations(t)
	})

	t.Run("single entrant wins", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Minute))
		ctx := context.Background()
		requestID := common.HexToHash("0x07")
		raffle := createSettlingRaffle(1, requestID)

		m.requestRepo.On("GetByRequestID", ctx, requestID).Return(pendingRequest(requestID), nil)
		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)
		m.payoutSender.On("Send", ctx, mock.MatchedBy(func(p *interfaces.Payout) bool {
			return p.Recipient == participant(0) && p.Amount.Cmp(testEntranceFee) == 0
		})).Return(&entities.BalanceHistory{ID: 1}, nil)
		m.requestRepo.On("Update", ctx, mock.Anything).Return(nil)
		m.winnerRepo.On("Create", ctx, mock.Anything).Return(nil)
		m.raffleRepo.On("Update", ctx, raffle).Return(nil)
		m.eventPublisher.On("Publish", mock.Anything).Return(nil)

		result, err := svc.FulfillRandomWords(ctx, requestID, []*big.Int{big.NewInt(7)})

		require.NoError(t, err)
		assert.Equal(t, participant(0), result.Winner)
		assert.Equal(t, 0, result.WinnerIndex)
		m.assertExpectations(t)
	})

	t.Run("unknown request", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Minute))
		ctx := context.Background()
		requestID := common.HexToHash("0xbad")

		m.requestRepo.On("GetByRequestID", ctx, requestID).Return(nil, nil)

		_, err := svc.FulfillRandomWords(ctx, requestID, []*big.Int{big.NewInt(1)})

		assert.ErrorIs(t, err, entities.ErrUnknownRequest)
		assert.ErrorIs(t, err, entities.ErrRequestNotRecorded)
		m.raffleRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
		m.payoutSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("already fulfilled request", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Minute))
		ctx := context.Background()
		requestID := common.HexToHash("0x11")
		request := pendingRequest(requestID)
		request.MarkFulfilled(big.NewInt(17), testStart)

		m.requestRepo.On("GetByRequestID", ctx, requestID).Return(request, nil)

		_, err := svc.FulfillRandomWords(ctx, requestID, []*big.Int{big.NewInt(17)})

		assert.ErrorIs(t, err, entities.ErrUnknownRequest)
		assert.NotErrorIs(t, err, entities.ErrRequestNotRecorded)
		m.payoutSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("request no longer pending on raffle", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Minute))
		ctx := context.Background()
		requestID := common.HexToHash("0x11")
		raffle := createSettlingRaffle(2, common.HexToHash("0x12"))

		m.requestRepo.On("GetByRequestID", ctx, requestID).Return(pendingRequest(requestID), nil)
		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)

		_, err := svc.FulfillRandomWords(ctx, requestID, []*big.Int{big.NewInt(3)})

		assert.ErrorIs(t, err, entities.ErrUnknownRequest)
		assert.True(t, raffle.IsSettling())
		assert.Len(t, raffle.Participants, 2)
		m.payoutSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("empty words", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart)

		_, err := svc.FulfillRandomWords(context.Background(), common.HexToHash("0x11"), nil)

		assert.ErrorIs(t, err, entities.ErrNoRandomWords)
		m.requestRepo.AssertNotCalled(t, "GetByRequestID", mock.Anything, mock.Anything)
	})

	t.Run("payout rejected leaves round settling", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestRaffleService(testStart.Add(time.Minute))
		ctx := context.Background()
		requestID := common.HexToHash("0x11")
		raffle := createSettlingRaffle(3, requestID)
		request := pendingRequest(requestID)

		m.requestRepo.On("GetByRequestID", ctx, requestID).Return(request, nil)
		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)
		m.payoutSender.On("Send", ctx, mock.Anything).Return(nil, entities.ErrPayoutRejected)

		_, err := svc.FulfillRandomWords(ctx, requestID, []*big.Int{big.NewInt(4)})

		assert.ErrorIs(t, err, entities.ErrPayoutRejected)
		assert.True(t, raffle.IsSettling())
		assert.Equal(t, requestID, *raffle.PendingRequestID)
		assert.Len(t, raffle.Participants, 3)
		assert.True(t, request.IsPending())
		m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		m.winnerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.eventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	})
}

func TestRaffleService_GetRoundStatus(t *testing.T) {
	t.Parallel()

	requestID := common.HexToHash("0x33")
	requestedAt := testStart.Add(testInterval)
	svc, m := newTestRaffleService(requestedAt.Add(20 * time.Minute))
	ctx := context.Background()

	m.raffleRepo.On("GetByID", ctx, int64(1)).Return(createSettlingRaffle(4, requestID), nil)

	status, err := svc.GetRoundStatus(ctx, 1, 15*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, entities.PhaseSettling, status.Phase)
	assert.Equal(t, 4, status.ParticipantCount)
	assert.Equal(t, requestID, *status.PendingRequestID)
	assert.Equal(t, 20*time.Minute, status.TimeSinceRequest)
	assert.True(t, status.Stuck)
	assert.False(t, status.Upkeep.Needed())
	assert.Equal(t, uint32(1), status.NumWords)
	assert.Equal(t, uint16(3), status.RequestConfirmations)

	status, err = svc.GetRoundStatus(ctx, 1, 0)
	require.NoError(t, err)
	assert.False(t, status.Stuck)
}

func TestRaffleService_GetParticipant(t *testing.T) {
	t.Parallel()

	svc, m := newTestRaffleService(testStart)
	ctx := context.Background()
	m.raffleRepo.On("GetByID", ctx, int64(1)).Return(createTestRaffle(3), nil)

	address, err := svc.GetParticipant(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, participant(2), address)

	_, err = svc.GetParticipant(ctx, 1, 3)
	assert.ErrorIs(t, err, entities.ErrParticipantNotFound)

	_, err = svc.GetParticipant(ctx, 1, -1)
	assert.ErrorIs(t, err, entities.ErrParticipantNotFound)
}

func TestRaffleService_ResetStuckRound(t *testing.T) {
	t.Parallel()

	t.Run("abandons stale request", func(t *testing.T) {
		t.Parallel()
		requestID := common.HexToHash("0x44")
		requestedAt := testStart.Add(testInterval)
		svc, m := newTestRaffleService(requestedAt.Add(time.Hour))
		ctx := context.Background()
		raffle := createSettlingRaffle(2, requestID)
		request := pendingRequest(requestID)

		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)
		m.requestRepo.On("GetByRequestID", ctx, requestID).Return(request, nil)
		m.requestRepo.On("Update", ctx, request).Return(nil)
		m.raffleRepo.On("Update", ctx, raffle).Return(nil)
		m.eventPublisher.On("Publish", events.RoundResetEvent{
			RaffleID:           1,
			RoundNumber:        1,
			AbandonedRequestID: requestID,
			PendingFor:         time.Hour,
		}).Return(nil)

		result, err := svc.ResetStuckRound(ctx, 1, 30*time.Minute)

		require.NoError(t, err)
		assert.Equal(t, requestID, result.AbandonedRequestID)
		assert.Equal(t, 2, result.ParticipantCount)
		assert.True(t, raffle.IsOpen())
		assert.Nil(t, raffle.PendingRequestID)
		assert.Equal(t, entities.RequestStatusAbandoned, request.Status)
		m.assertExpectations(t)
	})

	t.Run("not stuck yet", func(t *testing.T) {
		t.Parallel()
		requestedAt := testStart.Add(testInterval)
		svc, m := newTestRaffleService(requestedAt.Add(time.Minute))
		ctx := context.Background()
		raffle := createSettlingRaffle(2, common.HexToHash("0x44"))

		m.raffleRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(raffle, nil)

		_, err := svc.ResetStuckRound(ctx, 1, 30*time.Minute)

		assert.ErrorIs(t, err, entities.ErrRoundNotStuck)
		assert.True(t, raffle.IsSettling())
		m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
