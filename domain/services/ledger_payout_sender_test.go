package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/events"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/domain/testhelpers"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testPayout(amount *big.Int) *interfaces.Payout {
	return &interfaces.Payout{
		RaffleID:    1,
		RoundNumber: 4,
		RequestID:   common.HexToHash("0x99"),
		Recipient:   participant(1),
		Amount:      amount,
	}
}

func TestLedgerPayoutSender_Send(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		account    *entities.Account
		amount     *big.Int
		setupMocks func(*testhelpers.MockAccountRepository, *testhelpers.MockBalanceHistoryRepository, *testhelpers.MockEventPublisher)
		wantErr    error
		wantAfter  int64
	}{
		{
			name:    "credits existing balance",
			account: &entities.Account{Address: participant(1), Balance: big.NewInt(250)},
			amount:  big.NewInt(600),
			setupMocks: func(accounts *testhelpers.MockAccountRepository, history *testhelpers.MockBalanceHistoryRepository, publisher *testhelpers.MockEventPublisher) {
				accounts.On("UpdateBalance", mock.Anything, participant(1), big.NewInt(850)).Return(nil)
				history.On("Record", mock.Anything, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
					return h.TransactionType == entities.TransactionTypeRafflePayout &&
						h.BalanceBefore.Int64() == 250 && h.BalanceAfter.Int64() == 850 &&
						h.TransactionMetadata["round_number"] == int64(4)
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*entities.BalanceHistory).ID = 12
				}).Return(nil)
				publisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
					_, ok := e.(events.BalanceChangeEvent)
					return ok
				})).Return(nil)
			},
			wantAfter: 850,
		},
		{
			name:    "frozen account rejected",
			account: &entities.Account{Address: participant(1), Balance: big.NewInt(0), Frozen: true},
			amount:  big.NewInt(600),
			wantErr: entities.ErrPayoutRejected,
		},
		{
			name:    "zero amount rejected",
			account: &entities.Account{Address: participant(1), Balance: big.NewInt(0)},
			amount:  big.NewInt(0),
			wantErr: entities.ErrPayoutRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			accounts := new(testhelpers.MockAccountRepository)
			history := new(testhelpers.MockBalanceHistoryRepository)
			publisher := new(testhelpers.MockEventPublisher)

			accounts.On("GetOrCreateForUpdate", ctx, participant(1)).Return(tt.account, nil).Maybe()
			if tt.setupMocks != nil {
				tt.setupMocks(accounts, history, publisher)
			}

			sender := NewLedgerPayoutSender(accounts, history, publisher)
			record, err := sender.Send(ctx, testPayout(tt.amount))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
				history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(12), record.ID)
			assert.Equal(t, tt.wantAfter, record.BalanceAfter.Int64())
			accounts.AssertExpectations(t)
			history.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestLedgerPayoutSender_Send_UpdateFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	accounts := new(testhelpers.MockAccountRepository)
	history := new(testhelpers.MockBalanceHistoryRepository)
	publisher := new(testhelpers.MockEventPublisher)

	accounts.On("GetOrCreateForUpdate", ctx, participant(1)).Return(&entities.Account{Address: participant(1), Balance: big.NewInt(0)}, nil)
	accounts.On("UpdateBalance", ctx, participant(1), mock.Anything).Return(errors.New("connection reset"))

	_, err := NewLedgerPayoutSender(accounts, history, publisher).Send(ctx, testPayout(big.NewInt(5)))

	assert.ErrorContains(t, err, "failed to update account balance")
	history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}
