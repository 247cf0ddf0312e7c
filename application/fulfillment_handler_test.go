package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"gambler/raffle/application/dto"
	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestFulfillmentHandler_HandleRandomWordsFulfilled(t *testing.T) {
	t.Parallel()

	requestID := common.HexToHash("0xabc")
	words := []*big.Int{big.NewInt(17)}

	tests := []struct {
		name       string
		fulfilled  dto.RandomWordsFulfilled
		result     *interfaces.SettlementResult
		err        error
		wantErr    bool
		wantCalled bool
	}{
		{
			name:      "settles round",
			fulfilled: dto.NewRandomWordsFulfilled(requestID, words),
			result: &interfaces.SettlementResult{
				RaffleID: 1, Winner: participant(6), Amount: big.NewInt(600),
			},
			wantCalled: true,
		},
		{
			name:       "unknown request acknowledged",
			fulfilled:  dto.NewRandomWordsFulfilled(requestID, words),
			err:        fmt.Errorf("%w: %s", entities.ErrUnknownRequest, requestID.Hex()),
			wantCalled: true,
		},
		{
			name:       "fulfillment before commit redelivered",
			fulfilled:  dto.NewRandomWordsFulfilled(requestID, words),
			err:        fmt.Errorf("%w: %w: %s", entities.ErrRequestNotRecorded, entities.ErrUnknownRequest, requestID.Hex()),
			wantErr:    true,
			wantCalled: true,
		},
		{
			name:       "payout failure redelivered",
			fulfilled:  dto.NewRandomWordsFulfilled(requestID, words),
			err:        fmt.Errorf("failed to pay winner: %w", entities.ErrPayoutRejected),
			wantErr:    true,
			wantCalled: true,
		},
		{
			name:       "database failure redelivered",
			fulfilled:  dto.NewRandomWordsFulfilled(requestID, words),
			err:        errors.New("connection reset"),
			wantErr:    true,
			wantCalled: true,
		},
		{
			name:      "malformed words dropped",
			fulfilled: dto.RandomWordsFulfilled{RequestID: requestID, RandomWords: []string{"x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fulfiller := new(mockFulfiller)
			fulfiller.On("FulfillRandomWords", mock.Anything, requestID, words).Return(tt.result, tt.err).Maybe()

			err := NewFulfillmentHandler(fulfiller).HandleRandomWordsFulfilled(context.Background(), tt.fulfilled)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantCalled {
				fulfiller.AssertCalled(t, "FulfillRandomWords", mock.Anything, requestID, words)
			} else {
				fulfiller.AssertNotCalled(t, "FulfillRandomWords", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestFulfillmentHandler_RedeliveryAfterCommit(t *testing.T) {
	t.Parallel()

	requestID := common.HexToHash("0xabc")
	words := []*big.Int{big.NewInt(17)}
	fulfilled := dto.NewRandomWordsFulfilled(requestID, words)
	settled := &interfaces.SettlementResult{RaffleID: 1, Winner: participant(6), Amount: big.NewInt(600)}

	fulfiller := new(mockFulfiller)
	fulfiller.On("FulfillRandomWords", mock.Anything, requestID, words).
		Return(nil, fmt.Errorf("%w: %w: %s", entities.ErrRequestNotRecorded, entities.ErrUnknownRequest, requestID.Hex())).Once()
	fulfiller.On("FulfillRandomWords", mock.Anything, requestID, words).Return(settled, nil).Once()

	handler := NewFulfillmentHandler(fulfiller)

	// First delivery races the request commit and must be NAKed, not dropped
	err := handler.HandleRandomWordsFulfilled(context.Background(), fulfilled)
	assert.ErrorIs(t, err, entities.ErrRequestNotRecorded)

	assert.NoError(t, handler.HandleRandomWordsFulfilled(context.Background(), fulfilled))
	fulfiller.AssertNumberOfCalls(t, "FulfillRandomWords", 2)
}
