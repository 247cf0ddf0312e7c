package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func stuckStatus(stuck bool) *interfaces.RoundStatus {
	requestID := common.HexToHash("0x01")
	return &interfaces.RoundStatus{
		RaffleID:         1,
		Phase:            entities.PhaseSettling,
		PendingRequestID: &requestID,
		TimeSinceRequest: 2 * time.Hour,
		Stuck:            stuck,
	}
}

func TestSettlementWatchdog_CheckOnce(t *testing.T) {
	t.Parallel()
	timeout := time.Hour

	tests := []struct {
		name       string
		autoReset  bool
		setupMocks func(*mockSupervisor)
		wantStuck  bool
		wantReset  bool
	}{
		{
			name: "healthy round",
			setupMocks: func(s *mockSupervisor) {
				s.On("GetRoundStatus", mock.Anything, int64(1), timeout).Return(stuckStatus(false), nil)
			},
		},
		{
			name: "stuck round reported",
			setupMocks: func(s *mockSupervisor) {
				s.On("GetRoundStatus", mock.Anything, int64(1), timeout).Return(stuckStatus(true), nil)
			},
			wantStuck: true,
		},
		{
			name:      "stuck round reset",
			autoReset: true,
			setupMocks: func(s *mockSupervisor) {
				s.On("GetRoundStatus", mock.Anything, int64(1), timeout).Return(stuckStatus(true), nil)
				s.On("ResetStuckRound", mock.Anything, int64(1), timeout).Return(&interfaces.RoundResetResult{RaffleID: 1}, nil)
			},
			wantReset: true,
		},
		{
			name:      "fulfilled before reset",
			autoReset: true,
			setupMocks: func(s *mockSupervisor) {
				s.On("GetRoundStatus", mock.Anything, int64(1), timeout).Return(stuckStatus(true), nil)
				s.On("ResetStuckRound", mock.Anything, int64(1), timeout).Return(nil, entities.ErrRoundNotStuck)
			},
			wantReset: true,
		},
		{
			name:      "reset failure stays stuck",
			autoReset: true,
			setupMocks: func(s *mockSupervisor) {
				s.On("GetRoundStatus", mock.Anything, int64(1), timeout).Return(stuckStatus(true), nil)
				s.On("ResetStuckRound", mock.Anything, int64(1), timeout).Return(nil, errors.New("deadlock detected"))
			},
			wantStuck: true,
			wantReset: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			supervisor := new(mockSupervisor)
			tt.setupMocks(supervisor)
			reporter := &recordingReporter{}

			NewSettlementWatchdog(supervisor, reporter, []int64{1}, timeout, tt.autoReset).CheckOnce(context.Background())

			stuck, reported := reporter.get(1)
			assert.True(t, reported)
			assert.Equal(t, tt.wantStuck, stuck)
			if tt.wantReset {
				supervisor.AssertCalled(t, "ResetStuckRound", mock.Anything, int64(1), timeout)
			} else {
				supervisor.AssertNotCalled(t, "ResetStuckRound", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSettlementWatchdog_StatusErrorDoesNotReport(t *testing.T) {
	t.Parallel()
	supervisor := new(mockSupervisor)
	supervisor.On("GetRoundStatus", mock.Anything, int64(1), time.Minute).Return(nil, entities.ErrRaffleNotFound)
	reporter := &recordingReporter{}

	NewSettlementWatchdog(supervisor, reporter, []int64{1}, time.Minute, true).CheckOnce(context.Background())

	_, reported := reporter.get(1)
	assert.False(t, reported)
}

func TestSettlementWatchdog_NilReporter(t *testing.T) {
	t.Parallel()
	supervisor := new(mockSupervisor)
	supervisor.On("GetRoundStatus", mock.Anything, int64(1), time.Minute).Return(stuckStatus(true), nil)

	assert.NotPanics(t, func() {
		NewSettlementWatchdog(supervisor, nil, []int64{1}, time.Minute, false).CheckOnce(context.Background())
	})
}
