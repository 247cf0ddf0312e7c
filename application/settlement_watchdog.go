package application

import (
	"context"
	"errors"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// RoundSupervisor is the watchdog's view of the raffle
type RoundSupervisor interface {
	GetRoundStatus(ctx context.Context, raffleID int64, stuckAfter time.Duration) (*interfaces.RoundStatus, error)
	ResetStuckRound(ctx context.Context, raffleID int64, timeout time.Duration) (*interfaces.RoundResetResult, error)
}

// SettlementWatchdog watches for rounds whose randomness never arrived.
// It reports them and, when autoReset is set, reopens them.
type SettlementWatchdog struct {
	supervisor    RoundSupervisor
	reporter      StuckRoundReporter
	raffleIDs     []int64
	timeout       time.Duration
	autoReset     bool
	checkInterval time.Duration
}

// NewSettlementWatchdog creates a watchdog; reporter may be nil
func NewSettlementWatchdog(supervisor RoundSupervisor, reporter StuckRoundReporter, raffleIDs []int64, timeout time.Duration, autoReset bool) *SettlementWatchdog {
	checkInterval := timeout / 4
	if checkInterval < time.Second {
		checkInterval = time.Second
	}
	return &SettlementWatchdog{
		supervisor:    supervisor,
		reporter:      reporter,
		raffleIDs:     raffleIDs,
		timeout:       timeout,
		autoReset:     autoReset,
		checkInterval: checkInterval,
	}
}

// Start begins the watchdog loop and returns a function that stops it
func (w *SettlementWatchdog) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithFields(log.Fields{
			"timeout":   w.timeout,
			"autoReset": w.autoReset,
		}).Info("Settlement watchdog started")

		for {
			w.CheckOnce(ctx)

			select {
			case <-ctx.Done():
				log.Info("Settlement watchdog shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement watchdog shutting down (stop requested)...")
				return
			case <-time.After(w.checkInterval):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// CheckOnce inspects every raffle once
func (w *SettlementWatchdog) CheckOnce(ctx context.Context) {
	for _, raffleID := range w.raffleIDs {
		if ctx.Err() != nil {
			return
		}
		w.check(ctx, raffleID)
	}
}

func (w *SettlementWatchdog) check(ctx context.Context, raffleID int64) {
	status, err := w.supervisor.GetRoundStatus(ctx, raffleID, w.timeout)
	if err != nil {
		log.WithFields(log.Fields{
			"raffleID": raffleID,
			"error":    err,
		}).Error("Watchdog failed to read round status")
		return
	}

	if !status.Stuck {
		w.report(raffleID, false)
		return
	}

	observability.GetMetrics().RecordStuckRound(raffleID)
	fields := log.Fields{
		"raffleID":   raffleID,
		"round":      status.RoundNumber,
		"pendingFor": status.TimeSinceRequest,
	}
	if status.PendingRequestID != nil {
		fields["requestID"] = status.PendingRequestID.Hex()
	}

	if !w.autoReset {
		log.WithFields(fields).Warn("Raffle round stuck waiting for randomness")
		w.report(raffleID, true)
		return
	}

	_, err = w.supervisor.ResetStuckRound(ctx, raffleID, w.timeout)
	switch {
	case errors.Is(err, entities.ErrRoundNotStuck):
		// Fulfilled between the read and the reset
		w.report(raffleID, false)
	case err != nil:
		log.WithFields(fields).WithError(err).Error("Failed to reset stuck round")
		w.report(raffleID, true)
	default:
		w.report(raffleID, false)
	}
}

func (w *SettlementWatchdog) report(raffleID int64, stuck bool) {
	if w.reporter != nil {
		w.reporter.SetStuck(raffleID, stuck)
	}
}
