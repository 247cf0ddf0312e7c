package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gambler/raffle/domain/entities"

	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
)

// UpkeepPerformer is the keeper's view of the raffle
type UpkeepPerformer interface {
	CheckUpkeep(ctx context.Context, raffleID int64, checkData []byte) (bool, []byte, error)
	PerformUpkeep(ctx context.Context, raffleID int64, performData []byte) (*entities.RandomnessRequest, error)
}

// UpkeepWorkerConfig tunes the keeper loop
type UpkeepWorkerConfig struct {
	PollInterval time.Duration
	RetryBase    time.Duration
	RetryCap     time.Duration
	MaxRetries   uint64
}

// DefaultUpkeepWorkerConfig polls every five seconds and retries transient failures three times
func DefaultUpkeepWorkerConfig() UpkeepWorkerConfig {
	return UpkeepWorkerConfig{
		PollInterval: 5 * time.Second,
		RetryBase:    200 * time.Millisecond,
		RetryCap:     2 * time.Second,
		MaxRetries:   3,
	}
}

// UpkeepWorker is the keeper: it polls CheckUpkeep and calls PerformUpkeep when a round is due
type UpkeepWorker struct {
	performer UpkeepPerformer
	raffleIDs []int64
	config    UpkeepWorkerConfig
}

// NewUpkeepWorker creates a keeper for the given raffles
func NewUpkeepWorker(performer UpkeepPerformer, raffleIDs []int64, config UpkeepWorkerConfig) *UpkeepWorker {
	return &UpkeepWorker{
		performer: performer,
		raffleIDs: raffleIDs,
		config:    config,
	}
}

// Start begins the keeper loop and returns a function that stops it
func (w *UpkeepWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithFields(log.Fields{
			"raffles":      w.raffleIDs,
			"pollInterval": w.config.PollInterval,
		}).Info("Upkeep worker started")

		for {
			w.RunOnce(ctx)

			select {
			case <-ctx.Done():
				log.Info("Upkeep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Upkeep worker shutting down (stop requested)...")
				return
			case <-time.After(w.config.PollInterval):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// RunOnce runs one keeper pass over every raffle
func (w *UpkeepWorker) RunOnce(ctx context.Context) {
	for _, raffleID := range w.raffleIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.Upkeep(ctx, raffleID); err != nil {
			log.WithFields(log.Fields{
				"raffleID": raffleID,
				"error":    err,
			}).Error("Upkeep failed")
		}
	}
}

// Upkeep checks one raffle and performs upkeep when needed. It returns the issued
// request, or nil when nothing was due. Transient failures are retried with backoff.
func (w *UpkeepWorker) Upkeep(ctx context.Context, raffleID int64) (*entities.RandomnessRequest, error) {
	backoff := retry.NewExponential(w.config.RetryBase)
	backoff = retry.WithCappedDuration(w.config.RetryCap, backoff)
	backoff = retry.WithMaxRetries(w.config.MaxRetries, backoff)

	var issued *entities.RandomnessRequest
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		needed, performData, err := w.performer.CheckUpkeep(ctx, raffleID, nil)
		if err != nil {
			if errors.Is(err, entities.ErrRaffleNotFound) {
				return err
			}
			return retry.RetryableError(fmt.Errorf("failed to check upkeep: %w", err))
		}
		if !needed {
			return nil
		}

		request, err := w.performer.PerformUpkeep(ctx, raffleID, performData)
		if errors.Is(err, entities.ErrUpkeepNotNeeded) {
			// Another keeper got there first
			log.WithFields(log.Fields{
				"raffleID": raffleID,
				"error":    err,
			}).Debug("Upkeep no longer needed")
			return nil
		}
		if err != nil {
			log.WithFields(log.Fields{
				"raffleID": raffleID,
				"error":    err,
			}).Warn("Perform upkeep failed, retrying")
			return retry.RetryableError(fmt.Errorf("failed to perform upkeep: %w", err))
		}

		issued = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	if issued != nil {
		log.WithFields(log.Fields{
			"raffleID":  raffleID,
			"round":     issued.RoundNumber,
			"requestID": issued.RequestID.Hex(),
		}).Info("Upkeep performed")
	}
	return issued, nil
}
