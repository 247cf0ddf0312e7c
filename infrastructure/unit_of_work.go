package infrastructure

import (
	"context"
	"time"

	"gambler/raffle/application"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/infrastructure/observability"
)

// unitOfWork wraps the repository UnitOfWork and flushes queued events after commit
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *NATSTransactionalPublisher
	ctx                    context.Context
	started                time.Time
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	u.started = time.Now()
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes events on success
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		u.transactionalPublisher.Discard()
		u.finish(observability.TransactionRolledBack)
		return err
	}
	u.finish(observability.TransactionCommitted)

	// Best effort: the transaction is already durable
	_ = u.transactionalPublisher.Flush(u.ctx)
	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	u.transactionalPublisher.Discard()
	u.finish(observability.TransactionRolledBack)
	return u.inner.Rollback()
}

// finish records the transaction once; Rollback after Commit is a no-op
func (u *unitOfWork) finish(outcome string) {
	if u.started.IsZero() {
		return
	}
	observability.GetMetrics().RecordTransaction(outcome, time.Since(u.started))
	u.started = time.Time{}
}

func (u *unitOfWork) RaffleRepository() interfaces.RaffleRepository {
	return u.inner.RaffleRepository()
}

func (u *unitOfWork) EntryRepository() interfaces.EntryRepository {
	return u.inner.EntryRepository()
}

func (u *unitOfWork) RandomnessRequestRepository() interfaces.RandomnessRequestRepository {
	return u.inner.RandomnessRequestRepository()
}

func (u *unitOfWork) RaffleWinnerRepository() interfaces.RaffleWinnerRepository {
	return u.inner.RaffleWinnerRepository()
}

func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	return u.inner.AccountRepository()
}

func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return u.inner.BalanceHistoryRepository()
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
