package repository

import (
	"context"
	"errors"
	"fmt"

	"gambler/raffle/database"
	"gambler/raffle/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// UnitOfWork binds the raffle repositories to one database transaction
type UnitOfWork struct {
	db                 *database.DB
	tx                 pgx.Tx
	ctx                context.Context
	eventPublisher     interfaces.EventPublisher
	raffleRepo         interfaces.RaffleRepository
	entryRepo          interfaces.EntryRepository
	requestRepo        interfaces.RandomnessRequestRepository
	winnerRepo         interfaces.RaffleWinnerRepository
	accountRepo        interfaces.AccountRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
}

// UnitOfWorkFactory creates transaction-scoped units of work
type UnitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a unit of work whose EventBus is eventPublisher.
// Callers that need publish-after-commit pass a transactional publisher.
func (f *UnitOfWorkFactory) CreateWithPublisher(eventPublisher interfaces.EventPublisher) *UnitOfWork {
	return &UnitOfWork{
		db:             f.db,
		eventPublisher: eventPublisher,
	}
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.raffleRepo = newRaffleRepositoryWithTx(tx)
	u.entryRepo = newEntryRepositoryWithTx(tx)
	u.requestRepo = newRandomnessRequestRepositoryWithTx(tx)
	u.winnerRepo = newRaffleWinnerRepositoryWithTx(tx)
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.balanceHistoryRepo = newBalanceHistoryRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return errors.New("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Rollback rolls back the transaction. Safe to call after Commit.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// RaffleRepository returns the raffle repository for this unit of work
func (u *UnitOfWork) RaffleRepository() interfaces.RaffleRepository {
	if u.raffleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleRepo
}

// EntryRepository returns the entry repository for this unit of work
func (u *UnitOfWork) EntryRepository() interfaces.EntryRepository {
	if u.entryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.entryRepo
}

// RandomnessRequestRepository returns the randomness request repository for this unit of work
func (u *UnitOfWork) RandomnessRequestRepository() interfaces.RandomnessRequestRepository {
	if u.requestRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.requestRepo
}

// RaffleWinnerRepository returns the raffle winner repository for this unit of work
func (u *UnitOfWork) RaffleWinnerRepository() interfaces.RaffleWinnerRepository {
	if u.winnerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.winnerRepo
}

// AccountRepository returns the account repository for this unit of work
func (u *UnitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *UnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

// EventBus returns the event publisher for this unit of work
func (u *UnitOfWork) EventBus() interfaces.EventPublisher {
	if u.eventPublisher == nil {
		panic("event publisher not configured")
	}
	return u.eventPublisher
}
