package repository

import (
	"context"
	"fmt"
	"math/big"

	"gambler/raffle/database"
	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
)

// AccountRepository implements payout account data access
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetOrCreateForUpdate returns the locked account, creating an empty one first if needed
func (r *AccountRepository) GetOrCreateForUpdate(ctx context.Context, address common.Address) (*entities.Account, error) {
	if _, err := r.q.Exec(ctx, `INSERT INTO accounts (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`, address.Hex()); err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", address.Hex(), err)
	}

	query := `
		SELECT address, balance, frozen, created_at, updated_at
		FROM accounts
		WHERE address = $1
		FOR UPDATE
	`

	var (
		account entities.Account
		hex     string
		balance pgtype.Numeric
	)
	err := r.q.QueryRow(ctx, query, address.Hex()).Scan(&hex, &balance, &account.Frozen, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s for update: %w", address.Hex(), err)
	}

	account.Address = common.HexToAddress(hex)
	if account.Balance, err = mustFromNumeric(balance, "balance"); err != nil {
		return nil, err
	}

	return &account, nil
}

// UpdateBalance sets the account balance
func (r *AccountRepository) UpdateBalance(ctx context.Context, address common.Address, newBalance *big.Int) error {
	query := `
		UPDATE accounts
		SET balance = $2, updated_at = NOW()
		WHERE address = $1
	`

	result, err := r.q.Exec(ctx, query, address.Hex(), toNumeric(newBalance))
	if err != nil {
		return fmt.Errorf("failed to update balance for %s: %w", address.Hex(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", address.Hex())
	}

	return nil
}

// SetFrozen blocks or unblocks payouts, creating the account if needed
func (r *AccountRepository) SetFrozen(ctx context.Context, address common.Address, frozen bool) error {
	query := `
		INSERT INTO accounts (address, frozen)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET frozen = EXCLUDED.frozen, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, address.Hex(), frozen); err != nil {
		return fmt.Errorf("failed to set frozen=%t for %s: %w", frozen, address.Hex(), err)
	}

	return nil
}
