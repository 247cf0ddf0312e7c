package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gambler/raffle/database"
	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
)

// BalanceHistoryRepository implements the BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepositoryWithTx creates a new balance history repository with a transaction
func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(address, balance_before, balance_after, change_amount, transaction_type, transaction_metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.Address.Hex(),
		toNumeric(history.BalanceBefore),
		toNumeric(history.BalanceAfter),
		toNumeric(history.ChangeAmount),
		string(history.TransactionType),
		metadataJSON,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for %s: %w", history.Address.Hex(), err)
	}

	return nil
}

// GetByAddress returns balance history for an address, newest first
func (r *BalanceHistoryRepository) GetByAddress(ctx context.Context, address common.Address, limit int) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, address, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE address = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, address.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s: %w", address.Hex(), err)
	}
	defer rows.Close()

	var histories []*entities.BalanceHistory
	for rows.Next() {
		var (
			history               entities.BalanceHistory
			hex, transactionType  string
			before, after, change pgtype.Numeric
			metadataJSON          []byte
		)

		err := rows.Scan(
			&history.ID,
			&hex,
			&before,
			&after,
			&change,
			&transactionType,
			&metadataJSON,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		history.Address = common.HexToAddress(hex)
		history.TransactionType = entities.TransactionType(transactionType)
		if history.BalanceBefore, err = mustFromNumeric(before, "balance_before"); err != nil {
			return nil, err
		}
		if history.BalanceAfter, err = mustFromNumeric(after, "balance_after"); err != nil {
			return nil, err
		}
		if history.ChangeAmount, err = mustFromNumeric(change, "change_amount"); err != nil {
			return nil, err
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}
