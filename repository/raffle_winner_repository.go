package repository

import (
	"context"
	"fmt"

	"gambler/raffle/database"
	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
)

// RaffleWinnerRepository implements settlement record data access
type RaffleWinnerRepository struct {
	q queryable
}

// NewRaffleWinnerRepository creates a new raffle winner repository
func NewRaffleWinnerRepository(db *database.DB) *RaffleWinnerRepository {
	return &RaffleWinnerRepository{q: db.Pool}
}

func newRaffleWinnerRepositoryWithTx(tx queryable) *RaffleWinnerRepository {
	return &RaffleWinnerRepository{q: tx}
}

// Create records a settled round
func (r *RaffleWinnerRepository) Create(ctx context.Context, winner *entities.RaffleWinner) error {
	query := `
		INSERT INTO raffle_winners (raffle_id, round_number, winner, amount, request_id, random_word,
		                            winner_index, participant_count, balance_history_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	var balanceHistoryID *int64
	if winner.BalanceHistoryID != 0 {
		balanceHistoryID = &winner.BalanceHistoryID
	}

	err := r.q.QueryRow(ctx, query,
		winner.RaffleID,
		winner.RoundNumber,
		winner.Winner.Hex(),
		toNumeric(winner.Amount),
		winner.RequestID.Hex(),
		toNumeric(winner.RandomWord),
		winner.WinnerIndex,
		winner.ParticipantCount,
		balanceHistoryID,
	).Scan(&winner.ID, &winner.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create raffle winner for raffle %d round %d: %w", winner.RaffleID, winner.RoundNumber, err)
	}

	return nil
}

// GetRecentByRaffle returns the latest settlements, newest first
func (r *RaffleWinnerRepository) GetRecentByRaffle(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error) {
	query := `
		SELECT id, raffle_id, round_number, winner, amount, request_id, random_word,
		       winner_index, participant_count, balance_history_id, created_at
		FROM raffle_winners
		WHERE raffle_id = $1
		ORDER BY round_number DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, raffleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners for raffle %d: %w", raffleID, err)
	}
	defer rows.Close()

	winners := make([]*entities.RaffleWinner, 0)
	for rows.Next() {
		var (
			w                 entities.RaffleWinner
			winner, requestID string
			amount, word      pgtype.Numeric
			balanceHistoryID  *int64
		)
		err := rows.Scan(
			&w.ID,
			&w.RaffleID,
			&w.RoundNumber,
			&winner,
			&amount,
			&requestID,
			&word,
			&w.WinnerIndex,
			&w.ParticipantCount,
			&balanceHistoryID,
			&w.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle winner: %w", err)
		}

		w.Winner = common.HexToAddress(winner)
		w.RequestID = common.HexToHash(requestID)
		if balanceHistoryID != nil {
			w.BalanceHistoryID = *balanceHistoryID
		}
		if w.Amount, err = mustFromNumeric(amount, "amount"); err != nil {
			return nil, err
		}
		if w.RandomWord, err = mustFromNumeric(word, "random_word"); err != nil {
			return nil, err
		}
		winners = append(winners, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffle winners: %w", err)
	}

	return winners, nil
}
