package repository

import (
	"context"
	"fmt"

	"gambler/raffle/database"
	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
)

// EntryRepository implements raffle entry data access
type EntryRepository struct {
	q queryable
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *database.DB) *EntryRepository {
	return &EntryRepository{q: db.Pool}
}

func newEntryRepositoryWithTx(tx queryable) *EntryRepository {
	return &EntryRepository{q: tx}
}

// Create records an entry. The (raffle, round, seq) key rejects a second writer for the same slot.
func (r *EntryRepository) Create(ctx context.Context, entry *entities.Entry) error {
	query := `
		INSERT INTO raffle_entries (raffle_id, round_number, seq, participant, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.RaffleID,
		entry.RoundNumber,
		entry.Seq,
		entry.Participant.Hex(),
		toNumeric(entry.Amount),
		nullableTime(entry.CreatedAt),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entry for raffle %d: %w", entry.RaffleID, err)
	}

	return nil
}

// GetByRound returns the entries of one round in entry order
func (r *EntryRepository) GetByRound(ctx context.Context, raffleID, roundNumber int64) ([]*entities.Entry, error) {
	query := `
		SELECT id, raffle_id, round_number, seq, participant, amount, created_at
		FROM raffle_entries
		WHERE raffle_id = $1 AND round_number = $2
		ORDER BY seq
	`

	rows, err := r.q.Query(ctx, query, raffleID, roundNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for raffle %d round %d: %w", raffleID, roundNumber, err)
	}
	defer rows.Close()

	entries := make([]*entities.Entry, 0)
	for rows.Next() {
		var (
			entry       entities.Entry
			participant string
			amount      pgtype.Numeric
		)
		if err := rows.Scan(&entry.ID, &entry.RaffleID, &entry.RoundNumber, &entry.Seq, &participant, &amount, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.Participant = common.HexToAddress(participant)
		if entry.Amount, err = mustFromNumeric(amount, "amount"); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}
