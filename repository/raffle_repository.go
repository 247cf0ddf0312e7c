package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gambler/raffle/database"
	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const raffleColumns = `
	id, consumer_address, entrance_fee, interval_seconds, phase, round_number, pool,
	last_settled_at, pending_request_id, pending_since, recent_winner, created_at`

// RaffleRepository implements raffle data access
type RaffleRepository struct {
	q queryable
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db *database.DB) *RaffleRepository {
	return &RaffleRepository{q: db.Pool}
}

// newRaffleRepositoryWithTx creates a new raffle repository with a transaction
func newRaffleRepositoryWithTx(tx queryable) *RaffleRepository {
	return &RaffleRepository{q: tx}
}

// Create inserts a raffle; an existing row with the same ID is left untouched
func (r *RaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		INSERT INTO raffles (id, consumer_address, entrance_fee, interval_seconds, phase, round_number,
		                     pool, last_settled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.q.Exec(ctx, query,
		raffle.ID,
		raffle.ConsumerAddress.Hex(),
		toNumeric(raffle.EntranceFee),
		int64(raffle.Interval/time.Second),
		string(raffle.Phase),
		raffle.RoundNumber,
		toNumeric(raffle.PoolAmount()),
		raffle.LastSettledAt,
		raffle.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create raffle %d: %w", raffle.ID, err)
	}

	return nil
}

// GetByID retrieves a raffle with the participants of its current round
func (r *RaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle by ID %d: %w", id, err)
	}

	if err := r.loadParticipants(ctx, raffle); err != nil {
		return nil, err
	}
	return raffle, nil
}

// GetByIDForUpdate retrieves a raffle by ID with row lock for update
func (r *RaffleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle for update by ID %d: %w", id, err)
	}

	if err := r.loadParticipants(ctx, raffle); err != nil {
		return nil, err
	}
	return raffle, nil
}

// Update persists the round state. Entries are written separately through EntryRepository.
func (r *RaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		UPDATE raffles
		SET phase = $2,
		    round_number = $3,
		    pool = $4,
		    last_settled_at = $5,
		    pending_request_id = $6,
		    pending_since = $7,
		    recent_winner = $8,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		raffle.ID,
		string(raffle.Phase),
		raffle.RoundNumber,
		toNumeric(raffle.PoolAmount()),
		raffle.LastSettledAt,
		hashString(raffle.PendingRequestID),
		raffle.PendingSince,
		addressString(raffle.RecentWinner),
	)
	if err != nil {
		return fmt.Errorf("failed to update raffle %d: %w", raffle.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("raffle %d not found", raffle.ID)
	}

	return nil
}

// ListIDs returns the IDs of all raffles
func (r *RaffleRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM raffles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list raffles: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan raffle IDs: %w", err)
	}
	return ids, nil
}

func (r *RaffleRepository) loadParticipants(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		SELECT participant
		FROM raffle_entries
		WHERE raffle_id = $1 AND round_number = $2
		ORDER BY seq
	`

	rows, err := r.q.Query(ctx, query, raffle.ID, raffle.RoundNumber)
	if err != nil {
		return fmt.Errorf("failed to get participants for raffle %d: %w", raffle.ID, err)
	}

	hexes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to scan participants: %w", err)
	}

	raffle.Participants = make([]common.Address, 0, len(hexes))
	for _, h := range hexes {
		raffle.Participants = append(raffle.Participants, common.HexToAddress(h))
	}
	return nil
}

func scanRaffle(row pgx.Row) (*entities.Raffle, error) {
	var (
		raffle           entities.Raffle
		consumer         string
		entranceFee      pgtype.Numeric
		intervalSeconds  int64
		phase            string
		pool             pgtype.Numeric
		pendingRequestID *string
		recentWinner     *string
	)

	err := row.Scan(
		&raffle.ID,
		&consumer,
		&entranceFee,
		&intervalSeconds,
		&phase,
		&raffle.RoundNumber,
		&pool,
		&raffle.LastSettledAt,
		&pendingRequestID,
		&raffle.PendingSince,
		&recentWinner,
		&raffle.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if raffle.EntranceFee, err = mustFromNumeric(entranceFee, "entrance_fee"); err != nil {
		return nil, err
	}
	if raffle.Pool, err = mustFromNumeric(pool, "pool"); err != nil {
		return nil, err
	}

	raffle.ConsumerAddress = common.HexToAddress(consumer)
	raffle.Interval = time.Duration(intervalSeconds) * time.Second
	raffle.Phase = entities.RafflePhase(phase)
	raffle.PendingRequestID = hashPtr(pendingRequestID)
	raffle.RecentWinner = addressPtr(recentWinner)
	raffle.LastSettledAt = raffle.LastSettledAt.UTC()

	return &raffle, nil
}
