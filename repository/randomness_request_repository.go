package repository

import (
	"context"
	"errors"
	"fmt"

	"gambler/raffle/database"
	"gambler/raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// RandomnessRequestRepository implements randomness request data access
type RandomnessRequestRepository struct {
	q queryable
}

// NewRandomnessRequestRepository creates a new randomness request repository
func NewRandomnessRequestRepository(db *database.DB) *RandomnessRequestRepository {
	return &RandomnessRequestRepository{q: db.Pool}
}

func newRandomnessRequestRepositoryWithTx(tx queryable) *RandomnessRequestRepository {
	return &RandomnessRequestRepository{q: tx}
}

// Create records an issued request
func (r *RandomnessRequestRepository) Create(ctx context.Context, request *entities.RandomnessRequest) error {
	query := `
		INSERT INTO randomness_requests (request_id, raffle_id, round_number, key_hash, subscription_id,
		                                 request_confirmations, callback_gas_limit, num_words, status,
		                                 random_word, requested_at, fulfilled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.Exec(ctx, query,
		request.RequestID.Hex(),
		request.RaffleID,
		request.RoundNumber,
		request.KeyHash.Hex(),
		int64(request.SubscriptionID),
		int32(request.RequestConfirmations),
		int64(request.CallbackGasLimit),
		int32(request.NumWords),
		string(request.Status),
		toNumeric(request.RandomWord),
		request.RequestedAt,
		request.FulfilledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create randomness request %s: %w", request.RequestID.Hex(), err)
	}

	return nil
}

// GetByRequestID retrieves a request, nil if unknown
func (r *RandomnessRequestRepository) GetByRequestID(ctx context.Context, requestID common.Hash) (*entities.RandomnessRequest, error) {
	query := `
		SELECT request_id, raffle_id, round_number, key_hash, subscription_id, request_confirmations,
		       callback_gas_limit, num_words, status, random_word, requested_at, fulfilled_at
		FROM randomness_requests
		WHERE request_id = $1
	`

	var (
		request       entities.RandomnessRequest
		id, keyHash   string
		subID         int64
		confirmations int32
		gasLimit      int64
		numWords      int32
		status        string
		word          pgtype.Numeric
	)
	err := r.q.QueryRow(ctx, query, requestID.Hex()).Scan(
		&id,
		&request.RaffleID,
		&request.RoundNumber,
		&keyHash,
		&subID,
		&confirmations,
		&gasLimit,
		&numWords,
		&status,
		&word,
		&request.RequestedAt,
		&request.FulfilledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get randomness request %s: %w", requestID.Hex(), err)
	}

	request.RequestID = common.HexToHash(id)
	request.KeyHash = common.HexToHash(keyHash)
	request.SubscriptionID = uint64(subID)
	request.RequestConfirmations = uint16(confirmations)
	request.CallbackGasLimit = uint32(gasLimit)
	request.NumWords = uint32(numWords)
	request.Status = entities.RequestStatus(status)
	if request.RandomWord, err = fromNumeric(word); err != nil {
		return nil, fmt.Errorf("failed to decode random_word: %w", err)
	}

	return &request, nil
}

// Update persists status, random word and fulfillment time
func (r *RandomnessRequestRepository) Update(ctx context.Context, request *entities.RandomnessRequest) error {
	query := `
		UPDATE randomness_requests
		SET status = $2,
		    random_word = $3,
		    fulfilled_at = $4
		WHERE request_id = $1
	`

	result, err := r.q.Exec(ctx, query,
		request.RequestID.Hex(),
		string(request.Status),
		toNumeric(request.RandomWord),
		request.FulfilledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update randomness request %s: %w", request.RequestID.Hex(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("randomness request %s not found", request.RequestID.Hex())
	}

	return nil
}
