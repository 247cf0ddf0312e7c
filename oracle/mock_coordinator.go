package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"gambler/raffle/application/dto"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MaxNumWords is the largest number of words a single request may ask for
const MaxNumWords = 500

var (
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrInvalidConsumer     = errors.New("consumer is not registered on subscription")
	ErrInsufficientBalance = errors.New("insufficient subscription balance")
	ErrNonexistentRequest  = errors.New("nonexistent request")
	ErrNumWordsTooBig      = errors.New("too many random words requested")
	ErrWrongWordCount      = errors.New("override word count does not match request")
)

// FulfillmentPublisher delivers random words to a consumer
type FulfillmentPublisher interface {
	PublishFulfillment(ctx context.Context, consumer common.Address, fulfilled dto.RandomWordsFulfilled) error
}

// MockCoordinatorConfig holds the fee schedule of the mock coordinator
type MockCoordinatorConfig struct {
	BaseFee      *big.Int // Flat premium per fulfillment, in juels
	GasPriceLink *big.Int // Juels per unit of callback gas
	// FulfillDelay > 0 fulfills every request automatically after the delay
	FulfillDelay time.Duration
}

// Subscription is a funded billing account that consumers draw from
type Subscription struct {
	ID        uint64
	Owner     common.Address
	Balance   *big.Int
	Consumers []common.Address
}

type pendingRequest struct {
	id               common.Hash
	subscriptionID   uint64
	consumer         common.Address
	callbackGasLimit uint32
	numWords         uint32
	requestedAt      time.Time
}

// MockCoordinator is a local stand-in for a verifiable randomness coordinator.
// Requests are billed to a subscription and fulfilled on demand with deterministic words.
type MockCoordinator struct {
	mu            sync.Mutex
	config        MockCoordinatorConfig
	publisher     FulfillmentPublisher
	salt          []byte
	nextSubID     uint64
	subscriptions map[uint64]*Subscription
	nonces        map[uint64]map[common.Address]uint64
	requests      map[common.Hash]*pendingRequest
	timers        map[common.Hash]*time.Timer
	closed        bool
}

// NewMockCoordinator creates a coordinator with no subscriptions
func NewMockCoordinator(config MockCoordinatorConfig, publisher FulfillmentPublisher) *MockCoordinator {
	salt := uuid.New()
	return &MockCoordinator{
		config:        config,
		publisher:     publisher,
		salt:          salt[:],
		nextSubID:     1,
		subscriptions: make(map[uint64]*Subscription),
		nonces:        make(map[uint64]map[common.Address]uint64),
		requests:      make(map[common.Hash]*pendingRequest),
		timers:        make(map[common.Hash]*time.Timer),
	}
}

var _ interfaces.RandomnessCoordinator = (*MockCoordinator)(nil)

// CreateSubscription opens an empty subscription and returns its id
func (m *MockCoordinator) CreateSubscription(owner common.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscriptions[id] = &Subscription{ID: id, Owner: owner, Balance: new(big.Int)}
	m.nonces[id] = make(map[common.Address]uint64)

	log.WithFields(log.Fields{
		"subscriptionID": id,
		"owner":          owner.Hex(),
	}).Info("Subscription created")
	return id
}

// FundSubscription adds amount juels to the subscription balance
func (m *MockCoordinator) FundSubscription(subID uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("fund amount must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subID]
	if !ok {
		return fmt.Errorf("subscription %d: %w", subID, ErrInvalidSubscription)
	}
	oldBalance := new(big.Int).Set(sub.Balance)
	sub.Balance.Add(sub.Balance, amount)

	log.WithFields(log.Fields{
		"subscriptionID": subID,
		"oldBalance":     oldBalance.String(),
		"newBalance":     sub.Balance.String(),
	}).Info("Subscription funded")
	return nil
}

// AddConsumer allows consumer to bill requests to the subscription. Adding twice is a no-op.
func (m *MockCoordinator) AddConsumer(subID uint64, consumer common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subID]
	if !ok {
		return fmt.Errorf("subscription %d: %w", subID, ErrInvalidSubscription)
	}
	if sub.hasConsumer(consumer) {
		return nil
	}
	sub.Consumers = append(sub.Consumers, consumer)
	m.nonces[subID][consumer] = 0

	log.WithFields(log.Fields{
		"subscriptionID": subID,
		"consumer":       consumer.Hex(),
	}).Info("Consumer added")
	return nil
}

// RemoveConsumer revokes consumer's access to the subscription
func (m *MockCoordinator) RemoveConsumer(subID uint64, consumer common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subID]
	if !ok {
		return fmt.Errorf("subscription %d: %w", subID, ErrInvalidSubscription)
	}
	for i, c := range sub.Consumers {
		if c == consumer {
			sub.Consumers = append(sub.Consumers[:i], sub.Consumers[i+1:]...)
			delete(m.nonces[subID], consumer)
			return nil
		}
	}
	return fmt.Errorf("%s on subscription %d: %w", consumer.Hex(), subID, ErrInvalidConsumer)
}

// GetSubscription returns a copy of the subscription
func (m *MockCoordinator) GetSubscription(subID uint64) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subID]
	if !ok {
		return nil, fmt.Errorf("subscription %d: %w", subID, ErrInvalidSubscription)
	}
	return &Subscription{
		ID:        sub.ID,
		Owner:     sub.Owner,
		Balance:   new(big.Int).Set(sub.Balance),
		Consumers: append([]common.Address(nil), sub.Consumers...),
	}, nil
}

// RequestRandomWords validates the request and assigns its id. The subscription is charged
// when the request is fulfilled, not here.
func (m *MockCoordinator) RequestRandomWords(ctx context.Context, req *interfaces.RandomWordsRequest) (common.Hash, error) {
	if req.NumWords > MaxNumWords {
		return common.Hash{}, fmt.Errorf("%d > %d: %w", req.NumWords, MaxNumWords, ErrNumWordsTooBig)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[req.SubscriptionID]
	if !ok {
		return common.Hash{}, fmt.Errorf("subscription %d: %w", req.SubscriptionID, ErrInvalidSubscription)
	}
	if !sub.hasConsumer(req.Consumer) {
		return common.Hash{}, fmt.Errorf("%s on subscription %d: %w", req.Consumer.Hex(), req.SubscriptionID, ErrInvalidConsumer)
	}

	nonce := m.nonces[req.SubscriptionID][req.Consumer] + 1
	m.nonces[req.SubscriptionID][req.Consumer] = nonce

	requestID := computeRequestID(req.KeyHash, req.Consumer, req.SubscriptionID, nonce, m.salt)
	m.requests[requestID] = &pendingRequest{
		id:               requestID,
		subscriptionID:   req.SubscriptionID,
		consumer:         req.Consumer,
		callbackGasLimit: req.CallbackGasLimit,
		numWords:         req.NumWords,
		requestedAt:      time.Now(),
	}

	log.WithFields(log.Fields{
		"requestID":      requestID.Hex(),
		"subscriptionID": req.SubscriptionID,
		"consumer":       req.Consumer.Hex(),
		"numWords":       req.NumWords,
	}).Info("Random words requested")

	if m.config.FulfillDelay > 0 && !m.closed {
		m.timers[requestID] = time.AfterFunc(m.config.FulfillDelay, func() {
			m.mu.Lock()
			delete(m.timers, requestID)
			m.mu.Unlock()

			if err := m.FulfillRandomWords(context.Background(), requestID); err != nil {
				log.WithFields(log.Fields{
					"requestID": requestID.Hex(),
					"error":     err,
				}).Error("Automatic fulfillment failed")
			}
		})
	}

	return requestID, nil
}

// FulfillRandomWords delivers the default deterministic words for the request
func (m *MockCoordinator) FulfillRandomWords(ctx context.Context, requestID common.Hash) error {
	return m.FulfillRandomWordsWithOverride(ctx, requestID, nil)
}

// FulfillRandomWordsWithOverride delivers words to the request's consumer and charges the
// subscription. Empty words selects the default keccak256(requestID, i) sequence.
// A failed delivery leaves the request pending and the balance untouched.
func (m *MockCoordinator) FulfillRandomWordsWithOverride(ctx context.Context, requestID common.Hash, words []*big.Int) error {
	m.mu.Lock()
	req, ok := m.requests[requestID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("request %s: %w", requestID.Hex(), ErrNonexistentRequest)
	}
	sub, ok := m.subscriptions[req.subscriptionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("subscription %d: %w", req.subscriptionID, ErrInvalidSubscription)
	}
	payment := m.payment(req.callbackGasLimit)
	if sub.Balance.Cmp(payment) < 0 {
		m.mu.Unlock()
		return fmt.Errorf("balance %s below payment %s: %w", sub.Balance, payment, ErrInsufficientBalance)
	}
	m.mu.Unlock()

	if len(words) == 0 {
		words = DefaultRandomWords(requestID, req.numWords)
	} else if len(words) != int(req.numWords) {
		return fmt.Errorf("got %d words for %d: %w", len(words), req.numWords, ErrWrongWordCount)
	}

	fulfilled := dto.NewRandomWordsFulfilled(requestID, words)
	if err := m.publisher.PublishFulfillment(ctx, req.consumer, fulfilled); err != nil {
		return fmt.Errorf("failed to deliver random words for %s: %w", requestID.Hex(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, still := m.requests[requestID]; !still {
		// Fulfilled concurrently; only one delivery is billed
		return nil
	}
	delete(m.requests, requestID)
	if t, ok := m.timers[requestID]; ok {
		t.Stop()
		delete(m.timers, requestID)
	}
	oldBalance := new(big.Int).Set(sub.Balance)
	sub.Balance.Sub(sub.Balance, payment)

	log.WithFields(log.Fields{
		"requestID":  requestID.Hex(),
		"consumer":   req.consumer.Hex(),
		"payment":    payment.String(),
		"oldBalance": oldBalance.String(),
		"newBalance": sub.Balance.String(),
		"pendingFor": time.Since(req.requestedAt).String(),
	}).Info("Random words fulfilled")
	return nil
}

// PendingRequests returns the ids of requests not yet fulfilled
func (m *MockCoordinator) PendingRequests() []common.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]common.Hash, 0, len(m.requests))
	for id := range m.requests {
		ids = append(ids, id)
	}
	return ids
}

// Close stops pending automatic fulfillments
func (m *MockCoordinator) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

// payment is baseFee + gasPriceLink * callbackGasLimit
func (m *MockCoordinator) payment(callbackGasLimit uint32) *big.Int {
	p := new(big.Int).SetUint64(uint64(callbackGasLimit))
	if m.config.GasPriceLink != nil {
		p.Mul(p, m.config.GasPriceLink)
	} else {
		p.SetInt64(0)
	}
	if m.config.BaseFee != nil {
		p.Add(p, m.config.BaseFee)
	}
	return p
}

func (s *Subscription) hasConsumer(consumer common.Address) bool {
	for _, c := range s.Consumers {
		if c == consumer {
			return true
		}
	}
	return false
}

// computeRequestID derives the request id from the gas lane, the consumer, its subscription
// and the consumer's nonce. salt separates ids issued by different coordinator instances.
func computeRequestID(keyHash common.Hash, consumer common.Address, subID uint64, nonce uint64, salt []byte) common.Hash {
	preSeed := crypto.Keccak256(
		keyHash.Bytes(),
		common.LeftPadBytes(consumer.Bytes(), 32),
		common.BigToHash(new(big.Int).SetUint64(subID)).Bytes(),
		common.BigToHash(new(big.Int).SetUint64(nonce)).Bytes(),
		salt,
	)
	return crypto.Keccak256Hash(keyHash.Bytes(), preSeed)
}

// DefaultRandomWords returns keccak256(requestID, i) for i in [0, n)
func DefaultRandomWords(requestID common.Hash, n uint32) []*big.Int {
	words := make([]*big.Int, n)
	for i := uint32(0); i < n; i++ {
		index := common.BigToHash(new(big.Int).SetUint64(uint64(i)))
		words[i] = new(big.Int).SetBytes(crypto.Keccak256(requestID.Bytes(), index.Bytes()))
	}
	return words
}
