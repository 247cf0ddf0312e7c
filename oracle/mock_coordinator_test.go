package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"gambler/raffle/application/dto"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	consumer  common.Address
	fulfilled dto.RandomWordsFulfilled
}

type recordingFulfillmentPublisher struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (p *recordingFulfillmentPublisher) PublishFulfillment(ctx context.Context, consumer common.Address, fulfilled dto.RandomWordsFulfilled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.deliveries = append(p.deliveries, delivery{consumer: consumer, fulfilled: fulfilled})
	return nil
}

func (p *recordingFulfillmentPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.deliveries)
}

var (
	testOwner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testConsumer = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testKeyHash  = common.HexToHash("0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15")
)

func testConfig() MockCoordinatorConfig {
	return MockCoordinatorConfig{
		BaseFee:      big.NewInt(250_000_000_000_000_000), // 0.25 LINK
		GasPriceLink: big.NewInt(1_000_000_000),
	}
}

func fundAmount() *big.Int {
	return new(big.Int).Mul(big.NewInt(2), big.NewInt(1_000_000_000_000_000_000))
}

func testRequest(subID uint64) *interfaces.RandomWordsRequest {
	return &interfaces.RandomWordsRequest{
		KeyHash:              testKeyHash,
		SubscriptionID:       subID,
		RequestConfirmations: 3,
		CallbackGasLimit:     500000,
		NumWords:             1,
		Consumer:             testConsumer,
	}
}

func deployedCoordinator(t *testing.T, config MockCoordinatorConfig) (*MockCoordinator, *recordingFulfillmentPublisher, uint64) {
	t.Helper()
	publisher := &recordingFulfillmentPublisher{}
	m := NewMockCoordinator(config, publisher)
	t.Cleanup(m.Close)

	subID, err := Deploy(m, testOwner, testConsumer, fundAmount())
	require.NoError(t, err)
	return m, publisher, subID
}

func TestMockCoordinator_Subscriptions(t *testing.T) {
	t.Parallel()

	m := NewMockCoordinator(testConfig(), &recordingFulfillmentPublisher{})

	first := m.CreateSubscription(testOwner)
	second := m.CreateSubscription(testOwner)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)

	require.NoError(t, m.FundSubscription(first, big.NewInt(100)))
	require.NoError(t, m.FundSubscription(first, big.NewInt(50)))
	assert.Error(t, m.FundSubscription(first, big.NewInt(0)))
	assert.ErrorIs(t, m.FundSubscription(99, big.NewInt(1)), ErrInvalidSubscription)

	require.NoError(t, m.AddConsumer(first, testConsumer))
	require.NoError(t, m.AddConsumer(first, testConsumer))

	sub, err := m.GetSubscription(first)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), sub.Balance)
	assert.Equal(t, []common.Address{testConsumer}, sub.Consumers)
	assert.Equal(t, testOwner, sub.Owner)

	// Returned copy is detached
	sub.Balance.SetInt64(0)
	again, err := m.GetSubscription(first)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), again.Balance)

	require.NoError(t, m.RemoveConsumer(first, testConsumer))
	assert.ErrorIs(t, m.RemoveConsumer(first, testConsumer), ErrInvalidConsumer)
	assert.ErrorIs(t, m.AddConsumer(99, testConsumer), ErrInvalidSubscription)

	_, err = m.GetSubscription(99)
	assert.ErrorIs(t, err, ErrInvalidSubscription)
}

func TestMockCoordinator_RequestValidation(t *testing.T) {
	t.Parallel()

	m, _, subID := deployedCoordinator(t, testConfig())
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(req *interfaces.RandomWordsRequest)
		wantErr error
	}{
		{
			name:    "unknown subscription",
			mutate:  func(req *interfaces.RandomWordsRequest) { req.SubscriptionID = 42 },
			wantErr: ErrInvalidSubscription,
		},
		{
			name:    "unregistered consumer",
			mutate:  func(req *interfaces.RandomWordsRequest) { req.Consumer = testOwner },
			wantErr: ErrInvalidConsumer,
		},
		{
			name:    "too many words",
			mutate:  func(req *interfaces.RandomWordsRequest) { req.NumWords = MaxNumWords + 1 },
			wantErr: ErrNumWordsTooBig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest(subID)
			tt.mutate(req)
			_, err := m.RequestRandomWords(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, m.PendingRequests())
}

func TestMockCoordinator_RequestIDsAreUnique(t *testing.T) {
	t.Parallel()

	m, _, subID := deployedCoordinator(t, testConfig())
	ctx := context.Background()

	first, err := m.RequestRandomWords(ctx, testRequest(subID))
	require.NoError(t, err)
	second, err := m.RequestRandomWords(ctx, testRequest(subID))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.ElementsMatch(t, []common.Hash{first, second}, m.PendingRequests())

	// Another instance never reissues the same ids
	other, _, otherSub := deployedCoordinator(t, testConfig())
	third, err := other.RequestRandomWords(ctx, testRequest(otherSub))
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestMockCoordinator_FulfillChargesSubscription(t *testing.T) {
	t.Parallel()

	m, publisher, subID := deployedCoordinator(t, testConfig())
	ctx := context.Background()

	requestID, err := m.RequestRandomWords(ctx, testRequest(subID))
	require.NoError(t, err)

	require.NoError(t, m.FulfillRandomWords(ctx, requestID))

	require.Equal(t, 1, publisher.count())
	got := publisher.deliveries[0]
	assert.Equal(t, testConsumer, got.consumer)
	assert.Equal(t, requestID, got.fulfilled.RequestID)

	words, err := got.fulfilled.Words()
	require.NoError(t, err)
	assert.Equal(t, DefaultRandomWords(requestID, 1), words)

	// 2 LINK - (0.25 LINK + 1e9 * 500000)
	sub, err := m.GetSubscription(subID)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1749500000000000000", 10)
	assert.Equal(t, want, sub.Balance)

	assert.ErrorIs(t, m.FulfillRandomWords(ctx, requestID), ErrNonexistentRequest)
	assert.Empty(t, m.PendingRequests())
}

func TestMockCoordinator_FulfillWithOverride(t *testing.T) {
	t.Parallel()

	m, publisher, subID := deployedCoordinator(t, testConfig())
	ctx := context.Background()

	requestID, err := m.RequestRandomWords(ctx, testRequest(subID))
	require.NoError(t, err)

	err = m.FulfillRandomWordsWithOverride(ctx, requestID, []*big.Int{big.NewInt(1), big.NewInt(2)})
	assert.ErrorIs(t, err, ErrWrongWordCount)

	require.NoError(t, m.FulfillRandomWordsWithOverride(ctx, requestID, []*big.Int{big.NewInt(17)}))
	require.Equal(t, 1, publisher.count())
	assert.Equal(t, []string{"17"}, publisher.deliveries[0].fulfilled.RandomWords)
}

func TestMockCoordinator_InsufficientBalance(t *testing.T) {
	t.Parallel()

	publisher := &recordingFulfillmentPublisher{}
	m := NewMockCoordinator(testConfig(), publisher)
	subID := m.CreateSubscription(testOwner)
	require.NoError(t, m.FundSubscription(subID, big.NewInt(1)))
	require.NoError(t, m.AddConsumer(subID, testConsumer))

	ctx := context.Background()
	requestID, err := m.RequestRandomWords(ctx, testRequest(subID))
	require.NoError(t, err)

	assert.ErrorIs(t, m.FulfillRandomWords(ctx, requestID), ErrInsufficientBalance)
	assert.Zero(t, publisher.count())
	assert.Equal(t, []common.Hash{requestID}, m.PendingRequests())

	require.NoError(t, m.FundSubscription(subID, fundAmount()))
	require.NoError(t, m.FulfillRandomWords(ctx, requestID))
}

func TestMockCoordinator_FailedDeliveryKeepsRequest(t *testing.T) {
	t.Parallel()

	m, publisher, subID := deployedCoordinator(t, testConfig())
	ctx := context.Background()

	requestID, err := m.RequestRandomWords(ctx, testRequest(subID))
	require.NoError(t, err)

	publisher.err = errors.New("stream unavailable")
	assert.Error(t, m.FulfillRandomWords(ctx, requestID))

	sub, err := m.GetSubscription(subID)
	require.NoError(t, err)
	assert.Equal(t, fundAmount(), sub.Balance)
	assert.Equal(t, []common.Hash{requestID}, m.PendingRequests())

	publisher.err = nil
	require.NoError(t, m.FulfillRandomWords(ctx, requestID))
}

func TestMockCoordinator_AutoFulfill(t *testing.T) {
	t.Parallel()

	config := testConfig()
	config.FulfillDelay = 10 * time.Millisecond
	m, publisher, subID := deployedCoordinator(t, config)

	requestID, err := m.RequestRandomWords(context.Background(), testRequest(subID))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return publisher.count() == 1 && len(m.PendingRequests()) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, requestID, publisher.deliveries[0].fulfilled.RequestID)
}

func TestMockCoordinator_CloseStopsAutoFulfill(t *testing.T) {
	t.Parallel()

	config := testConfig()
	config.FulfillDelay = 50 * time.Millisecond
	m, publisher, subID := deployedCoordinator(t, config)

	requestID, err := m.RequestRandomWords(context.Background(), testRequest(subID))
	require.NoError(t, err)
	m.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, publisher.count())
	assert.Equal(t, []common.Hash{requestID}, m.PendingRequests())
}

func TestDefaultRandomWords(t *testing.T) {
	t.Parallel()

	id := common.HexToHash("0x01")
	words := DefaultRandomWords(id, 3)
	require.Len(t, words, 3)
	assert.Equal(t, words, DefaultRandomWords(id, 3))
	assert.NotEqual(t, words[0], words[1])
	assert.NotEqual(t, words[0], DefaultRandomWords(common.HexToHash("0x02"), 1)[0])
	for _, w := range words {
		assert.LessOrEqual(t, w.BitLen(), 256)
	}
}
