package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gambler/raffle/database"
	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
)

// Defaults match the local development network
const (
	DefaultKeyHash          = "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"
	DefaultConsumerAddress  = "0x00000000000000000000000000000000000000a1"
	DefaultEntranceFee      = "0.01"
	DefaultInterval         = 30 * time.Second
	DefaultCallbackGasLimit = 500000
	DefaultConfirmations    = 3
	DefaultMockBaseFee      = "0.25"
	DefaultMockGasPriceLink = 1_000_000_000
	DefaultMockFundAmount   = "2"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Raffle configuration, applied when the raffle is first created
	RaffleID        int64
	ConsumerAddress common.Address // Address fulfillments are delivered to
	EntranceFee     *big.Int       // Wei
	Interval        time.Duration

	// Randomness request parameters
	VRFKeyHash              common.Hash
	VRFSubscriptionID       uint64
	VRFCallbackGasLimit     uint32
	VRFRequestConfirmations uint16
	VRFRequestTimeout       time.Duration // Wait for the coordinator's acknowledgement

	// In-process mock coordinator
	VRFMockEnabled      bool
	VRFMockBaseFee      *big.Int // Juels
	VRFMockGasPriceLink *big.Int // Juels per gas
	VRFMockFundAmount   *big.Int // Juels
	VRFMockFulfillDelay time.Duration

	// Keeper and watchdog
	UpkeepPollInterval   time.Duration
	SettlementTimeout    time.Duration
	AutoResetStuckRounds bool

	// Listeners
	HTTPAddr       string
	GRPCHealthAddr string

	// Discord announcements, disabled without a token
	DiscordToken     string
	DiscordChannelID string

	// Metrics
	MetricsEnabled          bool
	MetricsExporter         string // "console", "otlp" or "none"
	OTLPEndpoint            string
	MetricsExportIntervalMs int

	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Load reads the configuration from the environment without touching the global instance
func Load() (*Config, error) {
	return load()
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// VRFConfig returns the randomness request parameters
func (c *Config) VRFConfig() entities.VRFConfig {
	return entities.VRFConfig{
		KeyHash:              c.VRFKeyHash,
		SubscriptionID:       c.VRFSubscriptionID,
		RequestConfirmations: c.VRFRequestConfirmations,
		CallbackGasLimit:     c.VRFCallbackGasLimit,
	}
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// Listeners
		HTTPAddr:       getEnvWithDefault("HTTP_ADDR", ":8080"),
		GRPCHealthAddr: getEnvWithDefault("GRPC_HEALTH_ADDR", ":9090"),

		// Discord
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// Metrics
		MetricsEnabled:  os.Getenv("OTEL_METRICS_ENABLED") != "false",
		MetricsExporter: getEnvWithDefault("OTEL_METRICS_EXPORTER", "console"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		VRFMockEnabled:       os.Getenv("VRF_MOCK_ENABLED") == "true",
		AutoResetStuckRounds: os.Getenv("AUTO_RESET_STUCK_ROUNDS") == "true",

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	var result *multierror.Error
	collect := func(err error) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	var err error
	config.RaffleID, err = parseInt(getEnvWithDefault("RAFFLE_ID", "1"), "RAFFLE_ID")
	collect(err)
	config.ConsumerAddress, err = parseAddress(getEnvWithDefault("RAFFLE_CONSUMER_ADDRESS", DefaultConsumerAddress), "RAFFLE_CONSUMER_ADDRESS")
	collect(err)
	config.EntranceFee, err = parseEther(getEnvWithDefault("ENTRANCE_FEE", DefaultEntranceFee), "ENTRANCE_FEE")
	collect(err)
	config.Interval, err = parseSeconds(os.Getenv("RAFFLE_INTERVAL"), DefaultInterval, "RAFFLE_INTERVAL")
	collect(err)

	config.VRFKeyHash, err = parseHash(getEnvWithDefault("VRF_KEY_HASH", DefaultKeyHash), "VRF_KEY_HASH")
	collect(err)
	subID, err := parseInt(getEnvWithDefault("VRF_SUBSCRIPTION_ID", "1"), "VRF_SUBSCRIPTION_ID")
	collect(err)
	config.VRFSubscriptionID = uint64(subID)
	gasLimit, err := parseInt(getEnvWithDefault("VRF_CALLBACK_GAS_LIMIT", strconv.Itoa(DefaultCallbackGasLimit)), "VRF_CALLBACK_GAS_LIMIT")
	collect(err)
	config.VRFCallbackGasLimit = uint32(gasLimit)
	confirmations, err := parseInt(getEnvWithDefault("VRF_REQUEST_CONFIRMATIONS", strconv.Itoa(DefaultConfirmations)), "VRF_REQUEST_CONFIRMATIONS")
	collect(err)
	config.VRFRequestConfirmations = uint16(confirmations)
	config.VRFRequestTimeout, err = parseDuration(os.Getenv("VRF_REQUEST_TIMEOUT"), 5*time.Second, "VRF_REQUEST_TIMEOUT")
	collect(err)

	config.VRFMockBaseFee, err = parseEther(getEnvWithDefault("VRF_MOCK_BASE_FEE", DefaultMockBaseFee), "VRF_MOCK_BASE_FEE")
	collect(err)
	gasPrice, err := parseInt(getEnvWithDefault("VRF_MOCK_GAS_PRICE_LINK", strconv.Itoa(DefaultMockGasPriceLink)), "VRF_MOCK_GAS_PRICE_LINK")
	collect(err)
	config.VRFMockGasPriceLink = big.NewInt(gasPrice)
	config.VRFMockFundAmount, err = parseEther(getEnvWithDefault("VRF_MOCK_FUND_AMOUNT", DefaultMockFundAmount), "VRF_MOCK_FUND_AMOUNT")
	collect(err)
	config.VRFMockFulfillDelay, err = parseDuration(os.Getenv("VRF_MOCK_FULFILL_DELAY"), 2*time.Second, "VRF_MOCK_FULFILL_DELAY")
	collect(err)

	config.UpkeepPollInterval, err = parseDuration(os.Getenv("UPKEEP_POLL_INTERVAL"), 5*time.Second, "UPKEEP_POLL_INTERVAL")
	collect(err)
	config.SettlementTimeout, err = parseDuration(os.Getenv("SETTLEMENT_TIMEOUT"), 10*time.Minute, "SETTLEMENT_TIMEOUT")
	collect(err)

	interval, err := parseInt(getEnvWithDefault("OTEL_METRIC_EXPORT_INTERVAL", "60000"), "OTEL_METRIC_EXPORT_INTERVAL")
	collect(err)
	config.MetricsExportIntervalMs = int(interval)

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			collect(fmt.Errorf("DATABASE_URL is required"))
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			collect(fmt.Errorf("DATABASE_NAME cannot be empty when provided"))
		}
		if config.DiscordToken != "" && config.DiscordChannelID == "" {
			collect(fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_TOKEN is set"))
		}
	}
	if config.EntranceFee != nil && config.EntranceFee.Sign() <= 0 {
		collect(fmt.Errorf("ENTRANCE_FEE must be positive"))
	}
	if config.Interval <= 0 {
		collect(fmt.Errorf("RAFFLE_INTERVAL must be positive"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(value, key string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
	}
	return n, nil
}

func parseAddress(value, key string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s must be a hex address, got %q", key, value)
	}
	return common.HexToAddress(value), nil
}

func parseHash(value, key string) (common.Hash, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(value) != 64 {
		return common.Hash{}, fmt.Errorf("%s must be 32 bytes of hex", key)
	}
	if _, ok := new(big.Int).SetString(value, 16); !ok {
		return common.Hash{}, fmt.Errorf("%s must be 32 bytes of hex", key)
	}
	return common.HexToHash(value), nil
}

func parseEther(value, key string) (*big.Int, error) {
	wei, err := utils.ParseEther(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return wei, nil
}

// parseSeconds accepts a plain number of seconds
func parseSeconds(value string, defaultValue time.Duration, key string) (time.Duration, error) {
	if value == "" {
		return defaultValue, nil
	}
	n, err := parseInt(value, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parseDuration(value string, defaultValue time.Duration, key string) (time.Duration, error) {
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	fee, _ := utils.ParseEther("0.1")
	return &Config{
		Environment:             "test",
		NATSServers:             "nats://localhost:4222",
		RaffleID:                1,
		ConsumerAddress:         common.HexToAddress("0x000000000000000000000000000000000000cafe"),
		EntranceFee:             fee,
		Interval:                DefaultInterval,
		VRFKeyHash:              common.HexToHash(DefaultKeyHash),
		VRFSubscriptionID:       1,
		VRFCallbackGasLimit:     DefaultCallbackGasLimit,
		VRFRequestConfirmations: DefaultConfirmations,
		VRFRequestTimeout:       time.Second,
		VRFMockEnabled:          true,
		VRFMockBaseFee:          big.NewInt(250_000_000_000_000_000),
		VRFMockGasPriceLink:     big.NewInt(DefaultMockGasPriceLink),
		VRFMockFundAmount:       new(big.Int).Mul(big.NewInt(2), big.NewInt(1_000_000_000_000_000_000)),
		UpkeepPollInterval:      time.Second,
		SettlementTimeout:       time.Minute,
		HTTPAddr:                ":0",
		GRPCHealthAddr:          ":0",
		MetricsEnabled:          false,
		MetricsExporter:         "none",
		LogLevel:                "debug",
	}
}
