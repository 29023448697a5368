package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "ChainATM"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	defaultPollInterval    = time.Second
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultIntentRateLimit = 30
	defaultDevchainBalance = 1
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	pollIntervalEnvVar     = "CONFIRMATION_POLL_INTERVAL"
	intentRateLimitEnvVar  = "INTENT_RATE_LIMIT"
	devchainBalanceEnvVar  = "DEVCHAIN_INITIAL_BALANCE"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	LogFormat       string
	RedisURL        string
	WalletRPCURL    string
	ContractAddress common.Address
	PollInterval    time.Duration
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	IntentRateLimit int
	DevchainBalance int64
}

// Load reads an optional .env file and then populates a Config from the environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		RedisURL:        os.Getenv("REDIS_URL"),
		WalletRPCURL:    os.Getenv("WALLET_RPC_URL"),
		PollInterval:    defaultPollInterval,
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		IntentRateLimit: defaultIntentRateLimit,
		DevchainBalance: defaultDevchainBalance,
	}

	address := getEnv("CONTRACT_ADDRESS", defaultContractAddress)
	if !common.IsHexAddress(address) {
		return Config{}, fmt.Errorf("invalid CONTRACT_ADDRESS %q", address)
	}
	cfg.ContractAddress = common.HexToAddress(address)

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(pollIntervalEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", pollIntervalEnvVar, err)
		}
		cfg.PollInterval = d
	}

	if v := os.Getenv(intentRateLimitEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", intentRateLimitEnvVar, err)
		}
		cfg.IntentRateLimit = n
	}

	if v := os.Getenv(devchainBalanceEnvVar); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", devchainBalanceEnvVar, err)
		}
		cfg.DevchainBalance = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints after loading.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%s must be > 0", pollIntervalEnvVar)
	}
	if c.DevchainBalance < 0 {
		return fmt.Errorf("%s must be >= 0", devchainBalanceEnvVar)
	}
	if !c.IsDevelopment() && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// IsDevelopment reports whether in-process fallbacks (devchain, no redis) are allowed.
func (c Config) IsDevelopment() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
