package config

import (
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// Database. Empty values fall back to in-process stores.
	PostgresDSN      string
	PostgresMaxConns int
	RedisURL         string
	MigrationsDir    string

	// Blockchain
	BlockchainRPC   string
	ChainID         int64
	PrivateKey      string
	ContractAddress string
	ContractName    string
	ContractSymbol  string

	// Simulated ledger
	MockMode        bool
	MockDelay       time.Duration
	MockSuccessRate int

	// Issuance
	TxReceiptPoll       time.Duration
	MinSignerBalanceWei *big.Int
	RejectDegradedMint  bool

	// HTTP
	CORSOrigin           string
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	SeedTestData bool

	// Server
	APIPort string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		PostgresDSN:      getEnv("POSTGRES_DSN", ""),
		PostgresMaxConns: getEnvInt("POSTGRES_MAX_CONNS", 10),
		RedisURL:         getEnv("REDIS_URL", ""),
		MigrationsDir:    getEnv("MIGRATIONS_DIR", "migrations"),

		BlockchainRPC:   getEnv("BLOCKCHAIN_RPC", "http://localhost:8545"),
		ChainID:         int64(getEnvInt("CHAIN_ID", 23251219)),
		PrivateKey:      getEnv("PRIVATE_KEY", ""),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
		ContractName:    getEnv("CONTRACT_NAME", "HitachiNebutaToken"),
		ContractSymbol:  getEnv("CONTRACT_SYMBOL", "HNT"),

		MockMode:        getEnvBool("MOCK_MODE", false),
		MockDelay:       time.Duration(getEnvInt("MOCK_DELAY_MS", 1000)) * time.Millisecond,
		MockSuccessRate: getEnvInt("MOCK_SUCCESS_RATE", 100),

		TxReceiptPoll:       time.Duration(getEnvInt("TX_RECEIPT_POLL_MS", 2000)) * time.Millisecond,
		MinSignerBalanceWei: getEnvBigInt("MIN_SIGNER_BALANCE_WEI", big.NewInt(1_000_000_000_000_000)),
		RejectDegradedMint:  getEnvBool("REJECT_DEGRADED_MINT", true),

		CORSOrigin:           getEnv("CORS_ORIGIN", "*"),
		RateLimitWindow:      time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 15*60*1000)) * time.Millisecond,
		RateLimitMaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 1000),

		SeedTestData: getEnvBool("SEED_TEST_DATA", false),

		APIPort: getEnv("API_PORT", "3000"),
	}

	return cfg
}

func (c *Config) Validate(log *zap.Logger) {
	if c.PostgresDSN == "" {
		log.Warn("POSTGRES_DSN is not set, records are kept in memory")
	}
	if c.RedisURL == "" {
		log.Warn("REDIS_URL is not set, rate limiting disabled and events stay in process")
	}
	if c.MockMode {
		if c.MockSuccessRate < 100 {
			log.Warn("MOCK_SUCCESS_RATE is advisory and not enforced", zap.Int("rate", c.MockSuccessRate))
		}
		return
	}
	if c.PrivateKey == "" {
		log.Warn("PRIVATE_KEY is not set, minting is unavailable")
	}
	if c.ContractAddress == "" {
		log.Warn("CONTRACT_ADDRESS is not set, minting is unavailable")
	}
	if !c.RejectDegradedMint {
		log.Warn("REJECT_DEGRADED_MINT is off, timestamp token ids may be linked to records")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBigInt(key string, fallback *big.Int) *big.Int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return fallback
	}
	return v
}
