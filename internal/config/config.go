package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP
	HTTPPort string

	// Postgres
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int32

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Zone/PE configuration file
	ZoneConfigPath string

	// Fleet
	FleetID string

	// Pipeline channels
	DBChannelSize    int
	StateChannelSize int

	// Batch writer tuning
	DBBatchSize       int
	DBFlushIntervalMS int

	// Worker counts
	DBWriterWorkers    int
	StateWriterWorkers int

	// Anomaly scanning
	ScanIntervalSeconds int
	OfflineAfterHours   int

	// Attendance thresholds, "HH:MM". Two deployments historically ran
	// with different defaults (07:30/16:30 vs 07:00/17:00); the value here
	// is deliberately explicit rather than baked into the engine.
	ExpectedStart string
	ExpectedEnd   string

	// Auth
	AuthCacheTTLSeconds int
	ValidAPIKeys        []string
}

func Load() *Config {
	return &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8001"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "sentinel_user"),
		DBPassword:          getEnv("DB_PASSWORD", "sentinel_password"),
		DBName:              getEnv("DB_NAME", "fleet_sentinel"),
		DBMaxConns:          int32(getEnvInt("DB_MAX_CONNS", 15)),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		ZoneConfigPath:      getEnv("ZONE_CONFIG_PATH", "zones.json"),
		FleetID:             getEnv("FLEET_ID", "default"),
		DBChannelSize:       getEnvInt("DB_CHANNEL_SIZE", 10000),
		StateChannelSize:    getEnvInt("STATE_CHANNEL_SIZE", 50000),
		DBBatchSize:         getEnvInt("DB_BATCH_SIZE", 500),
		DBFlushIntervalMS:   getEnvInt("DB_FLUSH_INTERVAL_MS", 100),
		DBWriterWorkers:     getEnvInt("DB_WRITER_WORKERS", 10),
		StateWriterWorkers:  getEnvInt("STATE_WRITER_WORKERS", 5),
		ScanIntervalSeconds: getEnvInt("SCAN_INTERVAL_SECONDS", 300),
		OfflineAfterHours:   getEnvInt("OFFLINE_AFTER_HOURS", 6),
		ExpectedStart:       getEnv("EXPECTED_START", "07:30"),
		ExpectedEnd:         getEnv("EXPECTED_END", "16:30"),
		AuthCacheTTLSeconds: getEnvInt("AUTH_CACHE_TTL_SECONDS", 300),
		ValidAPIKeys:        strings.Split(getEnv("VALID_API_KEYS", ""), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
