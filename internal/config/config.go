package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database    DatabaseConfig
	JWT         JWTConfig
	App         AppConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Timekeeping TimekeepingConfig
	Outbox      OutboxConfig
	RateLimit   RateLimitConfig
	Workflow    WorkflowConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c AppConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// KafkaConfig controls delivery of workflow audit events.
type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	AuditTopic string
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// TimekeepingConfig holds the attendance computation constants.
type TimekeepingConfig struct {
	ExpectedTimeIn      string
	DefaultBreakMinutes int
	StandardWorkMinutes int
	CapWorkedAtStandard bool
	NightShiftCutoff    string
	Timezone            string
}

// Location loads the zone attendance dates are computed in.
func (c TimekeepingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// WorkflowConfig tunes bulk approval transitions.
type WorkflowConfig struct {
	BulkConcurrency int
}

// RateLimitConfig throttles punch ingestion per device.
type RateLimitConfig struct {
	PunchesPerSecond float64
	PunchBurst       int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, falling back to process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.ParseInt(getEnv("DB_MIN_CONNS", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-timekeeping"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	// Kafka configuration
	kafkaEnabled, err := strconv.ParseBool(getEnv("KAFKA_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid KAFKA_ENABLED: %w", err)
	}
	config.Kafka = KafkaConfig{
		Enabled:    kafkaEnabled,
		Brokers:    getEnvSlice("KAFKA_BROKERS"),
		AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "timekeeping.workflow.transitions"),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	idempotencyTTL, err := time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	config.Redis = RedisConfig{
		Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
		Password:       getEnv("REDIS_PASSWORD", ""),
		DB:             redisDB,
		IdempotencyTTL: idempotencyTTL,
	}

	// Timekeeping rules
	breakMinutes, err := strconv.Atoi(getEnv("DEFAULT_BREAK_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_BREAK_MINUTES: %w", err)
	}
	standardMinutes, err := strconv.Atoi(getEnv("STANDARD_WORK_MINUTES", "480"))
	if err != nil {
		return nil, fmt.Errorf("invalid STANDARD_WORK_MINUTES: %w", err)
	}
	capWorked, err := strconv.ParseBool(getEnv("CAP_WORKED_AT_STANDARD", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAP_WORKED_AT_STANDARD: %w", err)
	}
	config.Timekeeping = TimekeepingConfig{
		ExpectedTimeIn:      getEnv("EXPECTED_TIME_IN", "08:00"),
		DefaultBreakMinutes: breakMinutes,
		StandardWorkMinutes: standardMinutes,
		CapWorkedAtStandard: capWorked,
		NightShiftCutoff:    getEnv("NIGHT_SHIFT_CUTOFF", "12:00"),
		Timezone:            getEnv("TIMEZONE", "Asia/Manila"),
	}

	// Outbox relay
	pollInterval, err := time.ParseDuration(getEnv("OUTBOX_POLL_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %w", err)
	}
	batchSize, err := strconv.Atoi(getEnv("OUTBOX_BATCH_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_BATCH_SIZE: %w", err)
	}
	retryBackoff, err := time.ParseDuration(getEnv("OUTBOX_RETRY_BACKOFF", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_RETRY_BACKOFF: %w", err)
	}
	maxBackoff, err := time.ParseDuration(getEnv("OUTBOX_MAX_BACKOFF", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_MAX_BACKOFF: %w", err)
	}
	config.Outbox = OutboxConfig{
		PollInterval: pollInterval,
		BatchSize:    batchSize,
		RetryBackoff: retryBackoff,
		MaxBackoff:   maxBackoff,
	}

	punchRate, err := strconv.ParseFloat(getEnv("PUNCH_RATE_PER_SECOND", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PUNCH_RATE_PER_SECOND: %w", err)
	}
	punchBurst, err := strconv.Atoi(getEnv("PUNCH_RATE_BURST", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid PUNCH_RATE_BURST: %w", err)
	}
	config.RateLimit = RateLimitConfig{
		PunchesPerSecond: punchRate,
		PunchBurst:       punchBurst,
	}

	bulkConcurrency, err := strconv.Atoi(getEnv("BULK_TRANSITION_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid BULK_TRANSITION_CONCURRENCY: %w", err)
	}
	config.Workflow = WorkflowConfig{BulkConcurrency: bulkConcurrency}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if _, err := ParseClock(c.Timekeeping.ExpectedTimeIn); err != nil {
		return fmt.Errorf("invalid EXPECTED_TIME_IN: %w", err)
	}
	if _, err := ParseClock(c.Timekeeping.NightShiftCutoff); err != nil {
		return fmt.Errorf("invalid NIGHT_SHIFT_CUTOFF: %w", err)
	}
	if _, err := c.Timekeeping.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if c.Timekeeping.DefaultBreakMinutes < 0 {
		return fmt.Errorf("DEFAULT_BREAK_MINUTES must not be negative")
	}
	if c.Timekeeping.StandardWorkMinutes <= 0 {
		return fmt.Errorf("STANDARD_WORK_MINUTES must be positive")
	}
	if c.Workflow.BulkConcurrency <= 0 {
		return fmt.Errorf("BULK_TRANSITION_CONCURRENCY must be positive")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ParseClock parses an "HH:MM" wall-clock value into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}
