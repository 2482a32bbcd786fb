package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                   string
	HTTPAddr              string
	StorageMode           string
	MongoURI              string
	MongoDB               string
	KafkaBrokers          []string
	KafkaTopicPrefix      string
	KafkaGroupID          string
	KafkaReservationTopic string
	IdempotencyTTL        time.Duration
	OutboxPollInterval    time.Duration
	RetryBackoff          []time.Duration
	ICalFetchTimeout      time.Duration
	ICalRefreshInterval   time.Duration
	ICalDomain            string
	CalendarMaxDays       int
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	S3Endpoint            string
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3UseSSL              bool
	FixturesPath          string
}

// Load reads an optional .env file and parses configuration from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Env:                   getEnv("APP_ENV", "dev"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		StorageMode:           strings.ToLower(getEnv("STORAGE_MODE", StorageMemory)),
		MongoURI:              os.Getenv("MONGO_URI"),
		MongoDB:               getEnv("MONGO_DB", "stayquote"),
		KafkaTopicPrefix:      getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "stayquote"),
		KafkaReservationTopic: getEnv("KAFKA_RESERVATION_TOPIC", "reservations.events.v1"),
		ICalDomain:            getEnv("ICAL_DOMAIN", "stayquote.local"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		S3Endpoint:            getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3AccessKey:           getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:           getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		FixturesPath:          getEnv("FIXTURES_PATH", "data/properties.json"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.ICalFetchTimeout, err = parseDurationEnv("ICAL_FETCH_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ICalRefreshInterval, err = parseDurationEnv("ICAL_REFRESH_INTERVAL", 3*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RetryBackoff, err = parseDurationListEnv("RETRY_BACKOFF", "1s,5s,30s"); err != nil {
		return Config{}, err
	}
	if cfg.CalendarMaxDays, err = parseIntEnv("CALENDAR_MAX_DAYS", 730); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}

	switch cfg.StorageMode {
	case StorageMemory:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE is %s", StorageMongo)
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_MODE %q", cfg.StorageMode)
	}
	if cfg.CalendarMaxDays <= 0 {
		return Config{}, fmt.Errorf("CALENDAR_MAX_DAYS must be positive")
	}
	if cfg.ICalRefreshInterval <= 0 {
		return Config{}, fmt.Errorf("ICAL_REFRESH_INTERVAL must be positive")
	}
	return cfg, nil
}

// Development reports whether the environment wants human-oriented output.
func (c Config) Development() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "local":
		return true
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseDurationListEnv(key, def string) ([]time.Duration, error) {
	var out []time.Duration
	for _, raw := range strings.Split(getEnv(key, def), ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s component %q: %w", key, raw, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
