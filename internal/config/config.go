package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lumashape/insert-pricing/internal/pricing"
)

const (
	defaultDBPath     = "./pricing.db"
	defaultPort       = "8080"
	defaultLogLevel   = "info"
	defaultOrderTopic = "orders"
	defaultCacheTTL   = 10 * time.Minute
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port       string
	DBPath     string
	LogLevel   string
	AdminToken string
	ParamsFile string

	Redis RedisConfig
	Kafka KafkaConfig

	// Parameters are the defaults seeded into the store on first start.
	Parameters pricing.Parameters
}

// RedisConfig configures the optional quote cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// KafkaConfig configures the optional order event publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
}

// Load reads environment variables (after a best-effort .env) and returns a populated Config.
func Load(logger *zap.Logger) (Config, error) {
	loaded, err := loadDotEnv(".env")
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if len(loaded) > 0 {
		logger.Debug("loaded .env", zap.Strings("keys", loaded))
	}

	cfg := Config{
		Port:       getEnvString("PORT", defaultPort),
		DBPath:     getEnvString("DB_PATH", defaultDBPath),
		LogLevel:   getEnvString("LOG_LEVEL", defaultLogLevel),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		ParamsFile: os.Getenv("PRICING_PARAMS_FILE"),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", int(defaultCacheTTL/time.Second))) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			OrdersTopic: getEnvString("KAFKA_ORDERS_TOPIC", defaultOrderTopic),
		},
		Parameters: pricing.DefaultParameters(),
	}

	if cfg.ParamsFile != "" {
		params, err := LoadParameters(cfg.ParamsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Parameters = params
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is not set; admin endpoints are disabled")
	}

	return cfg, nil
}

// LoadParameters reads a YAML pricing parameters file. Fields the file omits keep
// their canonical defaults; unknown keys are rejected.
func LoadParameters(path string) (pricing.Parameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return pricing.Parameters{}, fmt.Errorf("open pricing parameters: %w", err)
	}
	defer f.Close()

	return decodeParameters(f)
}

func decodeParameters(r io.Reader) (pricing.Parameters, error) {
	params := pricing.DefaultParameters()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		return pricing.Parameters{}, fmt.Errorf("decode pricing parameters: %w", err)
	}
	if err := params.Validate(); err != nil {
		return pricing.Parameters{}, fmt.Errorf("pricing parameters: %w", err)
	}
	return params, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
