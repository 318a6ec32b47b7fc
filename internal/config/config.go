package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	Port        string
	DBDriver    string // sqlite | postgres
	DBDSN       string
	LogFile     string
	CORSOrigin  string
	BodyLimit   int

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL     string
	KafkaBrokers []string
	OTLPEndpoint string

	// Optional fulfillment account, created on startup when both are set.
	AdminEmail    string
	AdminPassword string
}

func Load() (Config, error) {
	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	bodyLimit, err := strconv.Atoi(getEnv("BODY_LIMIT", strconv.Itoa(1<<20)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BODY_LIMIT: %w", err)
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "postgres" {
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (want sqlite or postgres)", driver)
	}

	cfg := Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		Port:          getEnv("PORT", "3001"),
		DBDriver:      driver,
		DBDSN:         getEnv("DB_DSN", "nexusmarket.db"), // sqlite file in project root
		LogFile:       os.Getenv("LOG_FILE"),
		CORSOrigin:    getEnv("CORS_ORIGIN", "http://localhost:3000"),
		BodyLimit:     bodyLimit,
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        ttl,
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  parseCSVEnv("KAFKA_BROKERS", nil),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return Config{}, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	log.Printf("[config] PORT=%s DB_DRIVER=%s LOG_FILE=%s CORS_ORIGIN=%s REDIS=%t KAFKA=%t",
		cfg.Port, cfg.DBDriver, cfg.LogFile, cfg.CORSOrigin, cfg.RedisURL != "", len(cfg.KafkaBrokers) > 0)
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
