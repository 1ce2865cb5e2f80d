package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	PGHost                string
	PGPort                int
	PGUser                string
	PGPassword            string
	PGDBName              string
	LedgerMigrationsPath  string
	CatalogDBPath         string
	CatalogMigrationsPath string

	KafkaBrokers []string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	pgPort, err := strconv.Atoi(getEnv("PG_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid PG_PORT: %w", err)
	}

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "kioskdb"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		PGHost:                getEnv("PG_HOST", "localhost"),
		PGPort:                pgPort,
		PGUser:                getEnv("PG_USER", "kiosk"),
		PGPassword:            getEnv("PG_PASSWORD", "kiosk"),
		PGDBName:              getEnv("PG_DB_NAME", "kioskledger"),
		LedgerMigrationsPath:  getEnv("LEDGER_MIGRATIONS_PATH", "./db/migrations/ledger"),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./kiosk-menu.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./db/migrations/menu"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
