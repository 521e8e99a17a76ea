// Package config loads application configuration from environment
// variables.  A local .env file, when present, is read first.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env         string          // APP_ENV (dev, test, prod)
	Port        string          // APP_PORT
	DBUser      string          // DB_USER
	DBPass      string          // DB_PASS, may be empty
	DBHost      string          // DB_HOST
	DBPort      string          // DB_PORT
	DBName      string          // DB_NAME
	AutoMigrate bool            // DB_AUTO_MIGRATE
	TimeZone    *time.Location  // APP_TZ; "today" and "now" are read in this zone
	LogLevel    logrus.Level    // LOG_LEVEL
	LogFormat   string          // LOG_FORMAT, text or json
	KJBPerHour  decimal.Decimal // KJB_PER_HOUR, booking fee rate
	LogDir      string          // AUDIT_LOG_DIR, where the event consumer writes

	Ledger LedgerConfig
	Queue  QueueConfig
}

// LoadDotEnv reads .env into the environment without overriding
// variables that are already set.  A missing file is not an error.
func LoadDotEnv(log *logrus.Logger) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not read .env")
	}
}

// Load reads the configuration.  Required variables are enforced by
// must(); a missing or malformed value stops the process.
func Load() Config {
	return Config{
		Env:         envStr("APP_ENV", "dev"),
		Port:        envStr("APP_PORT", "8080"),
		DBUser:      must("DB_USER"),
		DBPass:      os.Getenv("DB_PASS"),
		DBHost:      must("DB_HOST"),
		DBPort:      envStr("DB_PORT", "3306"),
		DBName:      must("DB_NAME"),
		AutoMigrate: envBool("DB_AUTO_MIGRATE", false),
		TimeZone:    mustLocation(envStr("APP_TZ", "Local")),
		LogLevel:    logLevel(envStr("LOG_LEVEL", "info")),
		LogFormat:   envStr("LOG_FORMAT", "text"),
		KJBPerHour:  mustDecimal("KJB_PER_HOUR", "10"),
		LogDir:      envStr("AUDIT_LOG_DIR", "logs"),
		Ledger:      LoadLedgerConfig(),
		Queue:       LoadQueueConfig(),
	}
}

// NewLogger builds the process logger from the level and format.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// must retrieves the value of a required environment variable.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustDecimal(key, def string) decimal.Decimal {
	s := envStr(key, def)
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		logrus.Fatalf("invalid positive decimal for %s: %q", key, s)
	}
	return d
}

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logrus.Fatalf("invalid APP_TZ %q: %v", name, err)
	}
	return loc
}

func logLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
