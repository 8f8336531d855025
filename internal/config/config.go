package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MigrationsPath string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Reconciliation
	Location         *time.Location
	SchedulerEnabled bool
	SchedulerRunAt   string // HH:MM local wall-clock time
	BudgetWorkers    int
	DefaultCurrency  string
	ReconcileAPIKey  string // guards the machine trigger endpoint; empty disables it

	// AdminEmail names the account promoted to admin at startup.
	AdminEmail string

	// Events
	AMQPURL      string
	AMQPExchange string

	// Currency conversion
	CurrencyAPIURL  string
	CurrencyAPIKey  string
	CurrencyTimeout time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "pftsystem"),
		DBPassword: getEnv("DB_PASSWORD", "pftsystem"),
		DBName:     getEnv("DB_NAME", "pftsystem"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerRunAt:   getEnv("SCHEDULER_RUN_AT", "00:00"),
		BudgetWorkers:    getEnvInt("BUDGET_WORKERS", 4),
		DefaultCurrency:  strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		ReconcileAPIKey:  getEnv("RECONCILE_API_KEY", ""),

		AdminEmail: strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pftsystem.events"),

		CurrencyAPIURL:  getEnv("CURRENCY_API_URL", ""),
		CurrencyAPIKey:  getEnv("CURRENCY_API_KEY", ""),
		CurrencyTimeout: getEnvDuration("CURRENCY_TIMEOUT", 10*time.Second),
	}

	config.JWTExpirationDur = getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour)

	loc, err := time.LoadLocation(getEnv("TZ_NAME", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	config.Location = loc

	if _, _, err := ParseRunAt(config.SchedulerRunAt); err != nil {
		return nil, err
	}
	if config.BudgetWorkers < 1 {
		config.BudgetWorkers = 1
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// ParseRunAt parses an HH:MM wall-clock time.
func ParseRunAt(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid SCHEDULER_RUN_AT %q, expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, v, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, v, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, v, defaultValue)
		return defaultValue
	}
	return d
}
