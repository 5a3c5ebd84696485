package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Auction  AuctionConfig
	Notifier NotifierConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret       string
	DefaultTimezone string
}

// AuctionConfig holds the lifecycle engine settings
type AuctionConfig struct {
	CloseGraceSeconds        int
	AntiSniperDefaultMinutes int
	CloseSchedulerInterval   int
	InvoiceSweepInterval     int
	PlatformFeePercent       float64
	RateLimitDefault         int
	RateLimits               map[string]int
}

// NotifierConfig holds the outbound event channel settings
type NotifierConfig struct {
	NATSURL       string
	RedisAddr     string
	RedisPassword string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "comic_auction"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
		},
		Auction: AuctionConfig{
			CloseGraceSeconds:        getEnvInt("AUCTION_CLOSE_GRACE_SECONDS", 10),
			AntiSniperDefaultMinutes: getEnvInt("ANTI_SNIPER_DEFAULT_MINUTES", 5),
			CloseSchedulerInterval:   getEnvInt("CLOSE_SCHEDULER_INTERVAL_SECONDS", 10),
			InvoiceSweepInterval:     getEnvInt("INVOICE_SWEEP_INTERVAL_SECONDS", 30),
			PlatformFeePercent:       getEnvFloat("PLATFORM_FEE_PERCENT", 0),
			RateLimitDefault:         getEnvInt("RATE_LIMIT_DEFAULT", 1),
			RateLimits:               parseRateLimits(getEnv("RATE_LIMITS", "")),
		},
		Notifier: NotifierConfig{
			NATSURL:       getEnv("NATS_URL", ""),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(config.App.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE %q is not a valid IANA zone: %w", config.App.DefaultTimezone, err)
	}
	if config.Auction.CloseGraceSeconds < 0 {
		return nil, fmt.Errorf("AUCTION_CLOSE_GRACE_SECONDS must not be negative")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// parseRateLimits parses "source:token_type=rps" pairs separated by
// commas, e.g. "facebook:page=10,facebook:user=3".
func parseRateLimits(raw string) map[string]int {
	limits := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		rps, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || rps <= 0 {
			continue
		}
		limits[strings.TrimSpace(key)] = rps
	}
	return limits
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a fallback
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvFloat gets a float environment variable with a fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
