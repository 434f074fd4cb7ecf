package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	DBMaxOpenConns  int
	JWTSecret       string
	AuthEnabled     bool
	RedisAddr       string
	RedisPassword   string
	CatalogTTL      time.Duration
	RabbitMQURL     string
	OrderExchange   string
	OrderQueue      string
	DeadLetterQueue string
	DelayExchange   string
	MaxPriority     int
	PendingTimeout  time.Duration
	ItemConcurrency int
	// EnforceCatalogTotals makes the order service reject declared totals
	// that disagree with catalog prices.
	EnforceCatalogTotals bool
	AllowedOrigins       []string
}

// Load reads an optional .env file and then builds the config from the
// environment.
func Load(envFile string) *Config {
	if err := godotenv.Load(envFile); err != nil {
		slog.Info("no env file loaded, using process environment", "file", envFile)
	}
	return LoadConfig()
}

func LoadConfig() *Config {
	return &Config{
		Port:                 getEnv("PORT", "3000"),
		DBUser:               getEnv("DB_USER", "root"),
		DBPassword:           getEnvFromFile("DB_PASSWORD_FILE", "DB_PASSWORD", ""),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBName:               getEnv("DB_NAME", "evsu_canteen"),
		DBMaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 20),
		JWTSecret:            getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", ""),
		AuthEnabled:          getEnvBool("AUTH_ENABLED", false),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnvFromFile("REDIS_PASSWORD_FILE", "REDIS_PASSWORD", ""),
		CatalogTTL:           getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		RabbitMQURL:          getEnv("RABBITMQ_URL", ""),
		OrderExchange:        getEnv("ORDER_EXCHANGE", "canteen_orders_exchange"),
		OrderQueue:           getEnv("ORDER_QUEUE", "canteen_orders_queue"),
		DeadLetterQueue:      getEnv("DEAD_LETTER_QUEUE", "canteen_dead_letter_queue"),
		DelayExchange:        getEnv("DELAY_EXCHANGE", "canteen_delay_exchange"),
		MaxPriority:          10,
		PendingTimeout:       getEnvDuration("PENDING_TIMEOUT", 30*time.Minute),
		ItemConcurrency:      getEnvInt("ITEM_CONCURRENCY", 8),
		EnforceCatalogTotals: getEnvBool("ENFORCE_CATALOG_TOTALS", false),
		AllowedOrigins:       getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
