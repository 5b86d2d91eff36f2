package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	HTTPPort    string
	MetricsPort string
	LogLevel    string

	Timezone     *time.Location
	RefreshPause time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

// LoadEnv loads the first .env found in the working directory or its two
// parents, falling back to .example.env next to them. A missing file is not
// an error: the process environment is used as is.
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("config: cannot resolve working directory: %v", err)
		return
	}

	dirs := []string{wd, filepath.Join(wd, ".."), filepath.Join(wd, "..", "..")}

	for _, dir := range dirs {
		envPath := filepath.Join(dir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("Loaded environment variables from %s", envPath)
			return
		}
	}

	for _, dir := range dirs {
		examplePath := filepath.Join(dir, ".example.env")
		if err := godotenv.Load(examplePath); err == nil {
			log.Printf("Loaded environment variables from %s", examplePath)
			return
		}
	}

	log.Println("No .env or .example.env file found, using process environment")
}

func Load() (*Config, error) {
	LoadEnv()
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching
// any .env file.
func FromEnv() (*Config, error) {
	port, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	tzName := getEnv("APP_TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q: %w", tzName, err)
	}

	pause, err := getDuration("APP_REFRESH_PAUSE", time.Second)
	if err != nil {
		return nil, err
	}
	poll, err := getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	batch, err := getInt("OUTBOX_BATCH_SIZE", 20)
	if err != nil {
		return nil, err
	}
	attempts, err := getInt("OUTBOX_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if poll <= 0 {
		return nil, fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive, got %s", poll)
	}
	if batch <= 0 {
		return nil, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", batch)
	}
	if attempts <= 0 {
		return nil, fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive, got %d", attempts)
	}
	if pause < 0 {
		return nil, fmt.Errorf("APP_REFRESH_PAUSE must not be negative, got %s", pause)
	}

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     port,
		DBUser:     getEnv("POSTGRES_USER", "postgres"),
		DBPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:     getEnv("POSTGRES_DB", "retur"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		HTTPPort:    getEnv("APP_PORT", "9000"),
		MetricsPort: getEnv("METRICS_PORT", "9100"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Timezone:     loc,
		RefreshPause: pause,

		KafkaBrokers: brokers,
		KafkaTopic:   getEnv("KAFKA_TOPIC", "retur.events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "retur-recipient-desk"),

		OutboxPollInterval: poll,
		OutboxBatchSize:    batch,
		OutboxMaxAttempts:  attempts,
	}, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c *Config) Addr() string {
	return ":" + c.HTTPPort
}

func (c *Config) MetricsAddr() string {
	return ":" + c.MetricsPort
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
