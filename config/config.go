package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port            int
	RedisURL        string
	RedisPassword   string
	MaxSessions     int
	SessionTimeout  time.Duration
	GeminiAPIKey    string
	GeminiModel     string // Override for the Live API model name
	AllowedOrigins  []string
	KeepAlivePeriod time.Duration
	MaxBufferSize   int // Maximum turn audio accumulation in bytes per session

	// Personalization collaborators. Both are optional: a missing URI
	// means the relay runs the persona-only instruction path.
	PostgresURI       string
	MongoURI          string
	MongoDatabase     string
	JournalWindowDays int
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:              8080,
		RedisURL:          "localhost:6379",
		RedisPassword:     "",
		MaxSessions:       100,
		SessionTimeout:    30 * time.Minute,
		AllowedOrigins:    []string{"*"},
		KeepAlivePeriod:   30 * time.Second,
		MaxBufferSize:     5 * 1024 * 1024, // 5MB default
		MongoDatabase:     "moodbuddy",
		JournalWindowDays: 365,
	}

	// Required: GEMINI_API_KEY
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: GEMINI_MODEL
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.GeminiModel = model
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: POSTGRES_URI (profile store)
	if pg := os.Getenv("POSTGRES_URI"); pg != "" {
		config.PostgresURI = pg
	}

	// Optional: MONGO_URI / MONGO_DATABASE (journal store)
	if mongoURI := os.Getenv("MONGO_URI"); mongoURI != "" {
		config.MongoURI = mongoURI
	}
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		config.MongoDatabase = db
	}

	// Optional: JOURNAL_WINDOW_DAYS
	if window := os.Getenv("JOURNAL_WINDOW_DAYS"); window != "" {
		w, err := strconv.Atoi(window)
		if err != nil {
			return nil, fmt.Errorf("invalid JOURNAL_WINDOW_DAYS: %w", err)
		}
		config.JournalWindowDays = w
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: KEEPALIVE_PERIOD (in seconds)
	if keepalive := os.Getenv("KEEPALIVE_PERIOD"); keepalive != "" {
		k, err := strconv.Atoi(keepalive)
		if err != nil {
			return nil, fmt.Errorf("invalid KEEPALIVE_PERIOD: %w", err)
		}
		config.KeepAlivePeriod = time.Duration(k) * time.Second
	}

	// Optional: MAX_BUFFER_SIZE (in bytes)
	if bufferSize := os.Getenv("MAX_BUFFER_SIZE"); bufferSize != "" {
		b, err := strconv.Atoi(bufferSize)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_BUFFER_SIZE: %w", err)
		}
		config.MaxBufferSize = b
	}

	return config, nil
}
