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
	Port          string
	GinMode       string
	LogLevel      string
	CORSOrigins   []string
	PublicBaseURL string

	// Storage layout
	DocumentsDir string
	IndexDir     string
	MaxFileSize  int64

	// AI providers: "google" (default) or "openai"
	LLMProvider           string
	EmbeddingsProvider    string
	GeminiAPIKey          string
	GeminiChatModel       string
	GoogleEmbeddingsModel string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIChatModel       string
	OpenAIEmbeddingsModel string
	Temperature           float64

	// Upstream call guard
	UpstreamTimeout    time.Duration
	UpstreamMaxRetries int
	UpstreamRPM        int

	// Conversation history kept per tenant; 0 keeps every turn
	ChatHistoryMaxTurns int

	// MongoDB upload catalog (optional)
	MongoURI string
	DBName   string

	// Redis rate limiting and async load queue (optional)
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RateLimitReqs   int
	RateLimitWindow int

	// OpenTelemetry
	OTLPEndpoint string
	ServiceName  string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8000"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		LogLevel:      getEnv("LOG_LEVEL", ""),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),

		DocumentsDir: getEnv("DOCUMENTS_DIR", "./documents"),
		IndexDir:     getEnv("INDEX_DIR", "./db"),
		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB per uploaded file

		LLMProvider:           getEnv("LLM_PROVIDER", "google"),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiChatModel:       getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		OpenAIChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),
		Temperature:           getEnvFloat64("LLM_TEMPERATURE", 0.2),

		UpstreamTimeout:    time.Duration(getEnvInt("UPSTREAM_TIMEOUT", 30)) * time.Second,
		UpstreamMaxRetries: getEnvInt("UPSTREAM_MAX_RETRIES", 2),
		UpstreamRPM:        getEnvInt("UPSTREAM_RPM", 600),

		ChatHistoryMaxTurns: getEnvInt("CHAT_HISTORY_MAX_TURNS", 20),

		MongoURI: getEnv("MONGO_URI", ""),
		DBName:   getEnv("DB_NAME", "docchat"),

		RedisURL:        getEnv("REDIS_URL", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "docchat-service"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every selected provider has its credentials.
func (c *Config) Validate() error {
	for _, provider := range []string{c.LLMProvider, c.EmbeddingsProvider} {
		switch provider {
		case "google", "":
			if c.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
			}
		case "openai":
			if c.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required - set it in .env file")
			}
		default:
			return fmt.Errorf("unknown AI provider: %s", provider)
		}
	}

	if c.ChatHistoryMaxTurns < 0 {
		return fmt.Errorf("CHAT_HISTORY_MAX_TURNS must not be negative")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
