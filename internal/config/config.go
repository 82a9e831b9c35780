package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"tarik-chat-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Store    StoreConfig
	Ai       AIConfig
	Otel     OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	NotifyLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type AuthConfig struct {
	JwtSecret string
	JwtTTL    time.Duration
}

type DatabaseConfig struct {
	// SessionDriver is one of mongo, postgres or memory.
	SessionDriver string
	MongoURI      string
	MongoDBName   string
	Connection    string
}

type StoreConfig struct {
	// LocalDriver is one of memory, redis or bolt.
	LocalDriver       string
	BoltPath          string
	MaxStoredMessages int
	MaxContentLength  int
	LocalQuotaBytes   int
	TurnReplyTimeout  time.Duration
	IdleTTL           time.Duration
}

type AIConfig struct {
	LLMProvider   string // "gemini" or "ollama"
	GoogleGemini  string
	GeminiModel   string
	OllamaBaseURL string
	LLMModel      string
}

type OtelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			NotifyLogFilePath:  getEnv("NOTIFICATION_LOG_FILE_PATH", "logs/notification.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
			JwtTTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Database: DatabaseConfig{
			SessionDriver: strings.ToLower(getEnv("SESSION_STORE_DRIVER", "mongo")),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDBName:   getEnv("MONGO_DB_NAME", "tarikchat"),
			Connection:    getEnv("DB_CONNECTION_STRING", ""),
		},
		Store: StoreConfig{
			LocalDriver:       strings.ToLower(getEnv("LOCAL_STORE_DRIVER", "memory")),
			BoltPath:          getEnv("BOLT_PATH", "tarikchat.db"),
			MaxStoredMessages: getEnvAsInt("MAX_STORED_MESSAGES", constant.MaxStoredMessages),
			MaxContentLength:  getEnvAsInt("MAX_MESSAGE_CONTENT_LENGTH", constant.MaxMessageContentLength),
			LocalQuotaBytes:   getEnvAsInt("LOCAL_STORE_QUOTA_BYTES", 5*1024*1024),
			TurnReplyTimeout:  getEnvAsDuration("TURN_REPLY_TIMEOUT", 90*time.Second),
			IdleTTL:           getEnvAsDuration("STORE_IDLE_TTL", 30*time.Minute),
		},
		Ai: AIConfig{
			LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			GoogleGemini:  getEnv("GOOGLE_GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
		},
		Otel: OtelConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s") or plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
