package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings read from the environment. The zero value of
// every field falls back to the defaults declared in environmentVariables.go.
type Config struct {
	ListenAddr string
	IsProd     bool
	LogLevel   string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	JWTSecret  string
	AuthBypass bool

	LLMProvider    string
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	EmbeddingModel string

	QdrantHost string
	QdrantPort int

	MaxUploadBytes   int64
	MinWorkers       int64
	MaxWorkers       int64
	QueueSize        int
	RateLimitEnabled bool
}

var (
	loaded *Config
	once   sync.Once
)

// Load reads .env (when present) and the process environment once.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		loaded = FromEnv(os.Getenv)
	})
	return loaded
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) *Config {
	c := &Config{
		ListenAddr:       stringOr(getenv("LISTEN_ADDR"), ServerListenAddr),
		IsProd:           strings.EqualFold(getenv("APP_ENV"), "prod"),
		LogLevel:         strings.ToLower(getenv("LOG_LEVEL")),
		DatabaseDSN:      stringOr(getenv("DATABASE_DSN"), DefaultDatabaseDSN),
		RedisAddr:        stringOr(getenv("REDIS_ADDR"), RedisAddr),
		RedisPassword:    getenv("REDIS_PASSWORD"),
		S3Endpoint:       stringOr(getenv("S3_ENDPOINT"), DefaultS3Endpoint),
		S3AccessKey:      getenv("S3_ACCESS_KEY"),
		S3SecretKey:      getenv("S3_SECRET_KEY"),
		S3Bucket:         stringOr(getenv("S3_BUCKET"), DefaultS3Bucket),
		S3UseSSL:         boolOr(getenv("S3_USE_SSL"), false),
		JWTSecret:        getenv("JWT_SECRET"),
		AuthBypass:       boolOr(getenv("AUTH_BYPASS"), false),
		LLMProvider:      strings.ToLower(stringOr(getenv("LLM_PROVIDER"), LLMProviderGemini)),
		GeminiAPIKey:     getenv("GEMINI_API_KEY"),
		GeminiModel:      stringOr(getenv("GEMINI_MODEL"), GeminiModelName),
		OpenAIAPIKey:     getenv("OPENAI_API_KEY"),
		OpenAIModel:      stringOr(getenv("OPENAI_MODEL"), OpenAIModelName),
		EmbeddingModel:   stringOr(getenv("EMBEDDING_MODEL"), EmbeddingModel),
		QdrantHost:       getenv("QDRANT_HOST"),
		QdrantPort:       int(intOr(getenv("QDRANT_PORT"), QdrantPort)),
		MaxUploadBytes:   intOr(getenv("MAX_UPLOAD_BYTES"), MaxUploadSize),
		MinWorkers:       intOr(getenv("WORKER_MIN"), MinWorkerCount),
		MaxWorkers:       intOr(getenv("WORKER_MAX"), MaxWorkerCount),
		QueueSize:        int(intOr(getenv("QUEUE_SIZE"), BufferLimit)),
		RateLimitEnabled: boolOr(getenv("RATE_LIMIT_ENABLED"), false),
	}
	if c.MinWorkers < 1 {
		c.MinWorkers = 1
	}
	if c.MaxWorkers < c.MinWorkers {
		c.MaxWorkers = c.MinWorkers
	}
	return c
}

func stringOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func intOr(v string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func boolOr(v string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}
