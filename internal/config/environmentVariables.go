package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"
	OWNER_ID_KEY   = "ownerId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//worker pool
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 8
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	ExtractJobTimeout               = 2 * time.Minute
	AnnotateJobTimeout              = 5 * time.Minute

	//serverTimeouts
	ReadTimeout            = 30 * time.Second
	WriteTimeout           = 3 * time.Minute
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 15 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//uploads
	MaxUploadSize    int64 = 32 << 20 //32mb
	MaxURLFetchBytes int64 = 5 << 20
	URLFetchTimeout        = 20 * time.Second
	PDFPageTimeout         = 10 * time.Second

	//document store
	DefaultDatabaseDSN = "sqlite:docmind.db"

	//object store
	DefaultS3Endpoint = "127.0.0.1:9000"
	DefaultS3Bucket   = "docmind-documents"

	//vectorDB
	QdrantPort             = 6334 //grpc
	QdrantUseTLS           = false
	QdrantPoolSize         = 1
	SemanticCollectionName = "docmind-chunks"
	ChunkSize              = 1000
	ChunkOverlap           = 150
	EmbeddingBatchSize     = 100

	EmbeddingOutputDimensionality int32 = 768

	//llm
	LLMProviderGemini = "gemini"
	LLMProviderOpenAI = "openai"
	GeminiModelName   = "gemini-2.5-flash"
	OpenAIModelName   = "gpt-4o-mini"
	EmbeddingModel    = "gemini-embedding-001"

	ModelTemperature float32 = 0.3
	MaxPromptRunes           = 60000
	LLMRequestTimeout        = 90 * time.Second

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisJobStore    = 0
	RedisJobStoreTTL = 24 * time.Hour

	//annotation defaults
	DefaultSummaryType     = "standard"
	DefaultLanguage        = "en"
	DefaultRestructureMode = "study_notes"
	DefaultMaxConcepts     = 20

	AuthTokenIssuer = "docmind"
	DevOwnerID      = "00000000-0000-0000-0000-000000000001"
)
