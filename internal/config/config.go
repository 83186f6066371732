package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	LLM          LLMConfig
	Agent        AgentConfig
	Safety       SafetyConfig
	Knowledge    KnowledgeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	Enabled           bool
	EmbeddingTTLHours int
	AnalysisTTLHours  int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Format      string
	Output      string
	Development bool
}

// AuthConfig defines API client authentication.
type AuthConfig struct {
	Enabled               bool
	JWTSecret             string
	AccessTokenTTLMinutes int
	ClientID              string
	ClientSecretHash      string
	BcryptCost            int
}

// NotificationConfig holds the outbound webhook target.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
}

// LLMConfig configures the completion and embedding service.
type LLMConfig struct {
	APIKey                string
	BaseURL               string
	Model                 string
	EmbeddingModel        string
	RequestTimeoutSeconds int
}

// AgentConfig bounds the reasoning loop and its retries.
type AgentConfig struct {
	MaxSteps        int
	RetryAttempts   int
	RetryBaseMillis int
	RetryMaxMillis  int
	SafetyCheck     bool
	MaxKBArticles   int
	AnalysisTimeout int
	MaxConcurrent   int
}

// SafetyConfig configures the content-safety classifier.
type SafetyConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// KnowledgeConfig selects and tunes the knowledge-base backend.
type KnowledgeConfig struct {
	Backend             string
	SimilarityThreshold float64
	MinSimilarity       float64
	TopK                int
	Reranking           bool
	CategoryBonus       float64
	SeedOnStart         bool
	WeaviateURL         string
	WeaviateAPIKey      string
	WeaviateClass       string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("KB_BACKEND", "memory"))
	switch backend {
	case "memory", "postgres", "weaviate":
	default:
		return nil, fmt.Errorf("invalid KB_BACKEND %q: want memory, postgres or weaviate", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-advisor"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:          os.Getenv("REDIS_PASSWORD"),
			DB:                redisDB,
			Enabled:           getEnvAsBool("REDIS_ENABLED", true),
			EmbeddingTTLHours: getEnvAsInt("REDIS_EMBEDDING_TTL_HOURS", 24*7),
			AnalysisTTLHours:  getEnvAsInt("REDIS_ANALYSIS_TTL_HOURS", 24),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Output:      getEnv("LOG_OUTPUT", "stdout"),
			Development: getEnv("APP_ENV", "development") == "development",
		},
		Auth: AuthConfig{
			Enabled:               getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			ClientID:              getEnv("AUTH_CLIENT_ID", "ticket-advisor"),
			ClientSecretHash:      os.Getenv("AUTH_CLIENT_SECRET_HASH"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
		LLM: LLMConfig{
			APIKey:                os.Getenv("OPENAI_API_KEY"),
			BaseURL:               os.Getenv("OPENAI_BASE_URL"),
			Model:                 getEnv("MODEL_NAME", "gpt-4o-mini"),
			EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			RequestTimeoutSeconds: getEnvAsInt("LLM_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Agent: AgentConfig{
			MaxSteps:        getEnvAsInt("MAX_REACT_STEPS", 7),
			RetryAttempts:   getEnvAsInt("AGENT_RETRY_ATTEMPTS", 3),
			RetryBaseMillis: getEnvAsInt("AGENT_RETRY_BASE_MS", 1000),
			RetryMaxMillis:  getEnvAsInt("AGENT_RETRY_MAX_MS", 10000),
			SafetyCheck:     getEnvAsBool("SAFETY_CHECK_ENABLED", true),
			MaxKBArticles:   getEnvAsInt("AGENT_MAX_KB_ARTICLES", 3),
			AnalysisTimeout: getEnvAsInt("AGENT_ANALYSIS_TIMEOUT_SECONDS", 0),
			MaxConcurrent:   getEnvAsInt("AGENT_MAX_CONCURRENT", 8),
		},
		Safety: SafetyConfig{
			APIKey:  os.Getenv("TOGETHER_API_KEY"),
			BaseURL: getEnv("SAFETY_BASE_URL", "https://api.together.xyz/v1"),
			Model:   getEnv("SAFETY_MODEL", "meta-llama/Meta-Llama-Guard-3-8B"),
		},
		Knowledge: KnowledgeConfig{
			Backend:             backend,
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.7),
			MinSimilarity:       getEnvAsFloat("KB_MIN_SIMILARITY", 0.5),
			TopK:                getEnvAsInt("KB_TOP_K", 3),
			Reranking:           getEnvAsBool("KB_RERANKING", true),
			CategoryBonus:       getEnvAsFloat("KB_CATEGORY_BONUS", 0.2),
			SeedOnStart:         getEnvAsBool("KB_SEED_ON_START", backend == "memory"),
			WeaviateURL:         getEnv("WEAVIATE_URL", "http://localhost:8081"),
			WeaviateAPIKey:      os.Getenv("WEAVIATE_API_KEY"),
			WeaviateClass:       getEnv("WEAVIATE_CLASS", "KBArticle"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// EmbeddingTTL is how long cached query embeddings live.
func (r RedisConfig) EmbeddingTTL() time.Duration {
	return time.Duration(r.EmbeddingTTLHours) * time.Hour
}

// AnalysisTTL is how long cached analyses live.
func (r RedisConfig) AnalysisTTL() time.Duration {
	return time.Duration(r.AnalysisTTLHours) * time.Hour
}

// RequestTimeout bounds a single completion or embedding call.
func (l LLMConfig) RequestTimeout() time.Duration {
	return seconds(l.RequestTimeoutSeconds)
}

// WebhookTimeout bounds a single webhook delivery.
func (n NotificationConfig) WebhookTimeout() time.Duration {
	return seconds(n.WebhookTimeoutSeconds)
}

// RetryBase is the first backoff interval.
func (a AgentConfig) RetryBase() time.Duration {
	return time.Duration(a.RetryBaseMillis) * time.Millisecond
}

// RetryMax caps the backoff interval.
func (a AgentConfig) RetryMax() time.Duration {
	return time.Duration(a.RetryMaxMillis) * time.Millisecond
}

// Timeout bounds a whole analysis; zero means unbounded.
func (a AgentConfig) Timeout() time.Duration {
	return seconds(a.AnalysisTimeout)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
