package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the expiry engine.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (API keys, database password) must only come from the environment.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// AI model endpoints and credentials
	AI AIConfig `yaml:"ai"`

	// Relational store (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Vector store (Qdrant)
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Analyze workflow tuning
	Analysis AnalysisConfig `yaml:"analysis"`
}

// AIConfig holds LLM and embedding endpoint configuration.
// Provider selects the chat-completion backend; embeddings always use the
// OpenAI-compatible endpoint since Anthropic has no embedding API.
type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"` // "openai" or "anthropic"
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4-turbo-preview"`

	EmbeddingEndpoint string `yaml:"embedding_endpoint" env:"EMBEDDING_ENDPOINT" env-default:""` // falls back to Endpoint
	EmbeddingModel    string `yaml:"embedding_model" env:"EMBEDDING_MODEL" env-default:"text-embedding-ada-002"`

	APIKey          string `yaml:"-" env:"OPENAI_API_KEY"`    // Secret - not in YAML
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// EffectiveEmbeddingEndpoint returns the embedding endpoint, falling back
// to the chat endpoint when no dedicated one is configured.
func (c *AIConfig) EffectiveEmbeddingEndpoint() string {
	if c.EmbeddingEndpoint != "" {
		return c.EmbeddingEndpoint
	}
	return c.Endpoint
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"knowledge_agent"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"knowledge_expiry"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
}

// ConnectionString returns a PostgreSQL key/value connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// QdrantConfig holds vector store configuration.
type QdrantConfig struct {
	Host       string `yaml:"host" env:"QDRANT_HOST" env-default:"localhost"`
	Port       int    `yaml:"port" env:"QDRANT_PORT" env-default:"6334"`
	Collection string `yaml:"collection" env:"QDRANT_COLLECTION_NAME" env-default:"knowledge_documents"`
	VectorSize uint64 `yaml:"vector_size" env:"QDRANT_VECTOR_SIZE" env-default:"1536"`
}

// AnalysisConfig holds analyze workflow tuning knobs.
type AnalysisConfig struct {
	// BatchSize is the number of documents processed concurrently per
	// batch. Batches run sequentially, so this bounds peak concurrency.
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE" env-default:"10"`

	// MaxFileSizeMB is the discovery size cap; larger files are skipped.
	MaxFileSizeMB int `yaml:"max_file_size_mb" env:"MAX_FILE_SIZE_MB" env-default:"50"`

	// FileTypes is the default comma-separated extension filter.
	FileTypes string `yaml:"file_types" env:"FILE_TYPES" env-default:"pdf,docx,txt,md"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; the environment and
// defaults are used alone.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.Analysis.BatchSize)
	}
	if c.Analysis.MaxFileSizeMB < 1 {
		return fmt.Errorf("max_file_size_mb must be at least 1, got %d", c.Analysis.MaxFileSizeMB)
	}
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai provider %q (want openai or anthropic)", c.AI.Provider)
	}
	return nil
}

// FileExtensions splits the configured extension filter into a clean list.
func (c *AnalysisConfig) FileExtensions() []string {
	var exts []string
	for _, raw := range strings.Split(c.FileTypes, ",") {
		ext := strings.TrimSpace(strings.TrimPrefix(raw, "."))
		if ext != "" {
			exts = append(exts, strings.ToLower(ext))
		}
	}
	return exts
}
