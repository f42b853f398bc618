// Package config loads application settings from a YAML file with environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config mirrors the layout of configs/config.yaml.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Search        SearchConfig        `mapstructure:"search"`
	Enrichment    EnrichmentConfig    `mapstructure:"enrichment"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig groups every database connection.
type DatabaseConfig struct {
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PoolConfig tunes database/sql pooling.
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type MySQLConfig struct {
	DSN  string     `mapstructure:"dsn"`
	Pool PoolConfig `mapstructure:"pool"`
}

// PostgresConfig is only used when search.backend is "pgvector".
type PostgresConfig struct {
	DSN             string     `mapstructure:"dsn"`
	Pool            PoolConfig `mapstructure:"pool"`
	CreateExtension bool       `mapstructure:"create_extension"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds the signing settings for admin tokens.
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// AdminConfig is the single operator account allowed to trigger enrichment.
// PasswordHash is a bcrypt hash.
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig configures the enrichment task topic.
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig configures the vector index used by the "elasticsearch" backend.
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig points at the bucket holding the raw judgment PDFs.
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

type EmbeddingConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

type LLMConfig struct {
	APIKey            string              `mapstructure:"api_key"`
	BaseURL           string              `mapstructure:"base_url"`
	Model             string              `mapstructure:"model"`
	RequestsPerMinute int                 `mapstructure:"requests_per_minute"`
	Timeout           time.Duration       `mapstructure:"timeout"`
	Generation        LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig holds optional sampling parameters.
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SearchConfig tunes the similarity query pipeline.
type SearchConfig struct {
	// Backend is one of "mysql", "pgvector" or "elasticsearch".
	Backend               string        `mapstructure:"backend"`
	DefaultTopN           int           `mapstructure:"default_top_n"`
	MaxTopN               int           `mapstructure:"max_top_n"`
	HydrateWorkers        int           `mapstructure:"hydrate_workers"`
	QueryTimeout          time.Duration `mapstructure:"query_timeout"`
	CategoryFailurePolicy string        `mapstructure:"category_failure_policy"`
	ScorePrecision        int           `mapstructure:"score_precision"`
	SearchArticles        bool          `mapstructure:"search_articles"`
}

// EnrichmentConfig tunes LLM field extraction and its length quality gate.
type EnrichmentConfig struct {
	Model       string `mapstructure:"model"`
	MinTokens   int    `mapstructure:"min_tokens"`
	MaxTokens   int    `mapstructure:"max_tokens"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	// MaxSourceTokens skips parsed documents that are longer than the model context.
	MaxSourceTokens int    `mapstructure:"max_source_tokens"`
	Language        string `mapstructure:"language"`
	Workers         int    `mapstructure:"workers"`
}

const (
	BackendMySQL         = "mysql"
	BackendPgvector      = "pgvector"
	BackendElasticsearch = "elasticsearch"
)

// Load reads the YAML file at path. Every key can be overridden with an environment
// variable, e.g. ENRICH_DATABASE_MYSQL_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.access_token_expire_hours", 12)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("kafka.topic", "enrichment-tasks")
	v.SetDefault("kafka.group_id", "enrichment-consumer")
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("elasticsearch.index_name", "judgment_vectors")
	v.SetDefault("minio.presign_expiry", time.Hour)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.cache_ttl", 24*time.Hour)
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("search.backend", BackendMySQL)
	v.SetDefault("search.default_top_n", 5)
	v.SetDefault("search.max_top_n", 50)
	v.SetDefault("search.hydrate_workers", 4)
	v.SetDefault("search.query_timeout", 30*time.Second)
	v.SetDefault("search.category_failure_policy", "lenient")
	v.SetDefault("search.score_precision", 4)
	v.SetDefault("search.search_articles", true)
	v.SetDefault("enrichment.min_tokens", 100)
	v.SetDefault("enrichment.max_tokens", 512)
	v.SetDefault("enrichment.max_attempts", 10)
	v.SetDefault("enrichment.max_source_tokens", 128000)
	v.SetDefault("enrichment.language", "de")
	v.SetDefault("enrichment.workers", 2)
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Search.Backend {
	case BackendMySQL, BackendElasticsearch:
	case BackendPgvector:
		if c.Database.Postgres.DSN == "" {
			return fmt.Errorf("search.backend %q requires database.postgres.dsn", c.Search.Backend)
		}
	default:
		return fmt.Errorf("unknown search.backend %q", c.Search.Backend)
	}
	if c.Database.MySQL.DSN == "" {
		return fmt.Errorf("database.mysql.dsn is required")
	}
	if c.Enrichment.MinTokens > c.Enrichment.MaxTokens {
		return fmt.Errorf("enrichment.min_tokens (%d) exceeds max_tokens (%d)", c.Enrichment.MinTokens, c.Enrichment.MaxTokens)
	}
	if c.Search.DefaultTopN > c.Search.MaxTopN {
		return fmt.Errorf("search.default_top_n (%d) exceeds max_top_n (%d)", c.Search.DefaultTopN, c.Search.MaxTopN)
	}
	return nil
}
