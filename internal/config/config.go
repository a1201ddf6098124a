// Package config loads BaristaBot configuration from an optional YAML file,
// a .env file and BARISTA_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every error returned by LoadConfig.
var ErrConfiguration = errors.New("configuration error")

// Config is the root configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// HistoryRetention is how long chat messages are kept by the prune task.
	HistoryRetention time.Duration `mapstructure:"history_retention" validate:"min=1h"`
}

type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	EmbeddingModel    string  `mapstructure:"embedding_model"     validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	SystemInstruction string  `mapstructure:"system_instruction"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	// BreakerFailures consecutive failed calls open the circuit for BreakerCooldown.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=1"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"min=1s"`
}

type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"             validate:"required_if=Enabled true"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelegramConfig struct {
	// Token enables the Telegram front end when set.
	Token   string `mapstructure:"token"`
	AdminID int64  `mapstructure:"admin_id" validate:"required_with=Token"`
	// StoreURL prefixes product links in replies. Empty leaves them relative.
	StoreURL string `mapstructure:"store_url" validate:"omitempty,url"`

	// BotInfo is filled at startup from GetMe.
	BotInfo *models.User `mapstructure:"-"`
}

type RedisConfig struct {
	// Addr enables the embedding cache when set.
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"       validate:"min=0"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RetrievalConfig struct {
	DocumentsDir   string `mapstructure:"documents_dir"`
	ChunkSize      int    `mapstructure:"chunk_size"       validate:"min=50"`
	ChunkOverlap   int    `mapstructure:"chunk_overlap"    validate:"min=0,ltfield=ChunkSize"`
	TopK           int    `mapstructure:"top_k"            validate:"min=1,max=50"`
	EmbedBatchSize int    `mapstructure:"embed_batch_size" validate:"min=1,max=100"`
	RebuildOnStart bool   `mapstructure:"rebuild_on_start"`
}

type AssistantConfig struct {
	HistoryTurns   int           `mapstructure:"history_turns"   validate:"min=1,max=50"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s"`
}

type CatalogConfig struct {
	// Path of a catalog.json imported at startup. Empty disables the import.
	Path string `mapstructure:"path"`
}

type MessagesConfig struct {
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	Help          string `mapstructure:"help"           validate:"required"`
	NotAuthorized string `mapstructure:"not_authorized" validate:"required"`
	HistoryReset  string `mapstructure:"history_reset"  validate:"required"`
	GeneralError  string `mapstructure:"general_error"  validate:"required"`
	Blocked       string `mapstructure:"blocked"        validate:"required"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", "baristabot.db")
	v.SetDefault("database.history_retention", 30*24*time.Hour)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.0-flash")
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 2)
	v.SetDefault("gemini.breaker_failures", 5)
	v.SetDefault("gemini.breaker_cooldown", 30*time.Second)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.store_url", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("retrieval.documents_dir", "data/documents")
	v.SetDefault("retrieval.chunk_size", 300)
	v.SetDefault("retrieval.chunk_overlap", 50)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.embed_batch_size", 50)
	v.SetDefault("retrieval.rebuild_on_start", false)

	v.SetDefault("assistant.history_turns", 5)
	v.SetDefault("assistant.request_timeout", 2*time.Minute)

	v.SetDefault("catalog.path", "")

	v.SetDefault("messages.welcome", "Welcome to the coffee shop! Ask me about our coffees, your order or our store.")
	v.SetDefault("messages.help", "Ask me anything about our products, refunds and returns, delivery or opening hours.\n\n/start - greeting\n/help - this message\n/reset - clear conversation history (admin only)")
	v.SetDefault("messages.not_authorized", "You are not authorized to use this command.")
	v.SetDefault("messages.history_reset", "Conversation history has been cleared.")
	v.SetDefault("messages.general_error", "I apologize, but I encountered an error while processing your request.")
	v.SetDefault("messages.blocked", "I cannot provide information on harmful or dangerous topics.")

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance":    map[string]any{"enabled": true, "schedule": "0 0 3 * * 0"},
		"chat_history_prune": map[string]any{"enabled": true, "schedule": "0 30 3 * * *"},
		"reindex":            map[string]any{"enabled": false, "schedule": "0 0 4 * * *"},
	})
}

// LoadConfig reads configuration from path. A missing file is not an error;
// defaults and environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BARISTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read %s: %w", ErrConfiguration, path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return cfg, nil
}
