// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppName     = "campusconnect"
	EnvFileName = "config.env"
)

// Listing sources.
const (
	SourceSQLite    = "sqlite"
	SourceFirestore = "firestore"
	SourceMongo     = "mongodb"
)

// Cache types.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Storage   StorageConfig
	Firestore FirestoreConfig
	Mongo     MongoConfig
	Cache     CacheConfig
	Gemini    GeminiConfig
	Pricing   PricingConfig
	Telegram  TelegramConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"SERVER_CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	// LogFile tees logs to a file in development. Empty disables it.
	LogFile string `envconfig:"APP_LOG_FILE" default:"campusconnect.log"`
}

// StorageConfig selects where listings come from.
type StorageConfig struct {
	DBPath        string `envconfig:"CAMPUSCONNECT_DB_PATH" default:"campusconnect.db"`
	ListingSource string `envconfig:"LISTING_SOURCE" default:"sqlite"`
}

// FirestoreConfig holds Firestore REST settings.
type FirestoreConfig struct {
	ProjectID  string `envconfig:"FIRESTORE_PROJECT_ID" default:""`
	Collection string `envconfig:"FIRESTORE_COLLECTION" default:"listings"`
	APIKey     string `envconfig:"FIRESTORE_API_KEY" default:""`
	AuthToken  string `envconfig:"FIRESTORE_AUTH_TOKEN" default:""`
}

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI        string `envconfig:"MONGODB_URI" default:""`
	Database   string `envconfig:"MONGODB_DATABASE" default:"campusconnect"`
	Collection string `envconfig:"MONGODB_COLLECTION" default:"listings"`
}

// CacheConfig holds the generated text cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"`
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"6h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// GeminiConfig holds Gemini API settings. An empty key disables the AI
// fallback and photo analysis.
type GeminiConfig struct {
	APIKey string `envconfig:"GEMINI_API_KEY" default:""`
}

// PricingConfig holds price advisor settings.
type PricingConfig struct {
	BasePricesFile string `envconfig:"PRICING_BASE_PRICES_FILE" default:""`
}

// TelegramConfig holds bot settings. An empty token disables the bot.
type TelegramConfig struct {
	BotToken string `envconfig:"BOT_TOKEN" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// LoadEnvFile loads .env from the working directory and config.env from the
// user's config directory. Variables already set are not overridden. Errors
// are ignored since the files may not exist.
func LoadEnvFile() {
	_ = godotenv.Load()

	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Storage.ListingSource {
	case SourceSQLite:
	case SourceFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required when LISTING_SOURCE=%s", SourceFirestore)
		}
	case SourceMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGODB_URI is required when LISTING_SOURCE=%s", SourceMongo)
		}
	default:
		return fmt.Errorf("unknown LISTING_SOURCE %q", c.Storage.ListingSource)
	}

	switch c.Cache.Type {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown CACHE_TYPE %q", c.Cache.Type)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}

	return nil
}
